package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tbardale/showsync/internal/analyze"
	"github.com/tbardale/showsync/internal/config"
	"github.com/tbardale/showsync/internal/logging"
	"github.com/tbardale/showsync/internal/release"
	"github.com/tbardale/showsync/internal/syncq"
	"github.com/tbardale/showsync/internal/watch"
)

const Version = "0.3.1"

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("showsync v%s\n", Version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "init":
			handleInit(args[1:])
			return
		case "watch":
			handleWatch(args[1:])
			return
		case "pending":
			handlePending(args[1:])
			return
		case "releases":
			handleReleases(args[1:])
			return
		}
	}

	printHelp()
	os.Exit(1)
}

func printHelp() {
	fmt.Print(`showsync - project change detection and sync triggering

Usage:
  showsync init [-c config]          Write a default showsync.toml
  showsync watch [-c config]         Watch the project and queue sync operations
  showsync pending [-c config]       List queued sync operations
  showsync releases [-c config]      Report new tags/commits since last check
  showsync version                   Print version

The config file defaults to ./showsync.toml.
`)
}

func loadConfig(fs *flag.FlagSet, args []string) *config.Config {
	cfgPath := fs.String("c", config.FileName, "config file path")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "showsync: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func initLogging(cfg *config.Config) {
	logging.Init(logging.Config{
		LogDir:     cfg.Logs.Dir,
		Level:      cfg.Logs.Level,
		Format:     cfg.Logs.Format,
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   true,
	})
}

func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfgPath := fs.String("c", config.FileName, "config file path")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	if _, err := os.Stat(*cfgPath); err == nil {
		fmt.Fprintf(os.Stderr, "showsync: %s already exists\n", *cfgPath)
		os.Exit(1)
	}

	root, err := filepath.Abs(filepath.Dir(*cfgPath))
	if err != nil {
		root = "."
	}
	cfg := config.Default(root)
	if err := cfg.Save(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "showsync: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *cfgPath)
}

func handleWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg := loadConfig(fs, args)
	initLogging(cfg)
	defer logging.Shutdown()

	store, err := syncq.Open(cfg.SyncDBPath(), cfg.SyncBuffer())
	if err != nil {
		fmt.Fprintf(os.Stderr, "showsync: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	watcher, err := watch.New(watch.Options{
		Root:          cfg.ProjectRoot,
		Patterns:      cfg.WatchPatterns,
		Exclusions:    cfg.Exclusions(),
		DebounceDelay: cfg.DebounceDelay(),
		QueueSize:     cfg.QueueSize(),
		HistorySize:   cfg.HistorySize(),
		Analyzer:      analyze.NewAnalyzer(cfg.Analyze.HashRateLimit),
		Sync:          store,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "showsync: %v\n", err)
		os.Exit(1)
	}

	watcher.AddChangeObserver(func(rec watch.ChangeRecord) {
		marker := " "
		if rec.Significant {
			marker = "*"
		}
		fmt.Printf("%s %s %-8s %-13s %s\n",
			rec.Timestamp.Format("15:04:05"), marker, rec.Kind, rec.Category, rec.Path)
	})

	if err := watcher.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "showsync: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Release polling is optional and purely additive.
	if interval := cfg.ReleasePollInterval(); interval > 0 {
		inspector := release.NewInspector(cfg.ProjectRoot, cfg.CommitDepth())
		inspector.Prime(ctx)
		go inspector.Poll(ctx, interval, func(events []release.Event) {
			for _, ev := range events {
				fmt.Printf("%s   %-8s %s %s\n",
					ev.Timestamp.Format("15:04:05"), ev.Kind, ev.RefName, ev.Message)
			}
		})
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.ProjectRoot)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Stopping...")
	if err := watcher.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "showsync: stop: %v\n", err)
	}
	store.Flush(2 * time.Second)
}

func handlePending(args []string) {
	fs := flag.NewFlagSet("pending", flag.ExitOnError)
	cfg := loadConfig(fs, args)

	store, err := syncq.Open(cfg.SyncDBPath(), cfg.SyncBuffer())
	if err != nil {
		fmt.Fprintf(os.Stderr, "showsync: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ops, err := store.Pending()
	if err != nil {
		fmt.Fprintf(os.Stderr, "showsync: %v\n", err)
		os.Exit(1)
	}
	if len(ops) == 0 {
		fmt.Println("No pending sync operations.")
		return
	}
	for _, op := range ops {
		fmt.Printf("%-22s p%-2d %-12s %s\n", op.Type, op.Priority, op.TargetField, op.SourcePath)
	}
}

func handleReleases(args []string) {
	fs := flag.NewFlagSet("releases", flag.ExitOnError)
	cfg := loadConfig(fs, args)

	inspector := release.NewInspector(cfg.ProjectRoot, cfg.CommitDepth())
	events := inspector.Check(context.Background())
	if len(events) == 0 {
		fmt.Println("No new tags or commits.")
		return
	}
	for _, ev := range events {
		ref := ev.RefName
		if ref == "" {
			ref = ev.Revision[:min(12, len(ev.Revision))]
		}
		fmt.Printf("%s %-7s %-20s %s\n",
			ev.Timestamp.Format("2006-01-02 15:04"), ev.Kind, ref, ev.Message)
	}
}
