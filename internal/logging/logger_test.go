package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToLogDir(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "debug", Format: "text"})
	defer Shutdown()

	Logger().Info("hello", slog.String("k", "v"))

	data, err := os.ReadFile(filepath.Join(dir, "showsync.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestForComponentPicksUpLateInit(t *testing.T) {
	// Component logger created before Init must still route to the real
	// handler afterwards.
	log := ForComponent(CompWatch)

	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	defer Shutdown()

	log.Warn("late_binding")

	out := buf.String()
	if !strings.Contains(out, "late_binding") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "component=watch") {
		t.Errorf("expected component attr, got %q", out)
	}
}

func TestLoggerBeforeInitDiscards(t *testing.T) {
	Shutdown()
	// Must not panic, must return a usable logger.
	Logger().Info("dropped")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelWarn)
	defer Shutdown()

	log := ForComponent(CompDispatch)
	log.Debug("too_quiet")
	log.Warn("loud_enough")

	out := buf.String()
	if strings.Contains(out, "too_quiet") {
		t.Errorf("debug message should be filtered: %q", out)
	}
	if !strings.Contains(out, "loud_enough") {
		t.Errorf("warn message missing: %q", out)
	}
}
