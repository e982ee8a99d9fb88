package analyze

import (
	"context"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Decoders registered for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// MediaMetadata is best-effort dimension/duration information for a media
// file. Any field may be zero when extraction failed.
type MediaMetadata struct {
	Width        int
	Height       int
	DurationSecs float64
	Format       string
}

// probeTimeout bounds the external ffprobe call so a wedged tool cannot
// stall the worker.
const probeTimeout = 5 * time.Second

// ProbeMedia extracts media metadata. Failures degrade to nil or partial
// metadata, never an error: metadata is decoration, not a gate.
func ProbeMedia(ctx context.Context, path string) *MediaMetadata {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		return probeImage(path)
	case ".mp4", ".mov", ".webm", ".avi", ".mp3", ".wav", ".ogg", ".flac":
		return probeDuration(ctx, path, ext)
	case ".svg", ".webp", ".ico":
		return &MediaMetadata{Format: strings.TrimPrefix(ext, ".")}
	default:
		return nil
	}
}

func probeImage(path string) *MediaMetadata {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		analyzeLog.Debug("image_probe_failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &MediaMetadata{Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")}
	}
	return &MediaMetadata{Width: cfg.Width, Height: cfg.Height, Format: format}
}

// probeDuration shells out to ffprobe when available. Missing tool or a
// parse failure yields format-only metadata.
func probeDuration(ctx context.Context, path, ext string) *MediaMetadata {
	meta := &MediaMetadata{Format: strings.TrimPrefix(ext, ".")}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return meta
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return meta
	}
	meta.DurationSecs = secs
	return meta
}
