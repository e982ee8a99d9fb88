package analyze

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestProbeImageDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 12, 7))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	meta := ProbeMedia(context.Background(), path)
	if meta == nil {
		t.Fatal("expected metadata for png")
	}
	if meta.Width != 12 || meta.Height != 7 {
		t.Errorf("dimensions = %dx%d, want 12x7", meta.Width, meta.Height)
	}
	if meta.Format != "png" {
		t.Errorf("format = %q", meta.Format)
	}
}

func TestProbeCorruptImageDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Degrades to format-only metadata, never an error.
	meta := ProbeMedia(context.Background(), path)
	if meta == nil {
		t.Fatal("expected format-only metadata")
	}
	if meta.Width != 0 || meta.Height != 0 {
		t.Errorf("corrupt image should have zero dimensions: %+v", meta)
	}
}

func TestProbeNonMediaReturnsNil(t *testing.T) {
	if meta := ProbeMedia(context.Background(), "/p/file.txt"); meta != nil {
		t.Errorf("expected nil for non-media, got %+v", meta)
	}
}
