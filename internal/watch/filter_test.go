package watch

import (
	"path/filepath"
	"testing"
)

func TestFilterRejectsOutsideRoot(t *testing.T) {
	f := NewFilter("/project", []string{"**"}, nil)
	if f.Relevant("/elsewhere/file.md") {
		t.Error("path outside root should be rejected")
	}
	if !f.Relevant("/project/file.md") {
		t.Error("path inside root should be accepted")
	}
}

func TestFilterExclusionsAtAnyLevel(t *testing.T) {
	f := NewFilter("/project", []string{"**"}, []string{".git", "node_modules", "*.pyc"})

	cases := []struct {
		path string
		want bool
	}{
		{"/project/README.md", true},
		{"/project/.git/config", false},
		{"/project/sub/.git/HEAD", false},
		{"/project/node_modules/pkg/index.js", false},
		{"/project/deep/nested/node_modules/x.js", false},
		{"/project/src/cache.pyc", false},
		{"/project/src/main.py", true},
	}
	for _, tc := range cases {
		if got := f.Relevant(tc.path); got != tc.want {
			t.Errorf("Relevant(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestFilterPatterns(t *testing.T) {
	f := NewFilter("/project", []string{"**/*.md", "media/**"}, nil)

	cases := []struct {
		path string
		want bool
	}{
		{"/project/README.md", true},
		{"/project/docs/guide.md", true},
		{"/project/media/demo.mp4", true},
		{"/project/media/clips/intro.mov", true},
		{"/project/main.go", false},
		{"/project/docs/img.png", false},
	}
	for _, tc := range cases {
		if got := f.Relevant(tc.path); got != tc.want {
			t.Errorf("Relevant(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestGlobMatchDoubleStar(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"**", "anything/at/all.txt", true},
		{"**/*.md", "a/b/c.md", true},
		{"**/*.md", "c.md", true},
		{"docs/**", "docs/a/b.txt", true},
		{"docs/**", "src/a.txt", false},
		{"*.md", "sub/a.md", false},
	}
	for _, tc := range cases {
		if got := globMatch(tc.pattern, tc.path); got != tc.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestFilterRelativePathHandling(t *testing.T) {
	root := t.TempDir()
	f := NewFilter(root, []string{"**"}, []string{".git"})
	if !f.Relevant(filepath.Join(root, "x", "y.txt")) {
		t.Error("nested file under root should be relevant")
	}
	if f.Relevant(filepath.Join(root, "..", "escape.txt")) {
		t.Error("path escaping root should be rejected")
	}
}
