package analyze

import "testing"

func TestScoreTable(t *testing.T) {
	cases := []struct {
		relPath  string
		category Category
		want     float64
	}{
		{"README.md", CategoryDocumentation, 1.0},
		{"package.json", CategoryMetadata, 0.9},
		{"CHANGELOG.md", CategoryDocumentation, 0.8},
		{"media/demo.mp4", CategoryMedia, 0.8},
		{"media/clip.mp4", CategoryMedia, 0.5},
		{"docs/guide.md", CategoryDocumentation, 0.6},
		{"main.go", CategorySource, 0.4},
		{"settings.ini", CategoryMetadata, 0.3},
		{"misc.dat", CategoryOther, 0.1},
	}
	for _, tc := range cases {
		if got := Score(tc.relPath, tc.category, false); got != tc.want {
			t.Errorf("Score(%q, %s) = %f, want %f", tc.relPath, tc.category, got, tc.want)
		}
	}
}

func TestScoreNestedReadmeBelowRoot(t *testing.T) {
	root := Score("README.md", CategoryDocumentation, false)
	nested := Score("docs/README.md", CategoryDocumentation, false)
	if root != 1.0 {
		t.Errorf("root README = %f, want 1.0", root)
	}
	if nested >= root {
		t.Errorf("nested README = %f, must score below the root one", nested)
	}
	if !IsSignificant(nested) {
		t.Error("nested README edits are still significant")
	}
}

func TestScoreCreationBoost(t *testing.T) {
	base := Score("main.go", CategorySource, false)
	boosted := Score("main.go", CategorySource, true)
	if boosted <= base {
		t.Errorf("creation boost missing: %f <= %f", boosted, base)
	}

	// Boost is capped at 1.0.
	if got := Score("README.md", CategoryDocumentation, true); got != 1.0 {
		t.Errorf("capped score = %f, want 1.0", got)
	}
}

func TestIsSignificant(t *testing.T) {
	if !IsSignificant(0.5) {
		t.Error("0.5 should be significant")
	}
	if IsSignificant(0.49) {
		t.Error("0.49 should not be significant")
	}
}
