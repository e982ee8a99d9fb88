package analyze

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want Category
	}{
		{"/p/README.md", CategoryDocumentation},
		{"/p/readme", CategoryDocumentation},
		{"/p/CHANGELOG.md", CategoryDocumentation},
		{"/p/LICENSE", CategoryDocumentation},
		{"/p/docs/guide.rst", CategoryDocumentation},
		{"/p/notes.txt", CategoryDocumentation},
		{"/p/screenshot.png", CategoryMedia},
		{"/p/demo.mp4", CategoryMedia},
		{"/p/assets/logo", CategoryMedia},
		{"/p/package.json", CategoryMetadata},
		{"/p/go.mod", CategoryMetadata},
		{"/p/Cargo.toml", CategoryMetadata},
		{"/p/settings.yaml", CategoryMetadata},
		{"/p/main.go", CategorySource},
		{"/p/app.py", CategorySource},
		{"/p/lib/util.ts", CategorySource},
		{"/p/Makefile", CategoryOther},
		{"/p/data.bin", CategoryOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

func TestIsManifest(t *testing.T) {
	if !IsManifest("/x/package.json") {
		t.Error("package.json is a manifest")
	}
	if !IsManifest("/x/pyproject.toml") {
		t.Error("pyproject.toml is a manifest")
	}
	if IsManifest("/x/data.json") {
		t.Error("data.json is not a manifest")
	}
}
