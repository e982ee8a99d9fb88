// Package analyze computes content fingerprints, structural/media
// classification and significance scores for changed paths.
package analyze

import (
	"path/filepath"
	"strings"
)

// Category is the structural classification of a path.
type Category string

const (
	CategoryDocumentation Category = "documentation"
	CategoryMedia         Category = "media"
	CategoryMetadata      Category = "metadata"
	CategorySource        Category = "source"
	CategoryOther         Category = "other"
)

var docExtensions = map[string]bool{
	".md": true, ".markdown": true, ".rst": true, ".adoc": true, ".txt": true,
}

var mediaExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true,
	".mp4": true, ".mov": true, ".webm": true, ".avi": true,
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true,
}

var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".jsx": true,
	".tsx": true, ".rs": true, ".java": true, ".kt": true, ".rb": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cs": true,
	".sh": true, ".swift": true, ".scala": true, ".php": true,
}

var metadataExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".ini": true, ".cfg": true, ".xml": true, ".properties": true,
}

// manifestNames are package manifests; classified as metadata but weighted
// higher by the significance table.
var manifestNames = map[string]bool{
	"package.json": true, "pyproject.toml": true, "go.mod": true,
	"cargo.toml": true, "composer.json": true, "setup.py": true,
	"setup.cfg": true, "gemfile": true, "pom.xml": true, "build.gradle": true,
}

// Classify buckets a path into one of the five categories using filename,
// extension and path-segment heuristics.
func Classify(path string) Category {
	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))
	stem := strings.TrimSuffix(base, ext)

	switch {
	case strings.HasPrefix(stem, "readme"),
		strings.HasPrefix(stem, "changelog"),
		strings.HasPrefix(stem, "license"),
		strings.HasPrefix(stem, "contributing"):
		return CategoryDocumentation
	case manifestNames[base]:
		return CategoryMetadata
	case docExtensions[ext]:
		return CategoryDocumentation
	case mediaExtensions[ext]:
		return CategoryMedia
	case sourceExtensions[ext]:
		return CategorySource
	case metadataExtensions[ext]:
		return CategoryMetadata
	}

	// Path-segment hints for extensionless or unusual files.
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		switch strings.ToLower(seg) {
		case "docs", "doc":
			return CategoryDocumentation
		case "media", "assets", "images", "screenshots":
			return CategoryMedia
		}
	}

	return CategoryOther
}

// IsManifest reports whether base names a package manifest.
func IsManifest(path string) bool {
	return manifestNames[strings.ToLower(filepath.Base(path))]
}
