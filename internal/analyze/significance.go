package analyze

import (
	"path/filepath"
	"strings"
)

// SignificanceThreshold is the score at or above which a change is
// considered worth acting on.
const SignificanceThreshold = 0.5

// creationBoost is the multiplier applied to newly created files.
const creationBoost = 1.2

// Score rates how much a change matters, 0..1. relPath is the path
// relative to the watched root. Deterministic table lookup by filename
// and category; created files get a 20% boost, capped at 1.0.
func Score(relPath string, category Category, created bool) float64 {
	score := baseScore(relPath, category)
	if created {
		score *= creationBoost
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func baseScore(relPath string, category Category) float64 {
	base := strings.ToLower(filepath.Base(relPath))
	stem := strings.TrimSuffix(base, strings.ToLower(filepath.Ext(base)))

	switch {
	case strings.HasPrefix(stem, "readme"):
		// The root README is the project's face; nested ones matter less.
		if isRootLevel(relPath) {
			return 1.0
		}
		return 0.7
	case IsManifest(relPath):
		return 0.9
	case strings.HasPrefix(stem, "changelog"),
		strings.HasPrefix(stem, "history"),
		strings.HasPrefix(stem, "releases"),
		strings.HasPrefix(stem, "news"):
		return 0.8
	}

	switch category {
	case CategoryMedia:
		if strings.Contains(strings.ToLower(filepath.ToSlash(relPath)), "demo") {
			return 0.8
		}
		return 0.5
	case CategoryDocumentation:
		return 0.6
	case CategorySource:
		return 0.4
	case CategoryMetadata:
		return 0.3
	default:
		return 0.1
	}
}

func isRootLevel(relPath string) bool {
	return !strings.ContainsAny(filepath.ToSlash(relPath), "/")
}

// IsSignificant applies the fixed threshold to a score.
func IsSignificant(score float64) bool {
	return score >= SignificanceThreshold
}
