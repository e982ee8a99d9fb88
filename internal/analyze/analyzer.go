package analyze

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tbardale/showsync/internal/logging"
)

var analyzeLog = logging.ForComponent(logging.CompAnalyze)

// docStructuralThreshold is the fraction of structurally meaningful lines
// (headings, lists, links, code fences) that must change for a
// documentation edit to count as significant. Whitespace-only and
// prose-polish edits stay below it.
const docStructuralThreshold = 0.10

// Analysis is the result of fingerprinting one path.
type Analysis struct {
	// ContentHash is empty for deleted paths and on read failure.
	ContentHash string

	// PreviousContentHash is the last hash recorded for the path, if any.
	PreviousContentHash string

	Size     int64
	Category Category

	// Media holds best-effort metadata for media files; nil when
	// extraction was not attempted or failed.
	Media *MediaMetadata

	// Unchanged is true when the content hash equals the cached one:
	// a metadata-only touch, not a real change.
	Unchanged bool

	// DocStructural is true when a documentation change crossed the
	// structural threshold (always true for non-documentation).
	DocStructural bool
}

// fingerprintRecord is the cached state for a previously seen path.
// Owned exclusively by the Analyzer; handed out by value only.
type fingerprintRecord struct {
	hash       string
	size       int64
	category   Category
	structural []string
}

// Analyzer computes content fingerprints with an internal per-path cache.
// Stateless per call apart from that cache; safe for concurrent use.
type Analyzer struct {
	mu      sync.Mutex
	records map[string]*fingerprintRecord

	// limiter caps hash throughput during event bursts; nil = unlimited.
	limiter *rate.Limiter
}

// NewAnalyzer creates an analyzer. hashRateLimit caps files hashed per
// second; 0 disables the limit.
func NewAnalyzer(hashRateLimit int) *Analyzer {
	a := &Analyzer{records: make(map[string]*fingerprintRecord)}
	if hashRateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(hashRateLimit), hashRateLimit)
	}
	return a
}

// AnalyzeDeleted resolves a deletion: no content hash, last known hash
// from the cache, record evicted.
func (a *Analyzer) AnalyzeDeleted(path string) Analysis {
	a.mu.Lock()
	rec := a.records[path]
	delete(a.records, path)
	a.mu.Unlock()

	analysis := Analysis{Category: Classify(path), DocStructural: true}
	if rec != nil {
		analysis.PreviousContentHash = rec.hash
		analysis.Size = rec.size
		analysis.Category = rec.category
	}
	return analysis
}

// Analyze fingerprints a created or modified path: content hash (text is
// line-ending-normalized first), category, media metadata, and comparison
// against the cached record. A read failure is returned to the caller so
// it can decide to degrade rather than rely on a blanket swallow.
func (a *Analyzer) Analyze(ctx context.Context, path string) (Analysis, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return Analysis{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Vanished mid-hash or unreadable: transient, caller degrades.
		return Analysis{Category: Classify(path), DocStructural: true},
			fmt.Errorf("analyze: read %s: %w", path, err)
	}

	category := Classify(path)
	hash := hashContent(data)

	analysis := Analysis{
		ContentHash:   hash,
		Size:          int64(len(data)),
		Category:      category,
		DocStructural: true,
	}

	var structural []string
	if category == CategoryDocumentation {
		structural = structuralLines(normalizeText(data))
	}

	a.mu.Lock()
	prev := a.records[path]
	if prev != nil {
		analysis.PreviousContentHash = prev.hash
		analysis.Unchanged = prev.hash == hash
		if category == CategoryDocumentation && !analysis.Unchanged {
			analysis.DocStructural = structuralFraction(prev.structural, structural) > docStructuralThreshold
		}
	}
	a.records[path] = &fingerprintRecord{
		hash:       hash,
		size:       int64(len(data)),
		category:   category,
		structural: structural,
	}
	a.mu.Unlock()

	if category == CategoryMedia {
		analysis.Media = ProbeMedia(ctx, path)
	}

	return analysis, nil
}

// Forget drops the cached record for path.
func (a *Analyzer) Forget(path string) {
	a.mu.Lock()
	delete(a.records, path)
	a.mu.Unlock()
}

// CachedHash returns the last recorded hash for path, if any.
func (a *Analyzer) CachedHash(path string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.records[path]
	if !ok {
		return "", false
	}
	return rec.hash, true
}

// hashContent computes the SHA-256 of the content. Text is normalized to
// \n line endings first so the same file hashes identically across
// platforms; binary content is hashed as-is.
func hashContent(data []byte) string {
	if isText(data) {
		data = []byte(normalizeText(data))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isText uses a null-byte probe over the leading window, the same cheap
// heuristic git uses for binary detection.
func isText(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return !bytes.ContainsRune(probe, 0)
}

func normalizeText(data []byte) string {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// structuralLines extracts the lines that carry document structure:
// headings, list items, links and code fences.
func structuralLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "#"),
			strings.HasPrefix(trimmed, "- "),
			strings.HasPrefix(trimmed, "* "),
			strings.HasPrefix(trimmed, "+ "),
			strings.HasPrefix(trimmed, "```"),
			strings.Contains(trimmed, "]("),
			isOrderedItem(trimmed):
			out = append(out, trimmed)
		}
	}
	return out
}

func isOrderedItem(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(line) && line[i] == '.' && line[i+1] == ' '
}

// structuralFraction measures how much of the structural skeleton was
// touched: the symmetric difference of the two line sets over the larger
// set. Both empty means nothing structural changed.
func structuralFraction(before, after []string) float64 {
	if len(before) == 0 && len(after) == 0 {
		return 0
	}

	count := func(lines []string) map[string]int {
		m := make(map[string]int, len(lines))
		for _, l := range lines {
			m[l]++
		}
		return m
	}
	beforeSet, afterSet := count(before), count(after)

	changed := 0
	for line, n := range beforeSet {
		if d := n - afterSet[line]; d > 0 {
			changed += d
		}
	}
	for line, n := range afterSet {
		if d := n - beforeSet[line]; d > 0 {
			changed += d
		}
	}

	max := len(before)
	if len(after) > max {
		max = len(after)
	}
	return float64(changed) / float64(max)
}
