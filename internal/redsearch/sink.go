package redsearch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

const slugMaxLen = 40

// querySlug turns free query text into a filesystem-safe filename fragment.
func querySlug(query string) string {
	slug := strings.ToLower(strings.TrimSpace(query))
	slug = nonAlphaNum.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > slugMaxLen {
		slug = strings.Trim(slug[:slugMaxLen], "_")
	}
	if slug == "" {
		slug = "all"
	}
	return slug
}

// resultFileName builds a per-call unique name: query slug, timestamp, and a
// random suffix so concurrent calls within the same second cannot collide.
func resultFileName(query string, now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("reddit_search_%s_%s_%s.json", querySlug(query), now.Format("20060102-150405"), suffix)
}

// writeResults persists the verbatim raw post objects (not the normalized
// view) as an indented UTF-8 JSON array and returns the absolute path. The
// target directory and any parents are created on demand.
func writeResults(dir, query string, raw []map[string]any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, resultFileName(query, time.Now()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}
	if raw == nil {
		raw = []map[string]any{}
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		f.Close()
		return "", fmt.Errorf("encode results: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close result file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
