// Package classify enriches analyzer.RawIssue records with the derived
// flags (hash, in_patch, new_for_revision, publishable) and aggregates the
// task group's issues into the final deterministic, deduplicated list.
package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mozilla/code-review/internal/analyzer"
	"github.com/mozilla/code-review/internal/patch"
)

const hashFieldSep = "\x1f"

// Hash computes the stable content fingerprint of spec.md §4.3: analyzer
// id; check id (or "-"); repository slug; path; the trimmed after-image
// source line (or "-" when unavailable); whitespace-normalized message.
// Line-number drift never changes the hash because the line number itself
// is never part of the buffer.
func Hash(raw analyzer.RawIssue, repoSlug string, p *patch.Patch) string {
	check := raw.Check
	if check == "" {
		check = "-"
	}

	parts := []string{raw.Analyzer, check, repoSlug, raw.Path}

	if raw.Line != nil {
		src := "-"
		if p != nil {
			if s, ok := p.SourceLine(raw.Path, *raw.Line); ok {
				src = strings.TrimSpace(s)
			}
		}
		parts = append(parts, src)
	}

	parts = append(parts, normalizeWhitespace(raw.Message))

	sum := sha256.Sum256([]byte(strings.Join(parts, hashFieldSep)))
	return hex.EncodeToString(sum[:])
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
