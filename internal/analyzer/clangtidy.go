package analyzer

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/mozilla/code-review/internal/domain"
)

type clangTidyEntry struct {
	Line              int    `json:"line"`
	Column            int    `json:"column"`
	Check             string `json:"check"`
	Header            string `json:"header"`
	Message           string `json:"message"`
	// PublishableSource reports whether clang-tidy attributed the finding
	// to the file under review rather than an included header outside the
	// patch; unreliable entries are dropped below.
	PublishableSource bool `json:"publishable_source"`
}

// ParseClangTidy decodes a JSON object keyed by relative path to a list of
// findings, per spec.md §4.2.
func ParseClangTidy(taskName string, data []byte) ([]RawIssue, []Diagnostic, error) {
	var byPath map[string][]clangTidyEntry
	if err := json.Unmarshal(data, &byPath); err != nil {
		return nil, []Diagnostic{{Reason: "clang-tidy artifact is not valid JSON: " + err.Error()}}, nil
	}

	var issues []RawIssue
	var diags []Diagnostic
	for p, entries := range byPath {
		if path.IsAbs(p) {
			diags = append(diags, Diagnostic{Reason: "absolute path skipped: " + p})
			continue
		}
		for _, e := range entries {
			if e.Line < 1 {
				diags = append(diags, Diagnostic{Reason: "clang-tidy entry with invalid line in " + p})
				continue
			}
			if !e.PublishableSource {
				diags = append(diags, Diagnostic{Reason: "clang-tidy entry from unpublishable source skipped in " + p})
				continue
			}
			issues = append(issues, RawIssue{
				Path:     p,
				Line:     intPtr(e.Line),
				NbLines:  1,
				Column:   e.Column,
				Check:    e.Check,
				Analyzer: string(KindClangTidy),
				Level:    domain.LevelWarning,
				Message:  strings.TrimSpace(e.Message),
				Body:     e.Header,
			})
		}
	}
	return issues, diags, nil
}
