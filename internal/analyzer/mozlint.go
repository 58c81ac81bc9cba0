package analyzer

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/mozilla/code-review/internal/domain"
)

type mozlintEntry struct {
	Rule    string `json:"rule"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Source  string `json:"source"`
	Linter  string `json:"linter"`
}

// ParseMozlint decodes a JSON object keyed by relative path to a list of
// lint findings, per spec.md §4.2. Each entry's analyzer identity is its
// sub-linter (e.g. "eslint"), not the bare "mozlint" task family, mirroring
// tasks/lint.py's per-entry linter field; an entry missing it falls back to
// the suffix of the task name (source-test-mozlint-eslint -> eslint).
func ParseMozlint(taskName string, data []byte) ([]RawIssue, []Diagnostic, error) {
	var byPath map[string][]mozlintEntry
	if err := json.Unmarshal(data, &byPath); err != nil {
		return nil, []Diagnostic{{Reason: "mozlint artifact is not valid JSON: " + err.Error()}}, nil
	}

	fallback := linterFromTaskName(taskName)

	var issues []RawIssue
	var diags []Diagnostic
	for p, entries := range byPath {
		if path.IsAbs(p) {
			diags = append(diags, Diagnostic{Reason: "absolute path skipped: " + p})
			continue
		}
		for _, e := range entries {
			if e.Line < 1 {
				diags = append(diags, Diagnostic{Reason: "mozlint entry with invalid line in " + p})
				continue
			}
			linter := strings.TrimSpace(e.Linter)
			if linter == "" {
				linter = fallback
			}
			issues = append(issues, RawIssue{
				Path:     p,
				Line:     intPtr(e.Line),
				NbLines:  1,
				Column:   e.Column,
				Check:    e.Rule,
				Analyzer: linter,
				Level:    normalizeLevel(e.Level),
				Message:  strings.TrimSpace(e.Message),
				Body:     e.Source,
			})
		}
	}
	return issues, diags, nil
}

// linterFromTaskName derives the sub-linter from a
// "source-test-mozlint-<linter>" task name, falling back to the bare
// mozlint family name when the task name carries no suffix.
func linterFromTaskName(taskName string) string {
	const prefix = "source-test-mozlint-"
	if strings.HasPrefix(taskName, prefix) {
		if suffix := strings.TrimPrefix(taskName, prefix); suffix != "" {
			return suffix
		}
	}
	return string(KindMozlint)
}

func normalizeLevel(level string) domain.Level {
	switch strings.ToLower(level) {
	case "error":
		return domain.LevelError
	default:
		return domain.LevelWarning
	}
}
