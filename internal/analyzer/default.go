package analyzer

import (
	"encoding/json"
	"path"
	"strings"
)

// defaultEntry accepts both the canonical field names and the legacy
// lineno/char spellings some analyzers still emit (spec.md §9 Open
// Questions); ParseDefault normalizes both to (line, column).
type defaultEntry struct {
	Path     string `json:"path"`
	Line     *int   `json:"line"`
	Lineno   *int   `json:"lineno"`
	NbLines  *int   `json:"nb_lines"`
	Column   int    `json:"column"`
	Char     int    `json:"char"`
	Check    string `json:"check"`
	Level    string `json:"level"`
	Message  string `json:"message"`
	Analyzer string `json:"analyzer"`
}

// ParseDefault decodes the canonical default format: a JSON object keyed by
// relative path to an array of findings, per spec.md §4.2. `nb_lines`
// defaults to 1, `analyzer` defaults to taskName, `check` defaults to the
// resolved analyzer name.
func ParseDefault(taskName string, data []byte) ([]RawIssue, []Diagnostic, error) {
	var byPath map[string][]defaultEntry
	if err := json.Unmarshal(data, &byPath); err != nil {
		return nil, []Diagnostic{{Reason: "default-format artifact is not valid JSON: " + err.Error()}}, nil
	}

	var issues []RawIssue
	var diags []Diagnostic
	for p, entries := range byPath {
		if path.IsAbs(p) {
			diags = append(diags, Diagnostic{Reason: "absolute path skipped: " + p})
			continue
		}
		for _, e := range entries {
			issuePath := p
			if e.Path != "" {
				issuePath = e.Path
			}

			line := e.Line
			if line == nil {
				line = e.Lineno
			}
			if line != nil && *line < 1 {
				diags = append(diags, Diagnostic{Reason: "entry with invalid line in " + issuePath})
				continue
			}

			column := e.Column
			if column == 0 {
				column = e.Char
			}

			nbLines := 1
			if e.NbLines != nil {
				if *e.NbLines < 1 {
					diags = append(diags, Diagnostic{Reason: "entry with invalid nb_lines in " + issuePath})
					continue
				}
				nbLines = *e.NbLines
			}

			analyzerName := e.Analyzer
			if analyzerName == "" {
				analyzerName = taskName
			}
			check := e.Check
			if check == "" {
				check = analyzerName
			}

			issues = append(issues, RawIssue{
				Path:     issuePath,
				Line:     line,
				NbLines:  nbLines,
				Column:   column,
				Check:    check,
				Analyzer: analyzerName,
				Level:    normalizeLevel(e.Level),
				Message:  strings.TrimSpace(e.Message),
			})
		}
	}
	return issues, diags, nil
}
