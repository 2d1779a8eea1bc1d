package manage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/mapping"
	"github.com/bkyoung/snipctx/internal/schema"
	"github.com/bkyoung/snipctx/internal/snippet"
)

// ValidateRequest configures a validation run.
type ValidateRequest struct {
	SnippetsDir string
}

// Validate checks both config documents end to end without mutating
// anything: JSON well-formedness, mapping-schema conformance, regex
// compilability, snippet file existence, duplicate names within a
// document, and the soft SNIPPET_NAME invariant.
func (m *Manager) Validate(ctx context.Context, req ValidateRequest) (ValidationReport, error) {
	report := ValidationReport{Problems: []Problem{}}
	resolver := m.resolverFor(req.SnippetsDir)

	var docs []domain.ConfigDocument
	for _, path := range []string{m.mappings.BasePath(), m.mappings.LocalPath()} {
		doc, ok := m.validateDocument(path, resolver, &report)
		if ok {
			docs = append(docs, doc)
		}
	}

	var entries []domain.MappingEntry
	for _, doc := range docs {
		entries = append(entries, doc.Mappings...)
	}
	merged := domain.NewMergedConfig(entries)
	report.Entries = merged.Len()
	if hash, err := domain.ConfigHash(merged); err == nil {
		report.ConfigHash = hash
	}

	report.Valid = true
	for _, p := range report.Problems {
		if p.Severity == SeverityError {
			report.Valid = false
			break
		}
	}
	return report, nil
}

// validateDocument checks a single document and appends its problems.
// Returns the parsed document and whether parsing succeeded at all.
func (m *Manager) validateDocument(path string, resolver *snippet.Resolver, report *ValidationReport) (domain.ConfigDocument, bool) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// An absent document is an empty one, not a problem.
		return domain.ConfigDocument{Path: path}, true
	}
	if err != nil {
		report.Problems = append(report.Problems, Problem{
			Severity: SeverityError,
			Kind:     "config_parse",
			Path:     path,
			Message:  err.Error(),
		})
		return domain.ConfigDocument{}, false
	}

	if !json.Valid(raw) {
		report.Problems = append(report.Problems, Problem{
			Severity: SeverityError,
			Kind:     "config_parse",
			Path:     path,
			Message:  "document is not valid JSON",
		})
		return domain.ConfigDocument{}, false
	}

	if err := schema.ValidateDocument(raw); err != nil {
		report.Problems = append(report.Problems, Problem{
			Severity: SeverityError,
			Kind:     "schema",
			Path:     path,
			Message:  err.Error(),
		})
	}

	doc, err := mapping.LoadDocument(path)
	if err != nil {
		// Structural load failures duplicate the schema finding above only
		// when the schema check also failed; report and bail either way.
		return domain.ConfigDocument{}, false
	}

	seen := make(map[string]bool, len(doc.Mappings))
	for _, entry := range doc.Mappings {
		if seen[entry.Name] {
			report.Problems = append(report.Problems, Problem{
				Severity: SeverityError,
				Kind:     "duplicate_name",
				Name:     entry.Name,
				Path:     path,
				Message:  fmt.Sprintf("name %q appears more than once in this document", entry.Name),
			})
		}
		seen[entry.Name] = true

		if err := m.matcher.Check(entry.Name, entry.Pattern); err != nil {
			report.Problems = append(report.Problems, Problem{
				Severity: SeverityError,
				Kind:     "invalid_pattern",
				Name:     entry.Name,
				Path:     path,
				Message:  fmt.Sprintf("pattern %q does not compile", entry.Pattern),
			})
		}

		m.validateSnippetFiles(entry, resolver, report)
	}
	return doc, true
}

func (m *Manager) validateSnippetFiles(entry domain.MappingEntry, resolver *snippet.Resolver, report *ValidationReport) {
	for i, ref := range entry.Snippet {
		filePath := resolver.PathFor(ref)
		raw, err := os.ReadFile(filePath)
		if err != nil {
			report.Problems = append(report.Problems, Problem{
				Severity: SeverityError,
				Kind:     "missing_snippet_file",
				Name:     entry.Name,
				Path:     filePath,
				Message:  "referenced snippet file does not exist",
			})
			continue
		}

		// Soft invariant: the first file's SNIPPET_NAME should match the
		// owning entry.
		if i == 0 {
			fm, _, err := snippet.ParseFrontMatter(string(raw))
			if err == nil && fm.SnippetName != "" && fm.SnippetName != entry.Name {
				report.Problems = append(report.Problems, Problem{
					Severity: SeverityWarning,
					Kind:     "snippet_name_mismatch",
					Name:     entry.Name,
					Path:     filePath,
					Message:  fmt.Sprintf("front matter names this snippet %q", fm.SnippetName),
				})
			}
		}
	}
}
