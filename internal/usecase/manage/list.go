package manage

import (
	"context"

	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/mapping"
)

// ListRequest selects a single entry by name or, when Name is empty, a
// summary of every merged entry.
type ListRequest struct {
	Name        string
	SnippetsDir string
}

// ListResult holds either summaries or a single detail view.
type ListResult struct {
	Entries []EntrySummary `json:"entries,omitempty"`
	Detail  *EntryDetail   `json:"detail,omitempty"`
}

// List is a pure read: full detail for one name, summaries for all.
func (m *Manager) List(ctx context.Context, req ListRequest) (ListResult, error) {
	base, local, err := m.mappings.LoadDocuments()
	if err != nil {
		return ListResult{}, err
	}
	merged := mapping.Merge(base, local)

	localNames := make(map[string]bool, len(local.Mappings))
	for _, e := range local.Mappings {
		localNames[e.Name] = true
	}
	sourceOf := func(name string) string {
		if localNames[name] {
			return string(domain.TargetLocal)
		}
		return string(domain.TargetBase)
	}

	if req.Name == "" {
		result := ListResult{Entries: []EntrySummary{}}
		for _, entry := range merged.Entries() {
			result.Entries = append(result.Entries, EntrySummary{
				Name:    entry.Name,
				Pattern: entry.Pattern,
				Snippet: entry.Snippet,
				Enabled: entry.Enabled,
				Source:  sourceOf(entry.Name),
			})
		}
		return result, nil
	}

	entry, ok := merged.Get(req.Name)
	if !ok {
		return ListResult{}, domain.NewNotFoundError(req.Name)
	}

	detail := EntryDetail{Entry: entry, Source: sourceOf(entry.Name)}
	resolved, err := m.resolverFor(req.SnippetsDir).Resolve(entry)
	switch {
	case err == nil:
		detail.FrontMatter = resolved.FrontMatter
		detail.Body = resolved.Body
	case domain.IsKind(err, domain.ErrKindMissingSnippetFile):
		if e, ok := err.(*domain.Error); ok {
			detail.MissingFiles = append(detail.MissingFiles, e.Path)
		}
	default:
		return ListResult{}, err
	}
	return ListResult{Detail: &detail}, nil
}

// TestRequest runs one entry's pattern against sample text.
type TestRequest struct {
	Name   string
	Sample string
}

// Test is a thin wrapper over the matcher restricted to one entry. The
// enabled flag is deliberately ignored so disabled entries can be probed.
func (m *Manager) Test(ctx context.Context, req TestRequest) (TestResult, error) {
	merged, err := m.mappings.Load()
	if err != nil {
		return TestResult{}, err
	}
	entry, ok := merged.Get(req.Name)
	if !ok {
		return TestResult{}, domain.NewNotFoundError(req.Name)
	}

	matched, err := m.matcher.MatchEntry(entry, req.Sample)
	if err != nil {
		return TestResult{}, err
	}
	return TestResult{
		Name:    entry.Name,
		Pattern: entry.Pattern,
		Sample:  req.Sample,
		Matched: matched,
	}, nil
}
