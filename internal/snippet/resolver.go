// Package snippet reads the markdown files a mapping entry points at and
// splits them into injectable body text plus banner metadata.
package snippet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bkyoung/snipctx/internal/domain"
)

// Resolver reads snippet files relative to a configured root.
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at the given snippets directory.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the snippets directory this resolver reads under.
func (r *Resolver) Root() string {
	return r.root
}

// PathFor resolves one snippet reference against the root. Absolute
// references are used as-is.
func (r *Resolver) PathFor(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(r.root, ref)
}

// Resolve reads all files of an entry, joins them with the entry's
// separator, and splits metadata from body. A missing file fails with
// MissingSnippetFile, which callers treat as skip-this-entry rather than
// fail-the-prompt. Metadata comes from the first file carrying a
// front-matter block; a malformed block is tolerated by treating the whole
// file as body.
func (r *Resolver) Resolve(entry domain.MappingEntry) (domain.ResolvedSnippet, error) {
	resolved := domain.ResolvedSnippet{Entry: entry}

	var bodies []string
	haveMeta := false
	for _, ref := range entry.Snippet {
		path := r.PathFor(ref)
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return domain.ResolvedSnippet{}, domain.NewMissingSnippetFileError(entry.Name, path)
		}
		if err != nil {
			return domain.ResolvedSnippet{}, fmt.Errorf("read snippet %s: %w", path, err)
		}

		fm, body, err := ParseFrontMatter(string(raw))
		if err != nil {
			body = string(raw)
			fm = domain.FrontMatter{}
		}
		if !haveMeta && (fm != domain.FrontMatter{}) {
			resolved.FrontMatter = fm
			haveMeta = true
		}
		bodies = append(bodies, body)
	}

	resolved.Body = strings.Join(bodies, entry.EffectiveSeparator())
	return resolved, nil
}
