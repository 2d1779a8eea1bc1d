// Package mapping owns the two on-disk mapping documents (base + local
// overlay) and their merged view. The documents are shared with a hook
// process that re-reads on mtime change, so every write goes through a
// temp-file + atomic-rename sequence and readers never see a half-written
// file.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkyoung/snipctx/internal/domain"
)

// Store loads and persists the base and local mapping documents.
type Store struct {
	basePath  string
	localPath string
}

// NewStore creates a store over the given document paths.
func NewStore(basePath, localPath string) *Store {
	return &Store{basePath: basePath, localPath: localPath}
}

// BasePath returns the base document path.
func (s *Store) BasePath() string {
	return s.basePath
}

// LocalPath returns the local overlay document path.
func (s *Store) LocalPath() string {
	return s.localPath
}

// PathFor maps a write target to its document path.
func (s *Store) PathFor(target domain.Target) string {
	if target == domain.TargetBase {
		return s.basePath
	}
	return s.localPath
}

// Load reads both documents and returns the right-biased merged view.
// A missing file is treated as an empty document; a malformed one fails
// with the offending path. Snippet file existence is deliberately not
// checked here: a stale reference must not fail the whole load.
func (s *Store) Load() (domain.MergedConfig, error) {
	base, local, err := s.LoadDocuments()
	if err != nil {
		return domain.MergedConfig{}, err
	}
	return Merge(base, local), nil
}

// LoadDocuments reads the base and local documents without merging.
func (s *Store) LoadDocuments() (base, local domain.ConfigDocument, err error) {
	base, err = LoadDocument(s.basePath)
	if err != nil {
		return domain.ConfigDocument{}, domain.ConfigDocument{}, err
	}
	local, err = LoadDocument(s.localPath)
	if err != nil {
		return domain.ConfigDocument{}, domain.ConfigDocument{}, err
	}
	return base, local, nil
}

// LoadDocument reads a single mapping document. Missing files yield an
// empty document so a fresh checkout works before any entry exists.
func LoadDocument(path string) (domain.ConfigDocument, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.ConfigDocument{Path: path}, nil
	}
	if err != nil {
		return domain.ConfigDocument{}, fmt.Errorf("read mapping document %s: %w", path, err)
	}

	var parsed struct {
		Mappings []rawEntry `json:"mappings"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.ConfigDocument{}, domain.NewConfigParseError(path, err)
	}

	doc := domain.ConfigDocument{Path: path}
	for i, entry := range parsed.Mappings {
		normalized, err := entry.normalize(path, i)
		if err != nil {
			return domain.ConfigDocument{}, err
		}
		doc.Mappings = append(doc.Mappings, normalized)
	}
	return doc, nil
}

// rawEntry mirrors MappingEntry with a tri-state enabled flag so an omitted
// value defaults to true rather than false.
type rawEntry struct {
	Name      string   `json:"name"`
	Pattern   string   `json:"pattern"`
	Snippet   []string `json:"snippet"`
	Enabled   *bool    `json:"enabled"`
	Separator string   `json:"separator"`
}

func (r rawEntry) normalize(path string, index int) (domain.MappingEntry, error) {
	if r.Name == "" {
		return domain.MappingEntry{}, domain.NewSchemaError(path, fmt.Sprintf("mappings[%d]: missing required field \"name\"", index))
	}
	if r.Pattern == "" {
		return domain.MappingEntry{}, domain.NewSchemaError(path, fmt.Sprintf("mappings[%d] (%s): missing required field \"pattern\"", index, r.Name))
	}
	if len(r.Snippet) == 0 {
		return domain.MappingEntry{}, domain.NewSchemaError(path, fmt.Sprintf("mappings[%d] (%s): \"snippet\" must list at least one file", index, r.Name))
	}

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return domain.MappingEntry{
		Name:      r.Name,
		Pattern:   r.Pattern,
		Snippet:   append([]string(nil), r.Snippet...),
		Enabled:   enabled,
		Separator: r.Separator,
	}, nil
}

// Merge overlays local onto base by name: base order is preserved, local
// entries replace base entries sharing a name, and local-only entries are
// appended in their own order.
func Merge(base, local domain.ConfigDocument) domain.MergedConfig {
	entries := make([]domain.MappingEntry, 0, len(base.Mappings)+len(local.Mappings))
	entries = append(entries, base.Mappings...)
	entries = append(entries, local.Mappings...)
	return domain.NewMergedConfig(entries)
}

// Save serializes a document with stable ordering and atomically renames it
// over the target path. A concurrently running hook observes either the old
// or the new document, never a partial write.
func (s *Store) Save(doc domain.ConfigDocument, target domain.Target) error {
	return SaveDocument(doc, s.PathFor(target))
}

// SaveDocument writes a document to an explicit path via temp file + rename.
func SaveDocument(doc domain.ConfigDocument, path string) error {
	payload := struct {
		Mappings []domain.MappingEntry `json:"mappings"`
	}{Mappings: doc.Mappings}
	if payload.Mappings == nil {
		payload.Mappings = []domain.MappingEntry{}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mapping document: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".mappings-*.json")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp mapping document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp mapping document: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp mapping document: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace mapping document %s: %w", path, err)
	}
	return nil
}
