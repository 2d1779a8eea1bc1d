// Package manage implements the CRUD lifecycle of mapping entries: the
// out-of-band CLI operations that mutate the config documents and snippet
// files the injection hook reads. Every mutation is atomic from a reader's
// perspective: config documents go through atomic renames, and snippet
// files are written before the config references them.
package manage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bkyoung/snipctx/internal/adapter/observability"
	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/mapping"
	"github.com/bkyoung/snipctx/internal/matcher"
	"github.com/bkyoung/snipctx/internal/snippet"
)

// Manager performs create/update/delete/list/test/validate against the
// mapping store and the snippet directory.
type Manager struct {
	mappings    *mapping.Store
	matcher     *matcher.Matcher
	snippetsDir string
	backupsDir  string
	logger      observability.Logger
	now         func() time.Time
	newHash     func() (string, error)
}

// Options captures the collaborators of a Manager. Zero-value fields get
// sensible defaults.
type Options struct {
	Mappings    *mapping.Store
	Matcher     *matcher.Matcher
	SnippetsDir string
	BackupsDir  string
	Logger      observability.Logger
	Now         func() time.Time
	NewHash     func() (string, error)
}

// NewManager creates a manager over the given mapping store.
func NewManager(opts Options) *Manager {
	m := &Manager{
		mappings:    opts.Mappings,
		matcher:     opts.Matcher,
		snippetsDir: opts.SnippetsDir,
		backupsDir:  opts.BackupsDir,
		logger:      opts.Logger,
		now:         opts.Now,
		newHash:     opts.NewHash,
	}
	if m.matcher == nil {
		m.matcher = matcher.New()
	}
	if m.logger == nil {
		m.logger = observability.NopLogger{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newHash == nil {
		m.newHash = domain.NewVerificationHash
	}
	return m
}

// Create adds a new entry: snippet file first, config reference second, so
// the merged config never points at a file that does not exist yet.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (EntryResult, error) {
	if err := validateEntryName(req.Name); err != nil {
		return EntryResult{}, err
	}
	if err := validatePattern(req.Name, req.Pattern); err != nil {
		return EntryResult{}, err
	}
	target, err := resolveTarget(req.Target)
	if err != nil {
		return EntryResult{}, err
	}

	merged, err := m.mappings.Load()
	if err != nil {
		return EntryResult{}, err
	}
	if merged.Has(req.Name) {
		return EntryResult{}, domain.NewDuplicateNameError(req.Name)
	}
	if err := m.matcher.Check(req.Name, req.Pattern); err != nil {
		return EntryResult{}, err
	}

	body, err := requestBody(req.Content, req.File)
	if err != nil {
		return EntryResult{}, err
	}

	hash, err := m.newHash()
	if err != nil {
		return EntryResult{}, err
	}
	fm := domain.FrontMatter{
		Description:      req.Description,
		SnippetName:      req.Name,
		AnnounceUsage:    req.Announce,
		VerificationHash: hash,
	}
	rendered, err := snippet.ComposeSnippet(fm, body)
	if err != nil {
		return EntryResult{}, err
	}

	resolver := m.resolverFor(req.SnippetsDir)
	rel := req.Name + ".md"
	abs := resolver.PathFor(rel)
	if err := writeFileAtomic(abs, []byte(rendered)); err != nil {
		return EntryResult{}, fmt.Errorf("write snippet file %s: %w", abs, err)
	}

	doc, err := mapping.LoadDocument(m.mappings.PathFor(target))
	if err != nil {
		return EntryResult{}, err
	}
	entry := domain.MappingEntry{
		Name:      req.Name,
		Pattern:   req.Pattern,
		Snippet:   []string{rel},
		Enabled:   req.Enabled,
		Separator: req.Separator,
	}
	doc.Mappings = append(doc.Mappings, entry)
	if err := m.mappings.Save(doc, target); err != nil {
		return EntryResult{}, err
	}

	m.logger.LogInfo(ctx, "entry created", map[string]interface{}{
		"name":   req.Name,
		"target": string(target),
	})
	return EntryResult{
		Entry:            entry,
		Source:           string(target),
		SnippetPath:      abs,
		VerificationHash: hash,
	}, nil
}

// Update mutates an existing entry. Renames follow write-new →
// update-config-key → delete-old ordering: a crash in between leaves an
// orphan file on disk but never a config entry referencing a missing file.
func (m *Manager) Update(ctx context.Context, req UpdateRequest) (EntryResult, error) {
	target, err := resolveTarget(req.Target)
	if err != nil {
		return EntryResult{}, err
	}
	if req.Content != nil && req.File != nil {
		return EntryResult{}, fmt.Errorf("content and file are mutually exclusive")
	}

	merged, err := m.mappings.Load()
	if err != nil {
		return EntryResult{}, err
	}
	entry, ok := merged.Get(req.Name)
	if !ok {
		return EntryResult{}, domain.NewNotFoundError(req.Name)
	}

	doc, err := mapping.LoadDocument(m.mappings.PathFor(target))
	if err != nil {
		return EntryResult{}, err
	}
	idx := indexOf(doc, req.Name)
	if idx < 0 && target == domain.TargetBase {
		return EntryResult{}, fmt.Errorf("entry %q is not defined in the base document; use the local target", req.Name)
	}

	if req.Pattern != nil {
		if err := validatePattern(req.Name, *req.Pattern); err != nil {
			return EntryResult{}, err
		}
		if err := m.matcher.Check(req.Name, *req.Pattern); err != nil {
			return EntryResult{}, err
		}
		entry.Pattern = *req.Pattern
	}
	if req.Enabled != nil {
		entry.Enabled = *req.Enabled
	}

	renamed := req.Rename != "" && req.Rename != req.Name
	if renamed {
		if err := validateEntryName(req.Rename); err != nil {
			return EntryResult{}, err
		}
		if merged.Has(req.Rename) {
			return EntryResult{}, domain.NewDuplicateNameError(req.Rename)
		}
		if idx < 0 {
			return EntryResult{}, fmt.Errorf("cannot rename %q: the entry is not defined in the %s document", req.Name, target)
		}
	}

	resolver := m.resolverFor(req.SnippetsDir)
	primaryPath := resolver.PathFor(entry.Snippet[0])
	contentChanged := req.Content != nil || req.File != nil
	needBody := contentChanged || renamed || req.Description != nil

	var fm domain.FrontMatter
	var body string
	if needBody {
		fm, body, err = m.currentSnippetState(entry, primaryPath, contentChanged)
		if err != nil {
			return EntryResult{}, err
		}
	}
	if contentChanged {
		content := ""
		if req.Content != nil {
			content = *req.Content
		}
		file := ""
		if req.File != nil {
			file = *req.File
		}
		body, err = requestBody(content, file)
		if err != nil {
			return EntryResult{}, err
		}
		fm.VerificationHash, err = m.newHash()
		if err != nil {
			return EntryResult{}, err
		}
	}
	if req.Description != nil {
		fm.Description = *req.Description
	}

	var orphans []string
	writePath := primaryPath
	if renamed {
		fm.SnippetName = req.Rename
		if len(entry.Snippet) == 1 {
			rel := req.Rename + ".md"
			writePath = resolver.PathFor(rel)
			entry.Snippet = []string{rel}
		}
		entry.Name = req.Rename
	}

	if needBody {
		rendered, err := snippet.ComposeSnippet(fm, body)
		if err != nil {
			return EntryResult{}, err
		}
		if err := writeFileAtomic(writePath, []byte(rendered)); err != nil {
			return EntryResult{}, fmt.Errorf("write snippet file %s: %w", writePath, err)
		}
	}

	if idx >= 0 {
		doc.Mappings[idx] = entry
	} else {
		// Local overlay of a base-defined entry.
		doc.Mappings = append(doc.Mappings, entry)
	}
	if err := m.mappings.Save(doc, target); err != nil {
		return EntryResult{}, err
	}

	// delete-old runs only after the config rename is durable
	if renamed && writePath != primaryPath {
		if err := os.Remove(primaryPath); err != nil && !os.IsNotExist(err) {
			orphans = append(orphans, primaryPath)
			m.logger.LogWarning(ctx, "rename left an orphan snippet file", map[string]interface{}{
				"path":  primaryPath,
				"error": err.Error(),
			})
		}
	}

	m.logger.LogInfo(ctx, "entry updated", map[string]interface{}{
		"name":    req.Name,
		"renamed": renamed,
		"target":  string(target),
	})
	return EntryResult{
		Entry:            entry,
		Source:           string(target),
		SnippetPath:      writePath,
		VerificationHash: fm.VerificationHash,
		OrphanedFiles:    orphans,
	}, nil
}

// currentSnippetState loads the primary snippet file's metadata and body
// for operations that must rewrite it. When the content is being replaced
// anyway, a missing file is tolerated and defaults are used; otherwise the
// entry's existing body is required.
func (m *Manager) currentSnippetState(entry domain.MappingEntry, primaryPath string, contentChanged bool) (domain.FrontMatter, string, error) {
	defaults := domain.FrontMatter{SnippetName: entry.Name}

	raw, err := os.ReadFile(primaryPath)
	if os.IsNotExist(err) {
		if contentChanged {
			return defaults, "", nil
		}
		return defaults, "", domain.NewMissingSnippetFileError(entry.Name, primaryPath)
	}
	if err != nil {
		return defaults, "", fmt.Errorf("read snippet %s: %w", primaryPath, err)
	}

	fm, body, err := snippet.ParseFrontMatter(string(raw))
	if err != nil {
		return defaults, string(raw), nil
	}
	if fm.SnippetName == "" {
		fm.SnippetName = entry.Name
	}
	return fm, body, nil
}

func (m *Manager) resolverFor(override string) *snippet.Resolver {
	dir := override
	if dir == "" {
		dir = m.snippetsDir
	}
	return snippet.NewResolver(dir)
}

// validateEntryName rejects names the mapping documents or the snippet
// directory could not hold: the name becomes both a config key and a file
// name, so it must be a plain non-empty path component.
func validateEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("entry name is required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("entry name %q must be a plain file name without path separators", name)
	}
	return nil
}

// validatePattern rejects patterns the document loader would refuse on the
// next read. An empty pattern compiles fine but is structurally invalid, so
// persisting it would brick every subsequent load.
func validatePattern(name, pattern string) error {
	if pattern == "" {
		return domain.NewInvalidPatternError(name, pattern, errors.New("pattern must not be empty"))
	}
	return nil
}

func resolveTarget(t domain.Target) (domain.Target, error) {
	if t == "" {
		return domain.TargetLocal, nil
	}
	if !t.Valid() {
		return "", fmt.Errorf("unknown write target %q (want base or local)", t)
	}
	return t, nil
}

func requestBody(content, file string) (string, error) {
	switch {
	case content != "" && file != "":
		return "", fmt.Errorf("content and file are mutually exclusive")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read content file %s: %w", file, err)
		}
		return string(data), nil
	case content != "":
		return content, nil
	default:
		return "", fmt.Errorf("either content or a content file is required")
	}
}

func indexOf(doc domain.ConfigDocument, name string) int {
	for i, entry := range doc.Mappings {
		if entry.Name == name {
			return i
		}
	}
	return -1
}

// writeFileAtomic writes via temp file + rename so a crash mid-write never
// leaves a truncated snippet for the hook to inject.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snippet-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
