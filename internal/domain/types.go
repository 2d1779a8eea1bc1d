package domain

// DefaultSeparator joins multi-file snippets when an entry does not set one.
const DefaultSeparator = "\n"

// MappingEntry binds a trigger pattern to one or more snippet files.
type MappingEntry struct {
	Name      string   `json:"name"`
	Pattern   string   `json:"pattern"`
	Snippet   []string `json:"snippet"`
	Enabled   bool     `json:"enabled"`
	Separator string   `json:"separator,omitempty"`
}

// EffectiveSeparator returns the separator used to join the entry's snippet
// files, falling back to DefaultSeparator when unset.
func (e MappingEntry) EffectiveSeparator() string {
	if e.Separator == "" {
		return DefaultSeparator
	}
	return e.Separator
}

// ConfigDocument is the ordered mapping list from a single JSON file.
type ConfigDocument struct {
	Mappings []MappingEntry `json:"mappings"`

	// Path records where the document was loaded from. Empty for documents
	// built in memory.
	Path string `json:"-"`
}

// MergedConfig is the local-over-base view of the two config documents.
// Entry order is merge order: base order preserved, local-only entries
// appended. Merge order doubles as injection priority.
type MergedConfig struct {
	entries []MappingEntry
	index   map[string]int
}

// NewMergedConfig builds a merged view from entries already in merge order.
// Later entries sharing a name replace earlier ones in place.
func NewMergedConfig(entries []MappingEntry) MergedConfig {
	merged := MergedConfig{index: make(map[string]int, len(entries))}
	for _, entry := range entries {
		if i, ok := merged.index[entry.Name]; ok {
			merged.entries[i] = entry
			continue
		}
		merged.index[entry.Name] = len(merged.entries)
		merged.entries = append(merged.entries, entry)
	}
	return merged
}

// Entries returns all entries in merge order.
func (c MergedConfig) Entries() []MappingEntry {
	return c.entries
}

// Get returns the entry for name, if present.
func (c MergedConfig) Get(name string) (MappingEntry, bool) {
	i, ok := c.index[name]
	if !ok {
		return MappingEntry{}, false
	}
	return c.entries[i], true
}

// Has reports whether an entry with the given name exists.
func (c MergedConfig) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Len returns the number of merged entries.
func (c MergedConfig) Len() int {
	return len(c.entries)
}

// FrontMatter is the schema-validated metadata block at the top of a
// snippet file.
type FrontMatter struct {
	Description   string `yaml:"description" json:"description,omitempty"`
	SnippetName   string `yaml:"SNIPPET_NAME" json:"snippetName,omitempty"`
	AnnounceUsage bool   `yaml:"ANNOUNCE_USAGE" json:"announceUsage,omitempty"`

	// VerificationHash is the opaque test token embedded in the snippet
	// body. It is surfaced here as metadata; the body keeps the original
	// line so end-to-end tests can observe the injected token.
	VerificationHash string `yaml:"-" json:"verificationHash,omitempty"`
}

// ResolvedSnippet is the outcome of resolving one mapping entry: metadata
// for the hook's banner plus the body text to inject.
type ResolvedSnippet struct {
	Entry       MappingEntry
	FrontMatter FrontMatter
	Body        string
}

// InjectionResult is returned to the host runtime for one prompt.
type InjectionResult struct {
	Banner       string `json:"banner,omitempty"`
	InjectedText string `json:"injected_text"`
	RawPrompt    string `json:"raw_prompt"`
}

// Empty reports whether the prompt produced no injection.
func (r InjectionResult) Empty() bool {
	return r.InjectedText == ""
}

// Target selects which config document a mutation writes to.
type Target string

const (
	TargetBase  Target = "base"
	TargetLocal Target = "local"
)

// Valid reports whether the target names a known document.
func (t Target) Valid() bool {
	return t == TargetBase || t == TargetLocal
}
