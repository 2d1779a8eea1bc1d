// Package matcher performs regex-based topic detection over raw prompt
// text. It runs on the assistant's hot prompt path, so compiled patterns
// are cached and a single bad pattern never aborts matching for the rest.
package matcher

import (
	"regexp"
	"sync"

	"github.com/bkyoung/snipctx/internal/domain"
)

// Matcher tests enabled mapping entries against prompt text.
type Matcher struct {
	mu    sync.RWMutex
	cache map[string]compiled
}

// compiled is the tagged result of compiling one pattern: exactly one of
// re/err is set. Failures are cached too, so a broken entry costs one
// compile attempt total, not one per prompt.
type compiled struct {
	re  *regexp.Regexp
	err error
}

// New creates a matcher with an empty pattern cache.
func New() *Matcher {
	return &Matcher{cache: make(map[string]compiled)}
}

// Match returns all enabled entries whose pattern is found anywhere in the
// prompt, in merge order. Disabled entries are skipped without compiling.
// An entry whose pattern does not compile is skipped; it must never block
// matching of the other entries.
func (m *Matcher) Match(cfg domain.MergedConfig, prompt string) []domain.MappingEntry {
	var matches []domain.MappingEntry
	for _, entry := range cfg.Entries() {
		if !entry.Enabled {
			continue
		}
		re, err := m.compile(entry.Pattern)
		if err != nil {
			continue
		}
		if re.MatchString(prompt) {
			matches = append(matches, entry)
		}
	}
	return matches
}

// MatchEntry tests a single entry against sample text, regardless of its
// enabled flag. Used by the CLI's test command.
func (m *Matcher) MatchEntry(entry domain.MappingEntry, sample string) (bool, error) {
	re, err := m.compile(entry.Pattern)
	if err != nil {
		return false, domain.NewInvalidPatternError(entry.Name, entry.Pattern, err)
	}
	return re.MatchString(sample), nil
}

// Check compiles a pattern without matching, reporting compilability.
func (m *Matcher) Check(name, pattern string) error {
	if _, err := m.compile(pattern); err != nil {
		return domain.NewInvalidPatternError(name, pattern, err)
	}
	return nil
}

// compile returns the cached compilation result for a pattern, compiling
// once on first use. Keyed by pattern text so updating an entry's pattern
// naturally misses the cache.
func (m *Matcher) compile(pattern string) (*regexp.Regexp, error) {
	m.mu.RLock()
	c, ok := m.cache[pattern]
	m.mu.RUnlock()
	if ok {
		return c.re, c.err
	}

	re, err := regexp.Compile(pattern)

	m.mu.Lock()
	m.cache[pattern] = compiled{re: re, err: err}
	m.mu.Unlock()

	return re, err
}
