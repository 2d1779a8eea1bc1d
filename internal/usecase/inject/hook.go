// Package inject implements the per-prompt orchestration: match the prompt
// against the merged config, resolve the matching snippets, and hand the
// banner plus injected text back to the host runtime. This is the hot path
// of the assistant; the merged config is cached and re-read only when a
// document's mtime changes.
package inject

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bkyoung/snipctx/internal/adapter/observability"
	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/mapping"
	"github.com/bkyoung/snipctx/internal/matcher"
	"github.com/bkyoung/snipctx/internal/snippet"
	"github.com/bkyoung/snipctx/internal/store"
)

const bannerPrefix = "Active Contexts: "

// Hook runs once per submitted prompt.
type Hook struct {
	mappings *mapping.Store
	matcher  *matcher.Matcher
	resolver *snippet.Resolver
	logger   observability.Logger
	history  store.Store // optional; nil disables recording
	now      func() time.Time

	mu          sync.Mutex
	cached      domain.MergedConfig
	fingerprint mapping.Fingerprint
	loaded      bool
}

// Options captures the collaborators of a Hook.
type Options struct {
	Mappings *mapping.Store
	Matcher  *matcher.Matcher
	Resolver *snippet.Resolver
	Logger   observability.Logger
	History  store.Store
	Now      func() time.Time
}

// NewHook creates a hook over the given mapping store and snippet root.
func NewHook(opts Options) *Hook {
	h := &Hook{
		mappings: opts.Mappings,
		matcher:  opts.Matcher,
		resolver: opts.Resolver,
		logger:   opts.Logger,
		history:  opts.History,
		now:      opts.Now,
	}
	if h.matcher == nil {
		h.matcher = matcher.New()
	}
	if h.logger == nil {
		h.logger = observability.NopLogger{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// OnPrompt matches the prompt, resolves every matching entry, and returns
// the banner plus concatenated bodies. Identical prompt + unchanged config
// produces byte-identical output. Any snippet that cannot be read skips its
// entry and never fails the prompt; only a broken config load is an error.
func (h *Hook) OnPrompt(ctx context.Context, prompt string) (domain.InjectionResult, error) {
	result := domain.InjectionResult{RawPrompt: prompt}

	cfg, err := h.config()
	if err != nil {
		return result, err
	}

	matches := h.matcher.Match(cfg, prompt)
	if len(matches) == 0 {
		return result, nil
	}

	var bodies []string
	var announce []string
	var matched []string
	for _, entry := range matches {
		resolved, err := h.resolver.Resolve(entry)
		if err != nil {
			// Any per-entry resolution failure (missing file, unreadable
			// file) skips that entry; one bad entry must never fail the
			// whole prompt.
			h.logger.LogWarning(ctx, "skipping entry whose snippet could not be read", map[string]interface{}{
				"name":  entry.Name,
				"error": err.Error(),
			})
			continue
		}
		bodies = append(bodies, strings.TrimRight(resolved.Body, "\n"))
		matched = append(matched, entry.Name)
		if resolved.FrontMatter.AnnounceUsage {
			announce = append(announce, entry.Name)
		}
	}

	if len(announce) > 0 {
		// One merged banner line regardless of how many entries announce.
		result.Banner = bannerPrefix + strings.Join(announce, ", ")
	}
	result.InjectedText = strings.Join(bodies, "\n\n")

	if !result.Empty() {
		h.record(ctx, prompt, cfg, matched, len(result.InjectedText))
	}
	return result, nil
}

// config returns the cached merged config, reloading when either mapping
// document changed on disk.
func (h *Hook) config() (domain.MergedConfig, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.mappings.Fingerprint()
	if h.loaded && current == h.fingerprint {
		return h.cached, nil
	}

	cfg, err := h.mappings.Load()
	if err != nil {
		return domain.MergedConfig{}, err
	}
	h.cached = cfg
	h.fingerprint = current
	h.loaded = true
	return cfg, nil
}

// record persists an injection event best-effort. History must never fail
// a prompt.
func (h *Hook) record(ctx context.Context, prompt string, cfg domain.MergedConfig, matched []string, injectedBytes int) {
	if h.history == nil {
		return
	}

	configHash, err := domain.ConfigHash(cfg)
	if err != nil {
		configHash = ""
	}
	ts := h.now().UTC()
	promptHash := domain.HashPrompt(prompt)
	event := store.InjectionEvent{
		EventID:       store.GenerateEventID(ts, promptHash),
		Timestamp:     ts,
		PromptHash:    promptHash,
		ConfigHash:    configHash,
		Matched:       matched,
		InjectedBytes: injectedBytes,
	}
	if err := h.history.RecordInjection(ctx, event); err != nil {
		h.logger.LogWarning(ctx, "failed to record injection event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
