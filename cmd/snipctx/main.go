package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bkyoung/snipctx/internal/adapter/cli"
	"github.com/bkyoung/snipctx/internal/adapter/observability"
	"github.com/bkyoung/snipctx/internal/adapter/store/sqlite"
	"github.com/bkyoung/snipctx/internal/config"
	"github.com/bkyoung/snipctx/internal/mapping"
	"github.com/bkyoung/snipctx/internal/matcher"
	"github.com/bkyoung/snipctx/internal/snippet"
	"github.com/bkyoung/snipctx/internal/usecase/inject"
	"github.com/bkyoung/snipctx/internal/usecase/manage"
	"github.com/bkyoung/snipctx/internal/version"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "snipctx",
		EnvPrefix:   "SNIPCTX",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := observability.NewDefaultLogger(
		observability.ParseLevel(cfg.Logging.Level),
		observability.ParseFormat(cfg.Logging.Format),
	)

	mappings := mapping.NewStore(cfg.Paths.BaseConfig, cfg.Paths.LocalConfig)

	// One matcher instance so both the manager and the hook share the
	// compiled-pattern cache.
	patternMatcher := matcher.New()

	manager := manage.NewManager(manage.Options{
		Mappings:    mappings,
		Matcher:     patternMatcher,
		SnippetsDir: cfg.Paths.SnippetsDir,
		BackupsDir:  cfg.Paths.BackupsDir,
		Logger:      logger,
	})

	// Initialize the injection-history store if enabled
	var history *sqlite.Store
	if cfg.History.Enabled {
		historyDir := filepath.Dir(cfg.History.Path)
		if err := os.MkdirAll(historyDir, 0755); err != nil {
			log.Printf("warning: failed to create history directory: %v", err)
		} else {
			history, err = sqlite.NewStore(cfg.History.Path)
			if err != nil {
				log.Printf("warning: failed to initialize history store: %v", err)
				history = nil
			} else {
				defer history.Close()
			}
		}
	}

	hookOpts := inject.Options{
		Mappings: mappings,
		Matcher:  patternMatcher,
		Resolver: snippet.NewResolver(cfg.Paths.SnippetsDir),
		Logger:   logger,
	}
	if history != nil {
		hookOpts.History = history
	}
	hook := inject.NewHook(hookOpts)

	deps := cli.Dependencies{
		Manager: manager,
		Hook:    hook,
		Version: version.Version(),
	}
	if history != nil {
		deps.History = history
	}

	root := cli.NewRootCommand(deps)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "snipctx"))
	}
	return paths
}
