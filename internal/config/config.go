package config

// Config represents the full application configuration.
//
// Note this is the tool's own settings file (snipctx.yaml), not the mapping
// documents: those are JSON resources owned by the mapping store and are
// shared with the hook across processes.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
}

// PathsConfig locates the mapping documents and snippet/backup directories.
type PathsConfig struct {
	// BaseConfig is the shared mapping document.
	BaseConfig string `yaml:"baseConfig"`
	// LocalConfig is the overlay document; entries here win by name.
	LocalConfig string `yaml:"localConfig"`
	// SnippetsDir is the root that snippet paths resolve against.
	SnippetsDir string `yaml:"snippetsDir"`
	// BackupsDir receives timestamped backup bundles before deletions.
	BackupsDir string `yaml:"backupsDir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, error
	Format string `yaml:"format"` // human, json
}

// HistoryConfig configures the optional injection-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
