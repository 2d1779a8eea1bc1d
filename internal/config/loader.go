package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "snipctx"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "SNIPCTX"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Expand environment variables in config values
	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Paths.BaseConfig = expandEnvString(cfg.Paths.BaseConfig)
	cfg.Paths.LocalConfig = expandEnvString(cfg.Paths.LocalConfig)
	cfg.Paths.SnippetsDir = expandEnvString(cfg.Paths.SnippetsDir)
	cfg.Paths.BackupsDir = expandEnvString(cfg.Paths.BackupsDir)

	cfg.Logging.Level = expandEnvString(cfg.Logging.Level)
	cfg.Logging.Format = expandEnvString(cfg.Logging.Format)

	cfg.History.Path = expandEnvString(cfg.History.Path)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	// Replace ${VAR} syntax
	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	// Replace $VAR syntax (without braces)
	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.baseConfig", "config.json")
	v.SetDefault("paths.localConfig", "config.local.json")
	v.SetDefault("paths.snippetsDir", "snippets")
	v.SetDefault("paths.backupsDir", "backups")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "human")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", defaultHistoryPath())
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./injections.db"
	}
	return filepath.Join(home, ".config", "snipctx", "injections.db")
}
