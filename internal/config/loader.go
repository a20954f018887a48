package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-project settings directory.
const DirName = ".javalens"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (JAVALENS_*)
// 2. Config file (.javalens/config.yml or .javalens/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	// JAVALENS_SESSION_FAST_BOOT maps to session.fast_boot
	v.SetEnvPrefix("JAVALENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	for _, key := range []string{
		"session.fast_boot",
		"session.idle_eviction",
		"session.history_capacity",
		"session.parse_workers",
		"session.eager_reparse",
		"session.queue_size",
		"session.shutdown_timeout",
		"cache.location",
		"cache.class_index",
		"watch.enabled",
		"watch.debounce",
		"watch.git",
		"compiler.javac",
		"compiler.release",
		"compiler.timeout",
	} {
		v.BindEnv(key)
	}
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("session.fast_boot", defaults.Session.FastBoot)
	v.SetDefault("session.idle_eviction", defaults.Session.IdleEviction)
	v.SetDefault("session.history_capacity", defaults.Session.HistoryCapacity)
	v.SetDefault("session.parse_workers", defaults.Session.ParseWorkers)
	v.SetDefault("session.eager_reparse", defaults.Session.EagerReparse)
	v.SetDefault("session.queue_size", defaults.Session.QueueSize)
	v.SetDefault("session.shutdown_timeout", defaults.Session.ShutdownTimeout)

	v.SetDefault("cache.location", defaults.Cache.Location)
	v.SetDefault("cache.class_index", defaults.Cache.ClassIndex)

	v.SetDefault("watch.enabled", defaults.Watch.Enabled)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("watch.git", defaults.Watch.Git)

	v.SetDefault("project.source_dirs", defaults.Project.SourceDirs)
	v.SetDefault("project.test_source_dirs", defaults.Project.TestSourceDirs)
	v.SetDefault("project.output_dir", defaults.Project.OutputDir)
	v.SetDefault("project.test_output_dir", defaults.Project.TestOutputDir)
	v.SetDefault("project.dependencies", defaults.Project.Dependencies)
	v.SetDefault("project.include", defaults.Project.Include)

	v.SetDefault("compiler.javac", defaults.Compiler.Javac)
	v.SetDefault("compiler.release", defaults.Compiler.Release)
	v.SetDefault("compiler.args", defaults.Compiler.Args)
	v.SetDefault("compiler.timeout", defaults.Compiler.Timeout)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
