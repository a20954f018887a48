package config

import "time"

// Config represents the project-level javalens configuration.
// It can be loaded from .javalens/config.yml with environment variable overrides.
type Config struct {
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Watch    WatchConfig    `yaml:"watch" mapstructure:"watch"`
	Project  ProjectConfig  `yaml:"project" mapstructure:"project"`
	Compiler CompilerConfig `yaml:"compiler" mapstructure:"compiler"`
}

// SessionConfig tunes the analysis session.
type SessionConfig struct {
	FastBoot        bool          `yaml:"fast_boot" mapstructure:"fast_boot"`               // reuse the persisted project model
	IdleEviction    time.Duration `yaml:"idle_eviction" mapstructure:"idle_eviction"`       // parsed-file idle window
	HistoryCapacity int           `yaml:"history_capacity" mapstructure:"history_capacity"` // back-jump stack size
	ParseWorkers    int           `yaml:"parse_workers" mapstructure:"parse_workers"`
	EagerReparse    bool          `yaml:"eager_reparse" mapstructure:"eager_reparse"` // reparse modified files right away
	QueueSize       int           `yaml:"queue_size" mapstructure:"queue_size"`       // per event topic
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// CacheConfig controls persisted state.
type CacheConfig struct {
	Location   string `yaml:"location" mapstructure:"location"`       // overrides the global cache base dir
	ClassIndex bool   `yaml:"class_index" mapstructure:"class_index"` // persist the class index in SQLite
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
	Ignore   []string      `yaml:"ignore" mapstructure:"ignore"` // glob patterns
	Git      bool          `yaml:"git" mapstructure:"git"`       // react to branch switches
}

// ProjectConfig is merged over the loaded project model on every load.
// Relative paths resolve against the project root.
type ProjectConfig struct {
	SourceDirs     []string `yaml:"source_dirs" mapstructure:"source_dirs"`
	TestSourceDirs []string `yaml:"test_source_dirs" mapstructure:"test_source_dirs"`
	OutputDir      string   `yaml:"output_dir" mapstructure:"output_dir"`
	TestOutputDir  string   `yaml:"test_output_dir" mapstructure:"test_output_dir"`
	Dependencies   []string `yaml:"dependencies" mapstructure:"dependencies"` // jar paths
	Include        []string `yaml:"include" mapstructure:"include"`           // source globs for warm-up
}

// CompilerConfig configures javac.
type CompilerConfig struct {
	Javac   string        `yaml:"javac" mapstructure:"javac"` // empty means $JAVA_HOME/bin/javac or PATH
	Release string        `yaml:"release" mapstructure:"release"`
	Args    []string      `yaml:"args" mapstructure:"args"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			FastBoot:        true,
			IdleEviction:    15 * time.Minute,
			HistoryCapacity: 16,
			ParseWorkers:    4,
			EagerReparse:    false,
			QueueSize:       256,
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Location:   "", // Empty means use the global cache dir
			ClassIndex: true,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 200 * time.Millisecond,
			Ignore: []string{
				".git",
				".javalens",
				"build",
				"target",
				"out",
				"node_modules",
			},
			Git: true,
		},
		Project: ProjectConfig{
			Include: []string{"**/*.java"},
		},
		Compiler: CompilerConfig{
			Timeout: 5 * time.Minute,
		},
	}
}
