// Package config provides configuration loading for javalens.
//
// It supports two distinct configuration scopes:
//
// 1. Global Configuration (~/.javalens/config.yml)
//   - Machine-wide settings shared by every project
//   - Cache base directory, Maven repository, JDK location
//   - Loaded via LoadGlobalConfig()
//
// 2. Project Configuration (.javalens/config.yml)
//   - Session tuning, watcher, compiler options
//   - Source and output overlay merged over the loaded project model
//   - Loaded via Load()
//
// Environment Variable Convention:
//   - Prefix: JAVALENS_
//   - Nested fields: Use underscores (JAVALENS_SESSION_FAST_BOOT)
//   - JAVA_HOME is honoured for java.home
package config

import "path/filepath"

// GlobalConfig holds machine-wide configuration.
// Loaded from ~/.javalens/config.yml (not project .javalens/config.yml).
type GlobalConfig struct {
	Cache GlobalCacheConfig `yaml:"cache" mapstructure:"cache"`
	Maven MavenConfig       `yaml:"maven" mapstructure:"maven"`
	Java  JavaConfig        `yaml:"java" mapstructure:"java"`
}

// GlobalCacheConfig holds the shared cache location.
type GlobalCacheConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"` // per-project caches live below
}

// MavenConfig locates the local artifact repository used to resolve jars.
type MavenConfig struct {
	Repository string `yaml:"repository" mapstructure:"repository"`
}

// JavaConfig locates the JDK.
type JavaConfig struct {
	Home string `yaml:"home" mapstructure:"home"`
}

// CacheDir returns the cache root for a project: the project override when
// set, otherwise the global base dir.
func (g *GlobalConfig) CacheDir(cfg *Config) string {
	if cfg != nil && cfg.Cache.Location != "" {
		return cfg.Cache.Location
	}
	return g.Cache.BaseDir
}

// Javac returns the compiler binary: the configured one, else the JDK's,
// else "javac" from PATH.
func (g *GlobalConfig) Javac(cfg *Config) string {
	if cfg != nil && cfg.Compiler.Javac != "" {
		return cfg.Compiler.Javac
	}
	if g.Java.Home != "" {
		return filepath.Join(g.Java.Home, "bin", "javac")
	}
	return "javac"
}
