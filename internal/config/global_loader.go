package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadGlobalConfig loads global configuration from ~/.javalens/config.yml.
// Returns default values if file doesn't exist (not an error).
// Environment variables override file values (JAVALENS_* prefix).
func LoadGlobalConfig() (*GlobalConfig, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	javalensDir := filepath.Join(home, DirName)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(javalensDir)

	v.SetEnvPrefix("JAVALENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindGlobalEnvVars(v)
	setGlobalDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func bindGlobalEnvVars(v *viper.Viper) {
	v.BindEnv("cache.base_dir")
	v.BindEnv("maven.repository")
	// JAVALENS_JAVA_HOME wins over the JDK's own variable
	v.BindEnv("java.home", "JAVALENS_JAVA_HOME", "JAVA_HOME")
}

func setGlobalDefaults(v *viper.Viper, home string) {
	v.SetDefault("cache.base_dir", filepath.Join(home, DirName, "cache"))
	v.SetDefault("maven.repository", filepath.Join(home, ".m2", "repository"))
	v.SetDefault("java.home", "")
}
