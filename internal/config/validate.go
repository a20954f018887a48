package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidDuration indicates a non-positive timeout or window
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidCount indicates a non-positive size or worker count
	ErrInvalidCount = errors.New("invalid count")

	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidRelease indicates a javac release that is not a version number
	ErrInvalidRelease = errors.New("invalid compiler release")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateSession(&cfg.Session); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(&cfg.Watch); err != nil {
		errs = append(errs, err)
	}
	if err := validateProject(&cfg.Project); err != nil {
		errs = append(errs, err)
	}
	if err := validateCompiler(&cfg.Compiler); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateSession(cfg *SessionConfig) error {
	var errs []error

	if cfg.IdleEviction <= 0 {
		errs = append(errs, fmt.Errorf("%w: idle_eviction must be positive, got %s", ErrInvalidDuration, cfg.IdleEviction))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: shutdown_timeout must be positive, got %s", ErrInvalidDuration, cfg.ShutdownTimeout))
	}
	if cfg.HistoryCapacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: history_capacity must be positive, got %d", ErrInvalidCount, cfg.HistoryCapacity))
	}
	if cfg.ParseWorkers <= 0 {
		errs = append(errs, fmt.Errorf("%w: parse_workers must be positive, got %d", ErrInvalidCount, cfg.ParseWorkers))
	}
	if cfg.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidCount, cfg.QueueSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateWatch(cfg *WatchConfig) error {
	var errs []error

	// Zero means the watcher default
	if cfg.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce cannot be negative, got %s", ErrInvalidDuration, cfg.Debounce))
	}
	errs = append(errs, validatePatterns("watch.ignore", cfg.Ignore)...)

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateProject(cfg *ProjectConfig) error {
	if errs := validatePatterns("project.include", cfg.Include); len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validatePatterns(field string, patterns []string) []error {
	var errs []error
	for _, p := range patterns {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s entry %q: %v", ErrInvalidPattern, field, p, err))
		}
	}
	return errs
}

func validateCompiler(cfg *CompilerConfig) error {
	var errs []error

	if cfg.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: compiler timeout must be positive, got %s", ErrInvalidDuration, cfg.Timeout))
	}
	if cfg.Release != "" {
		release := strings.TrimPrefix(cfg.Release, "1.")
		if n, err := strconv.Atoi(release); err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidRelease, cfg.Release))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
