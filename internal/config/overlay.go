package config

import (
	"github.com/mvp-joe/javalens/internal/project"
	"github.com/mvp-joe/javalens/internal/watcher"
)

// ToOverlay converts the project section into the overlay merged over every
// loaded project model.
func (c *Config) ToOverlay() project.Overlay {
	return project.Overlay{
		SourceDirs:     c.Project.SourceDirs,
		TestSourceDirs: c.Project.TestSourceDirs,
		OutputDir:      c.Project.OutputDir,
		TestOutputDir:  c.Project.TestOutputDir,
		Dependencies:   c.Project.Dependencies,
	}
}

// ToWatchOptions converts the watch section into file watcher options.
func (c *Config) ToWatchOptions() watcher.Options {
	return watcher.Options{
		Debounce: c.Watch.Debounce,
		Ignore:   c.Watch.Ignore,
	}
}
