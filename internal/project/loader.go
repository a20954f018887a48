package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// Loader builds a fresh model for the project rooted at root.
type Loader interface {
	Load(ctx context.Context, root string) (*Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, root string) (*Model, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, root string) (*Model, error) {
	return f(ctx, root)
}

// DefaultLoaders returns the built-in loader for every descriptor kind.
// Library jars are looked up in the Maven repository at repo; an empty repo
// means ~/.m2/repository.
func DefaultLoaders(repo string) map[Kind]Loader {
	if repo == "" {
		repo = DefaultRepository()
	}
	return map[Kind]Loader{
		KindGradle: &GradleLoader{Repository: repo},
		KindMaven:  &MavenLoader{Repository: repo},
		KindNative: &NativeLoader{},
	}
}

// DefaultRepository returns the local Maven repository.
func DefaultRepository() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".m2", "repository")
}

// repositoryJar returns the jar for group:artifact:version in repo, or ""
// when it is not present.
func repositoryJar(repo, group, artifact, version string) string {
	if repo == "" || group == "" || artifact == "" || version == "" {
		return ""
	}
	path := filepath.Join(repo, filepath.FromSlash(strings.ReplaceAll(group, ".", "/")),
		artifact, version, artifact+"-"+version+".jar")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// layout describes directories relative to a module directory.
type layout struct {
	sources    []string
	tests      []string
	output     string
	testOutput string
}

func (l layout) apply(dir string, mod *Module) {
	for _, s := range l.sources {
		mod.SourceDirs = append(mod.SourceDirs, filepath.Join(dir, s))
	}
	for _, s := range l.tests {
		mod.TestSourceDirs = append(mod.TestSourceDirs, filepath.Join(dir, s))
	}
	mod.OutputDir = filepath.Join(dir, l.output)
	mod.TestOutputDir = filepath.Join(dir, l.testOutput)
}

// fromModules fills the model's directory sets from its modules. The root
// module, when present, provides the output directories.
func (m *Model) fromModules() {
	for _, mod := range m.Modules {
		m.SourceDirs = appendUnique(m.SourceDirs, mod.SourceDirs...)
		m.TestSourceDirs = appendUnique(m.TestSourceDirs, mod.TestSourceDirs...)
		if mod.Path == m.Root || m.OutputDir == "" {
			m.OutputDir = mod.OutputDir
			m.TestOutputDir = mod.TestOutputDir
		}
	}
}
