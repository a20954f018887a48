// Package project finds, loads and persists the project model: source and
// output directories, dependencies and modules of a Gradle, Maven or native
// javalens project.
package project

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies the descriptor a project was loaded from.
type Kind string

const (
	KindGradle Kind = "gradle"
	KindMaven  Kind = "maven"
	KindNative Kind = "javalens"
)

// Descriptor file names, in lookup priority order.
const (
	GradleFile    = "build.gradle"
	GradleKtsFile = "build.gradle.kts"
	MavenFile     = "pom.xml"
	NativeFile    = ".javalens.toml"
)

// Dependency scopes.
const (
	ScopeCompile = "compile"
	ScopeTest    = "test"
)

// Dependency is a library the project compiles against.
type Dependency struct {
	ID     string `json:"id"`               // group:artifact:version, or the jar name
	File   string `json:"file,omitempty"`   // resolved jar path; empty when not found locally
	Module string `json:"module,omitempty"` // owning module path relative to root
	Scope  string `json:"scope"`
}

// Module is one subproject of a multi-module build.
type Module struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"` // absolute module directory
	DependsOn []string `json:"depends_on,omitempty"`

	SourceDirs     []string `json:"source_dirs,omitempty"`
	TestSourceDirs []string `json:"test_source_dirs,omitempty"`
	OutputDir      string   `json:"output_dir,omitempty"`
	TestOutputDir  string   `json:"test_output_dir,omitempty"`
}

// Model is the loaded description of a project.
type Model struct {
	ID             string       `json:"id"`
	Kind           Kind         `json:"kind"`
	Root           string       `json:"root"`
	Descriptor     string       `json:"descriptor"`
	SourceDirs     []string     `json:"source_dirs"`
	TestSourceDirs []string     `json:"test_source_dirs"`
	OutputDir      string       `json:"output_dir"`
	TestOutputDir  string       `json:"test_output_dir"`
	Dependencies   []Dependency `json:"dependencies,omitempty"`
	Modules        []Module     `json:"modules,omitempty"`
}

// Overlay is the configuration merged over a loaded model on every load.
// Relative paths resolve against the project root.
type Overlay struct {
	SourceDirs     []string
	TestSourceDirs []string
	OutputDir      string
	TestOutputDir  string
	Dependencies   []string // jar paths
}

// Empty reports whether the overlay changes nothing.
func (o Overlay) Empty() bool {
	return len(o.SourceDirs) == 0 && len(o.TestSourceDirs) == 0 &&
		o.OutputDir == "" && o.TestOutputDir == "" && len(o.Dependencies) == 0
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := *m
	c.SourceDirs = append([]string(nil), m.SourceDirs...)
	c.TestSourceDirs = append([]string(nil), m.TestSourceDirs...)
	c.Dependencies = append([]Dependency(nil), m.Dependencies...)
	c.Modules = make([]Module, len(m.Modules))
	for i, mod := range m.Modules {
		mod.DependsOn = append([]string(nil), mod.DependsOn...)
		mod.SourceDirs = append([]string(nil), mod.SourceDirs...)
		mod.TestSourceDirs = append([]string(nil), mod.TestSourceDirs...)
		c.Modules[i] = mod
	}
	if m.Modules == nil {
		c.Modules = nil
	}
	return &c
}

// Merge returns a copy of the model with the overlay applied. Source
// directories and dependencies are added; output directories are replaced.
// The receiver is not modified, so merging the same overlay on every load
// never accumulates.
func (m *Model) Merge(o Overlay) *Model {
	c := m.Clone()
	if o.Empty() {
		return c
	}

	c.SourceDirs = appendUnique(c.SourceDirs, c.abs(o.SourceDirs)...)
	c.TestSourceDirs = appendUnique(c.TestSourceDirs, c.abs(o.TestSourceDirs)...)
	if o.OutputDir != "" {
		c.OutputDir = c.abs([]string{o.OutputDir})[0]
	}
	if o.TestOutputDir != "" {
		c.TestOutputDir = c.abs([]string{o.TestOutputDir})[0]
	}

	known := make(map[string]bool, len(c.Dependencies))
	for _, d := range c.Dependencies {
		known[d.File] = true
	}
	for _, jar := range c.abs(o.Dependencies) {
		if known[jar] {
			continue
		}
		known[jar] = true
		c.Dependencies = append(c.Dependencies, Dependency{
			ID:    filepath.Base(jar),
			File:  jar,
			Scope: ScopeCompile,
		})
	}
	return c
}

func (m *Model) abs(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Root, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// AllSourceDirs returns main then test source directories.
func (m *Model) AllSourceDirs() []string {
	out := make([]string, 0, len(m.SourceDirs)+len(m.TestSourceDirs))
	out = append(out, m.SourceDirs...)
	return append(out, m.TestSourceDirs...)
}

// Jars returns the resolved dependency jars, sorted. Test-scoped jars are
// included only when test is set.
func (m *Model) Jars(test bool) []string {
	var out []string
	for _, d := range m.Dependencies {
		if d.File == "" || (d.Scope == ScopeTest && !test) {
			continue
		}
		out = appendUnique(out, d.File)
	}
	sort.Strings(out)
	return out
}

// Classpath returns the compile classpath. The test classpath adds the main
// output directory and test-scoped jars.
func (m *Model) Classpath(test bool) []string {
	var cp []string
	if test && m.OutputDir != "" {
		cp = append(cp, m.OutputDir)
	}
	for _, mod := range m.Modules {
		if mod.OutputDir != "" {
			cp = appendUnique(cp, mod.OutputDir)
		}
	}
	return append(cp, m.Jars(test)...)
}

// SourceRoot returns the source or test root containing path.
func (m *Model) SourceRoot(path string) (root string, test bool, ok bool) {
	for _, dir := range m.SourceDirs {
		if within(dir, path) {
			return dir, false, true
		}
	}
	for _, dir := range m.TestSourceDirs {
		if within(dir, path) {
			return dir, true, true
		}
	}
	return "", false, false
}

// Module returns the module named name.
func (m *Model) Module(name string) (Module, bool) {
	for _, mod := range m.Modules {
		if mod.Name == name {
			return mod, true
		}
	}
	return Module{}, false
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, d := range dst {
		seen[d] = true
	}
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			dst = append(dst, it)
		}
	}
	return dst
}
