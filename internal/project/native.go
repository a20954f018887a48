package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// nativeDescriptor is the layout of .javalens.toml.
//
//	[project]
//	source_dirs = ["src"]
//	test_source_dirs = ["test"]
//	output_dir = "out/classes"
//	test_output_dir = "out/test-classes"
//	dependencies = ["lib/guava.jar"]
//	test_dependencies = ["lib/junit.jar"]
//
//	[[module]]
//	name = "core"
//	path = "core"
//	depends_on = []
type nativeDescriptor struct {
	Project nativeProject  `toml:"project"`
	Modules []nativeModule `toml:"module"`
}

type nativeProject struct {
	SourceDirs       []string `toml:"source_dirs"`
	TestSourceDirs   []string `toml:"test_source_dirs"`
	OutputDir        string   `toml:"output_dir"`
	TestOutputDir    string   `toml:"test_output_dir"`
	Dependencies     []string `toml:"dependencies"`
	TestDependencies []string `toml:"test_dependencies"`
}

type nativeModule struct {
	Name      string   `toml:"name"`
	Path      string   `toml:"path"`
	DependsOn []string `toml:"depends_on"`
}

var nativeDefaults = nativeProject{
	SourceDirs:     []string{"src/main/java"},
	TestSourceDirs: []string{"src/test/java"},
	OutputDir:      "build/classes",
	TestOutputDir:  "build/test-classes",
}

// NativeLoader reads a .javalens.toml descriptor. Omitted directories fall
// back to the standard layout; each module uses the same relative layout
// under its own path.
type NativeLoader struct{}

// Load builds the model for root.
func (l *NativeLoader) Load(ctx context.Context, root string) (*Model, error) {
	descriptor := filepath.Join(root, NativeFile)
	data, err := os.ReadFile(descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", descriptor, err)
	}

	var desc nativeDescriptor
	if _, err := toml.Decode(string(data), &desc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", descriptor, err)
	}
	p := desc.Project.withDefaults()

	lay := layout{
		sources:    p.SourceDirs,
		tests:      p.TestSourceDirs,
		output:     p.OutputDir,
		testOutput: p.TestOutputDir,
	}

	model := &Model{Kind: KindNative, Root: root, Descriptor: descriptor}

	rootMod := Module{Name: filepath.Base(root), Path: root}
	lay.apply(root, &rootMod)
	model.Modules = append(model.Modules, rootMod)

	for _, m := range desc.Modules {
		if m.Name == "" {
			return nil, fmt.Errorf("module without name in %s", descriptor)
		}
		dir := m.Path
		if dir == "" {
			dir = m.Name
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		mod := Module{Name: m.Name, Path: dir, DependsOn: append([]string(nil), m.DependsOn...)}
		sort.Strings(mod.DependsOn)
		lay.apply(dir, &mod)
		model.Modules = append(model.Modules, mod)
	}

	for _, jar := range p.Dependencies {
		model.Dependencies = append(model.Dependencies, nativeDependency(root, jar, ScopeCompile))
	}
	for _, jar := range p.TestDependencies {
		model.Dependencies = append(model.Dependencies, nativeDependency(root, jar, ScopeTest))
	}

	model.fromModules()
	return model, ctx.Err()
}

func (p nativeProject) withDefaults() nativeProject {
	if len(p.SourceDirs) == 0 {
		p.SourceDirs = nativeDefaults.SourceDirs
	}
	if len(p.TestSourceDirs) == 0 {
		p.TestSourceDirs = nativeDefaults.TestSourceDirs
	}
	if p.OutputDir == "" {
		p.OutputDir = nativeDefaults.OutputDir
	}
	if p.TestOutputDir == "" {
		p.TestOutputDir = nativeDefaults.TestOutputDir
	}
	return p
}

func nativeDependency(root, jar, scope string) Dependency {
	if !filepath.IsAbs(jar) {
		jar = filepath.Join(root, jar)
	}
	return Dependency{ID: filepath.Base(jar), File: filepath.Clean(jar), Scope: scope}
}
