package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// include 'core', ':app:web' / include("core", "app")
	gradleIncludeRe = regexp.MustCompile(`(?m)^\s*include\s*\(?([^)\n]+)\)?`)
	gradleQuotedRe  = regexp.MustCompile(`['"]([^'"]+)['"]`)

	// implementation 'g:a:v' / testImplementation("g:a:v")
	gradleDepRe = regexp.MustCompile(`(?m)^\s*(implementation|api|compile|compileOnly|runtimeOnly|testImplementation|testCompile|testCompileOnly|testRuntimeOnly)\s*\(?\s*['"]([^:'"\s]+):([^:'"\s]+):([^:'"@\s]+)[^'"]*['"]`)

	// implementation project(':core')
	gradleProjectDepRe = regexp.MustCompile(`(?m)^\s*\w+\s*\(?\s*project\s*\(\s*(?:path\s*:\s*)?['"]:?([^'"]+)['"]`)
)

var gradleLayout = layout{
	sources:    []string{"src/main/java"},
	tests:      []string{"src/test/java"},
	output:     "build/classes/java/main",
	testOutput: "build/classes/java/test",
}

// GradleLoader reads a Gradle build by convention: settings includes define
// modules, each module uses the standard source layout, and dependency
// coordinates declared in build scripts are resolved against a local Maven
// repository. Build logic is not executed.
type GradleLoader struct {
	Repository string
}

// Load builds the model for root.
func (l *GradleLoader) Load(ctx context.Context, root string) (*Model, error) {
	descriptor, err := DescriptorPath(root, KindGradle)
	if err != nil {
		return nil, err
	}

	model := &Model{Kind: KindGradle, Root: root, Descriptor: descriptor}

	names := []string{""}
	names = append(names, gradleIncludes(root)...)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mod, deps, err := l.loadModule(root, name)
		if err != nil {
			return nil, err
		}
		model.Modules = append(model.Modules, mod)
		model.Dependencies = append(model.Dependencies, deps...)
	}

	model.fromModules()
	return model, nil
}

func (l *GradleLoader) loadModule(root, name string) (Module, []Dependency, error) {
	dir := root
	modName := filepath.Base(root)
	if name != "" {
		dir = filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(name, ":", "/")))
		modName = name
	}

	mod := Module{Name: modName, Path: dir}
	gradleLayout.apply(dir, &mod)

	script := gradleScript(dir)
	if script == "" {
		return mod, nil, nil
	}
	data, err := os.ReadFile(script)
	if err != nil {
		return Module{}, nil, fmt.Errorf("failed to read %s: %w", script, err)
	}
	content := stripGradleComments(string(data))

	rel, _ := filepath.Rel(root, dir)
	var deps []Dependency
	for _, m := range gradleDepRe.FindAllStringSubmatch(content, -1) {
		scope := ScopeCompile
		if strings.HasPrefix(m[1], "test") {
			scope = ScopeTest
		}
		deps = append(deps, Dependency{
			ID:     m[2] + ":" + m[3] + ":" + m[4],
			File:   repositoryJar(l.Repository, m[2], m[3], m[4]),
			Module: filepath.ToSlash(rel),
			Scope:  scope,
		})
	}
	for _, m := range gradleProjectDepRe.FindAllStringSubmatch(content, -1) {
		mod.DependsOn = appendUnique(mod.DependsOn, m[1])
	}
	sort.Strings(mod.DependsOn)
	return mod, deps, nil
}

func gradleScript(dir string) string {
	for _, name := range []string{GradleFile, GradleKtsFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// gradleIncludes returns module names from settings.gradle(.kts), without
// the leading colon and in declaration order.
func gradleIncludes(root string) []string {
	var data []byte
	for _, name := range []string{"settings.gradle", "settings.gradle.kts"} {
		b, err := os.ReadFile(filepath.Join(root, name))
		if err == nil {
			data = b
			break
		}
	}
	if data == nil {
		return nil
	}

	var out []string
	for _, line := range gradleIncludeRe.FindAllStringSubmatch(stripGradleComments(string(data)), -1) {
		for _, q := range gradleQuotedRe.FindAllStringSubmatch(line[1], -1) {
			out = appendUnique(out, strings.TrimPrefix(q[1], ":"))
		}
	}
	return out
}

func stripGradleComments(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
