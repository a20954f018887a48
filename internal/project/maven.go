package project

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type pom struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Parent     struct {
		GroupID string `xml:"groupId"`
		Version string `xml:"version"`
	} `xml:"parent"`
	Properties struct {
		Entries []pomProperty `xml:",any"`
	} `xml:"properties"`
	Modules      []string        `xml:"modules>module"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
	Build        struct {
		SourceDirectory     string `xml:"sourceDirectory"`
		TestSourceDirectory string `xml:"testSourceDirectory"`
		OutputDirectory     string `xml:"outputDirectory"`
		TestOutputDirectory string `xml:"testOutputDirectory"`
	} `xml:"build"`
}

type pomProperty struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

var pomPropertyRe = regexp.MustCompile(`\$\{([^}]+)\}`)

var mavenLayout = layout{
	sources:    []string{"src/main/java"},
	tests:      []string{"src/test/java"},
	output:     "target/classes",
	testOutput: "target/test-classes",
}

// MavenLoader reads pom.xml files directly: the reactor modules, build
// directory overrides and declared dependencies. Property placeholders are
// expanded from the pom's own properties; inherited or profile-driven
// configuration is not evaluated.
type MavenLoader struct {
	Repository string
}

// Load builds the model for root.
func (l *MavenLoader) Load(ctx context.Context, root string) (*Model, error) {
	descriptor, err := DescriptorPath(root, KindMaven)
	if err != nil {
		return nil, err
	}

	model := &Model{Kind: KindMaven, Root: root, Descriptor: descriptor}
	artifacts := make(map[string]string) // artifactId -> module name
	var poms []*pom

	queue := []string{root}
	seen := make(map[string]bool)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := queue[0]
		queue = queue[1:]
		if seen[dir] {
			continue
		}
		seen[dir] = true

		p, err := readPom(filepath.Join(dir, MavenFile))
		if err != nil {
			return nil, err
		}

		mod := Module{Name: p.ArtifactID, Path: dir}
		if mod.Name == "" {
			mod.Name = filepath.Base(dir)
		}
		mavenLayout.apply(dir, &mod)
		p.applyBuild(dir, &mod)

		rel, _ := filepath.Rel(root, dir)
		for _, d := range p.Dependencies {
			scope := ScopeCompile
			if d.Scope == "test" {
				scope = ScopeTest
			}
			group, artifact, version := p.expand(d.GroupID), p.expand(d.ArtifactID), p.expand(d.Version)
			model.Dependencies = append(model.Dependencies, Dependency{
				ID:     group + ":" + artifact + ":" + version,
				File:   repositoryJar(l.Repository, group, artifact, version),
				Module: filepath.ToSlash(rel),
				Scope:  scope,
			})
		}

		artifacts[p.ArtifactID] = mod.Name
		poms = append(poms, p)
		model.Modules = append(model.Modules, mod)

		for _, sub := range p.Modules {
			queue = append(queue, filepath.Join(dir, filepath.FromSlash(strings.TrimSpace(sub))))
		}
	}

	// Reactor dependencies become module edges.
	for i, p := range poms {
		for _, d := range p.Dependencies {
			if name, ok := artifacts[p.expand(d.ArtifactID)]; ok && name != model.Modules[i].Name {
				model.Modules[i].DependsOn = appendUnique(model.Modules[i].DependsOn, name)
			}
		}
		sort.Strings(model.Modules[i].DependsOn)
	}

	model.fromModules()
	return model, nil
}

func readPom(path string) (*pom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var p pom
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if p.GroupID == "" {
		p.GroupID = p.Parent.GroupID
	}
	if p.Version == "" {
		p.Version = p.Parent.Version
	}
	return &p, nil
}

func (p *pom) applyBuild(dir string, mod *Module) {
	resolve := func(v string) string {
		v = p.expand(strings.TrimSpace(v))
		if filepath.IsAbs(v) {
			return filepath.Clean(v)
		}
		return filepath.Join(dir, v)
	}
	if p.Build.SourceDirectory != "" {
		mod.SourceDirs = []string{resolve(p.Build.SourceDirectory)}
	}
	if p.Build.TestSourceDirectory != "" {
		mod.TestSourceDirs = []string{resolve(p.Build.TestSourceDirectory)}
	}
	if p.Build.OutputDirectory != "" {
		mod.OutputDir = resolve(p.Build.OutputDirectory)
	}
	if p.Build.TestOutputDirectory != "" {
		mod.TestOutputDir = resolve(p.Build.TestOutputDirectory)
	}
}

// expand replaces ${name} placeholders. Unknown names are left as written.
func (p *pom) expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return pomPropertyRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		switch name {
		case "project.version", "version":
			return p.Version
		case "project.groupId":
			return p.GroupID
		case "project.artifactId":
			return p.ArtifactID
		case "project.basedir", "basedir":
			return "."
		}
		for _, e := range p.Properties.Entries {
			if e.XMLName.Local == name {
				return strings.TrimSpace(e.Value)
			}
		}
		return m
	})
}
