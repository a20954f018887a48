package project

// Test Plan for project discovery and loaders:
// - FindProject walks upward and honours gradle > maven > native priority
// - FindProject reports ErrProjectNotFound when nothing is found
// - Gradle: settings includes become modules with conventional layout,
//   coordinates resolve against the local repository, project() deps become edges
// - Maven: reactor modules, build directory overrides, property expansion,
//   test scope and reactor dependency edges
// - Native: toml directories, defaults, modules and jar dependencies
// - BuildOrder orders dependencies first and rejects cycles and unknown modules
// - Model helpers: SourceRoot, Classpath, Jars, Merge does not mutate receiver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func moduleNames(mods []Module) []string {
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name)
	}
	return names
}

func TestFindProject(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pom.xml":                         "<project/>",
		".javalens.toml":                  "",
		"build.gradle":                    "",
		"src/main/java/p/Foo.java":        "package p;",
		"nested/.javalens.toml":           "",
		"nested/src/main/java/q/Bar.java": "package q;",
		"maven/pom.xml":                   "<project/>",
		"maven/src/main/java/r/Baz.java":  "package r;",
	})

	tests := []struct {
		name     string
		start    string
		wantRoot string
		wantKind Kind
	}{
		{"gradle wins at root", "src/main/java/p", ".", KindGradle},
		{"start may be a file", "src/main/java/p/Foo.java", ".", KindGradle},
		{"nearest descriptor wins", "nested/src/main/java/q", "nested", KindNative},
		{"maven", "maven/src/main/java/r", "maven", KindMaven},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotRoot, kind, descriptor, err := FindProject(filepath.Join(root, tt.start))
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, tt.wantRoot), gotRoot)
			assert.Equal(t, tt.wantKind, kind)
			assert.FileExists(t, descriptor)
		})
	}
}

func TestFindProject_NotFound(t *testing.T) {
	t.Parallel()

	// The temp dir's ancestors are not expected to hold a descriptor.
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, os.MkdirAll(dir, 0755))

	_, _, _, err := FindProject(dir)
	if err == nil {
		t.Skip("an ancestor of the temp dir holds a project descriptor")
	}
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestGradleLoader(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	repo := t.TempDir()
	writeTree(t, repo, map[string]string{
		"com/google/guava/guava/33.0.0-jre/guava-33.0.0-jre.jar": "jar",
		"junit/junit/4.13.2/junit-4.13.2.jar":                    "jar",
	})
	writeTree(t, root, map[string]string{
		"settings.gradle": "rootProject.name = 'demo'\ninclude ':core', ':app'\n// include 'ignored'\n",
		"build.gradle":    "plugins { id 'java' }\n",
		"core/build.gradle": `dependencies {
    implementation 'com.google.guava:guava:33.0.0-jre'
    testImplementation "junit:junit:4.13.2"
}`,
		"app/build.gradle.kts": `dependencies {
    implementation(project(":core"))
    implementation("org.slf4j:slf4j-api:2.0.9")
}`,
	})

	model, err := (&GradleLoader{Repository: repo}).Load(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, KindGradle, model.Kind)
	assert.Equal(t, []string{filepath.Base(root), "core", "app"}, moduleNames(model.Modules))
	assert.Contains(t, model.SourceDirs, filepath.Join(root, "core", "src", "main", "java"))
	assert.Contains(t, model.TestSourceDirs, filepath.Join(root, "app", "src", "test", "java"))
	assert.Equal(t, filepath.Join(root, "build", "classes", "java", "main"), model.OutputDir)

	app, ok := model.Module("app")
	require.True(t, ok)
	assert.Equal(t, []string{"core"}, app.DependsOn)

	require.Len(t, model.Dependencies, 3)
	guava := model.Dependencies[0]
	assert.Equal(t, "com.google.guava:guava:33.0.0-jre", guava.ID)
	assert.Equal(t, "core", guava.Module)
	assert.Equal(t, ScopeCompile, guava.Scope)
	assert.FileExists(t, guava.File)
	assert.Equal(t, ScopeTest, model.Dependencies[1].Scope)
	assert.Empty(t, model.Dependencies[2].File, "unresolved coordinates keep an empty file")

	assert.Len(t, model.Jars(false), 1)
	assert.Len(t, model.Jars(true), 2)

	order, err := model.BuildOrder()
	require.NoError(t, err)
	names := moduleNames(order)
	assert.Len(t, names, 3)
	assert.Less(t, indexOf(names, "core"), indexOf(names, "app"))
}

func indexOf(items []string, want string) int {
	for i, it := range items {
		if it == want {
			return i
		}
	}
	return -1
}

func TestMavenLoader(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	repo := t.TempDir()
	writeTree(t, repo, map[string]string{
		"org/slf4j/slf4j-api/2.0.9/slf4j-api-2.0.9.jar": "jar",
	})
	writeTree(t, root, map[string]string{
		"pom.xml": `<?xml version="1.0"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <groupId>com.example</groupId>
  <artifactId>parent</artifactId>
  <version>1.0</version>
  <properties><slf4j.version>2.0.9</slf4j.version></properties>
  <modules>
    <module>core</module>
    <module>web</module>
  </modules>
</project>`,
		"core/pom.xml": `<project>
  <parent><groupId>com.example</groupId><version>1.0</version></parent>
  <artifactId>core</artifactId>
  <properties><slf4j.version>2.0.9</slf4j.version></properties>
  <dependencies>
    <dependency><groupId>org.slf4j</groupId><artifactId>slf4j-api</artifactId><version>${slf4j.version}</version></dependency>
    <dependency><groupId>junit</groupId><artifactId>junit</artifactId><version>4.13.2</version><scope>test</scope></dependency>
  </dependencies>
  <build><sourceDirectory>src/java</sourceDirectory></build>
</project>`,
		"web/pom.xml": `<project>
  <artifactId>web</artifactId>
  <dependencies>
    <dependency><groupId>com.example</groupId><artifactId>core</artifactId><version>${project.version}</version></dependency>
  </dependencies>
</project>`,
	})

	model, err := (&MavenLoader{Repository: repo}).Load(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"parent", "core", "web"}, moduleNames(model.Modules))
	assert.Equal(t, filepath.Join(root, "target", "classes"), model.OutputDir)
	assert.Contains(t, model.SourceDirs, filepath.Join(root, "core", "src", "java"))
	assert.NotContains(t, model.SourceDirs, filepath.Join(root, "core", "src", "main", "java"))

	web, ok := model.Module("web")
	require.True(t, ok)
	assert.Equal(t, []string{"core"}, web.DependsOn)

	require.Len(t, model.Dependencies, 3)
	assert.Equal(t, "org.slf4j:slf4j-api:2.0.9", model.Dependencies[0].ID)
	assert.FileExists(t, model.Dependencies[0].File)
	assert.Equal(t, ScopeTest, model.Dependencies[1].Scope)
	assert.Equal(t, "web", model.Dependencies[2].Module)

	order, err := model.BuildOrder()
	require.NoError(t, err)
	names := moduleNames(order)
	assert.Less(t, indexOf(names, "core"), indexOf(names, "web"))
}

func TestMavenLoader_InvalidPom(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"pom.xml": "<project><artifactId>"})

	_, err := (&MavenLoader{}).Load(context.Background(), root)
	assert.Error(t, err)
}

func TestNativeLoader(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		NativeFile: `[project]
source_dirs = ["src"]
output_dir = "out"
dependencies = ["lib/a.jar"]
test_dependencies = ["lib/junit.jar"]

[[module]]
name = "tools"
depends_on = []
`,
	})

	model, err := (&NativeLoader{}).Load(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "src"), filepath.Join(root, "tools", "src")}, model.SourceDirs)
	assert.Equal(t, filepath.Join(root, "src", "test", "java"), model.TestSourceDirs[0])
	assert.Equal(t, filepath.Join(root, "out"), model.OutputDir)
	assert.Equal(t, filepath.Join(root, "build", "test-classes"), model.TestOutputDir)
	assert.Equal(t, []string{filepath.Join(root, "lib", "a.jar")}, model.Jars(false))
	assert.Len(t, model.Jars(true), 2)
}

func TestNativeLoader_InvalidToml(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{NativeFile: "[project\n"})

	_, err := (&NativeLoader{}).Load(context.Background(), root)
	assert.Error(t, err)
}

func TestBuildOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modules []Module
		want    []string
		wantErr bool
	}{
		{
			name: "chain",
			modules: []Module{
				{Name: "web", DependsOn: []string{"service"}},
				{Name: "service", DependsOn: []string{"core"}},
				{Name: "core"},
			},
			want: []string{"core", "service", "web"},
		},
		{
			name: "independent modules sorted by name",
			modules: []Module{
				{Name: "b"},
				{Name: "a"},
			},
			want: []string{"a", "b"},
		},
		{
			name: "cycle",
			modules: []Module{
				{Name: "a", DependsOn: []string{"b"}},
				{Name: "b", DependsOn: []string{"a"}},
			},
			wantErr: true,
		},
		{
			name:    "unknown dependency",
			modules: []Module{{Name: "a", DependsOn: []string{"ghost"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			order, err := (&Model{Modules: tt.modules}).BuildOrder()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, moduleNames(order))
		})
	}
}

func TestModel_Helpers(t *testing.T) {
	t.Parallel()

	m := &Model{
		Root:           "/work/app",
		SourceDirs:     []string{"/work/app/src/main/java"},
		TestSourceDirs: []string{"/work/app/src/test/java"},
		OutputDir:      "/work/app/out",
		TestOutputDir:  "/work/app/out-test",
		Dependencies: []Dependency{
			{ID: "b", File: "/repo/b.jar", Scope: ScopeCompile},
			{ID: "junit", File: "/repo/junit.jar", Scope: ScopeTest},
			{ID: "missing", Scope: ScopeCompile},
		},
	}

	root, test, ok := m.SourceRoot("/work/app/src/test/java/p/FooTest.java")
	require.True(t, ok)
	assert.True(t, test)
	assert.Equal(t, "/work/app/src/test/java", root)

	_, _, ok = m.SourceRoot("/work/app/src/main/javax/Foo.java")
	assert.False(t, ok)

	assert.Equal(t, []string{"/repo/b.jar"}, m.Classpath(false))
	assert.Equal(t, []string{"/work/app/out", "/repo/b.jar", "/repo/junit.jar"}, m.Classpath(true))

	merged := m.Merge(Overlay{TestSourceDirs: []string{"/work/app/src/it/java"}})
	assert.Len(t, merged.TestSourceDirs, 2)
	assert.Len(t, m.TestSourceDirs, 1)
	assert.Equal(t, m.AllSourceDirs()[0], merged.AllSourceDirs()[0])
}
