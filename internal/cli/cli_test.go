package cli

// Test Plan for the CLI:
// - version prints the build information
// - info reports the loaded model and cache directory, as text and JSON
// - complete, locals and jump answer for positions in a parsed file
// - invalid positions are rejected before a session is opened
// - add-import, optimize-imports and missing-imports print their results;
//   missing-imports indexes a never-indexed project first
// - switch-test finds nothing until create-junit writes the test
// - parse reports syntax errors as data, not command failures
// - compile prints diagnostics and fails when javac fails; non-Java paths
//   compile nothing and succeed
// - warm parses every source and persists the class index
// - clear-cache removes the persisted model; --all removes the cache directory
// - getCacheStats counts files and sizes below the cache directory
//
// These tests share cobra's package-level flags and set HOME, so they do
// not run in parallel.

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mvp-joe/javalens/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooSrc = `package p;

import java.util.List;
import java.util.Map;

public class Foo {
    private int count;

    public int run(int limit) {
        Helper helper = new Helper();
        int total = limit + count;
        Bar bar = null;
        List<String> names = null;
        return total;
    }
}
`

func setupProject(t *testing.T, extra map[string]string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("JAVA_HOME", "")

	root := t.TempDir()
	files := map[string]string{
		project.NativeFile:              "",
		"src/main/java/p/Foo.java":      fooSrc,
		"src/main/java/p/Helper.java":   "package p;\n\npublic class Helper {\n    public void greet() {\n    }\n}\n",
		"src/main/java/com/a/Bar.java":  "package com.a;\n\npublic class Bar {\n}\n",
		"src/main/java/com/b/Bar.java":  "package com.b;\n\npublic class Bar {\n}\n",
		"src/main/java/p/Broken.java":   "package p;\n\nclass Broken {\n    void f( {\n}\n",
	}
	for k, v := range extra {
		files[k] = v
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func resetFlags() {
	projectFlag = "."
	verbose = false
	cleanQuietFlag = false
	cleanAllFlag = false
	warmQuietFlag = false
	warmJSONFlag = false
	watchCompileFlag = false
	watchQuietFlag = false
	infoJSONFlag = false
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "javalens dev")
	assert.Contains(t, out, "Git commit: none")
}

func TestInfo(t *testing.T) {
	root := setupProject(t, nil)

	out, err := executeCommand(t, "info", "--json", "-p", filepath.Join(root, "src", "main"))
	require.NoError(t, err)
	info := decode[projectInfo](t, out)
	assert.Equal(t, root, info.Project.Root)
	assert.Equal(t, project.KindNative, info.Project.Kind)
	assert.Equal(t, []string{filepath.Join(root, "src", "main", "java")}, info.Project.SourceDirs)
	assert.DirExists(t, info.CacheDir)
	assert.Nil(t, info.IndexedAt)

	out, err = executeCommand(t, "info", "-p", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Kind:       javalens")
	assert.Contains(t, out, "Modules (1):")
	assert.Contains(t, out, "Indexed:  never")
}

func TestInfo_NoProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := executeCommand(t, "info", "-p", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestComplete(t *testing.T) {
	root := setupProject(t, nil)
	foo := filepath.Join(root, "src/main/java/p/Foo.java")

	out, err := executeCommand(t, "complete", foo, "14", "9", "to", "-p", root)
	require.NoError(t, err)
	cs := decode[[]map[string]string](t, out)
	require.Len(t, cs, 1)
	assert.Equal(t, "total", cs[0]["name"])
	assert.Equal(t, "var", cs[0]["kind"])

	// Non-Java files give an empty list, not null
	out, err = executeCommand(t, "complete", filepath.Join(root, project.NativeFile), "1", "1", "-p", root)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = executeCommand(t, "complete", foo, "zero", "9", "-p", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid line")
}

func TestLocals(t *testing.T) {
	root := setupProject(t, nil)

	out, err := executeCommand(t, "locals", "src/main/java/p/Foo.java", "14", "-p", root)
	require.NoError(t, err)
	var names []string
	for _, c := range decode[[]map[string]string](t, out) {
		names = append(names, c["name"])
	}
	assert.ElementsMatch(t, []string{"bar", "helper", "limit", "names", "total", "count"}, names)
}

func TestJump(t *testing.T) {
	root := setupProject(t, nil)

	out, err := executeCommand(t, "jump", "src/main/java/p/Foo.java", "10", "9", "Helper", "-p", root)
	require.NoError(t, err)
	res := decode[jumpResult](t, out)
	require.True(t, res.Found)
	assert.Equal(t, filepath.Join(root, "src/main/java/p/Helper.java"), res.Location.Path)
	assert.Equal(t, 3, res.Location.Line)

	out, err = executeCommand(t, "jump", "src/main/java/p/Foo.java", "12", "9", "Bar", "-p", root)
	require.NoError(t, err)
	assert.False(t, decode[jumpResult](t, out).Found)
}

func TestImports(t *testing.T) {
	root := setupProject(t, nil)
	foo := "src/main/java/p/Foo.java"

	out, err := executeCommand(t, "add-import", foo, "java.util.Set", "-p", root)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"added": true}, decode[map[string]bool](t, out))

	out, err = executeCommand(t, "add-import", foo, "com.example.List", "-p", root)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"added": false}, decode[map[string]bool](t, out))

	out, err = executeCommand(t, "optimize-imports", foo, "-p", root)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"imports": {"java.util.List"}}, decode[map[string][]string](t, out))

	out, err = executeCommand(t, "missing-imports", foo, "-p", root)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Bar": {"com.a.Bar", "com.b.Bar"}}, decode[map[string][]string](t, out))

	// The first index build was persisted for later sessions.
	out, err = executeCommand(t, "info", "--json", "-p", root)
	require.NoError(t, err)
	info := decode[projectInfo](t, out)
	assert.Equal(t, 5, info.Classes)
	assert.NotNil(t, info.IndexedAt)
}

func TestSwitchTestAndCreateJUnit(t *testing.T) {
	root := setupProject(t, nil)
	foo := "src/main/java/p/Foo.java"
	want := filepath.Join(root, "src/test/java/p/FooTest.java")

	out, err := executeCommand(t, "switch-test", foo, "-p", root)
	require.NoError(t, err)
	assert.False(t, decode[pathResult](t, out).Found)

	out, err = executeCommand(t, "create-junit", foo, "-p", root)
	require.NoError(t, err)
	assert.Equal(t, pathResult{Found: true, Path: want}, decode[pathResult](t, out))
	assert.FileExists(t, want)

	out, err = executeCommand(t, "switch-test", want, "-p", root)
	require.NoError(t, err)
	assert.Equal(t, pathResult{Found: true, Path: filepath.Join(root, foo)}, decode[pathResult](t, out))
}

func TestParse(t *testing.T) {
	root := setupProject(t, nil)

	out, err := executeCommand(t, "parse", "src/main/java/p/Foo.java", "-p", root)
	require.NoError(t, err)
	assert.Equal(t, true, decode[map[string]any](t, out)["parsed"])

	out, err = executeCommand(t, "parse", "src/main/java/p/Broken.java", "-p", root)
	require.NoError(t, err)
	res := decode[map[string]any](t, out)
	assert.Equal(t, false, res["parsed"])
	assert.Contains(t, res["error"], "syntax error")
}

func fakeJavac(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script compiler stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "javac")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestCompile(t *testing.T) {
	ok := fakeJavac(t, "exit 0\n")
	root := setupProject(t, map[string]string{
		".javalens/config.yml": "compiler:\n  javac: " + ok + "\n",
	})

	out, err := executeCommand(t, "compile", "src/main/java/p/Foo.java", "-p", root)
	require.NoError(t, err)
	res := decode[map[string]any](t, out)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, float64(1), res["sources"])

	out, err = executeCommand(t, "compile", "notes.txt", "-p", root)
	require.NoError(t, err, "a non-Java path has nothing to compile")
	res = decode[map[string]any](t, out)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, float64(0), res["sources"])
}

func TestCompile_Failure(t *testing.T) {
	failing := fakeJavac(t, "echo \"$PWD/src/main/java/p/Foo.java:3: error: cannot find symbol\" >&2\nexit 1\n")
	root := setupProject(t, map[string]string{
		".javalens/config.yml": "compiler:\n  javac: " + failing + "\n",
	})

	out, err := executeCommand(t, "compile", "-p", root)
	require.Error(t, err)
	assert.ErrorIs(t, err, errCompileFailed)
	assert.Contains(t, out, "cannot find symbol")
}

func TestWarm(t *testing.T) {
	root := setupProject(t, nil)

	out, err := executeCommand(t, "warm", "--json", "-p", root)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"files": 5, "parsed": 4, "failed": 1}, decode[map[string]int](t, out))

	// The class index was persisted and is loaded by the next session
	out, err = executeCommand(t, "info", "--json", "-p", root)
	require.NoError(t, err)
	assert.Equal(t, 5, decode[projectInfo](t, out).Classes)
}

func TestClearCache(t *testing.T) {
	root := setupProject(t, nil)

	out, err := executeCommand(t, "info", "--json", "-p", root)
	require.NoError(t, err)
	cacheDir := decode[projectInfo](t, out).CacheDir
	require.FileExists(t, filepath.Join(cacheDir, "project.json"))

	out, err = executeCommand(t, "clear-cache", "-p", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared project model")
	assert.NoFileExists(t, filepath.Join(cacheDir, "project.json"))
	assert.DirExists(t, cacheDir)

	out, err = executeCommand(t, "clear-cache", "--all", "--quiet", "-p", root)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoDirExists(t, cacheDir)
}

func TestGetCacheStats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.json"), make([]byte, 1024*1024), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "classes.db"), make([]byte, 512*1024), 0644))

	size, count, err := getCacheStats(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.InDelta(t, 1.5, size, 0.001)

	_, _, err = getCacheStats(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}
