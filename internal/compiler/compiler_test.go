package compiler

// Test Plan for Javac and ParseDiagnostics:
// - Located diagnostics carry path, line, kind, message and caret column
// - Detail lines (symbol/location) are appended; summary lines are dropped
// - General diagnostics without a location are kept
// - Empty source lists succeed without running javac
// - A missing binary is ErrCompilerUnavailable
// - A non-zero exit is a failed Result with parsed diagnostics, not an error
// - Arguments include output dir, classpath, release and an @argfile

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const javacFailure = `/work/src/p/Foo.java:12: error: cannot find symbol
        Helper h = new Helper();
        ^
  symbol:   class Helper
  location: class Foo
/work/src/p/Foo.java:20: warning: [deprecation] stop() in Thread has been deprecated
        t.stop();
         ^
warning: [options] source value 8 is obsolete
1 error
2 warnings
`

func TestParseDiagnostics(t *testing.T) {
	t.Parallel()

	diags := ParseDiagnostics(javacFailure)
	require.Len(t, diags, 3)

	assert.Equal(t, Diagnostic{
		Path:    "/work/src/p/Foo.java",
		Line:    12,
		Column:  9,
		Kind:    KindError,
		Message: "cannot find symbol; symbol:   class Helper; location: class Foo",
	}, diags[0])

	assert.Equal(t, KindWarning, diags[1].Kind)
	assert.Equal(t, 20, diags[1].Line)
	assert.Equal(t, 10, diags[1].Column)

	assert.Equal(t, Diagnostic{Kind: KindWarning, Message: "[options] source value 8 is obsolete"}, diags[2])

	result := &Result{Diagnostics: diags}
	assert.Len(t, result.Errors(), 1)
}

func TestParseDiagnostics_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ParseDiagnostics(""))
	assert.Empty(t, ParseDiagnostics("Note: Some input files use unchecked operations.\n"))
}

func TestJavac_NoSources(t *testing.T) {
	t.Parallel()

	result, err := (&Javac{Binary: "/definitely/not/javac"}).Compile(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestJavac_MissingBinary(t *testing.T) {
	t.Parallel()

	_, err := (&Javac{Binary: filepath.Join(t.TempDir(), "javac")}).Compile(context.Background(), Request{
		Sources:   []string{"/work/src/p/Foo.java"},
		OutputDir: filepath.Join(t.TempDir(), "out"),
	})
	assert.ErrorIs(t, err, ErrCompilerUnavailable)
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

func TestJavac_FailureIsResult(t *testing.T) {
	t.Parallel()

	binary := fakeJavac(t, "cat <<'EOF' >&2\n"+javacFailure+"EOF\nexit 1\n")
	out := filepath.Join(t.TempDir(), "classes")

	result, err := (&Javac{Binary: binary}).Compile(context.Background(), Request{
		Sources:   []string{"/work/src/p/Foo.java"},
		OutputDir: out,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Len(t, result.Errors(), 1)
	assert.Equal(t, 1, result.Sources)
	assert.DirExists(t, out)
}

func TestJavac_SuccessAndArguments(t *testing.T) {
	t.Parallel()

	record := filepath.Join(t.TempDir(), "args.txt")
	binary := fakeJavac(t, `for a in "$@"; do echo "$a" >> `+record+`; done
exit 0
`)

	out := filepath.Join(t.TempDir(), "classes")
	result, err := (&Javac{Binary: binary, Release: "17", Args: []string{"-Xlint:all"}}).Compile(context.Background(), Request{
		Sources:   []string{"/work/src/p/A.java", "/work/src/p/B.java"},
		Classpath: []string{"/work/lib/a.jar", "/work/out"},
		OutputDir: out,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Sources)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(data)), "\n")

	assert.Contains(t, args, "-d")
	assert.Contains(t, args, out)
	assert.Contains(t, args, "/work/lib/a.jar"+string(os.PathListSeparator)+"/work/out")
	assert.Contains(t, args, "--release")
	assert.Contains(t, args, "-Xlint:all")
	assert.True(t, strings.HasPrefix(args[len(args)-1], "@"))
}

func TestWriteArgFile(t *testing.T) {
	t.Parallel()

	path, err := writeArgFile([]string{"/a/My File.java", `/b/Q"uote.java`})
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\"/a/My File.java\"\n\"/b/Q\\\"uote.java\"\n", string(data))
}
