package navigation

// Test Plan for navigation:
// - History is LIFO, bounded, and drops the oldest entry when full
// - candidateFiles lists nested-type fallbacks and stops at package segments
// - A declaration resolves to itself
// - A use resolves to the innermost visible declaration in the same unit
// - A use of a type declared elsewhere resolves across files, including
//   nested types declared inside their outer type's file
// - Unresolved type names fall back to the same package
// - Unknown symbols are not found (no error); load failures of the origin
//   file are errors, load failures while resolving are skipped
// - End to end with the Java parser and parse cache, including types from
//   on-demand imports and members used through a receiver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/javalens/internal/parsecache"
	"github.com/mvp-joe/javalens/internal/parser"
	"github.com/mvp-joe/javalens/internal/source"
)

type fakeUnits struct {
	units map[string]*source.Unit
	errs  map[string]error
}

func (f *fakeUnits) Get(ctx context.Context, path string) (*source.Unit, error) {
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	if u, ok := f.units[path]; ok {
		return u, nil
	}
	return nil, parsecache.ErrIO
}

func at(line, begin, end int) source.Range {
	return source.Range{Begin: source.Position{Line: line, Column: begin}, End: source.Position{Line: line, Column: end}}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestHistory(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	assert.Equal(t, 3, h.Cap())
	_, ok := h.Pop()
	assert.False(t, ok)

	for i := 1; i <= 4; i++ {
		h.Push(Location{Path: "A.java", Line: i})
	}
	assert.Equal(t, 3, h.Len())

	var lines []int
	for {
		loc, ok := h.Pop()
		if !ok {
			break
		}
		lines = append(lines, loc.Line)
	}
	assert.Equal(t, []int{4, 3, 2}, lines)

	h.Push(Location{Line: 9})
	h.Clear()
	assert.Equal(t, 0, h.Len())

	assert.Equal(t, DefaultHistoryCapacity, NewHistory(0).Cap())
}

func TestCandidateFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fqcn string
		want []string
	}{
		{"p.Foo", []string{filepath.Join("p", "Foo.java")}},
		{"a.b.Outer.Inner", []string{
			filepath.Join("a", "b", "Outer", "Inner.java"),
			filepath.Join("a", "b", "Outer.java"),
		}},
		{"Top", []string{"Top.java"}},
		{"p.lower", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, candidateFiles(tt.fqcn), tt.fqcn)
	}
}

// buildProject lays out:
//
//	p/Main.java      class Main { Helper h; void run(int n) { int x = n; use(x); Outer.Inner i; Ghost g; } }
//	p/Helper.java    class Helper
//	q/Outer.java     class Outer { class Inner }
func buildProject(t *testing.T) (*Service, *fakeUnits, string) {
	t.Helper()
	root := t.TempDir()
	mainPath := filepath.Join(root, "p", "Main.java")
	helperPath := filepath.Join(root, "p", "Helper.java")
	outerPath := filepath.Join(root, "q", "Outer.java")
	for _, p := range []string{mainPath, helperPath, outerPath} {
		touch(t, p)
	}

	run := source.MethodScopeID("Main", "run", 4)
	body := source.BlockScopeID(run, 4)

	main := source.NewUnit(mainPath, "p")
	main.Types = []string{"Main"}
	main.AddImport("q.Outer")
	main.Scopes = []source.Scope{{ID: "Main", Begin: 1, End: 12}, {ID: run, Begin: 4, End: 10}, {ID: body, Begin: 4, End: 10}}
	main.Variables = []source.Variable{
		{Parent: "", Name: "Main", FQCN: "p.Main", Range: at(1, 14, 17), Declaration: true},
		{Parent: "Main", Name: "Helper", Range: at(2, 5, 10)},
		{Parent: "Main", Name: "h", FQCN: "p.Helper", Range: at(2, 12, 12), Declaration: true},
		{Parent: "Main", Name: "run", FQCN: "void", Range: at(4, 10, 12), Declaration: true},
		{Parent: run, Name: "n", FQCN: "int", Range: at(4, 18, 18), Declaration: true},
		{Parent: body, Name: "x", FQCN: "int", Range: at(5, 13, 13), Declaration: true},
		{Parent: body, Name: "n", FQCN: "int", Range: at(5, 17, 17)},
		{Parent: body, Name: "x", FQCN: "int", Range: at(6, 13, 13)},
		{Parent: body, Name: "Outer.Inner", FQCN: "q.Outer.Inner", Range: at(7, 9, 19)},
		{Parent: body, Name: "Ghost", Range: at(8, 9, 13)},
	}

	helper := source.NewUnit(helperPath, "p")
	helper.Types = []string{"Helper"}
	helper.Variables = []source.Variable{
		{Parent: "", Name: "Helper", FQCN: "p.Helper", Range: at(3, 7, 12), Declaration: true},
	}

	outer := source.NewUnit(outerPath, "q")
	outer.Types = []string{"Outer", "Outer.Inner"}
	outer.Variables = []source.Variable{
		{Parent: "", Name: "Outer", FQCN: "q.Outer", Range: at(3, 14, 18), Declaration: true},
		{Parent: "Outer", Name: "Inner", FQCN: "q.Outer.Inner", Range: at(5, 18, 22), Declaration: true},
	}

	units := &fakeUnits{
		units: map[string]*source.Unit{mainPath: main, helperPath: helper, outerPath: outer},
		errs:  map[string]error{},
	}
	return NewService(units, []string{root}), units, root
}

func TestSearchDeclaration(t *testing.T) {
	t.Parallel()

	svc, _, root := buildProject(t)
	mainPath := filepath.Join(root, "p", "Main.java")
	ctx := context.Background()

	tests := []struct {
		name   string
		line   int
		column int
		symbol string
		want   Location
		found  bool
	}{
		{"declaration is itself", 4, 10, "run", Location{mainPath, 4, 10}, true},
		{"local use", 6, 13, "x", Location{mainPath, 5, 13}, true},
		{"parameter from block", 5, 17, "n", Location{mainPath, 4, 18}, true},
		{"column off on same line", 6, 2, "x", Location{mainPath, 5, 13}, true},
		{"same package type", 2, 7, "Helper", Location{filepath.Join(root, "p", "Helper.java"), 3, 7}, true},
		{"nested type in outer file", 7, 15, "Inner", Location{filepath.Join(root, "q", "Outer.java"), 5, 18}, true},
		{"unresolvable type", 8, 10, "Ghost", Location{}, false},
		{"unknown symbol", 6, 13, "nothing", Location{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok, err := svc.SearchDeclaration(ctx, mainPath, tt.line, tt.column, tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, loc)
		})
	}
}

func TestSearchDeclaration_LoadErrors(t *testing.T) {
	t.Parallel()

	svc, units, root := buildProject(t)
	mainPath := filepath.Join(root, "p", "Main.java")

	units.errs[mainPath] = parsecache.ErrParseFailed
	_, _, err := svc.SearchDeclaration(context.Background(), mainPath, 6, 13, "x")
	assert.ErrorIs(t, err, parsecache.ErrParseFailed)

	svc, units, root = buildProject(t)
	mainPath = filepath.Join(root, "p", "Main.java")
	units.errs[filepath.Join(root, "p", "Helper.java")] = errors.New("unreadable")
	_, ok, err := svc.SearchDeclaration(context.Background(), mainPath, 2, 7, "Helper")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchDeclaration_SearchesRootsInOrder(t *testing.T) {
	t.Parallel()

	svc, units, root := buildProject(t)
	testRoot := t.TempDir()
	shadow := filepath.Join(testRoot, "p", "Helper.java")
	touch(t, shadow)
	u := source.NewUnit(shadow, "p")
	u.Types = []string{"Helper"}
	u.Variables = []source.Variable{{Name: "Helper", FQCN: "p.Helper", Range: at(1, 7, 12), Declaration: true}}
	units.units[shadow] = u

	svc = NewService(units, append(svc.Roots(), testRoot))
	loc, ok := svc.FindType(context.Background(), "p.Helper")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "p", "Helper.java"), loc.Path)
}

func column(t *testing.T, src string, line int, needle string) int {
	t.Helper()
	lines := strings.Split(src, "\n")
	require.GreaterOrEqual(t, len(lines), line)
	i := strings.Index(lines[line-1], needle)
	require.GreaterOrEqual(t, i, 0, "%q not on line %d", needle, line)
	return i + 1
}

func TestSearchDeclaration_Parsed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mainSrc := `package p;

public class App {
    public int run(int n) {
        Helper helper = new Helper();
        int total = n + 1;
        return total;
    }
}
`
	helperSrc := `package p;

public class Helper {
}
`
	mainPath := filepath.Join(root, "p", "App.java")
	helperPath := filepath.Join(root, "p", "Helper.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(mainPath), 0755))
	require.NoError(t, os.WriteFile(mainPath, []byte(mainSrc), 0644))
	require.NoError(t, os.WriteFile(helperPath, []byte(helperSrc), 0644))

	cache := parsecache.New(parser.NewJavaParser())
	svc := NewService(cache, []string{root})
	ctx := context.Background()

	loc, ok, err := svc.SearchDeclaration(ctx, mainPath, 7, column(t, mainSrc, 7, "total"), "total")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Location{Path: mainPath, Line: 6, Column: column(t, mainSrc, 6, "total")}, loc)

	loc, ok, err = svc.SearchDeclaration(ctx, mainPath, 5, column(t, mainSrc, 5, "Helper"), "Helper")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Location{Path: helperPath, Line: 3, Column: column(t, helperSrc, 3, "Helper")}, loc)
}

func TestSearchDeclaration_WildcardsAndMembers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := map[string]string{
		"p/App.java": `package p;

import q.*;

public class App {
    private Store store;

    void run(Item item) {
        store.put(item);
        int n = item.size;
        this.run(null);
        item.nothing();
    }
}
`,
		"p/Store.java": `package p;

class Store {
    void put(q.Item item) {
    }
}
`,
		"q/Item.java": `package q;

public class Item {
    public int size;
}
`,
	}
	for rel, src := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	}
	app := files["p/App.java"]
	appPath := filepath.Join(root, "p", "App.java")

	svc := NewService(parsecache.New(parser.NewJavaParser()), []string{root})
	ctx := context.Background()

	tests := []struct {
		name   string
		line   int
		needle string
		symbol string
		want   Location
		found  bool
	}{
		{"wildcard type", 8, "Item", "Item", Location{filepath.Join(root, "q", "Item.java"), 3, 14}, true},
		{"method through same-package field type", 9, "put", "put", Location{filepath.Join(root, "p", "Store.java"), 4, 10}, true},
		{"field through wildcard parameter type", 10, "size", "size", Location{filepath.Join(root, "q", "Item.java"), 4, 16}, true},
		{"method on this", 11, "run", "run", Location{appPath, 8, 10}, true},
		{"unknown member", 12, "nothing", "nothing", Location{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok, err := svc.SearchDeclaration(ctx, appPath, tt.line, column(t, app, tt.line, tt.needle), tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, loc)
		})
	}
}
