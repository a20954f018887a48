package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/javalens/internal/source"
)

// testSuffix turns Foo.java into FooTest.java.
const testSuffix = "Test" + source.JavaExt

// defaultTestRoot is the conventional test layout; CreateJUnitFile prefers
// other test roots when a project declares several.
var defaultTestRoot = filepath.Join("src", "test", "java")

// SwitchTest returns the counterpart of path: the test for a source file or
// the source for a test (FooTest.java). Only existing files are returned;
// nothing is created.
func (s *Session) SwitchTest(path string) (string, bool) {
	defer s.track("switch_test")()

	path, ok := s.javaFile(path)
	if !ok {
		return "", false
	}

	from, to := s.model.SourceDirs, s.model.TestSourceDirs
	swap := func(rel string) string { return strings.TrimSuffix(rel, source.JavaExt) + testSuffix }
	if strings.HasSuffix(path, testSuffix) {
		from, to = to, from
		swap = func(rel string) string { return strings.TrimSuffix(rel, testSuffix) + source.JavaExt }
	}

	_, rel, ok := relativeTo(from, path)
	if !ok {
		return "", false
	}
	target := swap(rel)
	for _, root := range to {
		candidate := filepath.Join(root, target)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// CreateJUnitFile returns the test file for the source at path, writing a
// JUnit 4 skeleton in the source's package when it does not exist yet. The
// test root is taken from the source's own module when possible. An empty
// path means path is not under a source root.
func (s *Session) CreateJUnitFile(ctx context.Context, path string) (string, error) {
	defer s.track("create_junit")()

	path, ok := s.javaFile(path)
	if !ok {
		return "", nil
	}
	srcRoot, rel, ok := relativeTo(s.model.SourceDirs, path)
	if !ok {
		return "", nil
	}

	testRoot, ok := s.testRootFor(srcRoot)
	if !ok {
		return "", nil
	}
	target := filepath.Join(testRoot, strings.TrimSuffix(rel, source.JavaExt)+testSuffix)

	if _, err := os.Stat(target); err == nil {
		return target, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	unit, err := s.units.Get(ctx, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create test directory: %w", err)
	}
	className := strings.TrimSuffix(filepath.Base(target), source.JavaExt)
	if err := os.WriteFile(target, []byte(junitSkeleton(unit.Package, className)), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, nil
}

func (s *Session) testRootFor(srcRoot string) (string, bool) {
	roots := s.model.TestSourceDirs
	if mod, ok := s.moduleOf(srcRoot); ok && len(mod.TestSourceDirs) > 0 {
		roots = mod.TestSourceDirs
	}
	if len(roots) == 0 {
		return "", false
	}
	if len(roots) > 1 {
		for _, r := range roots {
			if !strings.Contains(r, defaultTestRoot) {
				return r, true
			}
		}
	}
	return roots[0], true
}

// relativeTo finds the first root containing path.
func relativeTo(roots []string, path string) (root, rel string, ok bool) {
	for _, r := range roots {
		rel, err := filepath.Rel(r, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return r, rel, true
	}
	return "", "", false
}

func junitSkeleton(pkg, className string) string {
	var b strings.Builder
	if pkg != "" {
		fmt.Fprintf(&b, "package %s;\n\n", pkg)
	}
	b.WriteString("import org.junit.After;\n")
	b.WriteString("import org.junit.Before;\n")
	b.WriteString("import org.junit.Test;\n\n")
	b.WriteString("import static org.junit.Assert.assertEquals;\n\n")
	fmt.Fprintf(&b, "public class %s {\n\n", className)
	b.WriteString("    @Before\n    public void setUp() throws Exception {\n\n    }\n\n")
	b.WriteString("    @After\n    public void tearDown() throws Exception {\n\n    }\n\n")
	b.WriteString("    @Test\n    public void test() throws Exception {\n        assertEquals(1, 1);\n    }\n")
	b.WriteString("}\n")
	return b.String()
}
