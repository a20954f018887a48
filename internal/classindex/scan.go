package classindex

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ClassName converts a class-path relative file name (com/x/Foo.class,
// com/x/Foo$Inner.class, com/x/Foo.java) to a fully qualified name.
// Anonymous and synthetic classes, module-info and package-info are
// rejected.
func ClassName(rel string) (string, bool) {
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "META-INF/") {
		// Multi-release jars keep versioned copies under META-INF/versions/N/.
		rest := strings.TrimPrefix(rel, "META-INF/versions/")
		if rest == rel {
			return "", false
		}
		i := strings.IndexByte(rest, '/')
		if i < 0 {
			return "", false
		}
		rel = rest[i+1:]
	}

	var base string
	switch {
	case strings.HasSuffix(rel, ".class"):
		base = strings.TrimSuffix(rel, ".class")
	case strings.HasSuffix(rel, ".java"):
		base = strings.TrimSuffix(rel, ".java")
	default:
		return "", false
	}

	name := base[strings.LastIndexByte(base, '/')+1:]
	if name == "module-info" || name == "package-info" || name == "" {
		return "", false
	}

	parts := strings.Split(name, "$")
	for _, p := range parts {
		if p == "" || isDigits(p) {
			return "", false
		}
	}

	pkg := ""
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		pkg = strings.ReplaceAll(base[:i], "/", ".") + "."
	}
	return pkg + strings.Join(parts, "."), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// scanDirectory collects classes below dir from .class and .java files.
// A missing directory yields nothing.
func scanDirectory(ctx context.Context, dir string, emit func(fqcn, origin string)) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		if fqcn, ok := ClassName(rel); ok {
			emit(fqcn, dir)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// scanJar collects the classes stored in a jar.
func scanJar(ctx context.Context, jar string, emit func(fqcn, origin string)) error {
	if _, err := os.Stat(jar); err != nil {
		return err
	}
	r, err := zip.OpenReader(jar)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", jar, err)
	}
	defer r.Close()

	for i, f := range r.File {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if fqcn, ok := ClassName(f.Name); ok {
			emit(fqcn, jar)
		}
	}
	return nil
}
