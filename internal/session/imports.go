package session

import (
	"context"

	"github.com/mvp-joe/javalens/internal/classindex"
	"github.com/mvp-joe/javalens/internal/source"
)

// AddImport binds fqcn in the cached unit of path. Adding the same import
// again is a no-op that still reports true; false means path is not a Java
// file or the simple name is already bound to another class.
func (s *Session) AddImport(ctx context.Context, path, fqcn string) (bool, error) {
	defer s.track("add_import")()

	path, ok := s.javaFile(path)
	if !ok {
		return false, nil
	}
	unit, err := s.units.Get(ctx, path)
	if err != nil {
		return false, err
	}
	if unit.AddImport(fqcn) {
		return true, nil
	}
	bound, ok := unit.Import(source.SimpleName(fqcn))
	return ok && bound == fqcn, nil
}

// OptimizeImports returns the imports path actually uses, sorted.
func (s *Session) OptimizeImports(ctx context.Context, path string) ([]string, error) {
	defer s.track("optimize_imports")()

	path, ok := s.javaFile(path)
	if !ok {
		return nil, nil
	}
	unit, err := s.units.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return unit.UsedImports(), nil
}

// SearchMissingImports maps every type name path references but cannot
// resolve to the class index candidates for it. Names resolved through the
// same package or a wildcard import are not missing. A name with no
// candidate maps to an empty list.
func (s *Session) SearchMissingImports(ctx context.Context, path string) (map[string][]string, error) {
	defer s.track("missing_imports")()

	path, ok := s.javaFile(path)
	if !ok {
		return map[string][]string{}, nil
	}
	unit, err := s.units.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	index := s.classIndex(ctx)
	out := make(map[string][]string)
	for _, name := range unit.MissingTypes() {
		if _, done := out[name]; done || resolvedByPackage(index, unit, name) {
			continue
		}
		candidates := index.Search(name)
		if candidates == nil {
			candidates = []string{}
		}
		out[name] = candidates
	}
	return out, nil
}

func resolvedByPackage(index *classindex.Index, unit *source.Unit, name string) bool {
	if index.Contains(source.Qualify(unit.Package, name)) {
		return true
	}
	for _, pkg := range unit.Wildcards {
		if index.Contains(source.Qualify(pkg, name)) {
			return true
		}
	}
	return false
}
