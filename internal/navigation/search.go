// Package navigation resolves a symbol occurrence to the location of its
// declaration, within one file or across the project's source roots.
package navigation

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/javalens/internal/metrics"
	"github.com/mvp-joe/javalens/internal/source"
)

// Location is a position in a source file.
type Location struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// Units loads parsed files. *parsecache.Cache satisfies it.
type Units interface {
	Get(ctx context.Context, path string) (*source.Unit, error)
}

// Service searches declarations. It holds no mutable state; jump history is
// kept by the caller.
type Service struct {
	units Units
	roots []string
}

// NewService creates a service resolving types against roots, searched in
// order (main sources before test sources).
func NewService(units Units, roots []string) *Service {
	return &Service{units: units, roots: append([]string(nil), roots...)}
}

// Roots returns the source roots searched for cross-file lookups.
func (s *Service) Roots() []string {
	return append([]string(nil), s.roots...)
}

// SearchDeclaration finds the declaration of symbol as it occurs at
// (line, column) in path. A symbol that cannot be resolved is reported as
// (Location{}, false, nil); errors are reserved for failures to load path.
func (s *Service) SearchDeclaration(ctx context.Context, path string, line, column int, symbol string) (Location, bool, error) {
	unit, err := s.units.Get(ctx, path)
	if err != nil {
		return Location{}, false, err
	}

	fact, ok := unit.SymbolAt(line, column, symbol)
	if !ok {
		metrics.DeclarationLookups.WithLabelValues("not_found").Inc()
		return Location{}, false, nil
	}

	if fact.Declaration {
		metrics.DeclarationLookups.WithLabelValues("self").Inc()
		return locationOf(unit.Path, fact), true, nil
	}

	if fact.Receiver != "" {
		owner, local, ok := s.ResolveReceiver(ctx, unit, fact.Receiver, fact.Parent)
		if ok {
			if decl, ok := owner.FindMember(local, fact.Name); ok {
				metrics.DeclarationLookups.WithLabelValues("member").Inc()
				return locationOf(owner.Path, decl), true, nil
			}
		}
		metrics.DeclarationLookups.WithLabelValues("not_found").Inc()
		return Location{}, false, nil
	}

	if decl, ok := unit.FindDeclaration(fact.Name, fact.Parent); ok {
		metrics.DeclarationLookups.WithLabelValues("local").Inc()
		return locationOf(unit.Path, decl), true, nil
	}

	candidates := []string{fact.FQCN}
	if fact.FQCN == "" || source.IsPrimitive(fact.FQCN) {
		candidates = unit.TypeCandidates(fact.Name)
	}
	for _, fqcn := range candidates {
		if loc, ok := s.findType(ctx, fqcn); ok {
			metrics.DeclarationLookups.WithLabelValues("cross_file").Inc()
			return loc, true, nil
		}
	}

	metrics.DeclarationLookups.WithLabelValues("not_found").Inc()
	return Location{}, false, nil
}

// FindType locates the declaration of a type by fully qualified name.
func (s *Service) FindType(ctx context.Context, fqcn string) (Location, bool) {
	return s.findType(ctx, fqcn)
}

// ResolveReceiver finds the project type a receiver denotes when used from
// scope in unit: the declared type of a variable, a type name, or the
// enclosing type for "this". It returns the unit declaring that type and
// the type's in-file name.
func (s *Service) ResolveReceiver(ctx context.Context, unit *source.Unit, recv, scope string) (*source.Unit, string, bool) {
	for _, fqcn := range receiverTypes(unit, recv, scope) {
		if owner, local, ok := s.typeUnit(ctx, unit, fqcn); ok {
			return owner, local, true
		}
	}
	return nil, "", false
}

func receiverTypes(unit *source.Unit, recv, scope string) []string {
	if recv == "this" {
		if local := source.EnclosingType(scope); local != "" {
			return []string{unit.TypeFQCN(local)}
		}
		return nil
	}
	decl, ok := unit.FindDeclaration(recv, scope)
	if !ok {
		return unit.TypeCandidates(recv)
	}
	switch {
	case source.IsPrimitive(decl.FQCN):
		return nil
	case decl.FQCN != "":
		return []string{decl.FQCN}
	default:
		return unit.TypeCandidates(decl.TypeName)
	}
}

// typeUnit loads the unit declaring fqcn, starting with unit itself.
func (s *Service) typeUnit(ctx context.Context, unit *source.Unit, fqcn string) (*source.Unit, string, bool) {
	if local, ok := unit.LocalType(fqcn); ok {
		return unit, local, true
	}
	loc, ok := s.findType(ctx, fqcn)
	if !ok {
		return nil, "", false
	}
	owner, err := s.units.Get(ctx, loc.Path)
	if err != nil {
		return nil, "", false
	}
	local, ok := owner.LocalType(fqcn)
	return owner, local, ok
}

func (s *Service) findType(ctx context.Context, fqcn string) (Location, bool) {
	for _, rel := range candidateFiles(fqcn) {
		for _, root := range s.roots {
			path := filepath.Join(root, rel)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			unit, err := s.units.Get(ctx, path)
			if err != nil {
				log.Printf("Warning: cannot load %s while resolving %s: %v", path, fqcn, err)
				continue
			}
			if decl, ok := unit.FindTypeDeclaration(fqcn); ok {
				return locationOf(unit.Path, decl), true
			}
		}
	}
	return Location{}, false
}

// candidateFiles lists the relative source files that may declare fqcn,
// most specific first: a.b.Outer.Inner may live in a/b/Outer/Inner.java or
// be nested in a/b/Outer.java.
func candidateFiles(fqcn string) []string {
	parts := strings.Split(fqcn, ".")
	var out []string
	for i := len(parts); i > 0; i-- {
		last := parts[i-1]
		if last == "" || !isTypeSegment(last) {
			break
		}
		out = append(out, filepath.Join(parts[:i]...)+source.JavaExt)
	}
	return out
}

func isTypeSegment(s string) bool {
	c := s[0]
	return c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func locationOf(path string, v source.Variable) Location {
	return Location{Path: path, Line: v.Range.Begin.Line, Column: v.Range.Begin.Column}
}
