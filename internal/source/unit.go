package source

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Import is a single-type import binding.
type Import struct {
	SimpleName string `json:"simple_name"`
	FQCN       string `json:"fqcn"`
}

// Scope is a lexical region with its line span. IDs are dot-joined paths
// (Foo, Foo.bar(12), Foo.bar(12).{14}).
type Scope struct {
	ID    string `json:"id"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
}

// Covers reports whether the scope's line span includes line.
func (s Scope) Covers(line int) bool {
	return s.Begin <= line && line <= s.End
}

// SymbolKind classifies a declaration fact.
type SymbolKind string

const (
	KindType   SymbolKind = "class"
	KindMethod SymbolKind = "method"
	KindField  SymbolKind = "field"
	KindLocal  SymbolKind = "var"
)

// Unit is the parsed representation of one Java file.
//
// Everything except the import bindings is fixed once the parser hands the
// unit to the cache. Import additions are append-only and idempotent, so
// concurrent AddImport calls commute.
type Unit struct {
	Path      string
	Package   string
	Types     []string // declared types, qualified within the file (Foo, Foo.Inner)
	Variables []Variable
	TypeRefs  []string // simple type names referenced anywhere in the file
	Scopes    []Scope
	Statics   []string // static imports, kept verbatim
	Wildcards []string // packages imported on demand
	ParsedAt  time.Time
	Version   uint64

	mu          sync.RWMutex
	importOrder []string
	imports     map[string]string
	methods     map[string]bool
}

// NewUnit creates an empty unit for path.
func NewUnit(path, pkg string) *Unit {
	return &Unit{
		Path:     path,
		Package:  pkg,
		imports:  make(map[string]string),
		ParsedAt: time.Now(),
	}
}

// AddImport binds the simple name of fqcn. It returns false when the simple
// name is already bound (to this or another class).
func (u *Unit) AddImport(fqcn string) bool {
	simple := SimpleName(fqcn)
	if simple == "" || simple == "*" {
		return false
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.imports[simple]; ok {
		return false
	}
	u.imports[simple] = fqcn
	u.importOrder = append(u.importOrder, simple)
	return true
}

// Import returns the fqcn bound to a simple name.
func (u *Unit) Import(simple string) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	fqcn, ok := u.imports[simple]
	return fqcn, ok
}

// Imports returns the bindings in insertion order.
func (u *Unit) Imports() []Import {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]Import, 0, len(u.importOrder))
	for _, simple := range u.importOrder {
		out = append(out, Import{SimpleName: simple, FQCN: u.imports[simple]})
	}
	return out
}

// TypeFQCN qualifies a type declared in this file (Foo or Foo.Inner).
func (u *Unit) TypeFQCN(local string) string {
	return Qualify(u.Package, local)
}

// DeclaredType looks up a declared type by simple name.
func (u *Unit) DeclaredType(simple string) (string, bool) {
	for _, t := range u.Types {
		if SimpleName(t) == simple {
			return u.TypeFQCN(t), true
		}
	}
	return "", false
}

// Resolve maps a simple type name to a fully qualified name using only what
// the file itself knows: declared types, single-type imports and java.lang.
func (u *Unit) Resolve(simple string) (string, bool) {
	if fqcn, ok := u.DeclaredType(simple); ok {
		return fqcn, true
	}
	if fqcn, ok := u.Import(simple); ok {
		return fqcn, true
	}
	if IsJavaLang(simple) {
		return "java.lang." + simple, true
	}
	return "", false
}

// TypeCandidates lists the fqcns a type name written in this file may
// denote. A name the file resolves by itself has exactly one candidate;
// otherwise the same package comes first, then each on-demand import.
func (u *Unit) TypeCandidates(name string) []string {
	if name == "" || IsPrimitive(name) {
		return nil
	}
	head, rest, dotted := strings.Cut(name, ".")
	if fqcn, ok := u.Resolve(head); ok {
		if dotted {
			return []string{fqcn + "." + rest}
		}
		return []string{fqcn}
	}

	var out []string
	if dotted {
		out = append(out, name)
	}
	out = append(out, Qualify(u.Package, name))
	for _, pkg := range u.Wildcards {
		out = append(out, Qualify(pkg, name))
	}
	return out
}

// LocalType maps a fqcn declared in this file to its in-file name (Foo or
// Foo.Inner).
func (u *Unit) LocalType(fqcn string) (string, bool) {
	for _, t := range u.Types {
		if u.TypeFQCN(t) == fqcn {
			return t, true
		}
	}
	return "", false
}

// FindMember returns the declaration of a field, method or nested type
// named name directly inside the type whose in-file name is local.
func (u *Unit) FindMember(local, name string) (Variable, bool) {
	for _, v := range u.Variables {
		if v.Declaration && v.Parent == local && v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// MissingTypes returns referenced simple names the file cannot resolve by
// itself. Same-package and wildcard resolution need a class index and are
// left to the caller.
func (u *Unit) MissingTypes() []string {
	var out []string
	for _, name := range u.TypeRefs {
		if _, ok := u.Resolve(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

// UsedImports returns the fqcns of imports that are referenced, plus static
// imports, sorted.
func (u *Unit) UsedImports() []string {
	refs := make(map[string]bool, len(u.TypeRefs))
	for _, r := range u.TypeRefs {
		refs[r] = true
	}

	var out []string
	for _, imp := range u.Imports() {
		if refs[imp.SimpleName] {
			out = append(out, imp.FQCN)
		}
	}
	for _, pkg := range u.Wildcards {
		out = append(out, pkg+".*")
	}
	out = append(out, u.Statics...)
	sort.Strings(out)
	return out
}

// ScopeAt returns the innermost scope id covering line, or "" when the line
// is outside every type.
func (u *Unit) ScopeAt(line int) string {
	best := ""
	bestLen := -1
	for _, s := range u.Scopes {
		if s.Covers(line) && len(s.ID) > bestLen {
			best = s.ID
			bestLen = len(s.ID)
		}
	}
	return best
}

// SymbolAt finds the fact named name that covers (line, column). When no fact
// covers the column exactly, a fact with that name on the same line is
// accepted, preferring the closest one.
func (u *Unit) SymbolAt(line, column int, name string) (Variable, bool) {
	var fallback Variable
	found := false
	bestDist := 0
	for _, v := range u.Variables {
		if v.Name != name && SimpleName(v.Name) != name {
			continue
		}
		if v.ContainsPosition(line, column) && v.Contains(column) {
			return v, true
		}
		if v.Line() != line {
			continue
		}
		d := v.Range.Begin.Column - column
		if d < 0 {
			d = -d
		}
		if !found || d < bestDist {
			fallback, bestDist, found = v, d, true
		}
	}
	return fallback, found
}

// FindDeclaration returns the innermost declaration of name visible from
// scope.
func (u *Unit) FindDeclaration(name, scope string) (Variable, bool) {
	var best Variable
	found := false
	for _, v := range u.Variables {
		if !v.Declaration || v.Name != name || !Visible(v.Parent, scope) {
			continue
		}
		if !found || len(v.Parent) > len(best.Parent) {
			best, found = v, true
		}
	}
	return best, found
}

// FindTypeDeclaration returns the declaring fact of a type by its fqcn.
func (u *Unit) FindTypeDeclaration(fqcn string) (Variable, bool) {
	for _, v := range u.Variables {
		if v.Declaration && v.FQCN == fqcn && v.Name == SimpleName(fqcn) && u.KindOf(v) == KindType {
			return v, true
		}
	}
	return Variable{}, false
}

// KindOf classifies a declaration fact.
func (u *Unit) KindOf(v Variable) SymbolKind {
	// Constructors share their type's name and fqcn; their body scope tells them apart.
	if u.isMethod(v) {
		return KindMethod
	}
	for _, t := range u.Types {
		if u.TypeFQCN(t) == v.FQCN && SimpleName(t) == v.Name {
			return KindType
		}
	}
	if isLocalScope(v.Parent) {
		return KindLocal
	}
	return KindField
}

func (u *Unit) isMethod(v Variable) bool {
	u.mu.Lock()
	if u.methods == nil {
		u.methods = make(map[string]bool, len(u.Scopes))
		for _, s := range u.Scopes {
			if strings.HasSuffix(s.ID, ")") {
				u.methods[s.ID] = true
			}
		}
	}
	methods := u.methods
	u.mu.Unlock()
	return methods[MethodScopeID(v.Parent, v.Name, v.Line())]
}

// MethodScopeID builds the scope id of a method or constructor body.
func MethodScopeID(parent, name string, line int) string {
	id := name + "(" + strconv.Itoa(line) + ")"
	if parent == "" {
		return id
	}
	return parent + "." + id
}

// BlockScopeID builds the scope id of a block opened at line.
func BlockScopeID(parent string, line int) string {
	id := "{" + strconv.Itoa(line) + "}"
	if parent == "" {
		return id
	}
	return parent + "." + id
}

func isLocalScope(scope string) bool {
	return strings.HasSuffix(scope, ")") || strings.HasSuffix(scope, "}")
}

// EnclosingType returns the in-file name of the innermost type around
// scope, or "" outside every type.
func EnclosingType(scope string) string {
	if scope == "" {
		return ""
	}
	parts := strings.Split(scope, ".")
	i := 0
	for i < len(parts) && !isLocalScope(parts[i]) {
		i++
	}
	return strings.Join(parts[:i], ".")
}

// DeclarationsVisibleAt returns declarations usable at line: members of every
// enclosing type plus locals declared at or before line in enclosing scopes.
func (u *Unit) DeclarationsVisibleAt(line int) []Variable {
	scope := u.ScopeAt(line)
	var out []Variable
	for _, v := range u.Variables {
		if !v.Declaration || !Visible(v.Parent, scope) {
			continue
		}
		if u.KindOf(v) == KindLocal && v.Line() > line {
			continue
		}
		out = append(out, v)
	}
	return out
}
