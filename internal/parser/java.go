package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/mvp-joe/javalens/internal/source"
)

// ErrSyntax is returned when the grammar cannot produce a clean tree.
var ErrSyntax = errors.New("syntax error")

// JavaParser turns Java source text into a source.Unit.
type JavaParser struct {
	language *sitter.Language
}

// NewJavaParser creates a new Java parser.
func NewJavaParser() *JavaParser {
	return &JavaParser{language: sitter.NewLanguage(java.Language())}
}

// Parse parses one file. The returned unit is complete: scopes, facts and
// referenced type names are resolved against the file's own imports.
func (p *JavaParser) Parse(ctx context.Context, path string, src []byte) (*source.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set java language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s: parser returned no tree", ErrSyntax, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := firstSyntaxError(root); bad != nil {
		return nil, fmt.Errorf("%w: %s:%d:%d", ErrSyntax, path, startLine(bad), charColumn(src, bad.StartByte(), bad.StartPosition().Column)+1)
	}

	w := newWalker(path, src)
	w.visit(root)
	return w.finish(), nil
}

type factKind int

const (
	factDecl factKind = iota
	factTypeRef
	factIdent
	factMember
)

type pendingFact struct {
	v       source.Variable
	kind    factKind
	rawType string
}

type walker struct {
	src        []byte
	unit       *source.Unit
	scopes     []string
	typePath   []string
	facts      []pendingFact
	typeRefs   map[string]bool
	typeParams map[string]bool
}

func newWalker(path string, src []byte) *walker {
	return &walker{
		src:        src,
		unit:       source.NewUnit(path, ""),
		typeRefs:   make(map[string]bool),
		typeParams: make(map[string]bool),
	}
}

func (w *walker) scope() string {
	if len(w.scopes) == 0 {
		return ""
	}
	return w.scopes[len(w.scopes)-1]
}

func (w *walker) push(id string, node *sitter.Node) {
	w.scopes = append(w.scopes, id)
	w.unit.Scopes = append(w.unit.Scopes, source.Scope{ID: id, Begin: startLine(node), End: endLine(node)})
}

func (w *walker) pop() {
	w.scopes = w.scopes[:len(w.scopes)-1]
}

func (w *walker) pushBlock(node *sitter.Node) {
	w.push(source.BlockScopeID(w.scope(), startLine(node)), node)
}

func (w *walker) declare(nameNode *sitter.Node, rawType string) {
	if nameNode == nil {
		return
	}
	w.facts = append(w.facts, pendingFact{
		v: source.Variable{
			Parent:      w.scope(),
			Name:        extractNodeText(nameNode, w.src),
			Range:       nodeRange(nameNode, w.src),
			Declaration: true,
			TypeName:    rawType,
		},
		kind:    factDecl,
		rawType: rawType,
	})
}

func (w *walker) use(node *sitter.Node, kind factKind) {
	w.facts = append(w.facts, pendingFact{
		v: source.Variable{
			Parent: w.scope(),
			Name:   extractNodeText(node, w.src),
			Range:  nodeRange(node, w.src),
		},
		kind: kind,
	})
}

// member records name used through receiver (recv.name or recv.name()).
// Receivers other than a plain name or this are not recorded.
func (w *walker) member(name, receiver *sitter.Node) {
	if name == nil || receiver == nil {
		return
	}
	recv := w.receiverName(receiver)
	if recv == "" {
		return
	}
	w.facts = append(w.facts, pendingFact{
		v: source.Variable{
			Parent:   w.scope(),
			Name:     extractNodeText(name, w.src),
			Range:    nodeRange(name, w.src),
			Receiver: recv,
		},
		kind: factMember,
	})
}

func (w *walker) receiverName(node *sitter.Node) string {
	switch node.Kind() {
	case "identifier":
		return extractNodeText(node, w.src)
	case "this":
		return "this"
	case "field_access":
		// this.helper.greet() goes through the helper field.
		if object := node.ChildByFieldName("object"); object != nil && object.Kind() == "this" {
			if field := node.ChildByFieldName("field"); field != nil {
				return extractNodeText(field, w.src)
			}
		}
	}
	return ""
}

func (w *walker) visitChildren(node *sitter.Node, skip ...*sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || isSkipped(child, skip) {
			continue
		}
		w.visit(child)
	}
}

func isSkipped(n *sitter.Node, skip []*sitter.Node) bool {
	for _, s := range skip {
		if s != nil && s.StartByte() == n.StartByte() && s.EndByte() == n.EndByte() && s.Kind() == n.Kind() {
			return true
		}
	}
	return false
}

func (w *walker) visit(node *sitter.Node) {
	switch node.Kind() {
	case "package_declaration":
		name := findChildByType(node, "scoped_identifier")
		if name == nil {
			name = findChildByType(node, "identifier")
		}
		w.unit.Package = extractNodeText(name, w.src)

	case "import_declaration":
		w.visitImport(node)

	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		w.visitType(node)

	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		w.visitMethod(node)

	case "formal_parameter", "spread_parameter":
		typ := node.ChildByFieldName("type")
		if typ == nil {
			typ = findTypeChild(node)
		}
		name := node.ChildByFieldName("name")
		if name == nil {
			if decl := findChildByType(node, "variable_declarator"); decl != nil {
				name = decl.ChildByFieldName("name")
			}
		}
		w.declare(name, w.typeName(typ))
		w.visitChildren(node, name)

	case "field_declaration", "local_variable_declaration", "constant_declaration":
		typ := node.ChildByFieldName("type")
		rawType := w.typeName(typ)
		if typ != nil {
			w.visit(typ)
		}
		for _, decl := range findChildrenByType(node, "variable_declarator") {
			name := decl.ChildByFieldName("name")
			w.declare(name, rawType)
			if value := decl.ChildByFieldName("value"); value != nil {
				w.visit(value)
			}
		}

	case "enhanced_for_statement":
		w.pushBlock(node)
		typ := node.ChildByFieldName("type")
		name := node.ChildByFieldName("name")
		w.declare(name, w.typeName(typ))
		w.visitChildren(node, name)
		w.pop()

	case "catch_clause":
		w.pushBlock(node)
		if param := findChildByType(node, "catch_formal_parameter"); param != nil {
			catchType := findChildByType(param, "catch_type")
			rawType := ""
			if catchType != nil {
				if t := findTypeChild(catchType); t != nil {
					rawType = w.typeName(t)
				}
			}
			name := param.ChildByFieldName("name")
			w.declare(name, rawType)
			w.visitChildren(param, name)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() != "catch_formal_parameter" {
				w.visit(child)
			}
		}
		w.pop()

	case "lambda_expression":
		w.pushBlock(node)
		params := node.ChildByFieldName("parameters")
		if params != nil {
			switch params.Kind() {
			case "identifier":
				w.declare(params, "")
			case "inferred_parameters":
				for _, id := range findChildrenByType(params, "identifier") {
					w.declare(id, "")
				}
			default:
				w.visit(params)
			}
		}
		if body := node.ChildByFieldName("body"); body != nil {
			w.visit(body)
		}
		w.pop()

	case "block", "for_statement", "try_with_resources_statement", "switch_block":
		w.pushBlock(node)
		w.visitChildren(node)
		w.pop()

	case "resource":
		typ := node.ChildByFieldName("type")
		name := node.ChildByFieldName("name")
		if typ != nil && name != nil {
			w.declare(name, w.typeName(typ))
			w.visit(typ)
			if value := node.ChildByFieldName("value"); value != nil {
				w.visit(value)
			}
			return
		}
		w.visitChildren(node)

	case "type_parameter":
		if id := findChildByType(node, "type_identifier"); id != nil {
			w.typeParams[extractNodeText(id, w.src)] = true
		} else if id := findChildByType(node, "identifier"); id != nil {
			w.typeParams[extractNodeText(id, w.src)] = true
		}
		w.visitChildren(node)

	case "type_identifier":
		w.use(node, factTypeRef)

	case "scoped_type_identifier":
		w.use(node, factTypeRef)

	case "marker_annotation", "annotation":
		if name := node.ChildByFieldName("name"); name != nil {
			if name.Kind() == "identifier" {
				w.use(name, factTypeRef)
			}
			w.visitChildren(node, name)
			return
		}
		w.visitChildren(node)

	case "method_invocation":
		object := node.ChildByFieldName("object")
		name := node.ChildByFieldName("name")
		if object != nil {
			w.visit(object)
			w.member(name, object)
		} else if name != nil {
			w.use(name, factIdent)
		}
		if args := node.ChildByFieldName("arguments"); args != nil {
			w.visit(args)
		}
		if targs := node.ChildByFieldName("type_arguments"); targs != nil {
			w.visit(targs)
		}

	case "field_access":
		object := node.ChildByFieldName("object")
		if object != nil && object.Kind() == "this" {
			if field := node.ChildByFieldName("field"); field != nil {
				w.use(field, factIdent)
			}
			return
		}
		if object != nil {
			w.visit(object)
			w.member(node.ChildByFieldName("field"), object)
		}

	case "enum_constant":
		name := node.ChildByFieldName("name")
		w.declare(name, strings.Join(w.typePath, "."))
		w.visitChildren(node, name)

	case "method_reference":
		if node.ChildCount() > 0 {
			w.visit(node.Child(0))
		}

	case "identifier":
		w.use(node, factIdent)

	case "labeled_statement", "break_statement", "continue_statement":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() != "identifier" {
				w.visit(child)
			}
		}

	case "line_comment", "block_comment", "string_literal", "character_literal":
		return

	default:
		w.visitChildren(node)
	}
}

func (w *walker) visitImport(node *sitter.Node) {
	static := findChildByType(node, "static") != nil
	wildcard := findChildByType(node, "asterisk") != nil
	name := findChildByType(node, "scoped_identifier")
	if name == nil {
		name = findChildByType(node, "identifier")
	}
	fqcn := extractNodeText(name, w.src)
	if fqcn == "" {
		return
	}

	switch {
	case static && wildcard:
		w.unit.Statics = append(w.unit.Statics, fqcn+".*")
	case static:
		w.unit.Statics = append(w.unit.Statics, fqcn)
	case wildcard:
		w.unit.Wildcards = append(w.unit.Wildcards, fqcn)
	default:
		w.unit.AddImport(fqcn)
	}
}

func (w *walker) visitType(node *sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		w.visitChildren(node)
		return
	}
	simple := extractNodeText(name, w.src)
	w.typePath = append(w.typePath, simple)
	local := strings.Join(w.typePath, ".")
	w.unit.Types = append(w.unit.Types, local)

	w.facts = append(w.facts, pendingFact{
		v: source.Variable{
			Parent:      w.scope(),
			Name:        simple,
			FQCN:        source.Qualify(w.unit.Package, local),
			Range:       nodeRange(name, w.src),
			Declaration: true,
		},
		kind: factDecl,
	})

	w.push(local, node)
	if params := node.ChildByFieldName("parameters"); params != nil && node.Kind() == "record_declaration" {
		for _, p := range findChildrenByType(params, "formal_parameter") {
			typ := p.ChildByFieldName("type")
			w.declare(p.ChildByFieldName("name"), w.typeName(typ))
			if typ != nil {
				w.visit(typ)
			}
		}
		w.visitChildren(node, name, params)
	} else {
		w.visitChildren(node, name)
	}
	w.pop()
	w.typePath = w.typePath[:len(w.typePath)-1]
}

func (w *walker) visitMethod(node *sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		w.visitChildren(node)
		return
	}

	rawType := ""
	typ := node.ChildByFieldName("type")
	if typ != nil {
		rawType = w.typeName(typ)
		w.visit(typ)
	} else if len(w.typePath) > 0 {
		rawType = strings.Join(w.typePath, ".")
	}
	w.declare(name, rawType)

	w.push(source.MethodScopeID(w.scope(), extractNodeText(name, w.src), startLine(name)), node)
	w.visitChildren(node, name, typ)
	w.pop()
}

// typeName reduces a type node to the name used for resolution: generics
// and array dimensions are dropped, scoped names are kept dotted.
func (w *walker) typeName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "generic_type":
		if node.ChildCount() > 0 {
			return w.typeName(node.Child(0))
		}
	case "array_type":
		return w.typeName(node.ChildByFieldName("element"))
	case "annotated_type":
		return w.typeName(findTypeChild(node))
	}
	return extractNodeText(node, w.src)
}

func findTypeChild(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "type_identifier", "scoped_type_identifier", "generic_type", "array_type",
			"integral_type", "floating_point_type", "boolean_type", "void_type":
			return child
		}
	}
	return nil
}

func (w *walker) resolveType(raw string) string {
	switch {
	case raw == "":
		return ""
	case source.IsPrimitive(raw):
		return raw
	case w.typeParams[raw]:
		return ""
	}

	head, rest, dotted := strings.Cut(raw, ".")
	if dotted {
		// Outer.Inner resolves through Outer; anything else is taken as qualified.
		if fqcn, ok := w.unit.Resolve(head); ok {
			return fqcn + "." + rest
		}
		return raw
	}
	if fqcn, ok := w.unit.Resolve(raw); ok {
		return fqcn
	}
	return ""
}

func (w *walker) finish() *source.Unit {
	u := w.unit
	for i := range w.facts {
		f := &w.facts[i]
		if f.kind == factDecl && f.v.FQCN == "" {
			f.v.FQCN = w.resolveType(f.rawType)
		}
	}

	decls := make([]source.Variable, 0, len(w.facts))
	for _, f := range w.facts {
		if f.kind == factDecl {
			decls = append(decls, f.v)
		}
	}

	vars := make([]source.Variable, 0, len(w.facts))
	for _, f := range w.facts {
		switch f.kind {
		case factTypeRef:
			name := f.v.Name
			if !strings.Contains(name, ".") && !w.typeParams[name] {
				w.typeRefs[name] = true
			}
			f.v.FQCN = w.resolveType(name)
		case factIdent:
			if decl, ok := innermost(decls, f.v.Name, f.v.Parent); ok {
				f.v.FQCN = decl.FQCN
			} else if looksLikeType(f.v.Name) {
				w.typeRefs[f.v.Name] = true
				f.v.FQCN = w.resolveType(f.v.Name)
			}
		}
		vars = append(vars, f.v)
	}

	u.Variables = source.Dedup(vars)
	sort.SliceStable(u.Variables, func(i, j int) bool {
		return u.Variables[i].Range.Begin.Before(u.Variables[j].Range.Begin)
	})

	u.TypeRefs = make([]string, 0, len(w.typeRefs))
	for name := range w.typeRefs {
		u.TypeRefs = append(u.TypeRefs, name)
	}
	sort.Strings(u.TypeRefs)
	u.ParsedAt = time.Now()
	return u
}

func innermost(decls []source.Variable, name, scope string) (source.Variable, bool) {
	var best source.Variable
	found := false
	for _, d := range decls {
		if d.Name != name || !source.Visible(d.Parent, scope) {
			continue
		}
		if !found || len(d.Parent) > len(best.Parent) {
			best, found = d, true
		}
	}
	return best, found
}

// looksLikeType applies the Java naming convention to a bare identifier
// (Collections.sort, Foo.CONSTANT).
func looksLikeType(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)
	if !unicode.IsUpper(r[0]) {
		return false
	}
	for _, c := range r {
		if unicode.IsLower(c) {
			return true
		}
	}
	return len(r) == 1
}
