package source

import (
	"fmt"
	"strings"
)

// Position is a 1-based line and column inside a source file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p sorts strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is an inclusive span between two positions.
type Range struct {
	Begin Position `json:"begin"`
	End   Position `json:"end"`
}

// Valid reports whether the range is well formed (begin <= end).
func (r Range) Valid() bool {
	return r.Begin.Line > 0 && r.Begin.Column > 0 && !r.End.Before(r.Begin)
}

// SingleLine reports whether the range starts and ends on the same line.
func (r Range) SingleLine() bool {
	return r.Begin.Line == r.End.Line
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Begin.Line, r.Begin.Column, r.End.Line, r.End.Column)
}

// Variable is a symbol fact recorded while parsing a file: either the
// declaring occurrence of a name or a use of it.
//
// Variables are immutable values. Two facts are equal when every field
// matches, so == is the dedup test.
type Variable struct {
	Parent      string `json:"parent"`
	Name        string `json:"name"`
	FQCN        string `json:"fqcn,omitempty"`
	Range       Range  `json:"range"`
	Declaration bool   `json:"declaration"`

	// TypeName is the declared type as written, without type arguments or
	// array dimensions. It is kept when FQCN could not be resolved so the
	// type can still be looked up later.
	TypeName string `json:"type_name,omitempty"`

	// Receiver qualifies a member use: the variable or type name before
	// the dot, or "this".
	Receiver string `json:"receiver,omitempty"`
}

// Contains reports whether column falls inside the symbol's span on its
// begin line. A range that continues past its begin line has no upper
// column bound on that line.
func (v Variable) Contains(column int) bool {
	if column < v.Range.Begin.Column {
		return false
	}
	if !v.Range.SingleLine() {
		return true
	}
	return column <= v.Range.End.Column
}

// ContainsPosition is the two-dimensional membership test.
func (v Variable) ContainsPosition(line, column int) bool {
	p := Position{Line: line, Column: column}
	return !p.Before(v.Range.Begin) && !v.Range.End.Before(p)
}

// Line returns the begin line of the fact.
func (v Variable) Line() int {
	return v.Range.Begin.Line
}

func (v Variable) String() string {
	kind := "use"
	if v.Declaration {
		kind = "decl"
	}
	return fmt.Sprintf("%s %s@%s [%s] fqcn=%s", kind, v.Name, v.Range, v.Parent, v.FQCN)
}

// Visible reports whether a declaration owned by declScope can be seen from
// code in useScope. Scope ids are dot-joined paths so this is a segment
// prefix test.
func Visible(declScope, useScope string) bool {
	if declScope == "" || declScope == useScope {
		return true
	}
	return strings.HasPrefix(useScope, declScope+".")
}

// Dedup removes structurally equal facts, keeping first occurrences.
func Dedup(vars []Variable) []Variable {
	seen := make(map[Variable]struct{}, len(vars))
	out := vars[:0]
	for _, v := range vars {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
