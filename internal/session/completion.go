package session

import (
	"context"
	"sort"
	"strings"

	"github.com/mvp-joe/javalens/internal/source"
)

// classCandidateLimit caps class index matches in one completion.
const classCandidateLimit = 50

// Candidate is one completion or local-variable entry.
type Candidate struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type,omitempty"` // declared type fqcn, or the class itself
}

var kindRank = map[string]int{
	string(source.KindLocal):  0,
	string(source.KindField):  1,
	string(source.KindMethod): 2,
	string(source.KindType):   3,
}

// CompletionAt lists names usable at (line, column) that start with prefix.
// A prefix of the form "recv.part" lists members of recv's type when its
// declaration is in the project; otherwise the result holds locals visible
// at the line, members declared in the file, declared and imported types,
// and class index matches for the prefix.
func (s *Session) CompletionAt(ctx context.Context, path string, line, column int, prefix string) ([]Candidate, error) {
	defer s.track("completion")()

	path, ok := s.javaFile(path)
	if !ok {
		return nil, nil
	}
	unit, err := s.units.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	if i := strings.LastIndexByte(prefix, '.'); i >= 0 {
		return s.memberCompletion(ctx, unit, line, prefix[:i], prefix[i+1:])
	}

	var out []Candidate
	seen := make(map[Candidate]bool)
	add := func(c Candidate) {
		if !strings.HasPrefix(c.Name, prefix) || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	for _, v := range unit.DeclarationsVisibleAt(line) {
		kind := unit.KindOf(v)
		// The name being declared under the cursor is not a candidate.
		if kind == source.KindLocal && v.Line() == line && v.Range.Begin.Column >= column {
			continue
		}
		add(Candidate{Name: v.Name, Kind: string(kind), Type: v.FQCN})
	}
	for _, t := range unit.Types {
		add(Candidate{Name: source.SimpleName(t), Kind: string(source.KindType), Type: unit.TypeFQCN(t)})
	}
	for _, imp := range unit.Imports() {
		add(Candidate{Name: imp.SimpleName, Kind: string(source.KindType), Type: imp.FQCN})
	}
	if prefix != "" {
		for _, fqcn := range s.classIndex(ctx).SearchPrefix(prefix, classCandidateLimit) {
			add(Candidate{Name: source.SimpleName(fqcn), Kind: string(source.KindType), Type: fqcn})
		}
	}

	sortCandidates(out)
	return out, nil
}

// memberCompletion lists members of the type of recv declared in project
// sources.
func (s *Session) memberCompletion(ctx context.Context, unit *source.Unit, line int, recv, prefix string) ([]Candidate, error) {
	owner, local, ok := s.nav.ResolveReceiver(ctx, unit, recv, unit.ScopeAt(line))
	if !ok {
		return nil, nil
	}

	var out []Candidate
	for _, v := range owner.Variables {
		if !v.Declaration || v.Parent != local || !strings.HasPrefix(v.Name, prefix) {
			continue
		}
		kind := owner.KindOf(v)
		if kind == source.KindLocal {
			continue
		}
		out = append(out, Candidate{Name: v.Name, Kind: string(kind), Type: v.FQCN})
	}
	sortCandidates(out)
	return out, nil
}

// LocalVariables lists the variables (locals, parameters and fields)
// visible at line.
func (s *Session) LocalVariables(ctx context.Context, path string, line int) ([]Candidate, error) {
	defer s.track("local_variables")()

	path, ok := s.javaFile(path)
	if !ok {
		return nil, nil
	}
	unit, err := s.units.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, v := range unit.DeclarationsVisibleAt(line) {
		kind := unit.KindOf(v)
		if kind != source.KindLocal && kind != source.KindField {
			continue
		}
		out = append(out, Candidate{Name: v.Name, Kind: string(kind), Type: v.FQCN})
	}
	sortCandidates(out)
	return out, nil
}

func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if kindRank[cs[i].Kind] != kindRank[cs[j].Kind] {
			return kindRank[cs[i].Kind] < kindRank[cs[j].Kind]
		}
		return cs[i].Name < cs[j].Name
	})
}
