package project

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

// BuildOrder returns the model's modules so that every module follows the
// modules it depends on. Ties are broken by name. A dependency cycle or a
// reference to an unknown module is an error.
func (m *Model) BuildOrder() ([]Module, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	byName := make(map[string]Module, len(m.Modules))
	for _, mod := range m.Modules {
		if err := g.AddVertex(mod.Name); err != nil {
			return nil, fmt.Errorf("failed to add module %s: %w", mod.Name, err)
		}
		byName[mod.Name] = mod
	}

	for _, mod := range m.Modules {
		for _, dep := range mod.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("module %s depends on unknown module %s", mod.Name, dep)
			}
			err := g.AddEdge(dep, mod.Name)
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return nil, fmt.Errorf("module cycle between %s and %s: %w", dep, mod.Name, err)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to link %s -> %s: %w", dep, mod.Name, err)
			}
		}
	}

	names, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("failed to order modules: %w", err)
	}

	out := make([]Module, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out, nil
}
