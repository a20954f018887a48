package session

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mvp-joe/javalens/internal/compiler"
	"github.com/mvp-joe/javalens/internal/events"
	"github.com/mvp-joe/javalens/internal/project"
)

// compileStep is one compiler invocation. Sources is filled lazily from Dirs
// when empty.
type compileStep struct {
	Name      string
	Test      bool
	Dirs      []string
	Sources   []string
	Classpath []string
	OutputDir string
}

// ParseFile loads path into the parse cache. It reports false for files that
// are not Java sources.
func (s *Session) ParseFile(ctx context.Context, path string) (bool, error) {
	defer s.track("parse_file")()

	path, ok := s.javaFile(path)
	if !ok {
		return false, nil
	}
	if _, err := s.units.Get(ctx, path); err != nil {
		return false, err
	}
	return true, nil
}

// CompileFile compiles one source into the output directory of the root that
// holds it. A successful compile queues a class index rebuild.
func (s *Session) CompileFile(ctx context.Context, path string) (*compiler.Result, error) {
	defer s.track("compile_file")()

	path, ok := s.javaFile(path)
	if !ok {
		// Nothing to compile, which is not a failure.
		return &compiler.Result{Success: true}, nil
	}
	res, err := s.runPlan(ctx, s.filePlan([]string{path}))
	if err != nil {
		return nil, err
	}
	s.afterCompile(res)
	return res, nil
}

// CompileProject compiles every module in dependency order, then the test
// sources. Test compilation only runs when every main compile succeeded.
func (s *Session) CompileProject(ctx context.Context) (*compiler.Result, error) {
	defer s.track("compile_project")()

	plan, err := s.projectPlan()
	if err != nil {
		return nil, err
	}
	res, err := s.runPlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	s.afterCompile(res)
	return res, nil
}

// RequestCompile queues a background compile of paths, or of the whole
// project when paths is empty.
func (s *Session) RequestCompile(paths ...string) error {
	normalized := make([]string, 0, len(paths))
	for _, p := range paths {
		normalized = append(normalized, s.normalize(p))
	}
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return s.bus.Compile.Publish(events.NewCompileRequest(normalized...))
}

// afterCompile queues a rebuild for a successful compile. Called with the
// session lock held.
func (s *Session) afterCompile(res *compiler.Result) {
	if !res.Success || res.Sources == 0 || !s.started {
		return
	}
	if err := s.requestRebuild("compile", uuid.Nil); err != nil {
		log.Printf("Warning: failed to queue rebuild after compile: %v", err)
	}
}

// projectPlan lists main steps for every module in build order followed by
// the test steps. Overlay directories that no module owns compile last into
// the project-level output directories.
func (s *Session) projectPlan() ([]compileStep, error) {
	m := s.model
	mods, err := m.BuildOrder()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", project.ErrProjectLoadFailed, err)
	}

	var main, test []compileStep
	for _, mod := range mods {
		main = append(main, compileStep{
			Name:      mod.Name,
			Dirs:      mod.SourceDirs,
			Classpath: m.Classpath(false),
			OutputDir: mod.OutputDir,
		})
		test = append(test, compileStep{
			Name:      mod.Name + " (test)",
			Test:      true,
			Dirs:      mod.TestSourceDirs,
			Classpath: withDir(m.Classpath(true), mod.OutputDir),
			OutputDir: mod.TestOutputDir,
		})
	}

	if dirs := unowned(m.SourceDirs, mods, false); len(dirs) > 0 {
		main = append(main, compileStep{Name: "overlay", Dirs: dirs, Classpath: m.Classpath(false), OutputDir: m.OutputDir})
	}
	if dirs := unowned(m.TestSourceDirs, mods, true); len(dirs) > 0 {
		test = append(test, compileStep{Name: "overlay (test)", Test: true, Dirs: dirs, Classpath: m.Classpath(true), OutputDir: m.TestOutputDir})
	}
	return append(main, test...), nil
}

// filePlan groups files by the output directory their source root compiles
// into. Main files are compiled before test files.
func (s *Session) filePlan(paths []string) []compileStep {
	m := s.model
	var main, test []compileStep
	index := make(map[string]int)

	for _, path := range paths {
		root, isTest, ok := m.SourceRoot(path)
		out := m.OutputDir
		if isTest {
			out = m.TestOutputDir
		}
		if ok {
			if mod, found := s.moduleOf(root); found {
				out = mod.OutputDir
				if isTest {
					out = mod.TestOutputDir
				}
			}
		}

		key := fmt.Sprintf("%t\x00%s", isTest, out)
		steps := &main
		if isTest {
			steps = &test
		}
		if i, seen := index[key]; seen {
			(*steps)[i].Sources = append((*steps)[i].Sources, path)
			continue
		}
		index[key] = len(*steps)
		*steps = append(*steps, compileStep{
			Name:      filepath.Base(path),
			Test:      isTest,
			Sources:   []string{path},
			Classpath: withDir(m.Classpath(isTest), out),
			OutputDir: out,
		})
	}
	return append(main, test...)
}

func (s *Session) moduleOf(root string) (project.Module, bool) {
	for _, mod := range s.model.Modules {
		for _, dirs := range [][]string{mod.SourceDirs, mod.TestSourceDirs} {
			for _, dir := range dirs {
				if dir == root {
					return mod, true
				}
			}
		}
	}
	return project.Module{}, false
}

// runPlan runs the steps in order and stops at the first failure. The merged
// result carries every diagnostic produced so far.
func (s *Session) runPlan(ctx context.Context, plan []compileStep) (*compiler.Result, error) {
	total := &compiler.Result{Success: true}
	var output []string

	for _, step := range plan {
		sources := step.Sources
		if len(sources) == 0 {
			sources = s.javaSources(step.Dirs)
		}
		if len(sources) == 0 {
			continue
		}

		res, err := s.compiler.Compile(ctx, compiler.Request{
			Sources:   sources,
			Classpath: step.Classpath,
			OutputDir: step.OutputDir,
			Dir:       s.model.Root,
		})
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", step.Name, err)
		}

		total.Diagnostics = append(total.Diagnostics, res.Diagnostics...)
		total.Sources += res.Sources
		total.Duration += res.Duration
		if res.Output != "" {
			output = append(output, res.Output)
		}
		if !res.Success {
			total.Success = false
			break
		}
	}

	total.Output = strings.Join(output, "\n")
	return total, nil
}

func unowned(dirs []string, mods []project.Module, test bool) []string {
	owned := make(map[string]bool)
	for _, mod := range mods {
		list := mod.SourceDirs
		if test {
			list = mod.TestSourceDirs
		}
		for _, d := range list {
			owned[d] = true
		}
	}
	var out []string
	for _, d := range dirs {
		if !owned[d] {
			out = append(out, d)
		}
	}
	return out
}

func withDir(cp []string, dir string) []string {
	if dir == "" {
		return cp
	}
	for _, c := range cp {
		if c == dir {
			return cp
		}
	}
	return append([]string{dir}, cp...)
}
