package session

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/javalens/internal/source"
	"golang.org/x/sync/errgroup"
)

// compileIncludes compiles the source include patterns. Invalid patterns are
// logged and skipped; config validation normally rejects them earlier.
func compileIncludes(patterns []string) []glob.Glob {
	var out []glob.Glob
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			log.Printf("Warning: ignoring include pattern %q: %v", p, err)
			continue
		}
		out = append(out, g)
	}
	return out
}

// included matches rel, a slash-separated path below a source root. Files
// of the default package are also tried with a leading slash so that
// **/*.java covers them.
func (s *Session) included(rel string) bool {
	if len(s.include) == 0 {
		return true
	}
	for _, g := range s.include {
		if g.Match(rel) || g.Match("/"+rel) {
			return true
		}
	}
	return false
}

// javaSources lists the Java files under dirs that match the include
// patterns, sorted. Missing directories are skipped.
func (s *Session) javaSources(dirs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !source.IsJavaFile(path) || seen[path] {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil || !s.included(filepath.ToSlash(rel)) {
				return nil
			}
			seen[path] = true
			out = append(out, path)
			return nil
		})
		if err != nil {
			log.Printf("Warning: failed to list sources in %s: %v", dir, err)
		}
	}
	sort.Strings(out)
	return out
}

// WarmUpResult summarizes a WarmUp run.
type WarmUpResult struct {
	Files  int `json:"files"`
	Parsed int `json:"parsed"`
	Failed int `json:"failed"`
}

// WarmUp parses every source file of the project into the cache using the
// configured number of parse workers. progress, when set, is called after
// each file with the running count and the total. Parse failures are logged
// and counted, not returned.
func (s *Session) WarmUp(ctx context.Context, progress func(done, total int)) (WarmUpResult, error) {
	files := s.javaSources(s.model.AllSourceDirs())
	res := WarmUpResult{Files: len(files)}

	var parsed, failed, done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Session.ParseWorkers)

	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.units.Get(gctx, path); err != nil {
				failed.Add(1)
				log.Printf("Warning: failed to parse %s: %v", path, err)
			} else {
				parsed.Add(1)
			}
			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(files))
			}
			return nil
		})
	}

	err := g.Wait()
	res.Parsed = int(parsed.Load())
	res.Failed = int(failed.Load())
	return res, err
}
