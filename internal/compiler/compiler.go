// Package compiler runs javac over project sources and reports structured
// diagnostics.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/javalens/internal/metrics"
)

var (
	// ErrCompilerUnavailable indicates the compiler binary could not be started
	ErrCompilerUnavailable = errors.New("compiler unavailable")

	// ErrTimeout indicates the compiler exceeded its time limit
	ErrTimeout = errors.New("compile timed out")
)

// DefaultTimeout bounds a single compiler run.
const DefaultTimeout = 5 * time.Minute

// Request describes one compilation.
type Request struct {
	Sources   []string
	Classpath []string
	OutputDir string
	Dir       string // working directory; usually the project root
}

// Result is the outcome of a compilation. A failed compile is a Result with
// Success false, not an error.
type Result struct {
	Success     bool          `json:"success"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	Output      string        `json:"output,omitempty"`
	Sources     int           `json:"sources"`
	Duration    time.Duration `json:"duration"`
}

// Errors returns the error diagnostics.
func (r *Result) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == KindError {
			out = append(out, d)
		}
	}
	return out
}

// Compiler compiles Java sources.
type Compiler interface {
	Compile(ctx context.Context, req Request) (*Result, error)
}

// Javac runs the JDK compiler as a subprocess.
type Javac struct {
	Binary  string   // default "javac"
	Release string   // --release value; empty leaves the JDK default
	Args    []string // extra arguments
	Timeout time.Duration
}

// Compile runs javac. Compilation failures are reported through the Result;
// an error means javac could not be run at all.
func (j *Javac) Compile(ctx context.Context, req Request) (*Result, error) {
	if len(req.Sources) == 0 {
		return &Result{Success: true}, nil
	}
	if req.OutputDir != "" {
		if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	argFile, err := writeArgFile(req.Sources)
	if err != nil {
		return nil, err
	}
	defer os.Remove(argFile)

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := j.Binary
	if binary == "" {
		binary = "javac"
	}
	cmd := exec.CommandContext(execCtx, binary, j.args(req, argFile)...)
	cmd.Dir = req.Dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err = cmd.Run()
	result := &Result{
		Output:   output.String(),
		Sources:  len(req.Sources),
		Duration: time.Since(start),
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			metrics.CompilesTotal.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			metrics.CompilesTotal.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("%w: %v", ErrCompilerUnavailable, err)
		}
	}

	result.Success = err == nil
	result.Diagnostics = ParseDiagnostics(result.Output)
	if result.Success {
		metrics.CompilesTotal.WithLabelValues("success").Inc()
	} else {
		metrics.CompilesTotal.WithLabelValues("failure").Inc()
	}
	return result, nil
}

func (j *Javac) args(req Request, argFile string) []string {
	args := []string{"-encoding", "UTF-8", "-g"}
	if req.OutputDir != "" {
		args = append(args, "-d", req.OutputDir)
	}
	if len(req.Classpath) > 0 {
		args = append(args, "-cp", strings.Join(req.Classpath, string(os.PathListSeparator)))
	}
	if j.Release != "" {
		args = append(args, "--release", j.Release)
	}
	args = append(args, j.Args...)
	return append(args, "@"+argFile)
}

// writeArgFile lists sources in a javac @file so large projects do not
// exceed the command-line limit.
func writeArgFile(sources []string) (string, error) {
	f, err := os.CreateTemp("", "javalens-sources-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create argument file: %w", err)
	}
	defer f.Close()

	for _, src := range sources {
		// javac @files treat backslashes as escapes and spaces as separators.
		quoted := strings.ReplaceAll(filepath.ToSlash(src), `"`, `\"`)
		if _, err := fmt.Fprintf(f, "\"%s\"\n", quoted); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write argument file: %w", err)
		}
	}
	return f.Name(), nil
}
