package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mvp-joe/javalens/internal/session"
	"github.com/schollz/progressbar/v3"
)

// warmProgress renders WarmUp progress as a progress bar. Callbacks arrive
// from parse workers in any order.
type warmProgress struct {
	quiet     bool
	out       io.Writer
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	done      int
	startTime time.Time
}

func newWarmProgress(out io.Writer, quiet bool) *warmProgress {
	return &warmProgress{quiet: quiet, out: out, startTime: time.Now()}
}

// Update is passed to Session.WarmUp.
func (p *warmProgress) Update(done, total int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Parsing sources"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.out)
			}),
		)
	}
	if done > p.done {
		p.done = done
		p.bar.Set(done)
	}
}

// Complete prints the summary line.
func (p *warmProgress) Complete(res session.WarmUpResult) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	if p.bar != nil {
		p.bar.Finish()
	}
	p.mu.Unlock()

	fmt.Fprintf(p.out, "✓ Parsed %s of %s files in %.1fs\n",
		formatNumber(res.Parsed), formatNumber(res.Files), time.Since(p.startTime).Seconds())
	if res.Failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %s (run with --verbose for details)\n", formatNumber(res.Failed))
	}
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
