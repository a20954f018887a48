package compiler

import (
	"regexp"
	"strconv"
	"strings"
)

// Diagnostic kinds.
const (
	KindError   = "error"
	KindWarning = "warning"
	KindNote    = "note"
)

// Diagnostic is one compiler message.
type Diagnostic struct {
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var (
	// /src/p/Foo.java:12: error: cannot find symbol
	locatedRe = regexp.MustCompile(`^(.+\.java):(\d+): (error|warning|note): (.*)$`)
	// warning: [options] bootstrap class path not set
	generalRe = regexp.MustCompile(`^(error|warning|note): (.*)$`)
	// 2 errors / 1 warning
	summaryRe = regexp.MustCompile(`^\d+ (errors?|warnings?)$`)
)

// ParseDiagnostics extracts diagnostics from javac output. For located
// messages the column comes from the caret line; indented detail lines
// (symbol:, location:) are appended to the message.
func ParseDiagnostics(output string) []Diagnostic {
	var out []Diagnostic
	var cur *Diagnostic
	sawSource := false

	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		if m := locatedRe.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[2])
			cur = &Diagnostic{Path: m[1], Line: n, Kind: m[3], Message: m[4]}
			sawSource = false
			continue
		}
		if m := generalRe.FindStringSubmatch(line); m != nil {
			flush()
			out = append(out, Diagnostic{Kind: m[1], Message: m[2]})
			continue
		}
		if summaryRe.MatchString(strings.TrimSpace(line)) || line == "" {
			continue
		}
		if cur == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case cur.Column == 0 && trimmed == "^":
			cur.Column = strings.IndexByte(line, '^') + 1
		case !sawSource && cur.Column == 0:
			sawSource = true // echoed source line
		default:
			cur.Message += "; " + trimmed
		}
	}
	flush()
	return out
}
