package curl

import (
	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

// Result is a parsed command plus anything that was skipped on the way.
type Result struct {
	Request  restfile.Request
	Warnings []string
}

// ParseCommand turns a curl command line into a template request. It never
// fails: whatever cannot be understood is left at its default (GET, no
// headers, empty body, possibly empty URL). The request carries no ID; header
// entries get fresh ones.
func ParseCommand(command string) restfile.Request {
	return ParseCommandInfo(command).Request
}

func ParseCommandInfo(command string) Result {
	toks, complete := splitTokens(command)
	m := newMachine()
	if !complete {
		m.warn.Add(warnUnterminated)
	}

	start, ok := commandStart(toks)
	if !ok {
		// Accept bare argument lists ("https://x -H ...") as well.
		start = 0
		if len(toks) > 0 {
			m.warn.Add(warnNotCurlCommand)
		}
	}
	m.run(toks[start:])
	return Result{Request: m.request(), Warnings: m.warn.List()}
}

// ParseCommands parses every curl command found in src, in order.
func ParseCommands(src string) []Result {
	cmds := SplitCommands(src)
	if len(cmds) == 0 {
		return []Result{ParseCommandInfo(src)}
	}
	out := make([]Result, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, ParseCommandInfo(cmd))
	}
	return out
}
