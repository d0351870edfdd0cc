package curl

import (
	"strings"
)

// SplitCommands pulls every curl command out of pasted text. A command starts on
// a line whose first word (after prompts and wrappers such as sudo) is curl and
// runs while lines end in a continuation or a quote is still open.
func SplitCommands(src string) []string {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	out := make([]string, 0, 1)
	for i := 0; i < len(lines); {
		if !IsStartLine(lines[i]) {
			i++
			continue
		}
		end, cmd := extractCommand(lines, i)
		if cmd != "" {
			out = append(out, cmd)
		}
		i = end + 1
	}
	return out
}

func extractCommand(lines []string, start int) (end int, cmd string) {
	var (
		st TokenState
		b  strings.Builder
	)
	end = start
	for i := start; i < len(lines); i++ {
		open := st.Open()
		line := lines[i]
		if !open {
			line = strings.TrimSpace(line)
			if line == "" && i > start {
				break
			}
		}

		cont := !open && lineContinues(line)
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		consumeLine(&st, line)
		end = i

		if cont || st.Open() {
			st.ResetEscape()
			continue
		}
		break
	}
	return end, strings.TrimSpace(b.String())
}

func consumeLine(st *TokenState, line string) {
	rs := []rune(line)
	for i := 0; i < len(rs); i++ {
		st.advance(rs, &i)
	}
}

func lineContinues(v string) bool {
	count := 0
	for i := len(v) - 1; i >= 0 && v[i] == '\\'; i-- {
		count++
	}
	return count%2 == 1
}

func IsStartLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	toks, _ := splitTokens(line)
	_, ok := commandStart(toks)
	return ok
}

// commandStart returns the index of the first argument after the curl word.
// Prompt markers, wrappers (sudo, env, time, command, noglob) with their own
// options, and VAR=value assignments are skipped. ok is false when no curl word
// is found before the first real argument.
func commandStart(toks []string) (int, bool) {
	wrapped := false
	for i := 0; i < len(toks); i++ {
		tok := stripPromptPrefix(toks[i])
		if tok == "" {
			continue
		}
		lower := strings.ToLower(tok)
		switch {
		case lower == cmdCurl:
			return i + 1, true
		case lower == cmdSudo, lower == cmdEnv, lower == cmdCommand, lower == cmdTime, lower == cmdNoGlob:
			wrapped = true
			i = skipWrapperOpts(toks, i+1, lower) - 1
		case isAssign(tok):
		case wrapped && strings.HasPrefix(tok, "-"):
		default:
			return i, false
		}
	}
	return len(toks), false
}

// skipWrapperOpts returns the index of the first token after the wrapper's own options.
func skipWrapperOpts(toks []string, i int, wrapper string) int {
	for i < len(toks) {
		tok := toks[i]
		if tok == "--" {
			return i + 1
		}
		if !strings.HasPrefix(tok, "-") || tok == "-" {
			return i
		}
		i++
		if wrapperOptTakesArg(wrapper, tok) && i < len(toks) {
			i++
		}
	}
	return i
}

func wrapperOptTakesArg(wrapper, tok string) bool {
	if strings.Contains(tok, "=") || (len(tok) > 2 && !strings.HasPrefix(tok, "--")) {
		return false
	}
	var args string
	switch wrapper {
	case cmdSudo:
		args = "-u -g -h -p -C -c -U --user --group --host --prompt --close-from --chdir --login-class"
	case cmdEnv:
		args = "-u -C --unset --chdir"
	case cmdTime:
		args = "-f -o --format --output"
	default:
		return false
	}
	for _, a := range strings.Fields(args) {
		if a == tok {
			return true
		}
	}
	return false
}

func isAssign(tok string) bool {
	if strings.HasPrefix(tok, "=") || strings.HasPrefix(tok, "-") {
		return false
	}
	name, _, ok := strings.Cut(tok, "=")
	return ok && !strings.ContainsAny(name, "/:")
}

func stripPromptPrefix(token string) string {
	trimmed := strings.TrimSpace(token)
	for _, prefix := range promptPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			trimmed = strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return trimmed
}
