package curl

import (
	"regexp"
	"strings"
)

var continuationPattern = regexp.MustCompile(`\\[ \t]*\r?\n[ \t]*`)

type lexState struct {
	token   TokenState
	buf     strings.Builder
	started bool
	out     []string
}

func (st *lexState) add(r rune) {
	st.buf.WriteRune(r)
	st.started = true
}

func (st *lexState) flush() {
	// started covers '' and "" which are real, empty arguments
	if st.buf.Len() == 0 && !st.started {
		return
	}
	st.out = append(st.out, st.buf.String())
	st.buf.Reset()
	st.started = false
}

// joinContinuations folds "\<newline>" (with surrounding blanks) into one space.
func joinContinuations(input string) string {
	return strings.TrimSpace(continuationPattern.ReplaceAllString(input, " "))
}

// splitTokens splits a command line the way a POSIX shell would, without
// expansion. It never fails: an unterminated quote or trailing backslash keeps
// the partial token and reports complete=false.
func splitTokens(input string) (tokens []string, complete bool) {
	st := &lexState{}
	rs := []rune(joinContinuations(input))

	for i := 0; i < len(rs); i++ {
		r := rs[i]
		step := st.token.advance(rs, &i)
		if step.handled {
			st.started = true
			if step.emit {
				st.add(step.r)
			}
			continue
		}
		if isWhitespace(r) {
			st.flush()
			continue
		}
		st.add(r)
	}

	complete = !st.token.Escaping() && !st.token.Open()
	if st.token.Escaping() {
		st.add('\\')
	}
	st.flush()
	return st.out, complete
}
