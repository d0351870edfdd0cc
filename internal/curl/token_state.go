package curl

type tokenStep struct {
	emit    bool
	r       rune
	handled bool
}

// TokenState tracks shell quoting for one rune at a time. Single quotes are
// literal, double quotes honour backslashes and $'...' decodes ANSI-C escapes.
type TokenState struct {
	inSingle bool
	inDouble bool
	inANSI   bool
	escape   bool
	skipLF   bool
}

func (s *TokenState) Open() bool {
	return s.inSingle || s.inDouble || s.inANSI
}

func (s *TokenState) InQuote() bool {
	return s.inSingle || s.inDouble || s.inANSI
}

func (s *TokenState) Escaping() bool {
	return s.escape
}

func (s *TokenState) ResetEscape() {
	s.escape = false
	s.skipLF = false
}

// advance consumes rs[*i]. Unhandled steps are plain runes the caller decides on
// (whitespace splits tokens outside quotes). It may move *i past extra runes.
func (s *TokenState) advance(rs []rune, i *int) tokenStep {
	r := rs[*i]

	if s.skipLF {
		s.skipLF = false
		if r == '\n' {
			return tokenStep{handled: true}
		}
	}

	if s.escape {
		s.escape = false
		if s.inANSI {
			return tokenStep{emit: true, r: ansiEsc(rs, i), handled: true}
		}
		if isLineBreak(r) {
			// backslash-newline is a continuation, not a character
			if r == '\r' {
				s.skipLF = true
			}
			return tokenStep{handled: true}
		}
		if s.inDouble && !escapableInDouble(r) {
			// inside "..." only a few characters lose the backslash
			*i--
			return tokenStep{emit: true, r: '\\', handled: true}
		}
		return tokenStep{emit: true, r: r, handled: true}
	}

	if s.inANSI {
		switch r {
		case '\\':
			s.escape = true
			return tokenStep{handled: true}
		case '\'':
			s.inANSI = false
			return tokenStep{handled: true}
		default:
			return tokenStep{emit: true, r: r, handled: true}
		}
	}

	switch r {
	case '\\':
		if s.inSingle {
			return tokenStep{emit: true, r: r, handled: true}
		}
		s.escape = true
		return tokenStep{handled: true}
	case '\'':
		if s.inDouble {
			return tokenStep{emit: true, r: r, handled: true}
		}
		s.inSingle = !s.inSingle
		return tokenStep{handled: true}
	case '"':
		if s.inSingle {
			return tokenStep{emit: true, r: r, handled: true}
		}
		s.inDouble = !s.inDouble
		return tokenStep{handled: true}
	case '$':
		if !s.inSingle && !s.inDouble && *i+1 < len(rs) && rs[*i+1] == '\'' {
			s.inANSI = true
			*i++
			return tokenStep{handled: true}
		}
	}

	if s.inSingle || s.inDouble {
		return tokenStep{emit: true, r: r, handled: true}
	}
	return tokenStep{}
}

func escapableInDouble(r rune) bool {
	switch r {
	case '"', '\\', '$', '`':
		return true
	default:
		return false
	}
}

// ansiEsc decodes the escape at rs[*i]. Malformed hex escapes are kept literally.
func ansiEsc(rs []rune, i *int) rune {
	r := rs[*i]
	switch r {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'x':
		if v, ok := readHex(rs, i, 2); ok {
			return v
		}
	case 'u':
		if v, ok := readHex(rs, i, 4); ok {
			return v
		}
	}
	return r
}

func readHex(rs []rune, i *int, n int) (rune, bool) {
	if *i+n >= len(rs) {
		return 0, false
	}
	val := 0
	for j := 0; j < n; j++ {
		d, ok := hexVal(rs[*i+1+j])
		if !ok {
			return 0, false
		}
		val = val*16 + d
	}
	*i += n
	return rune(val), true
}

func hexVal(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10, true
	default:
		return 0, false
	}
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
