package curl

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

type parseState int

const (
	// stateSeekURL: no URL yet; positional tokens are URL candidates.
	stateSeekURL parseState = iota
	// stateSeekFlag: URL known; only flags matter.
	stateSeekFlag
	// stateConsumeArg: the previous flag is waiting for its argument.
	stateConsumeArg
)

type machine struct {
	state   parseState
	resume  parseState
	pending *optDef
	flag    string
	posOnly bool

	url      string
	method   string
	explicit bool
	headers  []restfile.KeyValue
	body     string
	hasBody  bool
	warn     *WarningCollector
}

func newMachine() *machine {
	return &machine{
		state:   stateSeekURL,
		headers: []restfile.KeyValue{},
		warn:    newWarningCollector(),
	}
}

func (m *machine) run(toks []string) {
	for _, t := range toks {
		m.step(t)
	}
	if m.state == stateConsumeArg {
		m.warn.Add(fmt.Sprintf(warnMissingArg, m.flag))
		m.state = m.resume
	}
}

func (m *machine) step(t string) {
	if m.state == stateConsumeArg {
		def, flag := m.pending, m.flag
		m.pending, m.flag = nil, ""
		m.state = m.resume
		m.apply(def, flag, t)
		return
	}

	if !m.posOnly {
		switch {
		case t == "--":
			m.posOnly = true
			return
		case strings.HasPrefix(t, "--") && len(t) > 2:
			m.long(t)
			return
		case strings.HasPrefix(t, "-") && len(t) > 1:
			m.short(t)
			return
		}
	}
	m.positional(t)
}

func (m *machine) long(t string) {
	name, val, hasVal := strings.Cut(t[2:], "=")
	def := defs[name]
	if def == nil {
		m.warn.Flag("--" + name)
		return
	}
	if def.kind == optNone {
		m.apply(def, "--"+name, "")
		return
	}
	if hasVal {
		m.apply(def, "--"+name, val)
		return
	}
	m.await(def, "--"+name)
}

// short handles clusters such as -sS, -XPOST and -H'A: b'.
func (m *machine) short(t string) {
	raw := []rune(t[1:])
	for j, ch := range raw {
		def := shortDefs[ch]
		flag := "-" + string(ch)
		if def == nil {
			m.warn.Flag(flag)
			continue
		}
		if def.kind == optNone {
			m.apply(def, flag, "")
			continue
		}
		if rest := string(raw[j+1:]); rest != "" {
			m.apply(def, flag, rest)
		} else {
			m.await(def, flag)
		}
		return
	}
}

func (m *machine) await(def *optDef, flag string) {
	m.pending = def
	m.flag = flag
	m.resume = m.state
	m.state = stateConsumeArg
}

func (m *machine) positional(t string) {
	if m.state == stateSeekURL && m.takeURL(t) {
		return
	}
	m.warn.Add(fmt.Sprintf(warnArgFormat, t))
}

func (m *machine) takeURL(t string) bool {
	u := strings.TrimSpace(t)
	if !isHTTPURL(u) {
		return false
	}
	m.url = u
	m.state = stateSeekFlag
	return true
}

func (m *machine) apply(def *optDef, flag, val string) {
	switch def.role {
	case roleMethod:
		m.setMethod(val)
	case roleHeader:
		m.addHeader(val)
	case roleBody:
		m.setBody(flag, val)
	case roleURL:
		if m.state != stateSeekURL || !m.takeURL(val) {
			m.warn.Add(fmt.Sprintf(warnArgFormat, val))
		}
	default:
		m.warn.Flag(flag)
	}
}

func (m *machine) setMethod(val string) {
	method := strings.ToUpper(strings.TrimSpace(val))
	if method == "" {
		return
	}
	if _, ok := restfile.ParseMethod(method); !ok {
		m.warn.Add(fmt.Sprintf(warnUnknownMethod, method))
	}
	m.method = method
	m.explicit = true
}

func (m *machine) addHeader(raw string) {
	name, value, ok := splitHeader(raw)
	if !ok {
		m.warn.Add(fmt.Sprintf(warnHeaderNoColon, raw))
		return
	}
	m.headers = append(m.headers, restfile.NewKeyValue(name, value))
}

func (m *machine) setBody(flag, val string) {
	if m.hasBody {
		m.warn.Add(fmt.Sprintf(warnExtraBody, flag))
		return
	}
	m.body = val
	m.hasBody = true
}

func (m *machine) request() restfile.Request {
	method := methodFallback
	switch {
	case m.explicit:
		method = m.method
	case m.hasBody:
		method = methodWithBody
	}
	return restfile.Request{
		Method:  restfile.Method(method),
		URL:     m.url,
		Headers: m.headers,
		Params:  []restfile.KeyValue{},
		Body:    m.body,
	}
}

// splitHeader splits on the first colon only, so values keep their own colons.
func splitHeader(raw string) (name, value string, ok bool) {
	name, value, found := strings.Cut(raw, ":")
	if !found {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// isHTTPURL matches the scheme exactly; "HTTPS://x" is not taken as the URL.
func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, schemeHTTP) || strings.HasPrefix(s, schemeHTTPS)
}
