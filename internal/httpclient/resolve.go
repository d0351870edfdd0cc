package httpclient

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/util"
	"github.com/unkn0wn-root/daakiya/internal/vars"
)

// Resolve substitutes the template against globals followed by the request's
// own params and composes the final URL. It never fails; anything it had to
// skip or leave unresolved is listed in Warnings.
func Resolve(req restfile.Request, env []restfile.KeyValue) restfile.ResolvedRequest {
	combined := vars.Merge(env, req.Params)
	var warn []string

	method, _ := restfile.ParseMethod(string(req.Method))
	if method == "" {
		method = restfile.MethodGet
	}

	target := vars.Substitute(req.URL, combined)
	// Collected before appendQuery, which percent-encodes leftover braces.
	warn = append(warn, unresolved("url", target)...)
	pending := appendable(req.URL, req.Params)
	if u, err := url.Parse(target); err == nil && u.IsAbs() {
		if len(pending) > 0 {
			var qwarn []string
			target, qwarn = appendQuery(u, pending, combined)
			warn = append(warn, qwarn...)
		}
	} else if len(pending) > 0 {
		warn = append(warn, fmt.Sprintf("url %q is not absolute; query params not appended", target))
	}

	headers := make(restfile.HeaderList, 0, len(req.Headers))
	for _, h := range req.Headers {
		if !h.Active() {
			continue
		}
		name := vars.Substitute(h.Key, combined)
		value := vars.Substitute(h.Value, combined)
		if !httpguts.ValidHeaderFieldName(name) {
			warn = append(warn, fmt.Sprintf("header name %q is invalid (dropped)", name))
			continue
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			warn = append(warn, fmt.Sprintf("header %s has an invalid value (dropped)", name))
			continue
		}
		headers = append(headers, restfile.Header{Name: name, Value: value})
		warn = append(warn, unresolved("header "+name, value)...)
	}

	var body *string
	if method.AllowsBody() && req.Body != "" {
		text := vars.Substitute(req.Body, combined)
		body = &text
		warn = append(warn, unresolved("body", text)...)
	}

	return restfile.ResolvedRequest{
		Method:   method,
		URL:      target,
		Headers:  headers,
		Body:     body,
		Warnings: util.DedupeNonEmptyStrings(warn),
	}
}

// appendable keeps the active params not already used as {{key}} in the URL template.
func appendable(tmpl string, params []restfile.KeyValue) []restfile.KeyValue {
	var out []restfile.KeyValue
	for _, p := range params {
		if !p.Active() || strings.Contains(tmpl, vars.Placeholder(p.Key)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// appendQuery adds params after any existing query, in order. url.Values is not
// used because Encode sorts keys. Unresolved names are reported from the
// substituted text since escaping hides the braces.
func appendQuery(u *url.URL, params, env []restfile.KeyValue) (string, []string) {
	var (
		b    strings.Builder
		warn []string
	)
	b.WriteString(u.RawQuery)
	for _, p := range params {
		key := vars.Substitute(p.Key, env)
		value := vars.Substitute(p.Value, env)
		warn = append(warn, unresolved("param "+key, key+value)...)
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}
	u.RawQuery = b.String()
	return u.String(), warn
}

func unresolved(where, text string) []string {
	names := vars.Placeholders(text)
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Sprintf("unresolved variable %s in %s", vars.Placeholder(name), where))
	}
	return out
}
