package vars

import (
	"regexp"
	"strings"

	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Substitute replaces {{key}} with the value of each active entry, in env order.
// The text is rewritten in place per entry, so a value that introduces another
// placeholder is only expanded if a later entry matches it. No fixed point is
// computed, which keeps cyclic definitions from looping.
func Substitute(text string, env []restfile.KeyValue) string {
	if len(env) == 0 || !strings.Contains(text, openDelim) {
		return text
	}
	out := text
	for _, v := range restfile.ActiveOnly(env) {
		out = strings.ReplaceAll(out, Placeholder(v.Key), v.Value)
	}
	return out
}

func Placeholder(key string) string {
	return openDelim + key + closeDelim
}

// Placeholders lists the names of {{...}} tokens left in text, first occurrence first.
func Placeholders(text string) []string {
	if !strings.Contains(text, openDelim) {
		return nil
	}
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Merge returns globals followed by params. Params extend the list; they never
// reorder globals, so a duplicate key in params only sees what globals left behind.
func Merge(globals, params []restfile.KeyValue) []restfile.KeyValue {
	out := make([]restfile.KeyValue, 0, len(globals)+len(params))
	out = append(out, globals...)
	out = append(out, params...)
	return out
}

// Set updates and re-enables the first entry named key, or appends a new one.
func Set(env []restfile.KeyValue, key, value string) []restfile.KeyValue {
	out := append([]restfile.KeyValue(nil), env...)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			out[i].Enabled = true
			return out
		}
	}
	return append(out, restfile.NewKeyValue(key, value))
}

// Unset drops every entry whose key is listed.
func Unset(env []restfile.KeyValue, keys ...string) []restfile.KeyValue {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := make([]restfile.KeyValue, 0, len(env))
	for _, kv := range env {
		if _, ok := drop[kv.Key]; !ok {
			out = append(out, kv)
		}
	}
	return out
}
