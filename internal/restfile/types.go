package restfile

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

var knownMethods = []Method{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodPatch,
	MethodDelete,
	MethodHead,
	MethodOptions,
}

// ParseMethod upper-cases raw and reports whether it names one of the supported methods.
// Unknown methods are still returned upper-cased so callers can decide how strict to be.
func ParseMethod(raw string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range knownMethods {
		if m == known {
			return m, true
		}
	}
	return m, false
}

func (m Method) AllowsBody() bool {
	return m != MethodGet && m != MethodHead
}

func (m Method) String() string {
	return string(m)
}

// IDSource hands out opaque identifiers. Only equality is ever checked.
type IDSource func() string

func NewID() string {
	return uuid.NewString()
}

// KeyValue is the shared (key, value, enabled) triple behind headers, params and variables.
type KeyValue struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// UnmarshalJSON treats a missing "enabled" as true so hand-written files stay short.
func (kv *KeyValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string `json:"id"`
		Key     string `json:"key"`
		Value   string `json:"value"`
		Enabled *bool  `json:"enabled"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*kv = KeyValue{ID: raw.ID, Key: raw.Key, Value: raw.Value, Enabled: true}
	if raw.Enabled != nil {
		kv.Enabled = *raw.Enabled
	}
	return nil
}

type Variable = KeyValue

func NewKeyValue(key, value string) KeyValue {
	return KeyValue{ID: NewID(), Key: key, Value: value, Enabled: true}
}

// Active is the filter every consumer applies before using an entry.
func (kv KeyValue) Active() bool {
	return kv.Enabled && kv.Key != ""
}

func ActiveOnly(items []KeyValue) []KeyValue {
	out := make([]KeyValue, 0, len(items))
	for _, it := range items {
		if it.Active() {
			out = append(out, it)
		}
	}
	return out
}

// Request is a template: URL, header entries and body may still hold placeholders.
type Request struct {
	ID      string     `json:"id"`
	Name    string     `json:"name,omitempty"`
	Method  Method     `json:"method"`
	URL     string     `json:"url"`
	Headers []KeyValue `json:"headers"`
	Params  []KeyValue `json:"params"`
	Body    string     `json:"body"`
}

func NewRequest() Request {
	return Request{
		ID:      NewID(),
		Method:  MethodGet,
		Headers: []KeyValue{},
		Params:  []KeyValue{},
	}
}

// Clone returns a deep copy so callers can edit entries without touching the original.
func (r Request) Clone() Request {
	out := r
	out.Headers = cloneKVs(r.Headers)
	out.Params = cloneKVs(r.Params)
	return out
}

func cloneKVs(in []KeyValue) []KeyValue {
	if in == nil {
		return nil
	}
	out := make([]KeyValue, len(in))
	copy(out, in)
	return out
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeaderList keeps insertion order and duplicates, unlike http.Header.
type HeaderList []Header

func (h HeaderList) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, hdr := range h {
		out.Add(hdr.Name, hdr.Value)
	}
	return out
}

func (h HeaderList) Get(name string) string {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value
		}
	}
	return ""
}

// ResolvedRequest is ready for the transport. Body is nil when no body is sent.
type ResolvedRequest struct {
	Method   Method     `json:"method"`
	URL      string     `json:"url"`
	Headers  HeaderList `json:"headers"`
	Body     *string    `json:"body,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

func (r ResolvedRequest) HasBody() bool {
	return r.Body != nil
}
