// Package collection imports test-collection documents and maps their cases to
// template requests. Nothing here is executed or substituted.
package collection

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

type Collection struct {
	Name        string     `json:"collection_name"`
	Description string     `json:"description,omitempty"`
	BaseURL     string     `json:"base_url,omitempty"`
	Tests       []TestCase `json:"tests"`
}

// Field is one header or query entry. Value is the scalar as text; numbers
// keep their literal spelling.
type Field struct {
	Key   string
	Value string
}

// Fields keeps the entries of a JSON object in document order.
type Fields []Field

func (f *Fields) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errdef.New(errdef.CodeParse, "invalid fields object")
	}
	root := gjson.ParseBytes(data)
	switch {
	case root.Type == gjson.Null:
		*f = nil
		return nil
	case !root.IsObject():
		return errdef.New(errdef.CodeParse, "fields must be an object, got %s", root.Type)
	}
	out := Fields{}
	root.ForEach(func(key, value gjson.Result) bool {
		out = append(out, Field{Key: key.String(), Value: fieldText(value)})
		return true
	})
	*f = out
	return nil
}

func fieldText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}

type TestCase struct {
	Name             string          `json:"name"`
	Method           string          `json:"method"`
	Endpoint         string          `json:"endpoint"`
	Headers          Fields          `json:"headers,omitempty"`
	QueryParams      Fields          `json:"query_params,omitempty"`
	Body             json.RawMessage `json:"body,omitempty"`
	ExpectedStatus   int             `json:"expected_status,omitempty"`
	ExpectedResponse json.RawMessage `json:"expected_response,omitempty"`
	Assertions       []Assertion     `json:"assertions,omitempty"`
}

// Assertion is carried for a separate runner; the importer does not evaluate it.
type Assertion struct {
	Type     string          `json:"type"`
	Path     string          `json:"path"`
	Expected json.RawMessage `json:"expected,omitempty"`
}

func LoadFile(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read collection %s", path)
	}
	return Parse(data)
}

// Parse validates data against the collection schema and decodes it.
func Parse(data []byte) (*Collection, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "compile collection schema")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "decode collection")
	}
	if !result.Valid() {
		return nil, errdef.New(errdef.CodeParse, "invalid collection: %s", describe(result.Errors()))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var col Collection
	if err := dec.Decode(&col); err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "decode collection")
	}
	return &col, nil
}

func describe(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field()+": "+e.Description())
	}
	return strings.Join(parts, "; ")
}

// Requests maps every test case, in order. ids may be nil.
func Requests(col *Collection, ids restfile.IDSource) []restfile.Request {
	if col == nil {
		return nil
	}
	if ids == nil {
		ids = restfile.NewID
	}
	out := make([]restfile.Request, 0, len(col.Tests))
	for _, tc := range col.Tests {
		out = append(out, ToRequest(col.BaseURL, tc, ids))
	}
	return out
}

// ToRequest builds the template for one case: base URL and endpoint are
// concatenated as is, fields become enabled entries in document order, and a
// non-string body is pretty-printed.
func ToRequest(baseURL string, tc TestCase, ids restfile.IDSource) restfile.Request {
	method, ok := restfile.ParseMethod(tc.Method)
	if !ok {
		method = restfile.MethodGet
	}
	return restfile.Request{
		ID:      ids(),
		Name:    tc.Name,
		Method:  method,
		URL:     baseURL + tc.Endpoint,
		Headers: entries(tc.Headers, ids),
		Params:  entries(tc.QueryParams, ids),
		Body:    bodyText(tc.Body),
	}
}

func entries(f Fields, ids restfile.IDSource) []restfile.KeyValue {
	out := make([]restfile.KeyValue, 0, len(f))
	for _, field := range f {
		out = append(out, restfile.KeyValue{ID: ids(), Key: field.Key, Value: field.Value, Enabled: true})
	}
	return out
}

func bodyText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
