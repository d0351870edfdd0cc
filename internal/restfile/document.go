package restfile

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Document is a saved set of template requests, as written by the curl importer
// and read back by the send command.
type Document struct {
	Comment   string     `json:"comment,omitempty"`
	Variables []Variable `json:"variables,omitempty"`
	Requests  []Request  `json:"requests"`
}

// Find returns the first request whose ID or name equals key.
func (d *Document) Find(key string) (Request, bool) {
	if d == nil {
		return Request{}, false
	}
	key = strings.TrimSpace(key)
	for _, req := range d.Requests {
		if req.ID == key || req.Name == key {
			return req, true
		}
	}
	return Request{}, false
}

// DecodeRequests accepts a Document, a bare request array or a single request.
func DecodeRequests(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return &Document{Requests: []Request{}}, nil
	case trimmed[0] == '[':
		var reqs []Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return &Document{Requests: normalizeAll(reqs)}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["requests"]; ok {
		var doc Document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		doc.Requests = normalizeAll(doc.Requests)
		return &doc, nil
	}
	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return &Document{Requests: normalizeAll([]Request{req})}, nil
}

func normalizeAll(reqs []Request) []Request {
	out := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, req.normalized())
	}
	return out
}

// normalized fills what hand-written files tend to leave out.
func (r Request) normalized() Request {
	if m, _ := ParseMethod(string(r.Method)); m != "" {
		r.Method = m
	} else {
		r.Method = MethodGet
	}
	if r.Headers == nil {
		r.Headers = []KeyValue{}
	}
	if r.Params == nil {
		r.Params = []KeyValue{}
	}
	for i := range r.Headers {
		if r.Headers[i].ID == "" {
			r.Headers[i].ID = NewID()
		}
	}
	for i := range r.Params {
		if r.Params[i].ID == "" {
			r.Params[i].ID = NewID()
		}
	}
	return r
}
