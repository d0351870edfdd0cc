package restfile

import "testing"

func TestDecodeRequestsShapes(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"document": `{"comment":"c","requests":[{"name":"a","method":"post","url":"https://x"}]}`,
		"array":    `[{"name":"a","method":"post","url":"https://x"}]`,
		"single":   `{"name":"a","method":"post","url":"https://x"}`,
	}
	for name, src := range cases {
		doc, err := DecodeRequests([]byte(src))
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if len(doc.Requests) != 1 {
			t.Fatalf("%s: expected 1 request, got %d", name, len(doc.Requests))
		}
		req := doc.Requests[0]
		if req.Method != MethodPost || req.URL != "https://x" {
			t.Fatalf("%s: unexpected request %+v", name, req)
		}
		if req.Headers == nil || req.Params == nil {
			t.Fatalf("%s: expected non-nil entry slices", name)
		}
	}
}

func TestDecodeRequestsDefaults(t *testing.T) {
	t.Parallel()

	doc, err := DecodeRequests([]byte(`{"url":"https://x","headers":[{"key":"A","value":"1"},{"key":"B","value":"2","enabled":false}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	req := doc.Requests[0]
	if req.Method != MethodGet {
		t.Fatalf("expected GET default, got %s", req.Method)
	}
	if !req.Headers[0].Enabled || req.Headers[1].Enabled {
		t.Fatalf("unexpected enabled flags %+v", req.Headers)
	}
	if req.Headers[0].ID == "" || req.Headers[0].ID == req.Headers[1].ID {
		t.Fatalf("expected fresh distinct ids, got %+v", req.Headers)
	}
}

func TestDocumentFind(t *testing.T) {
	t.Parallel()

	doc := &Document{Requests: []Request{{ID: "1", Name: "list"}, {ID: "2", Name: "create"}}}
	if req, ok := doc.Find("create"); !ok || req.ID != "2" {
		t.Fatalf("find by name failed: %+v", req)
	}
	if req, ok := doc.Find("1"); !ok || req.Name != "list" {
		t.Fatalf("find by id failed: %+v", req)
	}
	if _, ok := doc.Find("missing"); ok {
		t.Fatalf("expected miss")
	}
	var nilDoc *Document
	if _, ok := nilDoc.Find("x"); ok {
		t.Fatalf("expected miss on nil document")
	}
}
