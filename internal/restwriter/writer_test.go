package restwriter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

func TestRenderUsesHeaderComment(t *testing.T) {
	doc := &restfile.Document{Comment: "old"}

	out, err := Render(doc, Options{HeaderComment: "Source:\ncurl https://x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `"comment": "Source:\ncurl https://x"`) {
		t.Fatalf("expected header comment in output: %s", out)
	}
	if !strings.Contains(string(out), `"requests": []`) {
		t.Fatalf("expected empty requests array: %s", out)
	}
	if doc.Comment != "old" {
		t.Fatalf("render must not mutate the document")
	}
}

func TestWriteDocumentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "requests.json")
	req := restfile.NewRequest()
	req.Name = "ping"
	req.URL = "https://example.com/ping"
	doc := &restfile.Document{Requests: []restfile.Request{req}}

	if err := WriteDocument(context.Background(), doc, dst, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	back, err := restfile.DecodeRequests(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, ok := back.Find("ping"); !ok || got.URL != req.URL || got.ID != req.ID {
		t.Fatalf("unexpected round trip %+v", back.Requests)
	}

	if err := WriteDocument(context.Background(), doc, dst, Options{}); err == nil {
		t.Fatalf("expected error when destination exists")
	}
	if err := WriteDocument(context.Background(), doc, dst, Options{OverwriteExisting: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestWriteDocumentRejectsBadInput(t *testing.T) {
	if err := WriteDocument(context.Background(), nil, "x.json", Options{}); err == nil {
		t.Fatalf("expected error for nil document")
	}
	if err := WriteDocument(context.Background(), &restfile.Document{}, "  ", Options{}); err == nil {
		t.Fatalf("expected error for empty destination")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := filepath.Join(t.TempDir(), "out.json")
	if err := WriteDocument(ctx, &restfile.Document{}, dst, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
