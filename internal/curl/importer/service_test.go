package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/restwriter"
)

type memWriter struct {
	doc  *restfile.Document
	dst  string
	opts restwriter.Options
}

func (w *memWriter) WriteDocument(_ context.Context, doc *restfile.Document, dst string, opts restwriter.Options) error {
	w.doc, w.dst, w.opts = doc, dst, opts
	return nil
}

func TestBuildDocumentMultipleCommands(t *testing.T) {
	src := `curl https://api.example.com/a -H 'X-Test: 1' -u user:pass -k
curl -X DELETE https://api.example.com/b
curl ftp://files.example.com`

	doc, warn := BuildDocument(src)
	if len(doc.Requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(doc.Requests))
	}
	first := doc.Requests[0]
	if first.Method != restfile.MethodGet || first.URL != "https://api.example.com/a" {
		t.Fatalf("unexpected first request %+v", first)
	}
	if first.ID == "" || first.Name != "1 GET https://api.example.com/a" {
		t.Fatalf("expected id and name, got %q %q", first.ID, first.Name)
	}
	if doc.Requests[1].Method != restfile.MethodDelete {
		t.Fatalf("unexpected second method %s", doc.Requests[1].Method)
	}

	joined := strings.Join(warn, "\n")
	for _, want := range []string{"command 1: unsupported flag -u", "command 1: unsupported flag -k", "command 3: no http(s) URL"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing warning %q in %v", want, warn)
		}
	}
	for i := 1; i < len(warn); i++ {
		if warn[i-1] >= warn[i] {
			t.Fatalf("warnings not sorted/unique: %v", warn)
		}
	}
}

func TestImportWritesHeader(t *testing.T) {
	w := &memWriter{}
	svc := &Service{Writer: w}

	doc, _, err := svc.Import(context.Background(), "curl https://x.test -s", "out.json", restwriter.Options{HeaderComment: "imported"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if w.doc != doc || w.dst != "out.json" {
		t.Fatalf("writer not called with document")
	}
	want := "imported\nSource:\ncurl https://x.test -s\nWarning: command 1: unsupported flag -s (ignored)"
	if w.opts.HeaderComment != want {
		t.Fatalf("unexpected header:\n%s", w.opts.HeaderComment)
	}
}

func TestImportErrors(t *testing.T) {
	if _, _, err := (&Service{}).Import(context.Background(), "curl https://x", "o", restwriter.Options{}); err == nil {
		t.Fatalf("expected error without writer")
	}
	if _, _, err := (&Service{Writer: &memWriter{}}).Import(context.Background(), "echo hi", "o", restwriter.Options{}); err == nil {
		t.Fatalf("expected error when nothing parses")
	}
}

func TestFileWriterPersists(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "reqs.json")
	svc := &Service{Writer: NewFileWriter()}
	if _, _, err := svc.Import(context.Background(), "curl -d x https://x.test", dst, restwriter.Options{}); err != nil {
		t.Fatalf("import: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc, err := restfile.DecodeRequests(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Requests) != 1 || doc.Requests[0].Method != restfile.MethodPost || doc.Requests[0].Body != "x" {
		t.Fatalf("unexpected persisted document %+v", doc.Requests)
	}
	if !strings.HasPrefix(doc.Comment, "Source:") {
		t.Fatalf("expected source comment, got %q", doc.Comment)
	}
}
