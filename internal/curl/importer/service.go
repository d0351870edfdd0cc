package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/unkn0wn-root/daakiya/internal/curl"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/restwriter"
	"github.com/unkn0wn-root/daakiya/internal/util"
)

const errWriterNotConfigured = "curlimport: writer not configured"

type DocumentWriter interface {
	WriteDocument(ctx context.Context, doc *restfile.Document, dst string, opts restwriter.Options) error
}

// WriterFunc adapts a plain function to DocumentWriter.
type WriterFunc func(ctx context.Context, doc *restfile.Document, dst string, opts restwriter.Options) error

func (f WriterFunc) WriteDocument(ctx context.Context, doc *restfile.Document, dst string, opts restwriter.Options) error {
	return f(ctx, doc, dst, opts)
}

// NewFileWriter writes documents atomically to disk.
func NewFileWriter() WriterFunc {
	return restwriter.WriteDocument
}

// Service turns pasted curl text into a saved request document.
type Service struct {
	Writer DocumentWriter
}

// Import parses every curl command in src and writes the requests to dst.
// It returns the document and the sorted, de-duplicated warnings.
func (s *Service) Import(
	ctx context.Context,
	src, dst string,
	opts restwriter.Options,
) (*restfile.Document, []string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Writer == nil {
		return nil, nil, errors.New(errWriterNotConfigured)
	}

	doc, warn := BuildDocument(src)
	if len(doc.Requests) == 0 {
		return nil, warn, fmt.Errorf("curlimport: no curl command found")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	opts.HeaderComment = buildHeader(opts.HeaderComment, src, warn)
	if err := s.Writer.WriteDocument(ctx, doc, dst, opts); err != nil {
		return nil, nil, err
	}
	return doc, warn, nil
}

// BuildDocument parses src without writing anything. Commands that yield no
// URL are dropped; their warnings are kept.
func BuildDocument(src string) (*restfile.Document, []string) {
	reqs := []restfile.Request{}
	var warn []string
	for i, res := range curl.ParseCommands(src) {
		for _, w := range res.Warnings {
			warn = append(warn, fmt.Sprintf("command %d: %s", i+1, w))
		}
		if res.Request.URL == "" {
			warn = append(warn, fmt.Sprintf("command %d: no http(s) URL, skipped", i+1))
			continue
		}
		req := res.Request
		req.ID = restfile.NewID()
		req.Name = requestName(req, i+1)
		reqs = append(reqs, req)
	}
	return &restfile.Document{Requests: reqs}, uniqSorted(warn)
}

func requestName(req restfile.Request, n int) string {
	return fmt.Sprintf("%d %s %s", n, req.Method, req.URL)
}

func buildHeader(base, src string, warn []string) string {
	var lines []string
	lines = appendLines(lines, base)
	lines = append(lines, sourceLines(src)...)
	for _, w := range warn {
		if t := strings.TrimSpace(w); t != "" {
			lines = append(lines, "Warning: "+t)
		}
	}
	return strings.Join(lines, "\n")
}

func appendLines(lines []string, raw string) []string {
	for _, line := range strings.Split(raw, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

func sourceLines(src string) []string {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}
	parts := strings.Split(src, "\n")
	out := make([]string, 0, len(parts)+1)
	out = append(out, "Source:")
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func uniqSorted(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return util.DedupeSortedStrings(out)
}
