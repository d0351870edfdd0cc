package httpclient

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/unkn0wn-root/daakiya/internal/nettrace"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/telemetry"
)

func strPtr(s string) *string {
	return &s
}

func TestExecuteJSONBody(t *testing.T) {
	raw := `{"n": 12345678901234567890, "items": [1, 2]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		_, _ = io.WriteString(w, raw)
	}))
	defer srv.Close()

	resp := NewClient(DefaultOptions()).Execute(context.Background(), restfile.ResolvedRequest{
		Method: restfile.MethodGet,
		URL:    srv.URL,
	})
	if resp.Status != http.StatusOK || resp.StatusText != "OK" {
		t.Fatalf("unexpected status %d %q", resp.Status, resp.StatusText)
	}
	if resp.Failure != nil {
		t.Fatalf("unexpected failure %+v", resp.Failure)
	}
	if resp.Size != int64(len(raw)) {
		t.Fatalf("expected size %d, got %d", len(raw), resp.Size)
	}
	if resp.Time < 0 {
		t.Fatalf("negative time %d", resp.Time)
	}
	if !resp.Body.IsJSON() {
		t.Fatalf("expected parsed json body")
	}
	m, ok := resp.Body.JSON().(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", resp.Body.JSON())
	}
	if n, ok := m["n"].(json.Number); !ok || n.String() != "12345678901234567890" {
		t.Fatalf("expected exact json number, got %#v", m["n"])
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Fatalf("unexpected content type %q", resp.Headers["Content-Type"])
	}
	if resp.Headers["X-Multi"] != "a, b" {
		t.Fatalf("expected joined header values, got %q", resp.Headers["X-Multi"])
	}
}

func TestExecuteInvalidJSONKeptVerbatim(t *testing.T) {
	for _, raw := range []string{`{"a":`, "plain text\n", ""} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, raw)
		}))
		resp := NewClient(DefaultOptions()).Execute(context.Background(), restfile.ResolvedRequest{
			Method: restfile.MethodGet,
			URL:    srv.URL,
		})
		srv.Close()

		if resp.Body.IsJSON() {
			t.Fatalf("%q: expected text body", raw)
		}
		if resp.Body.Text() != raw {
			t.Fatalf("expected raw text %q, got %q", raw, resp.Body.Text())
		}
		if resp.Size != int64(len(raw)) {
			t.Fatalf("%q: unexpected size %d", raw, resp.Size)
		}
	}
}

func TestExecuteUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := srv.URL
	srv.Close()

	resp := NewClient(DefaultOptions()).Execute(context.Background(), restfile.ResolvedRequest{
		Method: restfile.MethodGet,
		URL:    target,
	})
	if resp.Status != 0 || resp.Size != 0 || resp.Time < 0 {
		t.Fatalf("unexpected failure response %+v", resp)
	}
	if resp.StatusText != restfile.StatusTextFailed {
		t.Fatalf("unexpected status text %q", resp.StatusText)
	}
	if resp.Headers == nil || len(resp.Headers) != 0 {
		t.Fatalf("expected empty headers, got %#v", resp.Headers)
	}
	if resp.Body.IsJSON() || strings.TrimSpace(resp.Body.Text()) == "" {
		t.Fatalf("expected failure message body, got %+v", resp.Body)
	}
	if resp.Failure == nil || resp.Failure.Kind != restfile.FailureConnection {
		t.Fatalf("expected connection failure, got %+v", resp.Failure)
	}
}

func TestExecuteInvalidURL(t *testing.T) {
	for _, target := range []string{"", "not a url", "/relative", "{{base}}/x", "http://[::1"} {
		resp := NewClient(DefaultOptions()).Execute(context.Background(), restfile.ResolvedRequest{
			Method: restfile.MethodGet,
			URL:    target,
		})
		if resp.Status != 0 || resp.Failure == nil || resp.Failure.Kind != restfile.FailureInvalidURL {
			t.Fatalf("%q: expected invalid url failure, got %+v", target, resp)
		}
		if resp.Body.Text() == "" {
			t.Fatalf("%q: expected message", target)
		}
	}
}

func TestExecuteInvalidMethod(t *testing.T) {
	resp := NewClient(DefaultOptions()).Execute(context.Background(), restfile.ResolvedRequest{
		Method: "BAD METHOD",
		URL:    "http://127.0.0.1:1",
	})
	if resp.Status != 0 || resp.Failure == nil || !strings.Contains(resp.Body.Text(), "invalid method") {
		t.Fatalf("expected invalid method failure, got %+v", resp)
	}
}

func TestExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond
	resp := NewClient(opts).Execute(context.Background(), restfile.ResolvedRequest{
		Method: restfile.MethodGet,
		URL:    srv.URL,
	})
	if resp.Status != 0 || resp.Failure == nil || resp.Failure.Kind != restfile.FailureTimeout {
		t.Fatalf("expected timeout failure, got %+v", resp.Failure)
	}
	if resp.Time < 40 {
		t.Fatalf("expected elapsed time up to the failure, got %dms", resp.Time)
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := NewClient(DefaultOptions()).Execute(ctx, restfile.ResolvedRequest{
		Method: restfile.MethodGet,
		URL:    srv.URL,
	})
	if resp.Failure == nil || resp.Failure.Kind != restfile.FailureCanceled {
		t.Fatalf("expected canceled failure, got %+v", resp.Failure)
	}
}

func TestExecuteSendsHeadersAndBody(t *testing.T) {
	type seen struct {
		Method string
		Query  string
		Accept []string
		Host   string
		Body   string
		Length int64
	}
	var got seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = seen{
			Method: r.Method,
			Query:  r.URL.RawQuery,
			Accept: r.Header.Values("Accept"),
			Host:   r.Host,
			Body:   string(b),
			Length: r.ContentLength,
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp := NewClient(DefaultOptions()).Execute(context.Background(), restfile.ResolvedRequest{
		Method: restfile.MethodPost,
		URL:    srv.URL + "/items?a=1",
		Headers: restfile.HeaderList{
			{Name: "Accept", Value: "text/plain"},
			{Name: "Accept", Value: "application/json"},
			{Name: "Host", Value: "virtual.test"},
		},
		Body: strPtr(`{"broken": `),
	})
	if resp.Status != http.StatusCreated || resp.StatusText != "Created" {
		t.Fatalf("unexpected status %d %q", resp.Status, resp.StatusText)
	}
	if got.Method != "POST" || got.Query != "a=1" || got.Host != "virtual.test" {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Accept) != 2 || got.Accept[0] != "text/plain" || got.Accept[1] != "application/json" {
		t.Fatalf("expected both accept headers in order, got %v", got.Accept)
	}
	if got.Body != `{"broken": ` {
		t.Fatalf("expected body sent verbatim, got %q", got.Body)
	}
	if resp.Size != 0 || resp.Body.Text() != "" {
		t.Fatalf("expected empty response body, got %+v", resp)
	}
}

func TestExecuteGetWithoutBody(t *testing.T) {
	var length int64 = -2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		length = r.ContentLength
	}))
	defer srv.Close()

	NewClient(DefaultOptions()).Execute(context.Background(), restfile.ResolvedRequest{
		Method: restfile.MethodGet,
		URL:    srv.URL,
	})
	if length != 0 {
		t.Fatalf("expected no request body, got content length %d", length)
	}
}

func TestExecuteRedirectPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		_, _ = io.WriteString(w, "moved here")
	}))
	defer srv.Close()

	req := restfile.ResolvedRequest{Method: restfile.MethodGet, URL: srv.URL + "/old"}
	if resp := NewClient(DefaultOptions()).Execute(context.Background(), req); resp.Status != http.StatusOK ||
		resp.Body.Text() != "moved here" {
		t.Fatalf("expected redirect to be followed, got %d %q", resp.Status, resp.Body.Text())
	}
	resp := NewClient(Options{FollowRedirects: false}).Execute(context.Background(), req)
	if resp.Status != http.StatusFound || resp.Headers["Location"] != "/new" {
		t.Fatalf("expected 302 with location, got %d %v", resp.Status, resp.Headers)
	}
}

func TestExecuteFactoryError(t *testing.T) {
	client := NewClient(DefaultOptions())
	client.SetHTTPFactory(func(Options) (*http.Client, error) {
		return nil, errors.New("boom")
	})
	resp := client.Execute(context.Background(), restfile.ResolvedRequest{
		Method: restfile.MethodGet,
		URL:    "http://127.0.0.1:1",
	})
	if resp.Status != 0 || !strings.Contains(resp.Body.Text(), "boom") {
		t.Fatalf("expected factory error in failure, got %+v", resp)
	}

	client.SetHTTPFactory(nil)
	if client.resolveHTTPFactory() == nil {
		t.Fatalf("expected default factory after reset")
	}
}

func TestBuildHTTPClientRejectsBadProxy(t *testing.T) {
	if _, err := buildHTTPClient(Options{ProxyURL: "http://[::1"}); err == nil {
		t.Fatalf("expected proxy parse error")
	}
	c, err := buildHTTPClient(Options{Timeout: time.Second, InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.Timeout != time.Second || c.Jar != nil {
		t.Fatalf("unexpected client %+v", c)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure tls config")
	}
}

func TestSendResolvesThenExecutes(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	defer srv.Close()

	req := restfile.Request{
		Name:    "get user",
		Method:  restfile.MethodGet,
		URL:     "{{base}}/users/{{id}}",
		Headers: []restfile.KeyValue{kv("Authorization", "Bearer {{token}}")},
		Params:  []restfile.KeyValue{kv("id", "42"), kv("expand", "true")},
		Body:    "ignored for GET",
	}
	env := []restfile.KeyValue{kv("base", srv.URL), kv("token", "t0k")}

	recorder := tracetest.NewSpanRecorder()
	inst, err := telemetry.New(telemetry.Config{}, telemetry.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	defer func() { _ = inst.Shutdown(context.Background()) }()

	client := NewClient(DefaultOptions())
	client.SetTelemetry(inst)
	resolved, resp := client.Send(context.Background(), req, env)

	if resolved.URL != srv.URL+"/users/42?expand=true" || resolved.Body != nil {
		t.Fatalf("unexpected resolved request %+v", resolved)
	}
	if gotPath != "/users/42" || gotQuery != "expand=true" || gotAuth != "Bearer t0k" {
		t.Fatalf("server saw path=%q query=%q auth=%q", gotPath, gotQuery, gotAuth)
	}
	if resp.Status != http.StatusOK || !resp.Body.IsJSON() {
		t.Fatalf("unexpected response %+v", resp)
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "get user" {
		t.Fatalf("expected one span named after the request, got %d", len(spans))
	}
}

func TestSendTracedRecordsPhases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}))
	defer srv.Close()

	recorder := tracetest.NewSpanRecorder()
	inst, err := telemetry.New(telemetry.Config{}, telemetry.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	defer func() { _ = inst.Shutdown(context.Background()) }()

	opts := DefaultOptions()
	opts.Budget = nettrace.Budget{Total: time.Nanosecond}
	client := NewClient(opts)
	client.SetTelemetry(inst)

	out := client.SendTraced(context.Background(), restfile.Request{Method: restfile.MethodGet, URL: srv.URL}, nil)
	if out.Response.Status != http.StatusOK || out.Response.Body.Text() != "pong" {
		t.Fatalf("unexpected response %+v", out.Response)
	}
	if out.Timeline == nil {
		t.Fatalf("expected a timeline")
	}
	seen := map[nettrace.PhaseKind]bool{}
	for _, phase := range out.Timeline.Phases {
		seen[phase.Kind] = true
	}
	for _, kind := range []nettrace.PhaseKind{nettrace.PhaseConnect, nettrace.PhaseTTFB, nettrace.PhaseTransfer} {
		if !seen[kind] {
			t.Fatalf("expected %s phase in %+v", kind, out.Timeline.Phases)
		}
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	var breached bool
	for _, ev := range spans[0].Events() {
		if ev.Name == "daakiya.trace.budget_breach" {
			breached = true
		}
	}
	if !breached {
		t.Fatalf("expected budget breach event on span")
	}
}

func TestExecuteTracedNoTimelineForRefusedRequest(t *testing.T) {
	client := NewClient(DefaultOptions())
	resp, tl := client.ExecuteTraced(context.Background(), restfile.ResolvedRequest{URL: "/relative"})
	if resp.Failure == nil || resp.Failure.Kind != restfile.FailureInvalidURL || tl != nil {
		t.Fatalf("expected invalid url without timeline, got %+v %+v", resp, tl)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFailureKind(t *testing.T) {
	wrap := func(err error) error {
		return &url.Error{Op: "Get", URL: "http://x", Err: err}
	}
	cases := []struct {
		err  error
		want restfile.FailureKind
	}{
		{wrap(&net.DNSError{Err: "no such host", Name: "x"}), restfile.FailureDNS},
		{wrap(&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}), restfile.FailureConnection},
		{wrap(x509.UnknownAuthorityError{}), restfile.FailureTLS},
		{wrap(x509.HostnameError{Host: "x"}), restfile.FailureTLS},
		{wrap(timeoutErr{}), restfile.FailureTimeout},
		{wrap(context.Canceled), restfile.FailureCanceled},
		{wrap(context.DeadlineExceeded), restfile.FailureTimeout},
		{errors.New("odd"), restfile.FailureUnknown},
		{nil, restfile.FailureUnknown},
	}
	for _, tc := range cases {
		if got := failureKind(tc.err); got != tc.want {
			t.Fatalf("%v: expected %s, got %s", tc.err, tc.want, got)
		}
	}
}
