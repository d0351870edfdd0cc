package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/http/httpguts"

	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/nettrace"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/telemetry"
)

// Execute performs one HTTP call and always returns a Response. Transport
// failures come back as Status 0 with Failure set; nothing is retried.
func (c *Client) Execute(ctx context.Context, req restfile.ResolvedRequest) restfile.Response {
	resp, _ := c.execute(ctx, "", req)
	return resp
}

// ExecuteTraced is Execute plus the phase timeline of the call. The timeline
// is nil when the request was refused before reaching the network.
func (c *Client) ExecuteTraced(ctx context.Context, req restfile.ResolvedRequest) (restfile.Response, *nettrace.Timeline) {
	return c.execute(ctx, "", req)
}

func (c *Client) execute(
	ctx context.Context,
	name string,
	req restfile.ResolvedRequest,
) (resp restfile.Response, timeline *nettrace.Timeline) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	httpReq, failure := buildHTTPRequest(ctx, req)
	if failure != nil {
		return failed(start, failure), nil
	}

	spanCtx, span := c.telemetry.Start(ctx, telemetry.RequestStart{
		Name:        name,
		Request:     &req,
		HTTPRequest: httpReq,
	})
	session := newTraceSession()
	httpReq = session.bind(httpReq.WithContext(spanCtx))
	defer func() {
		timeline = session.complete()
		var budget *nettrace.Budget
		if !c.opts.Budget.IsZero() {
			budget = &c.opts.Budget
		}
		span.End(telemetry.RequestResult{
			StatusCode: resp.Status,
			Size:       resp.Size,
			Elapsed:    time.Duration(resp.Time) * time.Millisecond,
			Failure:    resp.Failure,
			Timeline:   timeline,
			Budget:     budget,
		})
	}()

	client, err := c.resolveHTTPFactory()(c.opts)
	if err != nil {
		session.fail(err)
		return failed(start, &restfile.Failure{
			Kind:    restfile.FailureUnknown,
			Message: errdef.Message(errdef.Wrap(errdef.CodeHTTP, err, "build http client")),
		}), nil
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		session.fail(err)
		return failed(start, classify(errdef.Wrap(errdef.CodeHTTP, err, "perform request"))), nil
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	raw, err := io.ReadAll(httpResp.Body)
	session.finishTransfer(err)
	if err != nil {
		f := classify(err)
		if f.Kind == restfile.FailureUnknown {
			f.Kind = restfile.FailureRead
		}
		f.Message = errdef.Message(errdef.Wrap(errdef.CodeHTTP, err, "read response body"))
		return failed(start, f), nil
	}

	return restfile.Response{
		Status:     httpResp.StatusCode,
		StatusText: statusText(httpResp),
		Headers:    collapseHeaders(httpResp.Header),
		Body:       decodeBody(raw),
		Time:       elapsedMillis(start),
		Size:       int64(len(raw)),
	}, nil
}

// buildHTTPRequest refuses what could never be sent: an empty or relative URL,
// a method that is not an HTTP token.
func buildHTTPRequest(ctx context.Context, req restfile.ResolvedRequest) (*http.Request, *restfile.Failure) {
	method := req.Method.String()
	if method == "" {
		method = http.MethodGet
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, &restfile.Failure{
			Kind:    restfile.FailureUnknown,
			Message: "invalid method " + strconv.Quote(method),
		}
	}

	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return nil, &restfile.Failure{
			Kind:    restfile.FailureInvalidURL,
			Message: errdef.Message(errdef.Wrap(errdef.CodeHTTP, err, "invalid url")),
		}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &restfile.Failure{
			Kind:    restfile.FailureInvalidURL,
			Message: "invalid url " + strconv.Quote(req.URL) + ": an absolute http(s) URL is required",
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(*req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &restfile.Failure{
			Kind:    restfile.FailureInvalidURL,
			Message: errdef.Message(errdef.Wrap(errdef.CodeHTTP, err, "build request")),
		}
	}
	httpReq.Header = req.Headers.HTTP()
	if host := req.Headers.Get("Host"); host != "" {
		httpReq.Host = host
	}
	return httpReq, nil
}

func failed(start time.Time, f *restfile.Failure) restfile.Response {
	if strings.TrimSpace(f.Message) == "" {
		f.Message = "Could not connect to the server."
	}
	return restfile.Response{
		Status:     0,
		StatusText: restfile.StatusTextFailed,
		Headers:    map[string]string{},
		Body:       restfile.TextBody(f.Message),
		Time:       elapsedMillis(start),
		Size:       0,
		Failure:    f,
	}
}

func elapsedMillis(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// collapseHeaders keys by canonical name and joins repeated values with ", ".
func collapseHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := http.CanonicalHeaderKey(k)
		value := strings.Join(h[k], ", ")
		if prev, ok := out[name]; ok {
			value = prev + ", " + value
		}
		out[name] = value
	}
	return out
}

// decodeBody returns the parsed JSON value when raw is valid JSON, else the
// raw text unchanged. Numbers stay json.Number so large integers survive.
func decodeBody(raw []byte) restfile.Body {
	if !gjson.ValidBytes(raw) {
		return restfile.TextBody(string(raw))
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return restfile.TextBody(string(raw))
	}
	return restfile.JSONBody(v)
}
