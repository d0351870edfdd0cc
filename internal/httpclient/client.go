package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/unkn0wn-root/daakiya/internal/nettrace"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/telemetry"
)

type Options struct {
	Timeout            time.Duration
	FollowRedirects    bool
	InsecureSkipVerify bool
	ProxyURL           string
	// Budget is reported on spans only; it never aborts a request.
	Budget nettrace.Budget
}

// DefaultOptions follows redirects and leaves timeouts to the caller's context.
func DefaultOptions() Options {
	return Options{FollowRedirects: true}
}

// Client carries no per-request state; one value may serve concurrent calls.
type Client struct {
	opts        Options
	httpFactory func(Options) (*http.Client, error)
	telemetry   telemetry.Instrumenter
}

func (c *Client) resolveHTTPFactory() func(Options) (*http.Client, error) {
	if c.httpFactory != nil {
		return c.httpFactory
	}
	return buildHTTPClient
}

func NewClient(opts Options) *Client {
	return &Client{opts: opts, httpFactory: buildHTTPClient, telemetry: telemetry.Noop()}
}

// SetHTTPFactory allows callers to override how http.Client instances are created.
// Passing nil restores the default factory.
func (c *Client) SetHTTPFactory(factory func(Options) (*http.Client, error)) {
	c.httpFactory = factory
}

// SetTelemetry configures the instrumenter used to emit OpenTelemetry spans. Passing nil restores the no-op implementation.
func (c *Client) SetTelemetry(instr telemetry.Instrumenter) {
	if instr == nil {
		instr = telemetry.Noop()
	}
	c.telemetry = instr
}

// Send resolves req against env and executes the result.
func (c *Client) Send(
	ctx context.Context,
	req restfile.Request,
	env []restfile.KeyValue,
) (restfile.ResolvedRequest, restfile.Response) {
	out := c.SendTraced(ctx, req, env)
	return out.Resolved, out.Response
}

// Outcome is one resolved and executed request.
type Outcome struct {
	Resolved restfile.ResolvedRequest
	Response restfile.Response
	Timeline *nettrace.Timeline
}

func (c *Client) SendTraced(ctx context.Context, req restfile.Request, env []restfile.KeyValue) Outcome {
	resolved := Resolve(req, env)
	resp, timeline := c.execute(ctx, req.Name, resolved)
	return Outcome{Resolved: resolved, Response: resp, Timeline: timeline}
}
