package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unkn0wn-root/daakiya/internal/errdef"
)

const (
	dialTimeout         = 30 * time.Second
	keepAlive           = 30 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	idleConnTimeout     = 90 * time.Second
)

// buildHTTPClient has no cookie jar and no cache: every execution is
// independent and reaches the network.
func buildHTTPClient(opts Options) (*http.Client, error) {
	proxy, err := proxyFunc(opts.ProxyURL)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		MaxIdleConns:          100,
		IdleConnTimeout:       idleConnTimeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{Transport: transport, Timeout: max(opts.Timeout, 0)}
	if !opts.FollowRedirects {
		client.CheckRedirect = stopRedirects
	}
	return client, nil
}

// proxyFunc prefers an explicit proxy and falls back to HTTP_PROXY and friends.
func proxyFunc(raw string) (func(*http.Request) (*url.URL, error), error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return http.ProxyFromEnvironment, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "parse proxy url")
	}
	return http.ProxyURL(u), nil
}

func stopRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}
