package httpclient

import (
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/unkn0wn-root/daakiya/internal/nettrace"
)

// traceSession maps httptrace callbacks onto collector phases for one call.
type traceSession struct {
	collector *nettrace.Collector

	mu           sync.Mutex
	bodyOpen     bool
	ttfbOpen     bool
	transferOpen bool
}

func newTraceSession() *traceSession {
	return &traceSession{collector: nettrace.NewCollector()}
}

func (s *traceSession) bind(req *http.Request) *http.Request {
	trace := &httptrace.ClientTrace{
		DNSStart:             s.onDNSStart,
		DNSDone:              s.onDNSDone,
		ConnectStart:         s.onConnectStart,
		ConnectDone:          s.onConnectDone,
		GotConn:              s.onGotConn,
		TLSHandshakeStart:    s.onTLSHandshakeStart,
		TLSHandshakeDone:     s.onTLSHandshakeDone,
		WroteHeaders:         s.onWroteHeaders,
		WroteRequest:         s.onWroteRequest,
		GotFirstResponseByte: s.onGotFirstResponseByte,
	}
	return req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
}

func (s *traceSession) onDNSStart(info httptrace.DNSStartInfo) {
	s.collector.Begin(nettrace.PhaseDNS, time.Now())
	s.collector.Annotate(nettrace.PhaseDNS, func(meta *nettrace.PhaseMeta) {
		meta.Addr = info.Host
	})
}

func (s *traceSession) onDNSDone(info httptrace.DNSDoneInfo) {
	s.collector.Annotate(nettrace.PhaseDNS, func(meta *nettrace.PhaseMeta) {
		if len(info.Addrs) > 0 {
			meta.Addr = info.Addrs[0].String()
		}
		meta.Cached = info.Coalesced
	})
	s.collector.End(nettrace.PhaseDNS, time.Now(), info.Err)
	s.collector.Fail(info.Err)
}

func (s *traceSession) onConnectStart(_, addr string) {
	s.collector.Begin(nettrace.PhaseConnect, time.Now())
	s.collector.Annotate(nettrace.PhaseConnect, func(meta *nettrace.PhaseMeta) {
		meta.Addr = addr
	})
}

func (s *traceSession) onConnectDone(_, _ string, err error) {
	s.collector.End(nettrace.PhaseConnect, time.Now(), err)
	s.collector.Fail(err)
}

// onGotConn records a zero-length connect phase for a pooled connection.
func (s *traceSession) onGotConn(info httptrace.GotConnInfo) {
	if !info.Reused {
		return
	}
	now := time.Now()
	s.collector.Begin(nettrace.PhaseConnect, now)
	s.collector.Annotate(nettrace.PhaseConnect, func(meta *nettrace.PhaseMeta) {
		meta.Reused = true
		if info.Conn != nil {
			meta.Addr = info.Conn.RemoteAddr().String()
		}
	})
	s.collector.End(nettrace.PhaseConnect, now, nil)
}

func (s *traceSession) onTLSHandshakeStart() {
	s.collector.Begin(nettrace.PhaseTLS, time.Now())
}

func (s *traceSession) onTLSHandshakeDone(_ tls.ConnectionState, err error) {
	s.collector.End(nettrace.PhaseTLS, time.Now(), err)
	s.collector.Fail(err)
}

func (s *traceSession) onWroteHeaders() {
	now := time.Now()
	s.collector.Begin(nettrace.PhaseReqHdrs, now)
	s.collector.End(nettrace.PhaseReqHdrs, now, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bodyOpen {
		s.bodyOpen = true
		s.collector.Begin(nettrace.PhaseReqBody, now)
	}
}

func (s *traceSession) onWroteRequest(info httptrace.WroteRequestInfo) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bodyOpen {
		s.bodyOpen = false
		s.collector.End(nettrace.PhaseReqBody, now, info.Err)
	}
	if info.Err != nil {
		s.collector.Fail(info.Err)
		return
	}
	if !s.ttfbOpen {
		s.ttfbOpen = true
		s.collector.Begin(nettrace.PhaseTTFB, now)
	}
}

func (s *traceSession) onGotFirstResponseByte() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttfbOpen {
		s.ttfbOpen = false
		s.collector.End(nettrace.PhaseTTFB, now, nil)
	}
	if !s.transferOpen {
		s.transferOpen = true
		s.collector.Begin(nettrace.PhaseTransfer, now)
	}
}

func (s *traceSession) finishTransfer(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.transferOpen {
		return
	}
	s.transferOpen = false
	s.collector.End(nettrace.PhaseTransfer, time.Now(), err)
	s.collector.Fail(err)
}

func (s *traceSession) fail(err error) {
	s.collector.Fail(err)
}

func (s *traceSession) complete() *nettrace.Timeline {
	s.collector.Complete(time.Now())
	return s.collector.Timeline()
}
