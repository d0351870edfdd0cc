package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"

	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

// classify maps a transport error onto a failure kind. The message is the
// error text as is.
func classify(err error) *restfile.Failure {
	return &restfile.Failure{Kind: failureKind(err), Message: errdef.Message(err)}
}

func failureKind(err error) restfile.FailureKind {
	switch {
	case err == nil:
		return restfile.FailureUnknown
	case errors.Is(err, context.Canceled):
		return restfile.FailureCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return restfile.FailureTimeout
	case isDNS(err):
		return restfile.FailureDNS
	case isTLS(err):
		return restfile.FailureTLS
	case isTimeout(err):
		return restfile.FailureTimeout
	case isConn(err):
		return restfile.FailureConnection
	default:
		return restfile.FailureUnknown
	}
}

func isDNS(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isTLS(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		authority   x509.UnknownAuthorityError
		hostname    x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalidCert)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConn(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
