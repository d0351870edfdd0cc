package restfile

import (
	"bytes"
	"encoding/json"
)

const StatusTextFailed = "Request Failed"

type FailureKind string

const (
	FailureInvalidURL FailureKind = "invalid_url"
	FailureDNS        FailureKind = "dns"
	FailureConnection FailureKind = "connection"
	FailureTLS        FailureKind = "tls"
	FailureTimeout    FailureKind = "timeout"
	FailureCanceled   FailureKind = "canceled"
	FailureRead       FailureKind = "read"
	FailureUnknown    FailureKind = "unknown"
)

// Failure describes why no HTTP response could be obtained.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Response is the canonical outcome of an execution. Status 0 means the
// transport failed and Failure is set; Body then carries the message text.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Body       Body              `json:"body"`
	Time       int64             `json:"time"`
	Size       int64             `json:"size"`
	Failure    *Failure          `json:"failure,omitempty"`
}

func (r Response) Failed() bool {
	return r.Status == 0
}

// Body holds either a decoded JSON value or raw text, never both.
type Body struct {
	value  any
	text   string
	isJSON bool
}

func JSONBody(v any) Body {
	return Body{value: v, isJSON: true}
}

func TextBody(s string) Body {
	return Body{text: s}
}

func (b Body) IsJSON() bool {
	return b.isJSON
}

func (b Body) JSON() any {
	if !b.isJSON {
		return nil
	}
	return b.value
}

func (b Body) Text() string {
	if b.isJSON {
		return ""
	}
	return b.text
}

func (b Body) MarshalJSON() ([]byte, error) {
	if b.isJSON {
		return json.Marshal(b.value)
	}
	return json.Marshal(b.text)
}

// UnmarshalJSON treats a JSON string as raw text and anything else as a decoded value.
// A response whose body was itself a JSON string literal therefore reloads as text.
func (b *Body) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*b = TextBody(s)
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*b = JSONBody(v)
	return nil
}
