package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// DefaultMaxResponseBytes caps the size of a response body read from the
// wire.
const DefaultMaxResponseBytes = 10 << 20

// Request is one call handed to a Transport.
type Request struct {
	Operation  *wsdl.Operation
	Args       map[string]string
	Credential Credential
}

// Exchange is the wire-level record of a round trip.
type Exchange struct {
	RawRequest  string
	RawResponse string
	StatusCode  int
	ContentType string
}

// Transport performs one SOAP round trip. Credentials are applied here, at
// the transport boundary.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Exchange, error)
}

// HTTPTransport sends envelopes over HTTP(S).
type HTTPTransport struct {
	client   *http.Client
	maxBytes int64
	now      func() time.Time
}

// NewHTTPTransport creates a transport whose requests time out after timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return NewHTTPTransportWithClient(&http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewHTTPTransportWithClient creates a transport backed by a pre-built client.
func NewHTTPTransportWithClient(client *http.Client) *HTTPTransport {
	return &HTTPTransport{client: client, maxBytes: DefaultMaxResponseBytes, now: time.Now}
}

// RoundTrip implements Transport. Non-2xx responses are returned as an
// Exchange, not an error; only failures to complete the exchange are errors.
func (t *HTTPTransport) RoundTrip(ctx context.Context, r *Request) (*Exchange, error) {
	op := r.Operation
	if op.Endpoint == "" {
		return nil, fmt.Errorf("operation %q has no endpoint address", op.Name)
	}

	body, err := BuildEnvelope(op, r.Args, r.Credential, t.now())
	if err != nil {
		return nil, fmt.Errorf("build envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, op.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if op.Version == wsdl.SOAP12 {
		ct := "application/soap+xml; charset=utf-8"
		if op.SOAPAction != "" {
			ct += fmt.Sprintf("; action=%q", op.SOAPAction)
		}
		req.Header.Set("Content-Type", ct)
	} else {
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", fmt.Sprintf("%q", op.SOAPAction))
	}
	if basic, ok := r.Credential.(BasicAuth); ok {
		req.SetBasicAuth(basic.Username, basic.Password)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > t.maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", t.maxBytes)
	}

	return &Exchange{
		RawRequest:  string(body),
		RawResponse: string(raw),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
