package soap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// Result is the outcome of a successful call.
type Result struct {
	// Value is the decoded response payload: a string for a leaf element,
	// otherwise a map of child elements.
	Value       any    `json:"value"`
	RawRequest  string `json:"rawRequest"`
	RawResponse string `json:"rawResponse"`
}

// Client dispatches operations through a Transport and classifies failures.
type Client struct {
	transport Transport
	logger    *slog.Logger
}

// NewClient creates a Client. A nil logger discards log output.
func NewClient(t Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{transport: t, logger: logger}
}

// Call invokes op with args. Failures are *InvocationError values matching
// ErrTransport, ErrRemoteFault or ErrAuth.
func (c *Client) Call(ctx context.Context, op *wsdl.Operation, args map[string]string, cred Credential) (*Result, error) {
	ex, err := c.transport.RoundTrip(ctx, &Request{Operation: op, Args: args, Credential: cred})
	if err != nil {
		return nil, &InvocationError{Kind: KindTransport, Operation: op.Name, Err: err}
	}

	fail := func(kind ErrorKind, cause error) error {
		c.logger.Debug("SOAP call failed",
			"operation", op.Name,
			"kind", kind,
			"status", ex.StatusCode,
			"error", cause,
		)
		return &InvocationError{Kind: kind, Operation: op.Name, StatusCode: ex.StatusCode, Exchange: ex, Err: cause}
	}

	if ex.StatusCode == http.StatusUnauthorized || ex.StatusCode == http.StatusForbidden {
		return nil, fail(KindAuth, fmt.Errorf("HTTP %d", ex.StatusCode))
	}

	value, fault, decodeErr := decodeResponse(ex.RawResponse)
	if fault != nil {
		if fault.isAuth() {
			return nil, fail(KindAuth, fault)
		}
		return nil, fail(KindRemoteFault, fault)
	}
	if ex.StatusCode < 200 || ex.StatusCode >= 300 {
		return nil, fail(KindTransport, fmt.Errorf("HTTP %d", ex.StatusCode))
	}
	if decodeErr != nil {
		return nil, fail(KindTransport, decodeErr)
	}

	return &Result{Value: value, RawRequest: ex.RawRequest, RawResponse: ex.RawResponse}, nil
}

// FaultOf returns the remote fault carried by err, if any.
func FaultOf(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
