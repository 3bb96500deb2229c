// Package invoker dispatches a filled-in operation against its descriptor and
// records the exchange.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/GoCodeAlone/workflow-plugin-soap/observability"
	"github.com/GoCodeAlone/workflow-plugin-soap/soap"
	"github.com/GoCodeAlone/workflow-plugin-soap/store"
	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// DefaultTimeout bounds a whole invocation, descriptor load included.
const DefaultTimeout = 30 * time.Second

var (
	// ErrFieldMismatch is returned when the submitted fields were generated
	// for a different operation than the one being invoked.
	ErrFieldMismatch = errors.New("invoker: fields do not match operation")
	// ErrInvalidInvocation is returned when the locator or operation is
	// missing.
	ErrInvalidInvocation = errors.New("invoker: invalid invocation")
)

// Invocation is one request to run an operation.
type Invocation struct {
	Piece      string
	Action     string
	Locator    string
	Operation  string
	Fields     map[string]string
	Credential soap.Credential
}

// Invoker runs operations. It shares no state with the resolver: every call
// loads the descriptor again and builds a new client.
type Invoker struct {
	fetcher   wsdl.Fetcher
	transport soap.Transport
	store     store.InvocationStore
	metrics   *observability.Metrics
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithStore records every invocation in s.
func WithStore(s store.InvocationStore) Option {
	return func(i *Invoker) { i.store = s }
}

// WithMetrics records invocation counts and durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Invoker) { i.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// New creates an Invoker fetching descriptors with fetcher and sending
// envelopes through transport.
func New(fetcher wsdl.Fetcher, transport soap.Transport, opts ...Option) *Invoker {
	i := &Invoker{
		fetcher:   fetcher,
		transport: transport,
		logger:    slog.New(slog.DiscardHandler),
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke runs inv and returns the decoded result with the raw exchange.
func (i *Invoker) Invoke(ctx context.Context, inv Invocation) (*soap.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	ctx, span := observability.Tracer().Start(ctx, "invoker.invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("piece", inv.Piece),
		attribute.String("wsdl.locator", inv.Locator),
		attribute.String("soap.operation", inv.Operation),
		attribute.String("soap.credential", soap.CredentialKind(inv.Credential)),
	)

	start := i.now()
	res, err := i.invoke(ctx, inv)
	elapsed := i.now().Sub(start)

	status := store.StatusSucceeded
	kind := ""
	if err != nil {
		status = store.StatusFailed
		kind = ErrorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.logger.Warn("Invocation failed",
			"piece", inv.Piece,
			"operation", inv.Operation,
			"kind", kind,
			"error", err,
		)
	} else {
		i.logger.Info("Invocation succeeded",
			"piece", inv.Piece,
			"operation", inv.Operation,
			"duration", elapsed,
		)
	}
	i.metrics.ObserveInvocation(inv.Piece, string(status), kind, elapsed)
	i.record(context.WithoutCancel(ctx), inv, res, err, status, kind, start, elapsed)
	return res, err
}

func (i *Invoker) invoke(ctx context.Context, inv Invocation) (*soap.Result, error) {
	if inv.Locator == "" {
		return nil, fmt.Errorf("%w: descriptor locator is required", ErrInvalidInvocation)
	}
	if inv.Operation == "" {
		return nil, fmt.Errorf("%w: operation is required", ErrInvalidInvocation)
	}

	cat, err := wsdl.NewLoader(i.fetcher).LoadCatalog(ctx, inv.Locator)
	if err != nil {
		return nil, err
	}
	op, err := cat.Operation(inv.Operation)
	if err != nil {
		return nil, err
	}
	if err := CheckFields(op, inv.Fields); err != nil {
		return nil, err
	}
	return soap.NewClient(i.transport, i.logger).Call(ctx, op, inv.Fields, inv.Credential)
}

// CheckFields reports ErrFieldMismatch when fields contains a name op does not
// declare or lacks one of its required inputs.
func CheckFields(op *wsdl.Operation, fields map[string]string) error {
	var unknown, missing []string
	for name := range fields {
		if _, ok := op.Input(name); !ok {
			unknown = append(unknown, name)
		}
	}
	for _, p := range op.Inputs {
		if _, ok := fields[p.Name]; p.Required && !ok {
			missing = append(missing, p.Name)
		}
	}
	if len(unknown) == 0 && len(missing) == 0 {
		return nil
	}
	sort.Strings(unknown)
	var parts []string
	if len(unknown) > 0 {
		parts = append(parts, "undeclared "+strings.Join(unknown, ", "))
	}
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w %q: %s", ErrFieldMismatch, op.Name, strings.Join(parts, "; "))
}

// ErrorKind names the failure class of an Invoke error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, soap.ErrAuth):
		return string(soap.KindAuth)
	case errors.Is(err, soap.ErrRemoteFault):
		return string(soap.KindRemoteFault)
	case errors.Is(err, soap.ErrTransport):
		return string(soap.KindTransport)
	case errors.Is(err, wsdl.ErrUnknownOperation):
		return "unknown_operation"
	case errors.Is(err, ErrFieldMismatch):
		return "field_mismatch"
	case errors.Is(err, ErrInvalidInvocation):
		return "invalid"
	case errors.Is(err, wsdl.ErrFetch):
		return "fetch"
	case errors.Is(err, wsdl.ErrParse):
		return "parse"
	default:
		return "internal"
	}
}

func (i *Invoker) record(ctx context.Context, inv Invocation, res *soap.Result, err error,
	status store.InvocationStatus, kind string, start time.Time, elapsed time.Duration) {
	if i.store == nil {
		return
	}
	rec := &store.InvocationRecord{
		Piece:      inv.Piece,
		Action:     inv.Action,
		Descriptor: inv.Locator,
		Operation:  inv.Operation,
		Credential: soap.CredentialKind(inv.Credential),
		Status:     status,
		ErrorKind:  kind,
		StartedAt:  start.UTC(),
		Duration:   elapsed,
	}
	switch {
	case res != nil:
		rec.RawRequest, rec.RawResponse = res.RawRequest, res.RawResponse
	case err != nil:
		rec.Error = err.Error()
		var ie *soap.InvocationError
		if errors.As(err, &ie) && ie.Exchange != nil {
			rec.RawRequest, rec.RawResponse = ie.Exchange.RawRequest, ie.Exchange.RawResponse
		}
	}
	if err := i.store.Record(ctx, rec); err != nil {
		i.logger.Error("Failed to record invocation", "operation", inv.Operation, "error", err)
	}
}
