// Package resolver turns a descriptor locator and an optional operation name
// into the builder-facing schema: the operation dropdown or the dynamic field
// set of one operation.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/GoCodeAlone/workflow-plugin-soap/observability"
	"github.com/GoCodeAlone/workflow-plugin-soap/schema"
	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

const (
	// DefaultSessionTTL is how long a session keeps its catalogs.
	DefaultSessionTTL = 15 * time.Minute

	// DefaultLoadTimeout bounds a descriptor load shared by concurrent callers.
	DefaultLoadTimeout = 30 * time.Second

	// PlaceholderNoLocator is shown while no descriptor locator is set.
	PlaceholderNoLocator = "Setup WSDL URL first"
)

// CatalogLoader fetches and parses a descriptor into its catalog.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, locator string) (*wsdl.Catalog, error)
}

// Request names what to resolve. An empty Operation asks for the operation
// dropdown; otherwise the fields of that operation are returned.
type Request struct {
	SessionID string `json:"sessionId,omitempty"`
	Locator   string `json:"locator"`
	Operation string `json:"operation,omitempty"`
}

// Resolution is either an operation dropdown or a dynamic field set.
type Resolution struct {
	Operations *schema.DropdownState  `json:"operations,omitempty"`
	Fields     schema.DynamicFieldSet `json:"fields,omitempty"`
}

// Resolver resolves operation catalogs and field sets.
type Resolver struct {
	loader  CatalogLoader
	cache   CatalogCache
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache keeps catalogs of sessioned requests in c for ttl.
func WithCache(c CatalogCache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds a shared descriptor load. The load does not follow
// the cancellation of any single caller, so it needs its own deadline.
func WithLoadTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMetrics records descriptor loads and cache lookups.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver loading descriptors through loader.
func New(loader CatalogLoader, opts ...Option) *Resolver {
	r := &Resolver{
		loader:  loader,
		ttl:     DefaultSessionTTL,
		timeout: DefaultLoadTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the operation dropdown when req.Operation is empty and the
// operation's field set otherwise. Without a locator nothing is fetched.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	if req.Operation == "" {
		ops, err := r.Operations(ctx, req.SessionID, req.Locator)
		if err != nil {
			return nil, err
		}
		return &Resolution{Operations: ops}, nil
	}
	fields, err := r.Fields(ctx, req.SessionID, req.Locator, req.Operation)
	if err != nil {
		return nil, err
	}
	return &Resolution{Fields: fields}, nil
}

// Operations returns the descriptor's operation names as dropdown options.
func (r *Resolver) Operations(ctx context.Context, session, locator string) (*schema.DropdownState, error) {
	if locator == "" {
		return schema.DisabledDropdown(PlaceholderNoLocator), nil
	}
	cat, err := r.catalog(ctx, session, locator)
	if err != nil {
		return nil, err
	}
	return schema.DropdownOf(cat.Names()), nil
}

// Fields returns one text field per declared input of operation.
func (r *Resolver) Fields(ctx context.Context, session, locator, operation string) (schema.DynamicFieldSet, error) {
	if locator == "" || operation == "" {
		return schema.DynamicFieldSet{}, nil
	}
	cat, err := r.catalog(ctx, session, locator)
	if err != nil {
		return nil, err
	}
	inputs, err := cat.Inputs(operation)
	if err != nil {
		return nil, err
	}
	fields := make(schema.DynamicFieldSet, len(inputs))
	for _, p := range inputs {
		fields[p.Name] = schema.TextField(p.Name, p.Required)
	}
	return fields, nil
}

// Invalidate forgets every catalog cached for session.
func (r *Resolver) Invalidate(ctx context.Context, session string) error {
	session = NormalizeSession(session)
	if r.cache == nil || session == "" {
		return nil
	}
	return r.cache.Invalidate(ctx, session)
}

// NormalizeSession returns the cache key form of a session ID. Session IDs
// are UUIDs, which compare case-insensitively.
func NormalizeSession(session string) string {
	return strings.ToLower(strings.TrimSpace(session))
}

func (r *Resolver) catalog(ctx context.Context, session, locator string) (*wsdl.Catalog, error) {
	session = NormalizeSession(session)
	if session == "" || r.cache == nil {
		return r.load(ctx, locator)
	}

	cat, ok, err := r.cache.Get(ctx, session, locator)
	if err != nil {
		r.logger.Warn("Catalog cache lookup failed", "session", session, "locator", locator, "error", err)
	}
	r.metrics.ObserveCacheLookup(ok)
	if ok {
		return cat, nil
	}

	// The shared load is detached from any one caller; each caller stops
	// waiting when its own ctx ends.
	ch := r.group.DoChan(session+"\x00"+locator, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		cat, err := r.load(loadCtx, locator)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(loadCtx, session, locator, cat, r.ttl); err != nil {
			r.logger.Warn("Catalog cache store failed", "session", session, "locator", locator, "error", err)
		}
		return cat, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", wsdl.ErrFetch, locator, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*wsdl.Catalog), nil
	}
}

func (r *Resolver) load(ctx context.Context, locator string) (*wsdl.Catalog, error) {
	ctx, span := observability.Tracer().Start(ctx, "resolver.loadCatalog")
	defer span.End()
	span.SetAttributes(attribute.String("wsdl.locator", locator))

	start := time.Now()
	cat, err := r.loader.LoadCatalog(ctx, locator)
	if err != nil {
		r.metrics.ObserveDescriptorFetch("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("Descriptor load failed", "locator", locator, "error", err)
		return nil, err
	}
	r.metrics.ObserveDescriptorFetch("ok", time.Since(start))
	span.SetAttributes(attribute.Int("wsdl.operations", len(cat.Operations)))
	r.logger.Debug("Descriptor loaded", "locator", locator, "operations", len(cat.Operations))
	return cat, nil
}
