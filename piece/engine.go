package piece

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/GoCodeAlone/workflow-plugin-soap/observability"
	"github.com/GoCodeAlone/workflow-plugin-soap/schema"
)

// ResolveRequest asks for the options or sub-fields of one property.
type ResolveRequest struct {
	Piece     string     `json:"piece"`
	Action    string     `json:"action"`
	Property  string     `json:"property"`
	SessionID string     `json:"sessionId,omitempty"`
	Values    PropsValue `json:"values,omitempty"`
	Auth      AuthValue  `json:"auth,omitempty"`
}

// Resolution is the resolved state of a property: Options for dropdowns,
// Fields for dynamic properties. A dynamic property always carries Fields,
// possibly empty.
type Resolution struct {
	Type    PropertyType           `json:"type"`
	Options *schema.DropdownState  `json:"options,omitempty"`
	Fields  schema.DynamicFieldSet `json:"fields,omitzero"`
}

// RunRequest asks to execute one action.
type RunRequest struct {
	Piece  string     `json:"piece"`
	Action string     `json:"action"`
	Props  PropsValue `json:"props"`
	Auth   AuthValue  `json:"auth,omitempty"`
}

// Engine resolves properties and runs actions of registered pieces.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
}

// NewEngine creates an engine over registry. A nil logger discards output.
func NewEngine(registry *Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{registry: registry, logger: logger}
}

// Registry returns the engine's piece registry.
func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) lookup(pieceName, actionName string) (*Piece, *Action, error) {
	p, ok := e.registry.Get(pieceName)
	if !ok {
		return nil, nil, fmt.Errorf("piece %q: %w", pieceName, ErrNotFound)
	}
	a, ok := p.Action(actionName)
	if !ok {
		return nil, nil, fmt.Errorf("action %s.%s: %w", pieceName, actionName, ErrNotFound)
	}
	return p, a, nil
}

// ResolveProperty computes a property's options or sub-fields. Only the values
// of the property's refreshers are passed on, so a resolver cannot depend on
// anything whose change would not trigger a refresh.
func (e *Engine) ResolveProperty(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	_, a, err := e.lookup(req.Piece, req.Action)
	if err != nil {
		return nil, err
	}
	prop, ok := a.Property(req.Property)
	if !ok {
		return nil, fmt.Errorf("property %s.%s.%s: %w", req.Piece, req.Action, req.Property, ErrNotFound)
	}

	if !prop.Resolvable() {
		return nil, fmt.Errorf("property %q of type %s: %w", prop.Name, prop.Type, ErrNotResolvable)
	}

	rc := ResolveContext{
		SessionID: req.SessionID,
		Values:    req.Values.Only(prop.Refreshers),
		Auth:      req.Auth,
	}
	res := &Resolution{Type: prop.Type}
	switch prop.Type {
	case StaticDropdown:
		res.Options = &schema.DropdownState{Options: prop.StaticOptions}
	case Dropdown:
		res.Options, err = prop.Options(ctx, rc)
	case DynamicProperties:
		res.Fields, err = prop.Props(ctx, rc)
		if err == nil && res.Fields == nil {
			res.Fields = schema.DynamicFieldSet{}
		}
	}
	if err != nil {
		e.logger.Warn("Property resolution failed",
			"piece", req.Piece,
			"action", req.Action,
			"property", req.Property,
			"error", err,
		)
		return nil, err
	}
	return res, nil
}

// Run validates the request against the action's props and the piece's auth
// and executes the action.
func (e *Engine) Run(ctx context.Context, req RunRequest) (any, error) {
	p, a, err := e.lookup(req.Piece, req.Action)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.Tracer().Start(ctx, "piece.run")
	defer span.End()
	span.SetAttributes(attribute.String("piece", p.Name), attribute.String("action", a.Name))

	props, err := applyProps(a.Props, req.Props)
	if err != nil {
		return nil, err
	}
	if p.Auth != nil {
		if err := p.Auth.check(req.Auth); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
	}

	start := time.Now()
	out, err := a.Run(ctx, &RunContext{
		Props:  props,
		Auth:   req.Auth,
		Logger: e.logger.With("piece", p.Name, "action", a.Name),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	e.logger.Debug("Action completed", "piece", p.Name, "action", a.Name, "duration", time.Since(start))
	return out, nil
}

// applyProps fills defaults, drops undeclared props and reports missing
// required ones. An absent dynamic prop is an empty object, which is what an
// operation without inputs takes.
func applyProps(declared []*Property, submitted PropsValue) (PropsValue, error) {
	out := make(PropsValue, len(declared))
	var missing []string
	for _, prop := range declared {
		val, ok := submitted[prop.Name]
		if !ok || val == nil {
			switch {
			case prop.DefaultValue != nil:
				val = prop.DefaultValue
			case prop.Type == DynamicProperties:
				val = map[string]any{}
			}
		}
		if isEmpty(val) {
			if prop.Required {
				missing = append(missing, prop.Name)
			}
			continue
		}
		out[prop.Name] = val
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required %v", ErrInvalidProps, missing)
	}
	return out, nil
}
