// Package piece defines integration pieces: named bundles of actions whose
// properties the builder renders and resolves.
package piece

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/GoCodeAlone/workflow-plugin-soap/schema"
)

// RunContext carries the validated inputs of an action run.
type RunContext struct {
	Props  PropsValue
	Auth   AuthValue
	Logger *slog.Logger
}

// RunFunc executes an action and returns its output.
type RunFunc func(ctx context.Context, rc *RunContext) (any, error)

// Action is one operation a piece offers.
type Action struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	Description string      `json:"description,omitempty"`
	Props       []*Property `json:"props"`
	Run         RunFunc     `json:"-"`
}

// Fields returns the builder field schema of the action's props, in
// declaration order.
func (a *Action) Fields() []schema.ConfigFieldDef {
	out := make([]schema.ConfigFieldDef, 0, len(a.Props))
	for _, p := range a.Props {
		out = append(out, p.Definition())
	}
	return out
}

// Property looks up a prop by name.
func (a *Action) Property(name string) (*Property, bool) {
	for _, p := range a.Props {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Piece is an integration exposed to the builder.
type Piece struct {
	Name                    string    `json:"name"`
	DisplayName             string    `json:"displayName"`
	Description             string    `json:"description,omitempty"`
	LogoURL                 string    `json:"logoUrl,omitempty"`
	Version                 string    `json:"version"`
	MinimumSupportedRelease string    `json:"minimumSupportedRelease,omitempty"`
	Authors                 []string  `json:"authors,omitempty"`
	Auth                    *Auth     `json:"auth,omitempty"`
	Actions                 []*Action `json:"actions"`
}

// Action looks up an action by name.
func (p *Piece) Action(name string) (*Action, bool) {
	for _, a := range p.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

var pieceNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
var actionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks names, versions, auth and the refresher graph of every
// action.
func (p *Piece) Validate() error {
	if !pieceNameRe.MatchString(p.Name) {
		return fmt.Errorf("%w: name %q must be lowercase alphanumeric with hyphens", ErrInvalidPiece, p.Name)
	}
	if _, err := ParseSemver(p.Version); err != nil {
		return fmt.Errorf("%w: %s: invalid version: %w", ErrInvalidPiece, p.Name, err)
	}
	if p.MinimumSupportedRelease != "" {
		if _, err := ParseSemver(p.MinimumSupportedRelease); err != nil {
			return fmt.Errorf("%w: %s: invalid minimumSupportedRelease: %w", ErrInvalidPiece, p.Name, err)
		}
	}
	if p.Auth != nil {
		if err := p.Auth.validate(); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	if len(p.Actions) == 0 {
		return fmt.Errorf("%w: %s declares no actions", ErrInvalidPiece, p.Name)
	}

	seen := make(map[string]bool, len(p.Actions))
	for _, a := range p.Actions {
		if !actionNameRe.MatchString(a.Name) {
			return fmt.Errorf("%w: %s: action name %q must be lowercase snake case", ErrInvalidPiece, p.Name, a.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: %s: duplicate action %q", ErrInvalidPiece, p.Name, a.Name)
		}
		seen[a.Name] = true
		if a.Run == nil {
			return fmt.Errorf("%w: %s.%s has no run function", ErrInvalidPiece, p.Name, a.Name)
		}
		if err := validateProps(a.Props); err != nil {
			return fmt.Errorf("%s.%s: %w", p.Name, a.Name, err)
		}
	}
	return nil
}

func checkPropNames(props []*Property) error {
	seen := make(map[string]bool, len(props))
	for _, prop := range props {
		if prop.Name == "" {
			return fmt.Errorf("%w: property name is required", ErrInvalidPiece)
		}
		if seen[prop.Name] {
			return fmt.Errorf("%w: duplicate property %q", ErrInvalidPiece, prop.Name)
		}
		seen[prop.Name] = true
	}
	return nil
}

func validateProps(props []*Property) error {
	if err := checkPropNames(props); err != nil {
		return err
	}
	byName := make(map[string]*Property, len(props))
	for _, prop := range props {
		byName[prop.Name] = prop
	}
	for _, prop := range props {
		switch prop.Type {
		case Dropdown:
			if prop.Options == nil {
				return fmt.Errorf("%w: dropdown %q has no options resolver", ErrInvalidPiece, prop.Name)
			}
		case DynamicProperties:
			if prop.Props == nil {
				return fmt.Errorf("%w: dynamic property %q has no props resolver", ErrInvalidPiece, prop.Name)
			}
		}
		for _, r := range prop.Refreshers {
			if r == prop.Name {
				return fmt.Errorf("%w: property %q refreshes itself", ErrInvalidPiece, prop.Name)
			}
			if _, ok := byName[r]; !ok {
				return fmt.Errorf("%w: property %q refreshed by unknown property %q", ErrInvalidPiece, prop.Name, r)
			}
		}
	}

	// Refreshers must form a DAG.
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(props))
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: refresher cycle through %q", ErrInvalidPiece, name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, r := range byName[name].Refreshers {
			if err := visit(r); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, prop := range props {
		if err := visit(prop.Name); err != nil {
			return err
		}
	}
	return nil
}
