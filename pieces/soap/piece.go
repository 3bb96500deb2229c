// Package soap provides the generic SOAP piece: pick a WSDL, pick one of its
// operations, fill in the generated parameter fields and call it.
package soap

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/workflow-plugin-soap/invoker"
	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
	"github.com/GoCodeAlone/workflow-plugin-soap/schema"
	soapcore "github.com/GoCodeAlone/workflow-plugin-soap/soap"
)

const (
	PieceName        = "soap"
	ActionCallMethod = "call_method"

	PropWSDL   = "wsdl"
	PropMethod = "method"
	PropArgs   = "args"
)

// Resolver supplies the method dropdown and the parameter fields.
type Resolver interface {
	Operations(ctx context.Context, session, locator string) (*schema.DropdownState, error)
	Fields(ctx context.Context, session, locator, operation string) (schema.DynamicFieldSet, error)
}

// Invoker runs a configured method.
type Invoker interface {
	Invoke(ctx context.Context, inv invoker.Invocation) (*soapcore.Result, error)
}

// Output is what call_method returns to the flow.
type Output struct {
	ActionRes any `json:"actionRes"`
	Raw       Raw `json:"raw"`
}

// Raw holds the envelopes exactly as sent and received.
type Raw struct {
	Request  string `json:"request"`
	Response string `json:"response"`
}

// Auth is the optional connection: a security type plus username and
// password.
func Auth() *piece.Auth {
	return &piece.Auth{
		Type:        piece.AuthCustom,
		DisplayName: "SOAP Security",
		Required:    false,
		Props: []*piece.Property{
			{
				Name:         "type",
				DisplayName:  "Security Type",
				Type:         piece.StaticDropdown,
				Required:     true,
				DefaultValue: "WS",
				StaticOptions: []schema.Option{
					{Label: "WS-Security", Value: "WS"},
					{Label: "Basic Auth", Value: "Basic"},
				},
			},
			{Name: "username", DisplayName: "Username", Type: piece.ShortText, Required: true},
			{Name: "password", DisplayName: "Password", Type: piece.SecretText, Required: true},
		},
	}
}

// New builds the SOAP piece.
func New(res Resolver, inv Invoker) *piece.Piece {
	return &piece.Piece{
		Name:        PieceName,
		DisplayName: "SOAP",
		Description: "Call SOAP services described by a WSDL",
		Version:     "0.1.0",
		Auth:        Auth(),
		Actions:     []*piece.Action{callMethod(res, inv)},
	}
}

func callMethod(res Resolver, inv Invoker) *piece.Action {
	return &piece.Action{
		Name:        ActionCallMethod,
		DisplayName: "Call SOAP Method",
		Description: "Call a SOAP from a given wsdl specification",
		Props: []*piece.Property{
			{
				Name:        PropWSDL,
				DisplayName: "WSDL URL",
				Type:        piece.ShortText,
				Required:    true,
			},
			{
				Name:        PropMethod,
				DisplayName: "Method",
				Description: "The SOAP Method",
				Type:        piece.Dropdown,
				Required:    true,
				Refreshers:  []string{PropWSDL},
				Options: func(ctx context.Context, rc piece.ResolveContext) (*schema.DropdownState, error) {
					return res.Operations(ctx, rc.SessionID, rc.Values.String(PropWSDL))
				},
			},
			{
				Name:        PropArgs,
				DisplayName: "Parameters",
				Description: "Arguments for the SOAP method",
				Type:        piece.DynamicProperties,
				Required:    true,
				Refreshers:  []string{PropWSDL, PropMethod},
				Props: func(ctx context.Context, rc piece.ResolveContext) (schema.DynamicFieldSet, error) {
					return res.Fields(ctx, rc.SessionID, rc.Values.String(PropWSDL), rc.Values.String(PropMethod))
				},
			},
		},
		Run: func(ctx context.Context, rc *piece.RunContext) (any, error) {
			args, err := rc.Props.StringMap(PropArgs)
			if err != nil {
				return nil, err
			}
			result, err := inv.Invoke(ctx, invoker.Invocation{
				Piece:      PieceName,
				Action:     ActionCallMethod,
				Locator:    rc.Props.String(PropWSDL),
				Operation:  rc.Props.String(PropMethod),
				Fields:     args,
				Credential: Credential(rc.Auth),
			})
			if err != nil {
				return nil, fmt.Errorf("call %s: %w", rc.Props.String(PropMethod), err)
			}
			return &Output{
				ActionRes: result.Value,
				Raw:       Raw{Request: result.RawRequest, Response: result.RawResponse},
			}, nil
		},
	}
}

// Credential maps a submitted connection to the security strategy applied
// to the call. No connection means no security.
func Credential(auth piece.AuthValue) soapcore.Credential {
	if len(auth) == 0 {
		return nil
	}
	return soapcore.CredentialFromAuth(auth.String("type"), auth.String("username"), auth.String("password"))
}
