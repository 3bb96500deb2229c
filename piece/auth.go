package piece

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// AuthType identifies the kind of connection a piece needs.
type AuthType string

const (
	AuthCustom AuthType = "CUSTOM_AUTH"
	AuthOAuth2 AuthType = "OAUTH2"
)

// OAuth2GrantType is the grant used to obtain OAuth2 tokens.
type OAuth2GrantType string

const (
	GrantAuthorizationCode OAuth2GrantType = "authorization_code"
	GrantClientCredentials OAuth2GrantType = "client_credentials"
)

// Auth describes the connection of a piece. The authorization flow itself is
// run by the host; pieces only receive the resulting AuthValue.
type Auth struct {
	Type        AuthType `json:"type"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`

	// Props are the inputs of a custom auth, or extra inputs of an OAuth2
	// connection.
	Props []*Property `json:"props,omitempty"`

	GrantType OAuth2GrantType `json:"grantType,omitempty"`
	AuthURL   string          `json:"authUrl,omitempty"`
	TokenURL  string          `json:"tokenUrl,omitempty"`
	Scope     []string        `json:"scope,omitempty"`
}

func (a *Auth) validate() error {
	switch a.Type {
	case AuthCustom:
		if len(a.Props) == 0 {
			return fmt.Errorf("%w: custom auth declares no props", ErrInvalidPiece)
		}
	case AuthOAuth2:
		if a.AuthURL == "" || a.TokenURL == "" {
			return fmt.Errorf("%w: oauth2 auth requires authUrl and tokenUrl", ErrInvalidPiece)
		}
	default:
		return fmt.Errorf("%w: unknown auth type %q", ErrInvalidPiece, a.Type)
	}
	return checkPropNames(a.Props)
}

// check validates a submitted connection against the declared auth props.
func (a *Auth) check(v AuthValue) error {
	if len(v) == 0 {
		if a.Required {
			return ErrAuthRequired
		}
		return nil
	}
	props := PropsValue(v)
	if a.Type == AuthOAuth2 {
		if v.String("access_token") == "" {
			return fmt.Errorf("%w: access_token is missing", ErrAuthRequired)
		}
		props = v.Props()
	}
	var missing []string
	for _, p := range a.Props {
		if p.Required && isEmpty(props[p.Name]) {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: auth is missing %v", ErrAuthRequired, missing)
	}
	return nil
}

// AuthValue is a submitted connection. Custom auths hold their props at the
// top level; OAuth2 connections hold the token fields and a "props" object.
type AuthValue map[string]any

// String returns a top-level string field.
func (v AuthValue) String(key string) string {
	return PropsValue(v).String(key)
}

// Props returns the "props" object of an OAuth2 connection.
func (v AuthValue) Props() PropsValue {
	if m, ok := v["props"].(map[string]any); ok {
		return PropsValue(m)
	}
	return PropsValue{}
}

// Token converts an OAuth2 connection into an oauth2.Token.
func (v AuthValue) Token() (*oauth2.Token, error) {
	access := v.String("access_token")
	if access == "" {
		return nil, fmt.Errorf("%w: access_token is missing", ErrAuthRequired)
	}
	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    v.String("token_type"),
		RefreshToken: v.String("refresh_token"),
	}
	if claimed, ok := PropsValue(v).Int("claimed_at"); ok {
		if expiresIn, ok := PropsValue(v).Int("expires_in"); ok {
			tok.Expiry = time.Unix(int64(claimed+expiresIn), 0)
		}
	}
	return tok, nil
}
