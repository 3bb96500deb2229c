// Package harvest provides the Harvest time-tracking piece. Every action
// lists one Harvest v2 resource.
package harvest

import (
	"net/http"

	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
)

const (
	PieceName = "harvest"

	// DefaultBaseURL is the Harvest v2 REST API root.
	DefaultBaseURL = "https://api.harvestapp.com/v2"
	// DefaultUserAgent identifies the plugin to Harvest, which rejects
	// requests without a User-Agent.
	DefaultUserAgent = "workflow-plugin-soap (harvest piece)"

	AuthURL  = "https://id.getharvest.com/oauth2/authorize"
	TokenURL = "https://id.getharvest.com/api/v2/oauth2/token"

	// AccountIDProp is the connection prop sent as Harvest-Account-Id.
	AccountIDProp = "account_id"
)

// Options configures the Harvest piece.
type Options struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Auth is the Harvest OAuth2 connection. The flow itself is run by the host.
func Auth() *piece.Auth {
	return &piece.Auth{
		Type:      piece.AuthOAuth2,
		Required:  true,
		GrantType: piece.GrantAuthorizationCode,
		AuthURL:   AuthURL,
		TokenURL:  TokenURL,
		Scope:     []string{"harvest:all"},
		Props: []*piece.Property{
			{
				Name:        AccountIDProp,
				DisplayName: "Account ID",
				Description: "Harvest account the connection acts on",
				Type:        piece.ShortText,
				Required:    true,
			},
		},
	}
}

// New builds the Harvest piece.
func New(opts Options) *piece.Piece {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	c := &client{baseURL: opts.BaseURL, userAgent: opts.UserAgent, httpClient: opts.HTTPClient}

	actions := make([]*piece.Action, 0, len(resources))
	for _, r := range resources {
		actions = append(actions, c.listAction(r))
	}
	return &piece.Piece{
		Name:                    PieceName,
		DisplayName:             "Harvest",
		Description:             "Time tracking, invoicing and expenses",
		LogoURL:                 "https://cdn.activepieces.com/pieces/harvest.png",
		Version:                 "0.1.0",
		MinimumSupportedRelease: "0.36.1",
		Authors:                 []string{"drowe"},
		Auth:                    Auth(),
		Actions:                 actions,
	}
}
