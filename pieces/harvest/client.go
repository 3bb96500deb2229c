package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/itchyny/gojq"
	"golang.org/x/oauth2"

	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
)

// ErrAPI is returned when Harvest answers with a non-2xx status.
var ErrAPI = errors.New("harvest api error")

const maxResponseBytes = 20 << 20

type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func (c *client) listAction(r resource) *piece.Action {
	props := append(append([]*piece.Property{}, r.filters...), pagingProps()...)
	return &piece.Action{
		Name:        r.action,
		DisplayName: r.displayName,
		Description: fmt.Sprintf("List %s from Harvest", strings.ReplaceAll(r.path, "_", " ")),
		Props:       props,
		Run: func(ctx context.Context, rc *piece.RunContext) (any, error) {
			query := url.Values{}
			for _, p := range r.filters {
				setQuery(query, p, rc.Props)
			}
			for _, p := range pagingProps()[:2] {
				setQuery(query, p, rc.Props)
			}

			body, err := c.get(ctx, rc.Auth, r.path, query)
			if err != nil {
				return nil, err
			}
			var out any
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, fmt.Errorf("harvest %s: decode response: %w", r.path, err)
			}
			if expr := rc.Props.String("filter"); expr != "" {
				return applyFilter(expr, out)
			}
			return out, nil
		},
	}
}

func setQuery(q url.Values, p *piece.Property, props piece.PropsValue) {
	if _, ok := props[p.Name]; !ok {
		return
	}
	switch p.Type {
	case piece.Checkbox:
		if props.Bool(p.Name) {
			q.Set(p.Name, "true")
		} else {
			q.Set(p.Name, "false")
		}
	default:
		if v := props.String(p.Name); v != "" {
			q.Set(p.Name, v)
		}
	}
}

func (c *client) get(ctx context.Context, auth piece.AuthValue, path string, query url.Values) ([]byte, error) {
	tok, err := auth.Token()
	if err != nil {
		return nil, err
	}
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))

	u := strings.TrimRight(c.baseURL, "/") + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("harvest %s: build request: %w", path, err)
	}
	req.Header.Set("Harvest-Account-Id", auth.Props().String(AccountIDProp))
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("harvest %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("harvest %s: read response: %w", path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("harvest %s: HTTP %d: %w", path, resp.StatusCode, piece.ErrAuthRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: HTTP %d: %s", ErrAPI, path, resp.StatusCode, truncate(string(body), 256))
	}
	return body, nil
}

// applyFilter runs a jq expression over the decoded response. A single
// result is returned as is, several as a slice.
func applyFilter(expr string, input any) (any, error) {
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid filter %q: %w", piece.ErrInvalidProps, expr, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to compile filter %q: %w", piece.ErrInvalidProps, expr, err)
	}

	iter := code.Run(input)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("filter %q: %w", expr, err)
		}
		results = append(results, v)
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
