package soap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Fault is a SOAP 1.1 or 1.2 fault returned by the remote service.
type Fault struct {
	Code    string `json:"code"`
	Subcode string `json:"subcode,omitempty"`
	String  string `json:"string"`
	Actor   string `json:"actor,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

func (f *Fault) Error() string {
	if f.Subcode != "" {
		return fmt.Sprintf("fault %s (%s): %s", f.Code, f.Subcode, f.String)
	}
	return fmt.Sprintf("fault %s: %s", f.Code, f.String)
}

// wsse fault codes that signal rejected credentials.
var authFaultCodes = map[string]bool{
	"FailedAuthentication":     true,
	"InvalidSecurity":          true,
	"InvalidSecurityToken":     true,
	"FailedCheck":              true,
	"SecurityTokenUnavailable": true,
	"MessageExpired":           true,
}

func (f *Fault) isAuth() bool {
	return authFaultCodes[localPart(f.Code)] || authFaultCodes[localPart(f.Subcode)]
}

var errNotEnvelope = errors.New("response is not a SOAP envelope")

// decodeResponse extracts the body payload or fault from a response envelope.
func decodeResponse(raw string) (any, *Fault, error) {
	doc, err := xmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errNotEnvelope, err)
	}
	env := firstElement(doc, "")
	if env == nil || env.Data != "Envelope" {
		return nil, nil, errNotEnvelope
	}
	body := firstElement(env, "Body")
	if body == nil {
		return nil, nil, fmt.Errorf("%w: missing Body", errNotEnvelope)
	}
	payload := firstElement(body, "")
	if payload == nil {
		return nil, nil, nil
	}
	if payload.Data == "Fault" {
		return nil, decodeFault(payload), nil
	}
	return decodeElement(payload), nil, nil
}

func decodeFault(n *xmlquery.Node) *Fault {
	f := &Fault{}
	// SOAP 1.1
	if c := firstElement(n, "faultcode"); c != nil {
		f.Code = strings.TrimSpace(c.InnerText())
		if s := firstElement(n, "faultstring"); s != nil {
			f.String = strings.TrimSpace(s.InnerText())
		}
		if a := firstElement(n, "faultactor"); a != nil {
			f.Actor = strings.TrimSpace(a.InnerText())
		}
		if d := firstElement(n, "detail"); d != nil {
			f.Detail = decodeElement(d)
		}
		return f
	}
	// SOAP 1.2
	if code := firstElement(n, "Code"); code != nil {
		if v := firstElement(code, "Value"); v != nil {
			f.Code = strings.TrimSpace(v.InnerText())
		}
		if sub := firstElement(code, "Subcode"); sub != nil {
			if v := firstElement(sub, "Value"); v != nil {
				f.Subcode = strings.TrimSpace(v.InnerText())
			}
		}
	}
	if reason := firstElement(n, "Reason"); reason != nil {
		if t := firstElement(reason, "Text"); t != nil {
			f.String = strings.TrimSpace(t.InnerText())
		}
	}
	if role := firstElement(n, "Role"); role != nil {
		f.Actor = strings.TrimSpace(role.InnerText())
	}
	if d := firstElement(n, "Detail"); d != nil {
		f.Detail = decodeElement(d)
	}
	return f
}

// decodeElement converts an element into a string (leaf) or a map of its
// children. Repeated child names collect into a slice.
func decodeElement(n *xmlquery.Node) any {
	var children []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			children = append(children, c)
		}
	}
	if len(children) == 0 {
		return n.InnerText()
	}

	out := make(map[string]any, len(children))
	for _, c := range children {
		v := decodeElement(c)
		existing, seen := out[c.Data]
		if !seen {
			out[c.Data] = v
			continue
		}
		if list, ok := existing.([]any); ok {
			out[c.Data] = append(list, v)
		} else {
			out[c.Data] = []any{existing, v}
		}
	}
	return out
}

func firstElement(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && (name == "" || c.Data == name) {
			return c
		}
	}
	return nil
}

func localPart(qname string) string {
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		return qname[i+1:]
	}
	return qname
}
