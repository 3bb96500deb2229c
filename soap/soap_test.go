package soap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

func addOperation(endpoint string) *wsdl.Operation {
	return &wsdl.Operation{
		Name:           "Add",
		SOAPAction:     "http://tempuri.org/Add",
		Endpoint:       endpoint,
		Version:        wsdl.SOAP11,
		Style:          wsdl.StyleDocument,
		RequestElement: "Add",
		Namespace:      "http://tempuri.org/",
		Qualified:      true,
		Inputs: []wsdl.Param{
			{Name: "intA", Required: true},
			{Name: "intB", Required: true},
		},
	}
}

const addResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <AddResponse xmlns="http://tempuri.org/"><AddResult>5</AddResult></AddResponse>
  </soap:Body>
</soap:Envelope>`

const faultResponse11 = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Division by zero</faultstring>
      <detail><reason>divisor was 0</reason></detail>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

const authFaultResponse = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns:wsse="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">
  <soap:Body>
    <soap:Fault>
      <faultcode>wsse:FailedAuthentication</faultcode>
      <faultstring>The security token could not be authenticated</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

const faultResponse12 = `<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope">
  <env:Body>
    <env:Fault>
      <env:Code><env:Value>env:Sender</env:Value><env:Subcode><env:Value>m:BadCity</env:Value></env:Subcode></env:Code>
      <env:Reason><env:Text xml:lang="en">Unknown city</env:Text></env:Reason>
    </env:Fault>
  </env:Body>
</env:Envelope>`

func TestBuildEnvelopeDocumentWrapped(t *testing.T) {
	env, err := BuildEnvelope(addOperation("http://x"), map[string]string{"intB": "3", "intA": "2"}, nil, time.Now())
	if err != nil {
		t.Fatalf("BuildEnvelope failed: %v", err)
	}
	s := string(env)
	want := `<soap:Body><tns:Add><tns:intA>2</tns:intA><tns:intB>3</tns:intB></tns:Add></soap:Body>`
	if !strings.Contains(s, want) {
		t.Errorf("expected body %s in envelope:\n%s", want, s)
	}
	if !strings.Contains(s, `xmlns:soap="`+NamespaceEnvelope11+`"`) {
		t.Errorf("expected SOAP 1.1 envelope namespace:\n%s", s)
	}
	if strings.Contains(s, "Header") {
		t.Errorf("expected no header without WS-Security:\n%s", s)
	}
}

func TestBuildEnvelopeRPCUnqualified(t *testing.T) {
	op := &wsdl.Operation{
		Name:           "GetForecast",
		Version:        wsdl.SOAP12,
		Style:          wsdl.StyleRPC,
		RequestElement: "GetForecast",
		Namespace:      "urn:example:weather:rpc",
		Inputs:         []wsdl.Param{{Name: "city"}, {Name: "days"}},
	}
	env, err := BuildEnvelope(op, map[string]string{"city": "Zürich & Co", "days": "3"}, nil, time.Now())
	if err != nil {
		t.Fatalf("BuildEnvelope failed: %v", err)
	}
	s := string(env)
	if !strings.Contains(s, `<tns:GetForecast><city>Zürich &amp; Co</city><days>3</days></tns:GetForecast>`) {
		t.Errorf("unexpected rpc body:\n%s", s)
	}
	if !strings.Contains(s, NamespaceEnvelope12) {
		t.Errorf("expected SOAP 1.2 envelope namespace:\n%s", s)
	}
}

func TestBuildEnvelopeWSSecurity(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cred := WSSecurity{Username: "alice", Password: "s3cret"}
	env, err := BuildEnvelope(addOperation("http://x"), map[string]string{"intA": "1", "intB": "1"}, cred, now)
	if err != nil {
		t.Fatalf("BuildEnvelope failed: %v", err)
	}
	s := string(env)
	for _, want := range []string{
		`<soap:Header><wsse:Security soap:mustUnderstand="1"`,
		`<wsse:Username>alice</wsse:Username>`,
		`#PasswordText">s3cret</wsse:Password>`,
		`<wsu:Created>2024-05-01T12:00:00.000Z</wsu:Created>`,
		`<wsu:Expires>2024-05-01T12:10:00.000Z</wsu:Expires>`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in envelope:\n%s", want, s)
		}
	}
	if strings.Contains(s, "Nonce") {
		t.Errorf("expected no nonce for plain PasswordText:\n%s", s)
	}
}

func TestBuildEnvelopePasswordDigest(t *testing.T) {
	cred := WSSecurity{Username: "alice", Password: "s3cret", PasswordType: PasswordDigest}
	env, err := BuildEnvelope(addOperation("http://x"), nil, cred, time.Now())
	if err != nil {
		t.Fatalf("BuildEnvelope failed: %v", err)
	}
	s := string(env)
	if strings.Contains(s, "s3cret") {
		t.Errorf("expected digest to hide clear-text password:\n%s", s)
	}
	if !strings.Contains(s, "#PasswordDigest") || !strings.Contains(s, "<wsse:Nonce") {
		t.Errorf("expected digest password and nonce:\n%s", s)
	}
}

func TestCredentialFromAuth(t *testing.T) {
	tests := []struct {
		name, kind, user, pass string
		want                   Credential
	}{
		{"ws", "WS", "u", "p", WSSecurity{Username: "u", Password: "p", PasswordType: PasswordText}},
		{"basic", "Basic", "u", "p", BasicAuth{Username: "u", Password: "p"}},
		{"other discriminant", "anything", "u", "p", BasicAuth{Username: "u", Password: "p"}},
		{"lowercase", "ws", "u", "p", BasicAuth{Username: "u", Password: "p"}},
		{"mixed case", "Ws", "u", "p", BasicAuth{Username: "u", Password: "p"}},
		{"empty", "WS", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CredentialFromAuth(tt.kind, tt.user, tt.pass)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

// recordingTransport captures the request handed to the transport.
type recordingTransport struct {
	got *Request
	ex  *Exchange
	err error
}

func (r *recordingTransport) RoundTrip(_ context.Context, req *Request) (*Exchange, error) {
	r.got = req
	return r.ex, r.err
}

func TestClientPassesCredentialToTransport(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
		kind string
	}{
		{"ws-security", CredentialFromAuth("WS", "u", "p"), "WS"},
		{"basic", CredentialFromAuth("Basic", "u", "p"), "Basic"},
		{"none", nil, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &recordingTransport{ex: &Exchange{RawRequest: "<req/>", RawResponse: addResponse, StatusCode: 200}}
			c := NewClient(rt, nil)
			if _, err := c.Call(context.Background(), addOperation("http://x"), nil, tt.cred); err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			if got := CredentialKind(rt.got.Credential); got != tt.kind {
				t.Errorf("expected transport to receive %s credential, got %s", tt.kind, got)
			}
		})
	}
}

func TestClientCallOverHTTP(t *testing.T) {
	var gotAction, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, addResponse)
	}))
	defer srv.Close()

	c := NewClient(NewHTTPTransport(5*time.Second), nil)
	res, err := c.Call(context.Background(), addOperation(srv.URL), map[string]string{"intA": "2", "intB": "3"},
		BasicAuth{Username: "bob", Password: "pw"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if gotAction != `"http://tempuri.org/Add"` {
		t.Errorf("expected quoted SOAPAction header, got %q", gotAction)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("expected Basic authorization header, got %q", gotAuth)
	}
	if res.RawRequest == "" || res.RawResponse == "" {
		t.Fatal("expected non-empty raw request and response")
	}
	if res.RawRequest != gotBody {
		t.Errorf("expected raw request to equal the bytes sent")
	}
	want := map[string]any{"AddResult": "5"}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("expected value %v, got %#v", want, res.Value)
	}
}

func TestClientSOAP12ContentType(t *testing.T) {
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `<e:Envelope xmlns:e="http://www.w3.org/2003/05/soap-envelope"><e:Body><R>ok</R></e:Body></e:Envelope>`)
	}))
	defer srv.Close()

	op := addOperation(srv.URL)
	op.Version = wsdl.SOAP12
	res, err := NewClient(NewHTTPTransport(5*time.Second), nil).Call(context.Background(), op, nil, nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.HasPrefix(gotCT, "application/soap+xml") || !strings.Contains(gotCT, `action="http://tempuri.org/Add"`) {
		t.Errorf("unexpected SOAP 1.2 content type %q", gotCT)
	}
	if res.Value != "ok" {
		t.Errorf("expected leaf value ok, got %#v", res.Value)
	}
}

func TestClientErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		kind     ErrorKind
	}{
		{"remote fault 1.1", 500, faultResponse11, ErrRemoteFault, KindRemoteFault},
		{"remote fault 1.2", 500, faultResponse12, ErrRemoteFault, KindRemoteFault},
		{"wsse auth fault", 500, authFaultResponse, ErrAuth, KindAuth},
		{"http 401", 401, "unauthorized", ErrAuth, KindAuth},
		{"http 403", 403, "", ErrAuth, KindAuth},
		{"http 502 without fault", 502, "bad gateway", ErrTransport, KindTransport},
		{"malformed 200", 200, "<html>oops</html>", ErrTransport, KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(NewHTTPTransport(5*time.Second), nil).Call(context.Background(), addOperation(srv.URL), nil, nil)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			if KindOf(err) != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, KindOf(err))
			}
			var ie *InvocationError
			if !errors.As(err, &ie) || ie.Exchange == nil || ie.Exchange.RawRequest == "" {
				t.Errorf("expected error to carry the exchange, got %#v", ie)
			}
		})
	}
}

func TestClientFaultDetails(t *testing.T) {
	rt := &recordingTransport{ex: &Exchange{RawResponse: faultResponse12, StatusCode: 500}}
	_, err := NewClient(rt, nil).Call(context.Background(), addOperation("http://x"), nil, nil)
	f, ok := FaultOf(err)
	if !ok {
		t.Fatalf("expected a fault, got %v", err)
	}
	if f.Code != "env:Sender" || f.Subcode != "m:BadCity" || f.String != "Unknown city" {
		t.Errorf("unexpected fault %+v", f)
	}
}

func TestClientTransportFailure(t *testing.T) {
	_, err := NewClient(NewHTTPTransport(time.Second), nil).Call(context.Background(), addOperation("http://127.0.0.1:1/svc"), nil, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestDecodeRepeatedElements(t *testing.T) {
	raw := `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>
<ListResponse><item>a</item><item>b</item><item>c</item><count>3</count></ListResponse>
</s:Body></s:Envelope>`
	v, fault, err := decodeResponse(raw)
	if err != nil || fault != nil {
		t.Fatalf("decodeResponse failed: %v %v", err, fault)
	}
	want := map[string]any{"item": []any{"a", "b", "c"}, "count": "3"}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("expected %v, got %#v", want, v)
	}
}
