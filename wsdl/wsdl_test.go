package wsdl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return data
}

// newTestdataServer serves the testdata directory and counts requests.
func newTestdataServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	fs := http.FileServer(http.Dir("testdata"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fs.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestParseDocumentLiteral(t *testing.T) {
	def, err := Parse(readTestdata(t, "calculator.wsdl"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if def.TargetNamespace != "http://tempuri.org/" {
		t.Errorf("expected target namespace http://tempuri.org/, got %q", def.TargetNamespace)
	}
	if len(def.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(def.Bindings))
	}
	if v := def.Bindings["CalculatorSoap12"].Version; v != SOAP12 {
		t.Errorf("expected SOAP 1.2 binding, got %q", v)
	}

	cat, err := NewCatalog("calculator.wsdl", def)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	if cat.Service != "Calculator" || cat.Port != "CalculatorSoap" {
		t.Errorf("expected first service/port Calculator/CalculatorSoap, got %s/%s", cat.Service, cat.Port)
	}
	if got, want := cat.Names(), []string{"Add", "Divide"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected operations %v, got %v", want, got)
	}

	add, err := cat.Operation("Add")
	if err != nil {
		t.Fatalf("Operation(Add) failed: %v", err)
	}
	if add.RequestElement != "Add" || add.Namespace != "http://tempuri.org/" || !add.Qualified {
		t.Errorf("unexpected wrapper: element=%q ns=%q qualified=%v", add.RequestElement, add.Namespace, add.Qualified)
	}
	if add.SOAPAction != "http://tempuri.org/Add" {
		t.Errorf("expected soapAction http://tempuri.org/Add, got %q", add.SOAPAction)
	}
	if add.Endpoint != "http://localhost/calculator.asmx" {
		t.Errorf("unexpected endpoint %q", add.Endpoint)
	}
	if got, want := add.InputNames(), []string{"intA", "intB"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected inputs %v, got %v", want, got)
	}
}

func TestParseNamedComplexTypeAndOptionalFields(t *testing.T) {
	def, err := Parse(readTestdata(t, "calculator.wsdl"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cat, err := NewCatalog("calculator.wsdl", def)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	inputs, err := cat.Inputs("Divide")
	if err != nil {
		t.Fatalf("Inputs(Divide) failed: %v", err)
	}
	required := map[string]bool{}
	for _, p := range inputs {
		required[p.Name] = p.Required
	}
	want := map[string]bool{"dividend": true, "divisor": true, "rounding": false}
	if !reflect.DeepEqual(required, want) {
		t.Errorf("expected %v, got %v", want, required)
	}
}

func TestParseRPC(t *testing.T) {
	def, err := Parse(readTestdata(t, "weather_rpc.wsdl"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cat, err := NewCatalog("weather_rpc.wsdl", def)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	op, err := cat.Operation("GetForecast")
	if err != nil {
		t.Fatalf("Operation failed: %v", err)
	}
	if op.Style != StyleRPC {
		t.Errorf("expected rpc style, got %q", op.Style)
	}
	if op.Version != SOAP12 {
		t.Errorf("expected SOAP 1.2, got %q", op.Version)
	}
	if op.RequestElement != "GetForecast" || op.Namespace != "urn:example:weather:rpc" || op.Qualified {
		t.Errorf("unexpected rpc wrapper: element=%q ns=%q qualified=%v", op.RequestElement, op.Namespace, op.Qualified)
	}
	if got, want := op.InputNames(), []string{"city", "days"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected inputs %v, got %v", want, got)
	}
}

func TestCatalogUnknownOperation(t *testing.T) {
	def, err := Parse(readTestdata(t, "calculator.wsdl"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cat, err := NewCatalog("calculator.wsdl", def)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	_, err = cat.Operation("Multiply")
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestParseRejectsNonWSDL(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not xml", "this is not xml <"},
		{"html", "<html><body>Not found</body></html>"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestNewCatalogWithoutService(t *testing.T) {
	def, err := Parse([]byte(`<definitions xmlns="http://schemas.xmlsoap.org/wsdl/"/>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := NewCatalog("empty.wsdl", def); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestLoaderFollowsSchemaIncludes(t *testing.T) {
	srv, hits := newTestdataServer(t)
	loader := NewLoader(NewHTTPFetcher(5 * time.Second))

	cat, err := loader.LoadCatalog(context.Background(), srv.URL+"/orders.wsdl")
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 fetches (wsdl + xsd), got %d", hits.Load())
	}
	op, err := cat.Operation("PlaceOrder")
	if err != nil {
		t.Fatalf("Operation failed: %v", err)
	}
	names := op.InputNames()
	sort.Strings(names)
	if want := []string{"customerId", "note", "quantity", "sku"}; !reflect.DeepEqual(names, want) {
		t.Errorf("expected inputs %v (base type fields included), got %v", want, names)
	}
	if op.Qualified {
		t.Error("expected unqualified children for schema without elementFormDefault")
	}
}

func TestLoaderFetchErrors(t *testing.T) {
	srv, _ := newTestdataServer(t)
	loader := NewLoader(NewHTTPFetcher(5 * time.Second))

	_, err := loader.Load(context.Background(), srv.URL+"/missing.wsdl")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for 404, got %v", err)
	}

	_, err = loader.Load(context.Background(), "http://127.0.0.1:1/unreachable.wsdl")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for unreachable host, got %v", err)
	}
}

func TestLoaderReadsLocalFiles(t *testing.T) {
	loader := NewLoader(NewHTTPFetcher(time.Second, WithLocalFiles()))
	cat, err := loader.LoadCatalog(context.Background(), filepath.Join("testdata", "orders.wsdl"))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(cat.Operations) != 1 {
		t.Errorf("expected 1 operation, got %d", len(cat.Operations))
	}
}

func TestFetcherRejectsLocalFilesByDefault(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("testdata", "orders.xsd"))
	if err != nil {
		t.Fatal(err)
	}
	f := NewHTTPFetcher(time.Second)
	for _, location := range []string{path, "file://" + path, filepath.Join("testdata", "orders.xsd"), "ftp://example.com/a.wsdl"} {
		if _, err := f.Fetch(context.Background(), location); !errors.Is(err, ErrFetch) {
			t.Errorf("Fetch(%q): expected ErrFetch, got %v", location, err)
		}
	}

	data, err := NewHTTPFetcher(time.Second, WithLocalFiles()).Fetch(context.Background(), "file://"+path)
	if err != nil || len(data) == 0 {
		t.Fatalf("expected local read with WithLocalFiles, got %d bytes, err %v", len(data), err)
	}
}

func TestLoaderRefusesLocalImportFromRemoteDocument(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.xsd")
	xsd := `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="http://example.com/orders">` +
		`<xs:element name="db_password" type="xs:string"/></xs:schema>`
	if err := os.WriteFile(secret, []byte(xsd), 0o600); err != nil {
		t.Fatal(err)
	}
	doc := strings.Replace(string(readTestdata(t, "orders.wsdl")),
		`schemaLocation="orders.xsd"`, `schemaLocation="file://`+secret+`"`, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	// Local reads stay refused for remote documents even when the fetcher allows them.
	for _, f := range []*HTTPFetcher{NewHTTPFetcher(time.Second), NewHTTPFetcher(time.Second, WithLocalFiles())} {
		def, err := NewLoader(f).Load(context.Background(), srv.URL+"/orders.wsdl")
		if !errors.Is(err, ErrFetch) {
			t.Fatalf("expected ErrFetch, got %v", err)
		}
		if def != nil {
			t.Errorf("expected no definition, got elements %v", def.Elements)
		}
	}
}

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"http://example.com/svc/a.wsdl", "b.xsd", "http://example.com/svc/b.xsd"},
		{"http://example.com/svc/a.wsdl", "../b.xsd", "http://example.com/b.xsd"},
		{"http://example.com/svc/a.wsdl", "https://other.com/c.xsd", "https://other.com/c.xsd"},
		{"testdata/a.wsdl", "b.xsd", filepath.Join("testdata", "b.xsd")},
		{"file:///srv/a.wsdl", "b.xsd", "file:///srv/b.xsd"},
	}
	for _, tt := range tests {
		if got := resolveLocation(tt.base, tt.ref); got != tt.want {
			t.Errorf("resolveLocation(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}
