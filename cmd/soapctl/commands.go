package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-plugin-soap/invoker"
	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
	"github.com/GoCodeAlone/workflow-plugin-soap/pieces/harvest"
	soappiece "github.com/GoCodeAlone/workflow-plugin-soap/pieces/soap"
	"github.com/GoCodeAlone/workflow-plugin-soap/resolver"
	"github.com/GoCodeAlone/workflow-plugin-soap/soap"
	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// argList collects repeated -arg name=value flags.
type argList map[string]string

func (a argList) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (a argList) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("argument %q must be name=value", s)
	}
	a[k] = v
	return nil
}

func newResolver(timeout time.Duration) *resolver.Resolver {
	return resolver.New(wsdl.NewLoader(wsdl.NewHTTPFetcher(timeout, wsdl.WithLocalFiles())))
}

func newEngine(timeout time.Duration, verbose bool) *piece.Engine {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fetcher := wsdl.NewHTTPFetcher(timeout, wsdl.WithLocalFiles())
	res := resolver.New(wsdl.NewLoader(fetcher), resolver.WithLogger(logger))
	inv := invoker.New(fetcher, soap.NewHTTPTransport(timeout),
		invoker.WithLogger(logger),
		invoker.WithTimeout(timeout),
	)
	reg := piece.NewRegistry()
	reg.MustRegister(soappiece.New(res, inv), harvest.New(harvest.Options{}))
	return piece.NewEngine(reg, logger)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runOperations(args []string) error {
	fs := flag.NewFlagSet("operations", flag.ContinueOnError)
	locator := fs.String("wsdl", "", "WSDL URL or file path (required)")
	timeout := fs.Duration("timeout", 30*time.Second, "Fetch timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: soapctl operations -wsdl <url|path>\n\nList the operations of a WSDL.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *locator == "" {
		fs.Usage()
		return fmt.Errorf("-wsdl is required")
	}

	dd, err := newResolver(*timeout).Operations(context.Background(), "", *locator)
	if err != nil {
		return err
	}
	for _, name := range dd.Values() {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func runFields(args []string) error {
	fs := flag.NewFlagSet("fields", flag.ContinueOnError)
	locator := fs.String("wsdl", "", "WSDL URL or file path (required)")
	method := fs.String("method", "", "Operation name (required)")
	timeout := fs.Duration("timeout", 30*time.Second, "Fetch timeout")
	asJSON := fs.Bool("json", false, "Print the field definitions as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: soapctl fields -wsdl <url|path> -method <name>\n\nShow the parameter fields of an operation.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *locator == "" || *method == "" {
		fs.Usage()
		return fmt.Errorf("-wsdl and -method are required")
	}

	fields, err := newResolver(*timeout).Fields(context.Background(), "", *locator, *method)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(fields.Ordered())
	}
	for _, f := range fields.Ordered() {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(stdout, "  %-30s  %s  %s\n", f.Key, f.Type, req)
	}
	return nil
}

func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	locator := fs.String("wsdl", "", "WSDL URL or file path (required)")
	method := fs.String("method", "", "Operation name (required)")
	authType := fs.String("auth-type", "WS", "Security type: WS or Basic")
	username := fs.String("username", "", "Username; leave empty for no authentication")
	password := fs.String("password", "", "Password (defaults to $SOAP_PASSWORD)")
	timeout := fs.Duration("timeout", 30*time.Second, "Call timeout")
	verbose := fs.Bool("v", false, "Log the exchange at debug level")
	callArgs := argList{}
	fs.Var(callArgs, "arg", "Operation argument as name=value (repeatable)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: soapctl call -wsdl <url|path> -method <name> [-arg name=value ...]\n\nCall an operation and print its result and raw envelopes as JSON.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *locator == "" || *method == "" {
		fs.Usage()
		return fmt.Errorf("-wsdl and -method are required")
	}
	if *password == "" {
		*password = os.Getenv("SOAP_PASSWORD")
	}

	req := piece.RunRequest{
		Piece:  soappiece.PieceName,
		Action: soappiece.ActionCallMethod,
		Props: piece.PropsValue{
			soappiece.PropWSDL:   *locator,
			soappiece.PropMethod: *method,
			soappiece.PropArgs:   map[string]string(callArgs),
		},
	}
	if *username != "" || *password != "" {
		req.Auth = piece.AuthValue{"type": *authType, "username": *username, "password": *password}
	}

	out, err := newEngine(*timeout, *verbose).Run(context.Background(), req)
	if err != nil {
		if kind := invoker.ErrorKind(err); kind != "internal" {
			return fmt.Errorf("%s: %w", kind, err)
		}
		return err
	}
	return writeJSON(out)
}

func runPieces(args []string) error {
	fs := flag.NewFlagSet("pieces", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: soapctl pieces\n\nList the built-in pieces and their actions.\n")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, p := range newEngine(time.Second, false).Registry().List() {
		fmt.Fprintf(stdout, "%s %s\n", p.Name, p.Version)
		for _, a := range p.Actions {
			fmt.Fprintf(stdout, "  %-30s  %s\n", a.Name, a.Description)
		}
	}
	return nil
}
