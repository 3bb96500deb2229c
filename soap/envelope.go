package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// Envelope namespaces.
const (
	NamespaceEnvelope11 = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceEnvelope12 = "http://www.w3.org/2003/05/soap-envelope"
)

const (
	envPrefix = "soap"
	argPrefix = "tns"
)

// BuildEnvelope renders the request envelope for op. Arguments are written in
// declaration order; arguments the operation does not declare follow in name
// order.
func BuildEnvelope(op *wsdl.Operation, args map[string]string, cred Credential, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)

	envNS := NamespaceEnvelope11
	if op.Version == wsdl.SOAP12 {
		envNS = NamespaceEnvelope12
	}
	fmt.Fprintf(&buf, `<%s:Envelope xmlns:%s="%s"`, envPrefix, envPrefix, envNS)
	if op.Namespace != "" {
		fmt.Fprintf(&buf, ` xmlns:%s="%s"`, argPrefix, escape(op.Namespace))
	}
	buf.WriteString(">")

	if ws, ok := cred.(WSSecurity); ok {
		hdr, err := ws.header(envPrefix, now)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "<%s:Header>%s</%s:Header>", envPrefix, hdr, envPrefix)
	}

	fmt.Fprintf(&buf, "<%s:Body>", envPrefix)

	wrapper := ""
	if op.RequestElement != "" {
		wrapper = qualify(op.RequestElement, op.Namespace != "")
		fmt.Fprintf(&buf, "<%s>", wrapper)
	}
	argQualified := op.Namespace != "" && (op.Qualified || op.RequestElement == "")
	for _, name := range argOrder(op, args) {
		el := qualify(name, argQualified)
		fmt.Fprintf(&buf, "<%s>%s</%s>", el, escape(args[name]), el)
	}
	if wrapper != "" {
		fmt.Fprintf(&buf, "</%s>", wrapper)
	}

	fmt.Fprintf(&buf, "</%s:Body></%s:Envelope>", envPrefix, envPrefix)
	return buf.Bytes(), nil
}

func argOrder(op *wsdl.Operation, args map[string]string) []string {
	order := make([]string, 0, len(args))
	declared := make(map[string]bool, len(op.Inputs))
	for _, p := range op.Inputs {
		declared[p.Name] = true
		if _, ok := args[p.Name]; ok {
			order = append(order, p.Name)
		}
	}
	var extra []string
	for name := range args {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func qualify(name string, qualified bool) string {
	if qualified {
		return argPrefix + ":" + name
	}
	return name
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
