package wsdl

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Parse parses a single WSDL document. Imports are not followed; use a
// Loader for that.
func Parse(data []byte) (*Definition, error) {
	p := &parser{def: newDefinition()}
	if _, err := p.addDocument(data); err != nil {
		return nil, err
	}
	return p.def, nil
}

type parser struct {
	def *Definition
}

// addDocument merges one WSDL or XSD document into the definition and returns
// the locations it imports, unresolved.
func (p *parser) addDocument(data []byte) ([]string, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	root := rootElement(doc)
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}

	switch root.Data {
	case "definitions":
		return p.addDefinitions(root), nil
	case "schema":
		return p.addSchema(root), nil
	default:
		return nil, fmt.Errorf("%w: unexpected root element %q", ErrParse, root.Data)
	}
}

func (p *parser) addDefinitions(root *xmlquery.Node) []string {
	var imports []string
	if p.def.TargetNamespace == "" {
		p.def.TargetNamespace = root.SelectAttr("targetNamespace")
	}

	for _, n := range childElements(root, "") {
		switch n.Data {
		case "import":
			if loc := n.SelectAttr("location"); loc != "" {
				imports = append(imports, loc)
			}
		case "types":
			for _, s := range childElements(n, "schema") {
				imports = append(imports, p.addSchema(s)...)
			}
		case "message":
			p.addMessage(n)
		case "portType":
			p.addPortType(n)
		case "binding":
			p.addBinding(n)
		case "service":
			p.addService(n)
		}
	}
	return imports
}

func (p *parser) addMessage(n *xmlquery.Node) {
	msg := &Message{Name: n.SelectAttr("name")}
	for _, part := range childElements(n, "part") {
		msg.Parts = append(msg.Parts, Part{
			Name:    part.SelectAttr("name"),
			Element: localName(part.SelectAttr("element")),
			Type:    localName(part.SelectAttr("type")),
		})
	}
	p.def.Messages[msg.Name] = msg
}

func (p *parser) addPortType(n *xmlquery.Node) {
	pt := &PortType{Name: n.SelectAttr("name"), Operations: make(map[string]*AbstractOperation)}
	for _, op := range childElements(n, "operation") {
		ao := &AbstractOperation{Name: op.SelectAttr("name")}
		if in := firstChild(op, "input"); in != nil {
			ao.Input = localName(in.SelectAttr("message"))
		}
		if out := firstChild(op, "output"); out != nil {
			ao.Output = localName(out.SelectAttr("message"))
		}
		pt.Operations[ao.Name] = ao
	}
	p.def.PortTypes[pt.Name] = pt
}

func (p *parser) addBinding(n *xmlquery.Node) {
	b := &Binding{
		Name:     n.SelectAttr("name"),
		PortType: localName(n.SelectAttr("type")),
		Style:    StyleDocument,
	}
	soapBinding := false

	for _, c := range childElements(n, "") {
		switch {
		case c.Data == "binding" && isSOAPExtension(c):
			soapBinding = true
			b.Version = soapVersionOf(c)
			if style := c.SelectAttr("style"); style != "" {
				b.Style = style
			}
		case c.Data == "operation" && !isSOAPExtension(c):
			b.Operations = append(b.Operations, parseBindingOperation(c))
		}
	}

	// HTTP and other non-SOAP bindings are not callable here.
	if !soapBinding {
		return
	}
	p.def.Bindings[b.Name] = b
}

func parseBindingOperation(n *xmlquery.Node) *BindingOperation {
	op := &BindingOperation{Name: n.SelectAttr("name")}
	for _, c := range childElements(n, "") {
		switch {
		case c.Data == "operation" && isSOAPExtension(c):
			op.SOAPAction = c.SelectAttr("soapAction")
			op.Style = c.SelectAttr("style")
		case c.Data == "input":
			if body := firstChild(c, "body"); body != nil {
				op.Namespace = body.SelectAttr("namespace")
			}
		}
	}
	return op
}

func (p *parser) addService(n *xmlquery.Node) {
	svc := &Service{Name: n.SelectAttr("name")}
	for _, pn := range childElements(n, "port") {
		port := &Port{
			Name:    pn.SelectAttr("name"),
			Binding: localName(pn.SelectAttr("binding")),
		}
		if addr := firstChild(pn, "address"); addr != nil {
			port.Address = addr.SelectAttr("location")
		}
		svc.Ports = append(svc.Ports, port)
	}
	p.def.Services = append(p.def.Services, svc)
}

func (p *parser) addSchema(n *xmlquery.Node) []string {
	var imports []string
	tns := n.SelectAttr("targetNamespace")
	qualified := n.SelectAttr("elementFormDefault") == "qualified"

	for _, c := range childElements(n, "") {
		switch c.Data {
		case "import", "include":
			if loc := c.SelectAttr("schemaLocation"); loc != "" {
				imports = append(imports, loc)
			}
		case "element":
			el := &Element{
				Name:      c.SelectAttr("name"),
				Namespace: tns,
				Qualified: qualified,
				Type:      localName(c.SelectAttr("type")),
			}
			if ct := firstChild(c, "complexType"); ct != nil {
				el.Complex = parseComplexType(ct)
			}
			p.def.Elements[el.Name] = el
		case "complexType":
			ct := parseComplexType(c)
			p.def.ComplexTypes[ct.Name] = ct
		}
	}
	return imports
}

func parseComplexType(n *xmlquery.Node) *ComplexType {
	ct := &ComplexType{Name: n.SelectAttr("name")}
	collectFields(n, ct)
	return ct
}

func collectFields(n *xmlquery.Node, ct *ComplexType) {
	for _, c := range childElements(n, "") {
		switch c.Data {
		case "sequence", "all", "choice":
			collectFields(c, ct)
		case "complexContent", "simpleContent":
			collectFields(c, ct)
		case "extension", "restriction":
			if ct.Base == "" {
				ct.Base = localName(c.SelectAttr("base"))
			}
			collectFields(c, ct)
		case "element":
			name := c.SelectAttr("name")
			if name == "" {
				name = localName(c.SelectAttr("ref"))
			}
			ct.Fields = append(ct.Fields, Field{
				Name:      name,
				Type:      localName(c.SelectAttr("type")),
				MinOccurs: c.SelectAttr("minOccurs"),
				MaxOccurs: c.SelectAttr("maxOccurs"),
			})
		}
	}
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// childElements returns the element children of n with the given local name,
// or all element children when name is empty.
func childElements(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if name == "" || c.Data == name {
			out = append(out, c)
		}
	}
	return out
}

func firstChild(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

func isSOAPExtension(n *xmlquery.Node) bool {
	switch n.NamespaceURI {
	case NamespaceSOAP11Binding, NamespaceSOAP12Binding:
		return true
	}
	return false
}

func soapVersionOf(n *xmlquery.Node) Version {
	if n.NamespaceURI == NamespaceSOAP12Binding {
		return SOAP12
	}
	return SOAP11
}

func localName(qname string) string {
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		return qname[i+1:]
	}
	return qname
}
