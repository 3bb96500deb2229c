package wsdl

// Version is the SOAP protocol version of a binding.
type Version string

const (
	SOAP11 Version = "1.1"
	SOAP12 Version = "1.2"
)

// Binding styles.
const (
	StyleDocument = "document"
	StyleRPC      = "rpc"
)

// Namespaces of the SOAP binding extensibility elements.
const (
	NamespaceSOAP11Binding = "http://schemas.xmlsoap.org/wsdl/soap/"
	NamespaceSOAP12Binding = "http://schemas.xmlsoap.org/wsdl/soap12/"
)

// Definition is the merged content of a WSDL 1.1 document and everything it
// imports. Names are stored as local names; namespace prefixes are dropped.
type Definition struct {
	TargetNamespace string
	Messages        map[string]*Message
	PortTypes       map[string]*PortType
	Bindings        map[string]*Binding
	Services        []*Service
	Elements        map[string]*Element
	ComplexTypes    map[string]*ComplexType
}

func newDefinition() *Definition {
	return &Definition{
		Messages:     make(map[string]*Message),
		PortTypes:    make(map[string]*PortType),
		Bindings:     make(map[string]*Binding),
		Elements:     make(map[string]*Element),
		ComplexTypes: make(map[string]*ComplexType),
	}
}

// Message is a wsdl:message.
type Message struct {
	Name  string
	Parts []Part
}

// Part is a single wsdl:part. Exactly one of Element or Type is normally set.
type Part struct {
	Name    string
	Element string
	Type    string
}

// PortType is a wsdl:portType.
type PortType struct {
	Name       string
	Operations map[string]*AbstractOperation
}

// AbstractOperation is an operation of a port type, naming its messages.
type AbstractOperation struct {
	Name   string
	Input  string
	Output string
}

// Binding is a SOAP wsdl:binding.
type Binding struct {
	Name       string
	PortType   string
	Style      string
	Version    Version
	Operations []*BindingOperation
}

// BindingOperation carries the SOAP specifics of one bound operation.
type BindingOperation struct {
	Name       string
	SOAPAction string
	Style      string
	Namespace  string
}

// Service is a wsdl:service.
type Service struct {
	Name  string
	Ports []*Port
}

// Port is a wsdl:port with its SOAP address.
type Port struct {
	Name    string
	Binding string
	Address string
}

// Element is a top-level xs:element.
type Element struct {
	Name      string
	Namespace string
	Qualified bool
	Type      string
	Complex   *ComplexType
}

// ComplexType is an xs:complexType reduced to its child elements.
type ComplexType struct {
	Name   string
	Base   string
	Fields []Field
}

// Field is a child element of a complex type.
type Field struct {
	Name      string
	Type      string
	MinOccurs string
	MaxOccurs string
}

// Required reports whether the field must be present.
func (f Field) Required() bool { return f.MinOccurs != "0" }
