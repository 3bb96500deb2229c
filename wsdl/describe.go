package wsdl

// Param is a single input or output parameter of an operation.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required"`
}

// Operation is a callable operation of one service port, with everything
// needed to build a request envelope for it.
type Operation struct {
	Name       string  `json:"name"`
	SOAPAction string  `json:"soapAction,omitempty"`
	Endpoint   string  `json:"endpoint"`
	Version    Version `json:"version"`
	Style      string  `json:"style"`

	// RequestElement wraps the parameters in the SOAP body. When empty the
	// parameters are written directly into the body.
	RequestElement string `json:"requestElement,omitempty"`
	// Namespace of RequestElement, or of the bare parameters.
	Namespace string `json:"namespace,omitempty"`
	// Qualified reports whether parameter elements carry Namespace.
	Qualified bool `json:"qualified,omitempty"`

	Inputs  []Param `json:"inputs"`
	Outputs []Param `json:"outputs,omitempty"`
}

// InputNames returns the declared input parameter names in order.
func (o *Operation) InputNames() []string {
	names := make([]string, 0, len(o.Inputs))
	for _, p := range o.Inputs {
		names = append(names, p.Name)
	}
	return names
}

// Input returns the input parameter with the given name.
func (o *Operation) Input(name string) (Param, bool) {
	for _, p := range o.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ServiceDescription lists the ports of one service.
type ServiceDescription struct {
	Name  string            `json:"name"`
	Ports []PortDescription `json:"ports"`
}

// PortDescription lists the operations reachable through one port.
type PortDescription struct {
	Name       string       `json:"name"`
	Operations []*Operation `json:"operations"`
}

// Describe flattens the definition into service -> port -> operation form.
// Ports bound to non-SOAP bindings are omitted.
func (d *Definition) Describe() []ServiceDescription {
	out := make([]ServiceDescription, 0, len(d.Services))
	for _, svc := range d.Services {
		sd := ServiceDescription{Name: svc.Name}
		for _, port := range svc.Ports {
			b, ok := d.Bindings[port.Binding]
			if !ok {
				continue
			}
			pd := PortDescription{Name: port.Name}
			for _, bop := range b.Operations {
				pd.Operations = append(pd.Operations, d.describeOperation(port, b, bop))
			}
			sd.Ports = append(sd.Ports, pd)
		}
		out = append(out, sd)
	}
	return out
}

func (d *Definition) describeOperation(port *Port, b *Binding, bop *BindingOperation) *Operation {
	op := &Operation{
		Name:       bop.Name,
		SOAPAction: bop.SOAPAction,
		Endpoint:   port.Address,
		Version:    b.Version,
		Style:      bop.Style,
	}
	if op.Style == "" {
		op.Style = b.Style
	}

	var in, out *Message
	if pt, ok := d.PortTypes[b.PortType]; ok {
		if ao, ok := pt.Operations[bop.Name]; ok {
			in = d.Messages[ao.Input]
			out = d.Messages[ao.Output]
		}
	}

	if op.Style == StyleRPC {
		op.RequestElement = bop.Name
		op.Namespace = bop.Namespace
		if op.Namespace == "" {
			op.Namespace = d.TargetNamespace
		}
		op.Inputs = partParams(in)
		op.Outputs = partParams(out)
		return op
	}

	op.Inputs = d.documentParams(in, op)
	op.Outputs = d.documentParams(out, nil)
	return op
}

// documentParams resolves the parameters of a document-style message. When
// target is non-nil the wrapper element details are recorded on it.
func (d *Definition) documentParams(msg *Message, target *Operation) []Param {
	if msg == nil {
		return []Param{}
	}

	if len(msg.Parts) == 1 && msg.Parts[0].Element != "" {
		if el, ok := d.Elements[msg.Parts[0].Element]; ok {
			if fields, isComplex := d.elementFields(el); isComplex {
				if target != nil {
					target.RequestElement = el.Name
					target.Namespace = el.Namespace
					target.Qualified = el.Qualified
				}
				return fieldParams(fields)
			}
		}
	}

	params := make([]Param, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		name := part.Name
		typ := part.Type
		if part.Element != "" {
			name = part.Element
			if el, ok := d.Elements[part.Element]; ok {
				typ = el.Type
				if target != nil && target.Namespace == "" {
					target.Namespace = el.Namespace
					target.Qualified = true
				}
			}
		}
		params = append(params, Param{Name: name, Type: typ, Required: true})
	}
	return params
}

// elementFields returns the child fields of an element and whether the
// element has complex content.
func (d *Definition) elementFields(el *Element) ([]Field, bool) {
	if el.Complex != nil {
		return d.typeFields(el.Complex, 0), true
	}
	if ct, ok := d.ComplexTypes[el.Type]; ok {
		return d.typeFields(ct, 0), true
	}
	return nil, false
}

const maxTypeDepth = 16

func (d *Definition) typeFields(ct *ComplexType, depth int) []Field {
	if depth > maxTypeDepth {
		return nil
	}
	var fields []Field
	if ct.Base != "" {
		if base, ok := d.ComplexTypes[ct.Base]; ok && base != ct {
			fields = append(fields, d.typeFields(base, depth+1)...)
		}
	}
	return append(fields, ct.Fields...)
}

func fieldParams(fields []Field) []Param {
	params := make([]Param, 0, len(fields))
	for _, f := range fields {
		params = append(params, Param{Name: f.Name, Type: f.Type, Required: f.Required()})
	}
	return params
}

func partParams(msg *Message) []Param {
	if msg == nil {
		return []Param{}
	}
	params := make([]Param, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		typ := part.Type
		if typ == "" {
			typ = part.Element
		}
		params = append(params, Param{Name: part.Name, Type: typ, Required: true})
	}
	return params
}
