package wsdl

import (
	"fmt"
	"sort"
)

// Catalog is the set of operations offered by a descriptor, taken from the
// first SOAP port of the first service that has one.
type Catalog struct {
	Locator    string       `json:"locator"`
	Service    string       `json:"service"`
	Port       string       `json:"port"`
	Operations []*Operation `json:"operations"`
}

// NewCatalog selects the operation catalog of def.
func NewCatalog(locator string, def *Definition) (*Catalog, error) {
	for _, svc := range def.Describe() {
		for _, port := range svc.Ports {
			return &Catalog{
				Locator:    locator,
				Service:    svc.Name,
				Port:       port.Name,
				Operations: port.Operations,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s declares no SOAP service port", ErrParse, locator)
}

// Names returns the sorted operation names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Operations))
	for _, op := range c.Operations {
		names = append(names, op.Name)
	}
	sort.Strings(names)
	return names
}

// Operation looks up an operation by name.
func (c *Catalog) Operation(name string) (*Operation, error) {
	for _, op := range c.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not declared by %s", ErrUnknownOperation, name, c.Locator)
}

// Inputs returns the declared input parameters of the named operation.
func (c *Catalog) Inputs(name string) ([]Param, error) {
	op, err := c.Operation(name)
	if err != nil {
		return nil, err
	}
	return op.Inputs, nil
}
