package piece

import (
	"context"
	"fmt"
	"strconv"

	"github.com/GoCodeAlone/workflow-plugin-soap/schema"
)

// PropertyType identifies how the builder renders a property.
type PropertyType string

const (
	ShortText         PropertyType = "SHORT_TEXT"
	LongText          PropertyType = "LONG_TEXT"
	Number            PropertyType = "NUMBER"
	Checkbox          PropertyType = "CHECKBOX"
	SecretText        PropertyType = "SECRET_TEXT"
	StaticDropdown    PropertyType = "STATIC_DROPDOWN"
	Dropdown          PropertyType = "DROPDOWN"
	DynamicProperties PropertyType = "DYNAMIC"
)

// ResolveContext is handed to option and props resolvers. Values only holds
// the property's refreshers.
type ResolveContext struct {
	SessionID string
	Values    PropsValue
	Auth      AuthValue
}

// OptionsFunc computes the options of a Dropdown property.
type OptionsFunc func(ctx context.Context, rc ResolveContext) (*schema.DropdownState, error)

// PropsFunc computes the sub-fields of a DynamicProperties property.
type PropsFunc func(ctx context.Context, rc ResolveContext) (schema.DynamicFieldSet, error)

// Property is one input of an action or of a custom auth.
type Property struct {
	Name          string          `json:"name"`
	DisplayName   string          `json:"displayName"`
	Description   string          `json:"description,omitempty"`
	Type          PropertyType    `json:"type"`
	Required      bool            `json:"required"`
	DefaultValue  any             `json:"defaultValue,omitempty"`
	Refreshers    []string        `json:"refreshers,omitempty"`
	StaticOptions []schema.Option `json:"options,omitempty"`

	Options OptionsFunc `json:"-"`
	Props   PropsFunc   `json:"-"`
}

// Resolvable reports whether the property's options or sub-fields are
// computed at configuration time.
func (p *Property) Resolvable() bool {
	return p.Type == Dropdown || p.Type == DynamicProperties || p.Type == StaticDropdown
}

// Definition maps the property to the builder's field schema.
func (p *Property) Definition() schema.ConfigFieldDef {
	def := schema.ConfigFieldDef{
		Key:          p.Name,
		Label:        p.DisplayName,
		Description:  p.Description,
		Required:     p.Required,
		DefaultValue: p.DefaultValue,
		Options:      p.StaticOptions,
		Refreshers:   p.Refreshers,
	}
	switch p.Type {
	case LongText:
		def.Type = schema.FieldTypeText
	case Number:
		def.Type = schema.FieldTypeNumber
	case Checkbox:
		def.Type = schema.FieldTypeBool
	case SecretText:
		def.Type = schema.FieldTypeSecret
		def.Sensitive = true
	case StaticDropdown, Dropdown:
		def.Type = schema.FieldTypeSelect
	case DynamicProperties:
		def.Type = schema.FieldTypeDynamic
	default:
		def.Type = schema.FieldTypeString
	}
	return def
}

// PropsValue holds submitted property values keyed by property name.
type PropsValue map[string]any

// String returns the value of name rendered as a string, or "" when unset.
func (v PropsValue) String(name string) string {
	switch x := v[name].(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Bool returns the boolean value of name. Strings "true" and "1" count as true.
func (v PropsValue) Bool(name string) bool {
	switch x := v[name].(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	default:
		return false
	}
}

// Int returns the integer value of name and whether it was set and numeric.
func (v PropsValue) Int(name string) (int, bool) {
	switch x := v[name].(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	default:
		return 0, false
	}
}

// StringMap returns a map-valued property with every entry rendered as a
// string. Dynamic properties are submitted in this shape.
func (v PropsValue) StringMap(name string) (map[string]string, error) {
	switch x := v[name].(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return x, nil
	case map[string]any:
		out := make(map[string]string, len(x))
		for k := range x {
			out[k] = PropsValue(x).String(k)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object, got %T", ErrInvalidProps, name, x)
	}
}

// Only returns a copy holding just the named keys.
func (v PropsValue) Only(names []string) PropsValue {
	out := make(PropsValue, len(names))
	for _, n := range names {
		if val, ok := v[n]; ok {
			out[n] = val
		}
	}
	return out
}

func isEmpty(val any) bool {
	switch x := val.(type) {
	case nil:
		return true
	case string:
		return x == ""
	default:
		return false
	}
}
