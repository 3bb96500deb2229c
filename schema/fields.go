package schema

import "sort"

// ConfigFieldType represents the type of a configuration field.
type ConfigFieldType string

const (
	FieldTypeString   ConfigFieldType = "string"
	FieldTypeText     ConfigFieldType = "text"
	FieldTypeNumber   ConfigFieldType = "number"
	FieldTypeBool     ConfigFieldType = "boolean"
	FieldTypeSelect   ConfigFieldType = "select"
	FieldTypeDynamic  ConfigFieldType = "dynamic"
	FieldTypeSecret   ConfigFieldType = "secret"
	FieldTypeJSON     ConfigFieldType = "json"
	FieldTypeDuration ConfigFieldType = "duration"
)

// ConfigFieldDef describes a single configuration field rendered by the
// builder UI.
type ConfigFieldDef struct {
	Key          string          `json:"key"`
	Label        string          `json:"label"`
	Type         ConfigFieldType `json:"type"`
	Description  string          `json:"description,omitempty"`
	Required     bool            `json:"required,omitempty"`
	DefaultValue any             `json:"defaultValue,omitempty"`
	Options      []Option        `json:"options,omitempty"` // for select type
	Placeholder  string          `json:"placeholder,omitempty"`
	Refreshers   []string        `json:"refreshers,omitempty"` // fields whose change recomputes this one
	Sensitive    bool            `json:"sensitive,omitempty"`
}

// Option is a single selectable entry of a dropdown.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DropdownState is the resolved state of a dropdown field.
type DropdownState struct {
	Disabled    bool     `json:"disabled"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Option `json:"options"`
}

// DisabledDropdown returns a dropdown with no options and a hint telling the
// user what to configure first.
func DisabledDropdown(placeholder string) *DropdownState {
	return &DropdownState{Disabled: true, Placeholder: placeholder, Options: []Option{}}
}

// DropdownOf builds an enabled dropdown whose labels equal its values.
func DropdownOf(values []string) *DropdownState {
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{Label: v, Value: v})
	}
	return &DropdownState{Options: opts}
}

// Values returns the option values in order.
func (d *DropdownState) Values() []string {
	out := make([]string, 0, len(d.Options))
	for _, o := range d.Options {
		out = append(out, o.Value)
	}
	return out
}

// DynamicFieldSet maps a field name to its generated definition.
type DynamicFieldSet map[string]ConfigFieldDef

// TextField returns a short text field keyed and labelled by name.
func TextField(name string, required bool) ConfigFieldDef {
	return ConfigFieldDef{Key: name, Label: name, Type: FieldTypeString, Required: required}
}

// Keys returns the sorted field names.
func (s DynamicFieldSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ordered returns the field definitions sorted by key.
func (s DynamicFieldSet) Ordered() []ConfigFieldDef {
	out := make([]ConfigFieldDef, 0, len(s))
	for _, k := range s.Keys() {
		out = append(out, s[k])
	}
	return out
}
