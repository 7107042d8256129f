package schema

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the schema variants.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// Schema is a structural schema: a closed, composable set of variants that
// the recursive validator in this package understands directly. Its JSON
// encoding is valid JSON Schema, so a Schema doubles as a serialization
// source for external consumers.
type Schema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type Type `json:"type,omitempty"`

	// Object variant
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	// Array variant
	Items    *Schema `json:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty"`

	// Enum variant (Type may be empty)
	Enum []any `json:"enum,omitempty"`

	// String constraints
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Format    string `json:"format,omitempty"`

	// Numeric constraints
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
}

// Object creates an object schema.
func Object() *Schema {
	return &Schema{Type: TypeObject, Properties: make(map[string]*Schema)}
}

// Array creates an array schema with the given item schema.
func Array(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String creates a string schema.
func String() *Schema { return &Schema{Type: TypeString} }

// Number creates a number schema.
func Number() *Schema { return &Schema{Type: TypeNumber} }

// Integer creates an integer schema.
func Integer() *Schema { return &Schema{Type: TypeInteger} }

// Boolean creates a boolean schema.
func Boolean() *Schema { return &Schema{Type: TypeBoolean} }

// Enum creates an enum schema over the given values.
func Enum(values ...any) *Schema { return &Schema{Enum: values} }

// Prop adds a property to an object schema.
func (s *Schema) Prop(name string, prop *Schema) *Schema {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	s.Properties[name] = prop
	return s
}

// Req marks property names as required.
func (s *Schema) Req(names ...string) *Schema {
	s.Required = append(s.Required, names...)
	return s
}

// Closed forbids properties beyond those declared.
func (s *Schema) Closed() *Schema {
	f := false
	s.AdditionalProperties = &f
	return s
}

// WithDescription sets the description.
func (s *Schema) WithDescription(desc string) *Schema {
	s.Description = desc
	return s
}

// JSONSchema serializes the structural schema to a JSON Schema document.
func (s *Schema) JSONSchema() (json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return b, nil
}
