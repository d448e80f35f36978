// Package llm holds the text generation backends. Each backend answers a
// single prompt with a single reply; callers own prompting and parsing.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the service answers without any text
var ErrEmptyResponse = errors.New("llm: empty response")

// Service generates text for a prompt
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ServiceFunc adapts a function to the Service interface
type ServiceFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f
func (f ServiceFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Request is one generation call. A non-nil Schema asks for a JSON reply
// shaped like it.
type Request struct {
	Prompt string
	Schema *Schema
}

// Schema type names
const (
	TypeObject = "object"
	TypeArray  = "array"
	TypeString = "string"
)

// Schema is the subset of JSON Schema the council prompts need
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// String is a string schema
func String() *Schema {
	return &Schema{Type: TypeString}
}

// Object is an object schema over string properties, all of them required
func Object(fields ...string) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(fields))}
	for _, f := range fields {
		s.Properties[f] = String()
	}
	s.Required = append([]string(nil), fields...)
	return s
}

// ArrayOf is an array schema
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}
