// Package schema validates entity objects against JSON schemas before
// they are written to the database.
package schema

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Validator holds compiled JSON schemas keyed by entity name. The zero
// value (and a nil validator) passes every object unchanged.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles the given map of entity name to JSON schema
// document.
func NewValidator(schemas map[string]string) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for entity, document := range schemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", entity, err)
		}
		v.schemas[entity] = schema
	}
	return v, nil
}

// HasSchema reports whether a schema is registered for the entity.
func (v *Validator) HasSchema(entity string) bool {
	if v == nil {
		return false
	}
	_, ok := v.schemas[entity]
	return ok
}

// Validate checks the object against the entity's schema, if one is
// registered.
func (v *Validator) Validate(entity string, object interface{}) error {
	if v == nil {
		return nil
	}
	schema, ok := v.schemas[entity]
	if !ok {
		return nil
	}
	body, err := json.Marshal(object)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if !result.Valid() {
		return fmt.Errorf("%s: %s", entity, result.Errors()[0].String())
	}
	return nil
}
