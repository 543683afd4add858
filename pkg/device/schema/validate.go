package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// StatusPayload describes what a device client must hand over for decoding.
// Error markers are allowed; the caller decides what to do with them.
var StatusPayload = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["dps"],
	"properties": {
		"dps": {
			"type": "object",
			"additionalProperties": {"type": ["boolean", "number", "string", "null"]}
		},
		"t": {"type": ["integer", "number", "string"]}
	}
}`)

// Catalog describes a devices.json file.
var Catalog = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "id", "key"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"id": {"type": "string", "minLength": 1},
			"key": {"type": "string"},
			"ip": {"type": "string"},
			"version": {"type": ["string", "number"]},
			"mapping": {"type": "object"}
		}
	}
}`)

// Validator validates JSON documents against JSON Schema documents.
// It caches compiled schemas keyed by their raw bytes.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates a new Validator with an empty cache.
func NewValidator() *Validator {
	return &Validator{
		cache: make(map[string]*jsonschema.Schema),
	}
}

// Validate validates instance against the given JSON Schema document.
// Returns nil if valid, or an error describing the validation failures.
func (v *Validator) Validate(schemaDoc json.RawMessage, instance any) error {
	if len(schemaDoc) == 0 || string(schemaDoc) == "{}" || string(schemaDoc) == "null" {
		return nil // No schema = no validation
	}

	compiled, err := v.compile(schemaDoc)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	return compiled.Validate(instance)
}

// ValidatePayload checks a status payload before it is decoded.
func (v *Validator) ValidatePayload(p dps.Payload) error {
	return v.Validate(StatusPayload, plain(p))
}

// ValidateCatalog checks the raw bytes of a devices.json file.
func (v *Validator) ValidateCatalog(doc []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	return v.Validate(Catalog, inst)
}

func (v *Validator) compile(schemaDoc json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaDoc)

	v.mu.RLock()
	if s, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return s, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.cache[key]; ok {
		return s, nil
	}

	var schemaMap any
	if err := json.Unmarshal(schemaDoc, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaMap); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

// plain strips named map types so the validator sees plain JSON values.
func plain(p dps.Payload) any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
