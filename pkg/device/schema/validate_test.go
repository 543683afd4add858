package schema

import (
	"encoding/json"
	"testing"

	"github.com/urmzd/tuyamon/pkg/dps"
)

func scaleSchema() json.RawMessage {
	return json.RawMessage(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"properties": {
			"unit": {"type": "string"},
			"scale": {"type": "integer", "minimum": 0}
		},
		"additionalProperties": true
	}`)
}

func TestValidate_ValidDocument(t *testing.T) {
	v := NewValidator()

	err := v.Validate(scaleSchema(), map[string]any{
		"unit":  "V",
		"scale": float64(1),
	})
	if err != nil {
		t.Errorf("expected valid document, got: %v", err)
	}
}

func TestValidate_NegativeScale(t *testing.T) {
	v := NewValidator()

	err := v.Validate(scaleSchema(), map[string]any{"scale": float64(-1)})
	if err == nil {
		t.Error("expected validation error for negative scale")
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	// Empty schema means no validation
	err := v.Validate(json.RawMessage(`{}`), map[string]any{
		"anything": "goes",
	})
	if err != nil {
		t.Errorf("empty schema should skip validation, got: %v", err)
	}
}

func TestValidate_NilSchema(t *testing.T) {
	v := NewValidator()

	err := v.Validate(nil, map[string]any{
		"anything": "goes",
	})
	if err != nil {
		t.Errorf("nil schema should skip validation, got: %v", err)
	}
}

func TestValidatePayload_Valid(t *testing.T) {
	v := NewValidator()

	err := v.ValidatePayload(dps.Payload{
		"dps": map[string]any{"1": true, "6": "CP0AMHAACzY=", "20": float64(2305)},
		"t":   float64(1700000000),
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidatePayload_ParsedNumbers(t *testing.T) {
	v := NewValidator()

	p, err := dps.ParsePayload([]byte(`{"dps": {"20": 2305}, "t": 1700000000}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.ValidatePayload(p); err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidatePayload_MissingDPS(t *testing.T) {
	v := NewValidator()

	err := v.ValidatePayload(dps.Payload{"Error": "Network Error: Device Unreachable", "Err": "905"})
	if err == nil {
		t.Error("expected validation error for payload without dps")
	}
}

func TestValidatePayload_NestedValue(t *testing.T) {
	v := NewValidator()

	err := v.ValidatePayload(dps.Payload{
		"dps": map[string]any{"1": map[string]any{"nested": true}},
	})
	if err == nil {
		t.Error("expected validation error for nested data point value")
	}
}

func TestValidateCatalog(t *testing.T) {
	v := NewValidator()

	good := []byte(`[{"name": "Automatico", "id": "bf1234", "key": "secret",
		"mapping": {"1": {"code": "switch", "type": "Boolean", "values": {}}}}]`)
	if err := v.ValidateCatalog(good); err != nil {
		t.Errorf("expected valid catalog, got: %v", err)
	}

	missingKey := []byte(`[{"name": "Automatico", "id": "bf1234"}]`)
	if err := v.ValidateCatalog(missingKey); err == nil {
		t.Error("expected validation error for record without key")
	}

	if err := v.ValidateCatalog([]byte(`{"name": "x"}`)); err == nil {
		t.Error("expected validation error for non-array catalog")
	}

	if err := v.ValidateCatalog([]byte(`[`)); err == nil {
		t.Error("expected parse error for truncated catalog")
	}
}

func TestValidate_CachesSchema(t *testing.T) {
	v := NewValidator()

	for i := 0; i < 2; i++ {
		err := v.ValidatePayload(dps.Payload{"dps": map[string]any{"1": true}})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := v.Validate(scaleSchema(), map[string]any{"scale": float64(0)}); err != nil {
		t.Fatal(err)
	}

	v.mu.RLock()
	cacheSize := len(v.cache)
	v.mu.RUnlock()
	if cacheSize != 2 {
		t.Errorf("expected 2 cached schemas, got %d", cacheSize)
	}
}
