package dps

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NotAvailable is the code and type reported for keys the schema does not describe.
const NotAvailable = "N/A"

// Data point type tags used by the vendor mapping.
const (
	TypeBoolean = "Boolean"
	TypeValue   = "Value"
	TypeEnum    = "Enum"
	TypeString  = "String"
	TypeRaw     = "Raw"
	TypeBitmap  = "Bitmap"
)

// Field holds a schema sub-document that the provisioning tool stores either
// as a nested object or as a JSON-encoded string.
type Field struct {
	structured map[string]any
	encoded    string
	isEncoded  bool
}

// Structured wraps an already decoded mapping.
func Structured(m map[string]any) Field {
	return Field{structured: m}
}

// Encoded wraps a JSON-encoded mapping.
func Encoded(s string) Field {
	return Field{encoded: s, isEncoded: true}
}

// UnmarshalJSON accepts an object, a string, or anything else (ignored).
func (f *Field) UnmarshalJSON(b []byte) error {
	*f = Field{}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = Encoded(s)
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err == nil {
		*f = Structured(m)
	}
	return nil
}

// MarshalJSON writes the field back in the shape it was read.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.isEncoded {
		return json.Marshal(f.encoded)
	}
	if f.structured == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f.structured)
}

// Map returns the canonical mapping. Parse failures and non-object documents
// yield an empty map.
func (f Field) Map() map[string]any {
	if !f.isEncoded {
		if f.structured == nil {
			return map[string]any{}
		}
		return f.structured
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(f.encoded), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Entry describes one data point in a device mapping.
type Entry struct {
	Code      string `json:"code,omitempty"`
	Type      string `json:"type,omitempty"`
	Values    Field  `json:"values"`
	RawValues Field  `json:"raw_values"`
}

// UnmarshalJSON never fails: a non-object entry decodes as empty, and
// non-string code/type are dropped.
func (e *Entry) UnmarshalJSON(b []byte) error {
	*e = Entry{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil
	}
	if raw, ok := fields["code"]; ok {
		_ = json.Unmarshal(raw, &e.Code)
	}
	if raw, ok := fields["type"]; ok {
		_ = json.Unmarshal(raw, &e.Type)
	}
	if raw, ok := fields["values"]; ok {
		_ = e.Values.UnmarshalJSON(raw)
	}
	if raw, ok := fields["raw_values"]; ok {
		_ = e.RawValues.UnmarshalJSON(raw)
	}
	return nil
}

// Resolved is the outcome of looking a key up in a schema.
type Resolved struct {
	Code   string
	Type   string
	Values map[string]any
}

// Schema maps stringified data point keys to their entries.
// It is read-only once loaded and safe for concurrent use.
type Schema map[string]Entry

// UnmarshalJSON tolerates a mapping that is not an object by leaving the schema empty.
func (s *Schema) UnmarshalJSON(b []byte) error {
	var entries map[string]Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		*s = Schema{}
		return nil
	}
	*s = Schema(entries)
	return nil
}

// Lookup returns the entry for key; key is coerced to its string form.
func (s Schema) Lookup(key any) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s[keyString(key)]
	return e, ok
}

// Resolve returns the code, type and values-object of key. The values-object
// comes from "values" when it yields a non-empty mapping, otherwise from
// "raw_values".
func (s Schema) Resolve(key any) Resolved {
	e, _ := s.Lookup(key)
	values := e.Values.Map()
	if len(values) == 0 {
		values = e.RawValues.Map()
	}
	return Resolved{
		Code:   orNotAvailable(e.Code),
		Type:   orNotAvailable(e.Type),
		Values: values,
	}
}

// Code returns the display name of key, or "N/A".
func (s Schema) Code(key any) string {
	e, _ := s.Lookup(key)
	return orNotAvailable(e.Code)
}

// Type returns the declared type of key, or "N/A".
func (s Schema) Type(key any) string {
	e, _ := s.Lookup(key)
	return orNotAvailable(e.Type)
}

// Scale returns the power-of-ten exponent for key. "values" wins over
// "raw_values" when both carry a usable scale.
func (s Schema) Scale(key any) (int, bool) {
	e, ok := s.Lookup(key)
	if !ok {
		return 0, false
	}
	for _, f := range []Field{e.Values, e.RawValues} {
		if v, ok := f.Map()["scale"]; ok {
			if n, ok := toScale(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// Unit returns the unit string for key, resolved in the same order as Scale.
func (s Schema) Unit(key any) (string, bool) {
	e, ok := s.Lookup(key)
	if !ok {
		return "", false
	}
	for _, f := range []Field{e.Values, e.RawValues} {
		if v, ok := f.Map()["unit"]; ok {
			if u, ok := v.(string); ok {
				return u, true
			}
		}
	}
	return "", false
}

func toScale(v any) (int, bool) {
	var n int
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || x < 0 || x > math.MaxInt32 {
			return 0, false
		}
		n = int(x)
	case int:
		n = x
	case int64:
		n = int(x)
	case json.Number:
		i, err := strconv.Atoi(x.String())
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, false
			}
			i = int(f)
		}
		n = i
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}

func keyString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprint(key)
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
