package device

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Catalog is the set of devices read from a devices.json file.
// It is read-only after loading and safe for concurrent use.
type Catalog struct {
	path    string
	records []Record
	byName  map[string]*Record
	byID    map[string]*Record
}

// LoadCatalog reads a devices.json file.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device catalog: %w", err)
	}
	c, err := ParseCatalog(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.path = path
	return c, nil
}

// ParseCatalog decodes a JSON array of device records.
func ParseCatalog(b []byte) (*Catalog, error) {
	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("failed to parse device catalog: %w", err)
	}
	return NewCatalog(records), nil
}

// NewCatalog indexes records by name and ID. The first record wins on duplicates.
func NewCatalog(records []Record) *Catalog {
	c := &Catalog{
		records: records,
		byName:  make(map[string]*Record, len(records)),
		byID:    make(map[string]*Record, len(records)),
	}
	for i := range c.records {
		r := &c.records[i]
		if _, ok := c.byName[r.Name]; !ok && r.Name != "" {
			c.byName[r.Name] = r
		}
		if _, ok := c.byID[r.ID]; !ok && r.ID != "" {
			c.byID[r.ID] = r
		}
	}
	return c
}

// Path returns the file the catalog was loaded from, if any.
func (c *Catalog) Path() string {
	return c.path
}

// Get returns a device by name or ID.
func (c *Catalog) Get(nameOrID string) (*Record, error) {
	if r, ok := c.byName[nameOrID]; ok {
		return r, nil
	}
	if r, ok := c.byID[nameOrID]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, nameOrID)
}

// List returns all devices ordered by name.
func (c *Catalog) List() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of devices.
func (c *Catalog) Len() int {
	return len(c.records)
}
