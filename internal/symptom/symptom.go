// Package symptom holds the static symptom catalog used by triage.
//
// A Catalog is built once and never mutated afterwards, so it is safe for
// concurrent readers without locking. Accessors hand out copies.
package symptom

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Symptom is a single catalog entry.
type Symptom struct {
	ID        string `yaml:"id" json:"id"`
	NameEN    string `yaml:"name_en" json:"name_en"`
	NameBN    string `yaml:"name_bn" json:"name_bn"`
	Icon      string `yaml:"icon" json:"icon,omitempty"`
	Category  string `yaml:"category" json:"category"`
	Weight    int    `yaml:"severity_weight" json:"severity_weight"`
	Emergency bool   `yaml:"emergency" json:"emergency"`
}

// Catalog is an immutable, ordered set of symptoms keyed by ID.
type Catalog struct {
	list []Symptom
	byID map[string]int
}

type catalogFile struct {
	Symptoms []Symptom `yaml:"symptoms"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Load(embeddedCatalog)
})

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which can only happen on a broken build.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("symptom: embedded catalog: %v", err))
	}
	return c
}

// LoadFile reads and validates a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML catalog.
func Load(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Symptoms) == 0 {
		return nil, errors.New("catalog has no symptoms")
	}

	c := &Catalog{
		list: make([]Symptom, 0, len(f.Symptoms)),
		byID: make(map[string]int, len(f.Symptoms)),
	}

	var errs []error
	for i, s := range f.Symptoms {
		s.ID = strings.TrimSpace(s.ID)
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Errorf("entry %d: empty id", i))
			continue
		case s.NameEN == "" || s.NameBN == "":
			errs = append(errs, fmt.Errorf("symptom %q: both name_en and name_bn are required", s.ID))
		case s.Weight < 1:
			errs = append(errs, fmt.Errorf("symptom %q: severity_weight %d (must be >= 1)", s.ID, s.Weight))
		}
		if _, dup := c.byID[s.ID]; dup {
			errs = append(errs, fmt.Errorf("symptom %q: duplicate id", s.ID))
			continue
		}
		c.byID[s.ID] = len(c.list)
		c.list = append(c.list, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Symptom, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Symptom{}, false
	}
	return c.list[i], true
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.list) }

// All returns every entry in catalog order.
func (c *Catalog) All() []Symptom {
	out := make([]Symptom, len(c.list))
	copy(out, c.list)
	return out
}

// ByCategory returns the entries tagged with category, in catalog order.
func (c *Catalog) ByCategory(category string) []Symptom {
	out := []Symptom{}
	for _, s := range c.list {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// Categories returns the distinct category tags in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range c.list {
		if _, ok := seen[s.Category]; ok {
			continue
		}
		seen[s.Category] = struct{}{}
		out = append(out, s.Category)
	}
	return out
}

// EmergencyIDs returns the ids flagged as emergency, in catalog order.
func (c *Catalog) EmergencyIDs() []string {
	var out []string
	for _, s := range c.list {
		if s.Emergency {
			out = append(out, s.ID)
		}
	}
	return out
}
