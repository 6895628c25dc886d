package terminology

import (
	"encoding/json"
	"fmt"

	"github.com/gofhir/fhir/r4"
)

// LoadStats contains statistics about terminology loading.
type LoadStats struct {
	CodeSystemsLoaded int
	ValueSetsLoaded   int
}

// bundleEntry represents an entry in a FHIR Bundle.
type bundleEntry struct {
	Resource json.RawMessage `json:"resource"`
}

// bundle represents a minimal FHIR Bundle structure.
type bundle struct {
	ResourceType string        `json:"resourceType"`
	Entry        []bundleEntry `json:"entry"`
}

// LoadBundle loads every CodeSystem, then every ValueSet, of a Bundle.
// The first failing resource aborts loading.
func (c *Catalog) LoadBundle(data []byte) (*LoadStats, error) {
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("expected Bundle, got %q", b.ResourceType)
	}

	stats := &LoadStats{}
	var valueSets []json.RawMessage
	for i, e := range b.Entry {
		if e.Resource == nil {
			continue
		}
		var probe struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(e.Resource, &probe); err != nil {
			return stats, fmt.Errorf("bundle entry %d: %w", i, err)
		}
		switch probe.ResourceType {
		case "CodeSystem":
			if err := c.loadCodeSystemJSON(e.Resource); err != nil {
				return stats, fmt.Errorf("bundle entry %d: %w", i, err)
			}
			stats.CodeSystemsLoaded++
		case "ValueSet":
			valueSets = append(valueSets, e.Resource)
		}
	}

	for _, raw := range valueSets {
		if err := c.loadValueSetJSON(raw); err != nil {
			return stats, err
		}
		stats.ValueSetsLoaded++
	}
	return stats, nil
}

func (c *Catalog) loadCodeSystemJSON(data []byte) error {
	var cs r4.CodeSystem
	if err := json.Unmarshal(data, &cs); err != nil {
		return fmt.Errorf("failed to parse CodeSystem: %w", err)
	}
	return c.LoadCodeSystem(&cs)
}

func (c *Catalog) loadValueSetJSON(data []byte) error {
	var vs r4.ValueSet
	if err := json.Unmarshal(data, &vs); err != nil {
		return fmt.Errorf("failed to parse ValueSet: %w", err)
	}
	return c.LoadValueSet(&vs)
}
