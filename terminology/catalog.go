package terminology

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofhir/fhir/r4"
)

// ErrDuplicateConcept is returned when a CodeSystem defines a code twice.
var ErrDuplicateConcept = errors.New("duplicate concept")

// Catalog holds loaded CodeSystems and ValueSets for code lookup.
type Catalog struct {
	mu          sync.RWMutex
	codeSystems map[string]*codeSystemData
	valueSets   map[string]*valueSetData
	vsOrder     []string
}

// codeSystemData holds the concepts of one CodeSystem.
type codeSystemData struct {
	url   string
	codes map[string]Concept
}

// valueSetData holds the explicitly included members of one ValueSet.
type valueSetData struct {
	url     string
	members []Concept
	seen    map[Concept]bool
}

// Concept is a code with its system and display.
type Concept struct {
	System  string
	Code    string
	Display string
}

// ValidateCodeResult is the outcome of a code lookup.
type ValidateCodeResult struct {
	Valid   bool
	System  string
	Code    string
	Display string
	Message string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		codeSystems: make(map[string]*codeSystemData),
		valueSets:   make(map[string]*valueSetData),
	}
}

// LoadCodeSystem loads an R4 CodeSystem, walking nested concepts.
func (c *Catalog) LoadCodeSystem(cs *r4.CodeSystem) error {
	if cs == nil || cs.Url == nil {
		return fmt.Errorf("codesystem is nil or has no URL")
	}

	data := &codeSystemData{
		url:   *cs.Url,
		codes: make(map[string]Concept),
	}
	if err := data.addConcepts(cs.Concept); err != nil {
		return err
	}

	c.mu.Lock()
	c.codeSystems[data.url] = data
	c.mu.Unlock()
	return nil
}

func (d *codeSystemData) addConcepts(concepts []r4.CodeSystemConcept) error {
	for i := range concepts {
		concept := &concepts[i]
		if concept.Code == nil {
			continue
		}
		code := *concept.Code
		if _, ok := d.codes[code]; ok {
			return fmt.Errorf("codesystem %s: %w %q", d.url, ErrDuplicateConcept, code)
		}

		display := ""
		if concept.Display != nil {
			display = *concept.Display
		}
		d.codes[code] = Concept{System: d.url, Code: code, Display: display}

		if len(concept.Concept) > 0 {
			if err := d.addConcepts(concept.Concept); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadValueSet loads the compose.include concepts of an R4 ValueSet.
func (c *Catalog) LoadValueSet(vs *r4.ValueSet) error {
	if vs == nil || vs.Url == nil {
		return fmt.Errorf("valueset is nil or has no URL")
	}

	data := &valueSetData{
		url:  *vs.Url,
		seen: make(map[Concept]bool),
	}
	if vs.Compose != nil {
		for i := range vs.Compose.Include {
			include := &vs.Compose.Include[i]
			if include.System == nil {
				continue
			}
			system := *include.System
			for j := range include.Concept {
				concept := &include.Concept[j]
				if concept.Code == nil {
					continue
				}
				display := ""
				if concept.Display != nil {
					display = *concept.Display
				}
				data.add(Concept{System: system, Code: *concept.Code, Display: display})
			}
		}
	}

	c.mu.Lock()
	if _, seen := c.valueSets[data.url]; !seen {
		c.vsOrder = append(c.vsOrder, data.url)
	}
	c.valueSets[data.url] = data
	c.mu.Unlock()
	return nil
}

func (d *valueSetData) add(m Concept) {
	key := Concept{System: m.System, Code: m.Code}
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.members = append(d.members, m)
}

// ValidateCode checks that code is defined by the CodeSystem system.
func (c *Catalog) ValidateCode(ctx context.Context, system, code string) (*ValidateCodeResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if code == "" {
		return &ValidateCodeResult{Valid: false, System: system, Message: "code is empty"}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	cs, ok := c.codeSystems[system]
	if !ok {
		return nil, fmt.Errorf("codesystem not found: %s", system)
	}
	if m, ok := cs.codes[code]; ok {
		return &ValidateCodeResult{Valid: true, System: system, Code: code, Display: m.Display}, nil
	}
	return &ValidateCodeResult{
		Valid:   false,
		System:  system,
		Code:    code,
		Message: fmt.Sprintf("code '%s' not found in CodeSystem '%s'", code, system),
	}, nil
}

// Members returns the concepts of a ValueSet in include order.
func (c *Catalog) Members(valueSetURL string) ([]Concept, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vs, ok := c.valueSets[valueSetURL]
	if !ok {
		return nil, false
	}
	out := make([]Concept, len(vs.members))
	copy(out, vs.members)
	return out, true
}

// ValueSetURLs returns the loaded ValueSet URLs in load order.
func (c *Catalog) ValueSetURLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.vsOrder))
	copy(out, c.vsOrder)
	return out
}
