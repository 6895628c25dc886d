package hierarchy

import (
	"fmt"

	"github.com/gofhir/codebook/pkg/document"
	"github.com/gofhir/codebook/pkg/entry"
)

// Render returns the concept nodes under parentCode (nil for the top level),
// recursively, in insertion order.
func (idx *Index) Render(parentCode *string) ([]document.Concept, error) {
	return idx.render(entry.NewCoding(idx.rules.System, parentCode), make(map[entry.Coding]bool))
}

// RenderRoot renders the full hierarchy from the top level.
func (idx *Index) RenderRoot() ([]document.Concept, error) {
	return idx.Render(nil)
}

func (idx *Index) render(parent entry.Coding, path map[entry.Coding]bool) ([]document.Concept, error) {
	children := idx.byParent[parent]
	if len(children) == 0 {
		return nil, nil
	}

	out := make([]document.Concept, 0, len(children))
	for _, child := range children {
		c := child.Coding()
		if path[c] {
			return nil, fmt.Errorf("%w: %q reached again below %q", ErrCycle, c.Code, parent.Code)
		}
		path[c] = true
		sub, err := idx.render(c, path)
		delete(path, c)
		if err != nil {
			return nil, err
		}
		out = append(out, document.Concept{
			Code:     child.CodeValue(),
			Display:  child.DisplayValue(),
			Property: conceptProperties(child),
			Concept:  sub,
		})
	}
	return out, nil
}

func conceptProperties(e entry.Entry) []document.Property {
	return []document.Property{
		{Code: document.PropertyConceptType, ValueCode: e.Type},
		{Code: document.PropertyConceptTopic, ValueCode: e.Topic},
	}
}
