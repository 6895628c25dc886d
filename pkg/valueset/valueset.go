// Package valueset derives one FHIR ValueSet per answered question.
//
// Each ValueSet includes the question's direct answers followed by the
// shared administrative answers parented under the meta root.
package valueset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofhir/codebook/pkg/document"
	"github.com/gofhir/codebook/pkg/entry"
	"github.com/gofhir/codebook/pkg/hierarchy"
)

// ErrMixedSystems is returned when an include group spans several systems.
var ErrMixedSystems = errors.New("include spans more than one system")

// ErrNoAnswers is returned when Derive is asked for a question without answers.
var ErrNoAnswers = errors.New("question has no answers")

// Placeholder is replaced by the question code in a URL template.
const Placeholder = "%s"

// Metadata holds the fields copied onto every derived ValueSet.
type Metadata struct {
	// URLTemplate contains Placeholder, e.g.
	// "http://terminology.pmi-ops.org/ValueSet/%s".
	URLTemplate string
	Version     string
	Date        string
	Publisher   string
}

// URL expands the template for code. A template without placeholder gets
// the code appended.
func (m Metadata) URL(code string) string {
	if strings.Contains(m.URLTemplate, Placeholder) {
		return strings.Replace(m.URLTemplate, Placeholder, code, 1)
	}
	return m.URLTemplate + code
}

// Derive builds the ValueSet for question.
func Derive(idx *hierarchy.Index, meta Metadata, question entry.Entry) (*document.ValueSet, error) {
	code := question.CodeValue()
	answers := idx.Children(question.Coding())
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoAnswers, code)
	}

	answerGroup, err := Include(answers)
	if err != nil {
		return nil, fmt.Errorf("value set for %q: answers: %w", code, err)
	}
	includes := []document.Include{answerGroup}

	if shared := idx.MetaEntries(); len(shared) > 0 {
		metaGroup, err := Include(shared)
		if err != nil {
			return nil, fmt.Errorf("value set for %q: shared answers: %w", code, err)
		}
		includes = append(includes, metaGroup)
	}

	title := question.DisplayValue()
	if title == "" {
		title = code
	}

	return &document.ValueSet{
		ResourceType: document.ResourceValueSet,
		URL:          meta.URL(code),
		Version:      meta.Version,
		Name:         "values-for-" + code,
		Title:        "Values for " + title,
		Status:       document.StatusDraft,
		Date:         meta.Date,
		Publisher:    meta.Publisher,
		Compose:      document.Compose{Include: includes},
	}, nil
}

// DeriveAll builds the ValueSets of every answered question in source order.
func DeriveAll(idx *hierarchy.Index, meta Metadata) ([]*document.ValueSet, error) {
	questions := idx.AnsweredQuestions()
	out := make([]*document.ValueSet, 0, len(questions))
	for _, q := range questions {
		vs, err := Derive(idx, meta, q)
		if err != nil {
			return nil, err
		}
		out = append(out, vs)
	}
	return out, nil
}

// Include groups entries of a single system into one compose.include.
func Include(entries []entry.Entry) (document.Include, error) {
	if len(entries) == 0 {
		return document.Include{}, errors.New("empty include group")
	}
	system := entries[0].System
	concepts := make([]document.IncludeConcept, 0, len(entries))
	for _, e := range entries {
		if e.System != system {
			return document.Include{}, fmt.Errorf("%w: %q and %q (code %q)", ErrMixedSystems, system, e.System, e.CodeValue())
		}
		concepts = append(concepts, document.IncludeConcept{
			Code:    e.CodeValue(),
			Display: e.DisplayValue(),
		})
	}
	return document.Include{System: system, Concept: concepts}, nil
}
