package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Metadata holds the descriptive fields shared by the produced documents.
type Metadata struct {
	// URL is the canonical URL of the CodeSystem (the identity system).
	URL         string
	Version     string
	Date        string
	Name        string
	Title       string
	Description string
	Publisher   string
}

// NewCodeSystem wraps a rendered hierarchy into a CodeSystem document.
// count is the number of indexed entries, which can exceed the number of
// rendered nodes when entries hang under the meta root.
func NewCodeSystem(meta Metadata, count int, concepts []Concept) *CodeSystem {
	if concepts == nil {
		concepts = []Concept{}
	}
	return &CodeSystem{
		ResourceType:     ResourceCodeSystem,
		URL:              meta.URL,
		Version:          meta.Version,
		Name:             meta.Name,
		Title:            meta.Title,
		Status:           StatusDraft,
		Date:             meta.Date,
		Publisher:        meta.Publisher,
		Description:      meta.Description,
		CaseSensitive:    true,
		HierarchyMeaning: HierarchyGrouped,
		Compositional:    false,
		Content:          ContentComplete,
		Count:            count,
		Property:         ConceptProperties,
		Concept:          concepts,
	}
}

// NewBundle combines the CodeSystem and the ValueSets, CodeSystem first.
func NewBundle(cs *CodeSystem, valueSets []*ValueSet) *Bundle {
	b := &Bundle{
		ResourceType: ResourceBundle,
		Type:         BundleCollection,
		Entry:        make([]BundleEntry, 0, len(valueSets)+1),
	}
	b.Entry = append(b.Entry, BundleEntry{FullURL: FullURL(cs.URL), Resource: cs})
	for _, vs := range valueSets {
		b.Entry = append(b.Entry, BundleEntry{FullURL: FullURL(vs.URL), Resource: vs})
	}
	return b
}

// FullURL returns a stable urn:uuid for a canonical URL (UUID version 5).
func FullURL(canonical string) string {
	if canonical == "" {
		return ""
	}
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(canonical)).String()
}

// Artifacts are the three documents of one compilation run.
type Artifacts struct {
	CodeSystem *CodeSystem
	ValueSets  []*ValueSet
	Issues     []string
	Bundle     *Bundle
}

// Assemble builds the artifacts from the compiled parts.
func Assemble(cs *CodeSystem, valueSets []*ValueSet, issues []string) *Artifacts {
	if issues == nil {
		issues = []string{}
	}
	return &Artifacts{
		CodeSystem: cs,
		ValueSets:  valueSets,
		Issues:     issues,
		Bundle:     NewBundle(cs, valueSets),
	}
}

// Encoded holds the JSON encoding of each artifact.
type Encoded struct {
	CodeSystem []byte
	Issues     []byte
	Bundle     []byte
}

// Encode marshals every artifact. Nothing is returned unless all succeed.
func (a *Artifacts) Encode() (*Encoded, error) {
	cs, err := Marshal(a.CodeSystem)
	if err != nil {
		return nil, fmt.Errorf("encode CodeSystem: %w", err)
	}
	issues, err := Marshal(a.Issues)
	if err != nil {
		return nil, fmt.Errorf("encode issues: %w", err)
	}
	bundle, err := Marshal(a.Bundle)
	if err != nil {
		return nil, fmt.Errorf("encode Bundle: %w", err)
	}
	return &Encoded{CodeSystem: cs, Issues: issues, Bundle: bundle}, nil
}

// Marshal encodes v as indented JSON without HTML escaping, followed by a
// newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
