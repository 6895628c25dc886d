// Package document defines the FHIR R4 documents produced from a codebook and
// their deterministic JSON encoding.
//
// The structs carry exactly the fields the compiler emits, in the order they
// are written. Values are plain strings so that encoding never depends on map
// iteration or clock state.
package document

// Resource types.
const (
	ResourceCodeSystem = "CodeSystem"
	ResourceValueSet   = "ValueSet"
	ResourceBundle     = "Bundle"
)

// Fixed CodeSystem attributes.
const (
	StatusDraft      = "draft"
	HierarchyGrouped = "grouped-by"
	ContentComplete  = "complete"
	BundleCollection = "collection"
)

// Concept property codes.
const (
	PropertyConceptType  = "concept-type"
	PropertyConceptTopic = "concept-topic"
)

// ConceptProperties describes the two properties carried by every concept.
var ConceptProperties = []PropertyDefinition{
	{
		Code:        PropertyConceptType,
		Description: "indicates whether this PPI concept is a Topic, Question, or Answer",
		Type:        "string",
	},
	{
		Code:        PropertyConceptTopic,
		Description: "indicates the topic for this PPI concept",
		Type:        "string",
	},
}

// PropertyDefinition declares a concept property on the CodeSystem.
type PropertyDefinition struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Property is a property value on a concept.
type Property struct {
	Code      string `json:"code"`
	ValueCode string `json:"valueCode,omitempty"`
}

// Concept is one node of the CodeSystem hierarchy. Concept is omitted when
// the node has no children.
type Concept struct {
	Code     string     `json:"code"`
	Display  string     `json:"display,omitempty"`
	Property []Property `json:"property"`
	Concept  []Concept  `json:"concept,omitempty"`
}

// CodeSystem is the FHIR CodeSystem document.
type CodeSystem struct {
	ResourceType     string               `json:"resourceType"`
	URL              string               `json:"url"`
	Version          string               `json:"version"`
	Name             string               `json:"name"`
	Title            string               `json:"title"`
	Status           string               `json:"status"`
	Date             string               `json:"date"`
	Publisher        string               `json:"publisher"`
	Description      string               `json:"description"`
	CaseSensitive    bool                 `json:"caseSensitive"`
	HierarchyMeaning string               `json:"hierarchyMeaning"`
	Compositional    bool                 `json:"compositional"`
	Content          string               `json:"content"`
	Count            int                  `json:"count"`
	Property         []PropertyDefinition `json:"property"`
	Concept          []Concept            `json:"concept"`
}

// IncludeConcept is a code listed in a ValueSet include.
type IncludeConcept struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// Include is one compose.include group of a ValueSet.
type Include struct {
	System  string           `json:"system"`
	Concept []IncludeConcept `json:"concept"`
}

// Compose is the ValueSet compose element.
type Compose struct {
	Include []Include `json:"include"`
}

// ValueSet is the FHIR ValueSet document derived for one question.
type ValueSet struct {
	ResourceType string  `json:"resourceType"`
	URL          string  `json:"url"`
	Version      string  `json:"version"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	Date         string  `json:"date"`
	Publisher    string  `json:"publisher"`
	Compose      Compose `json:"compose"`
}

// BundleEntry wraps one resource of a Bundle.
type BundleEntry struct {
	FullURL  string `json:"fullUrl,omitempty"`
	Resource any    `json:"resource"`
}

// Bundle is the FHIR Bundle combining the CodeSystem and all ValueSets.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry"`
}
