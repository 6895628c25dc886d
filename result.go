package codebook

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/codebook/pkg/document"
	"github.com/gofhir/codebook/pkg/hierarchy"
	"github.com/gofhir/codebook/pkg/issue"
)

// Result is the outcome of one compilation run.
type Result struct {
	// Artifacts are the CodeSystem, the ValueSets, the issue report and the
	// Bundle, ready for encoding.
	Artifacts *document.Artifacts

	// Index is the completed coding index.
	Index *hierarchy.Index

	// Issues holds every soft issue in occurrence order.
	Issues *issue.Log

	Stats Stats
}

// HasIssues reports whether any issue was logged.
func (r *Result) HasIssues() bool {
	return r != nil && r.Issues.Len() > 0
}

// Stats summarizes a run.
type Stats struct {
	Rows      int
	Entries   int
	TopLevel  int
	Questions int
	ValueSets int
	Issues    int
	ByStage   map[issue.Source]int
	Duration  time.Duration
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("rows", s.Rows).
		Int("terms", s.Entries).
		Int("topLevel", s.TopLevel).
		Int("questions", s.Questions).
		Int("valueSets", s.ValueSets).
		Int("issues", s.Issues).
		Int("normalizeIssues", s.ByStage[issue.SourceNormalize]).
		Int("indexIssues", s.ByStage[issue.SourceIndex]).
		Int("verifyIssues", s.ByStage[issue.SourceVerify]).
		Dur("duration", s.Duration)
}
