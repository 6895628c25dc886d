// Package issue defines codebook validation issues aligned with FHIR OperationOutcome.
//
// A Log is an explicit, append-only accumulator. Each compilation run creates
// its own Log and hands it to the normalizer and the index builder; callers
// merge logs instead of sharing global state.
package issue

// Severity represents the severity of a validation issue.
type Severity string

// SeverityWarning is the FHIR IssueSeverity of every codebook issue; data
// problems never stop a run.
const SeverityWarning Severity = "warning"

// Code represents the type of validation issue (IssueType).
type Code string

// Code constants aligned with FHIR IssueType.
const (
	CodeRequired    Code = "required"
	CodeValue       Code = "value"
	CodeNotFound    Code = "not-found"
	CodeCodeInvalid Code = "code-invalid"
	CodeIncomplete  Code = "incomplete"
)

// Source identifies the stage that recorded an issue.
type Source string

// Stages that record issues.
const (
	SourceNormalize Source = "normalize"
	SourceIndex     Source = "index"
	SourceVerify    Source = "verify"
)

// Issue represents a single codebook issue.
type Issue struct {
	// Severity indicates the severity level (error, warning, etc.)
	Severity Severity

	// Code indicates the type of issue
	Code Code

	// Diagnostics is the human-readable description of the issue
	Diagnostics string

	// Expression holds the concept code(s) the issue refers to, if any
	Expression []string

	// Source identifies the stage that generated this issue
	Source Source
}

// String returns the diagnostics text.
func (i Issue) String() string {
	return i.Diagnostics
}

// defaultIssueCapacity is the pre-allocated capacity for Issues slice.
const defaultIssueCapacity = 16

// Log holds the ordered collection of issues from one run.
type Log struct {
	Issues []Issue
}

// NewLog creates a new empty Log with pre-allocated capacity.
func NewLog() *Log {
	return &Log{
		Issues: make([]Issue, 0, defaultIssueCapacity),
	}
}

// AddWarning appends a warning-level issue.
func (l *Log) AddWarning(source Source, code Code, diagnostics string, expression ...string) {
	l.Issues = append(l.Issues, Issue{
		Severity:    SeverityWarning,
		Code:        code,
		Diagnostics: diagnostics,
		Expression:  expression,
		Source:      source,
	})
}

// Len returns the number of recorded issues.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Issues)
}

// Merge appends the issues of other, preserving their order.
func (l *Log) Merge(other *Log) {
	if other == nil {
		return
	}
	l.Issues = append(l.Issues, other.Issues...)
}

// Messages returns the diagnostics of every issue in occurrence order.
// This is the content of the issues document.
func (l *Log) Messages() []string {
	out := make([]string, 0, l.Len())
	if l == nil {
		return out
	}
	for _, issue := range l.Issues {
		out = append(out, issue.Diagnostics)
	}
	return out
}

// BySource returns a new Log with only the issues recorded by source.
func (l *Log) BySource(source Source) *Log {
	filtered := NewLog()
	if l == nil {
		return filtered
	}
	for _, issue := range l.Issues {
		if issue.Source == source {
			filtered.Issues = append(filtered.Issues, issue)
		}
	}
	return filtered
}
