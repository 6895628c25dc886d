// Package entry turns raw codebook rows into normalized, immutable entries.
package entry

import "fmt"

// Concept types used by the codebook. Other free-text values are kept as is.
const (
	TypeQuestion = "Question"
	TypeAnswer   = "Answer"
	TypeTopic    = "Topic"
	TypeUnknown  = "Unknown"
)

// TopicUnknown is assigned to entries without a topic.
const TopicUnknown = "Unknown"

// Coding is the (system, code) identity of a concept. It is comparable and is
// used as a map key; Present is false for the null code, which makes
// Coding{System: s} the synthetic root key of system s.
type Coding struct {
	System  string
	Code    string
	Present bool
}

// NewCoding builds a Coding from a nullable code.
func NewCoding(system string, code *string) Coding {
	if code == nil {
		return Coding{System: system}
	}
	return Coding{System: system, Code: *code, Present: true}
}

// CodeOf builds a Coding for a non-null code.
func CodeOf(system, code string) Coding {
	return Coding{System: system, Code: code, Present: true}
}

// RootCoding returns the key under which top-level concepts are grouped.
func RootCoding(system string) Coding {
	return Coding{System: system}
}

// IsRoot reports whether c carries the null code.
func (c Coding) IsRoot() bool {
	return !c.Present
}

// String returns "system|code", or "system|" for the root key.
func (c Coding) String() string {
	return c.System + "|" + c.Code
}

// Entry is one normalized codebook row.
//
// Entries are values: the index repairs dangling parents by deriving a new
// Entry with WithParent, leaving the original untouched.
type Entry struct {
	Code       *string
	ParentCode *string
	System     string
	Type       string
	Topic      string
	Display    *string

	// Sheet and Line locate the source row.
	Sheet string
	Line  int
}

// Coding returns the identity of the entry.
func (e Entry) Coding() Coding {
	return NewCoding(e.System, e.Code)
}

// ParentCoding returns the identity of the entry's parent; it is the root
// key when the entry has no parent.
func (e Entry) ParentCoding() Coding {
	return NewCoding(e.System, e.ParentCode)
}

// HasParent reports whether the entry names a parent.
func (e Entry) HasParent() bool {
	return e.ParentCode != nil
}

// CodeValue returns the code, or "" when it is null.
func (e Entry) CodeValue() string {
	return deref(e.Code)
}

// ParentValue returns the parent code, or "" when it is null.
func (e Entry) ParentValue() string {
	return deref(e.ParentCode)
}

// DisplayValue returns the display text, or "" when it is null.
func (e Entry) DisplayValue() string {
	return deref(e.Display)
}

// IsQuestion reports whether the entry is typed Question.
func (e Entry) IsQuestion() bool {
	return e.Type == TypeQuestion
}

// WithParent returns a copy of e re-parented under parent (nil for root).
func (e Entry) WithParent(parent *string) Entry {
	e.ParentCode = clone(parent)
	return e
}

// Position formats the source location of the entry.
func (e Entry) Position() string {
	return fmt.Sprintf("%s:%d", e.Sheet, e.Line)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}
