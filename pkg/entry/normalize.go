package entry

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gofhir/codebook/pkg/issue"
)

// Rules parameterize normalization.
type Rules struct {
	// System is used when a row has no PMI System value.
	System string

	// MetaPrefix marks administrative codes, which need no topic.
	MetaPrefix string
}

// IsMeta reports whether code carries the meta prefix.
func (r Rules) IsMeta(code *string) bool {
	return code != nil && r.MetaPrefix != "" && strings.HasPrefix(*code, r.MetaPrefix)
}

// Normalize turns a raw row into an Entry. It never fails: problems are
// recorded in log and, where possible, repaired.
func Normalize(row Row, rules Rules, log *issue.Log) Entry {
	e := Entry{
		Code:       field(row.Code),
		ParentCode: field(row.ParentCode),
		Display:    field(row.Display),
		Sheet:      row.Sheet,
		Line:       row.Line,
	}

	e.System = rules.System
	if sys := field(row.System); sys != nil {
		e.System = *sys
	}

	if e.Code == nil {
		log.AddWarning(issue.SourceNormalize, issue.CodeRequired,
			fmt.Sprintf("PMI Code is not defined in: %s", row))
	}

	if e.Code != nil && strings.ContainsAny(*e.Code, `'"`) {
		log.AddWarning(issue.SourceNormalize, issue.CodeCodeInvalid,
			fmt.Sprintf("Invalid character in code '%s'", *e.Code), *e.Code)
	}

	if e.ParentCode != nil && hasSpace(*e.ParentCode) {
		log.AddWarning(issue.SourceNormalize, issue.CodeValue,
			fmt.Sprintf("unexpected space in parent code '%s' of code '%s'", *e.ParentCode, e.CodeValue()),
			e.CodeValue())
		e.ParentCode = stripSpace(*e.ParentCode)
	}

	if e.Code != nil && hasSpace(*e.Code) {
		raw := *e.Code
		e.Code = stripSpace(raw)
		log.AddWarning(issue.SourceNormalize, issue.CodeValue,
			fmt.Sprintf("unexpected space in code '%s'", raw), *e.Code)
	}

	if t := field(row.Type); t != nil {
		e.Type = *t
	} else {
		log.AddWarning(issue.SourceNormalize, issue.CodeRequired,
			fmt.Sprintf("No type is defined for code '%s'", e.CodeValue()), e.CodeValue())
		e.Type = TypeUnknown
	}

	if t := field(row.Topic); t != nil {
		e.Topic = *t
	} else if !rules.IsMeta(e.Code) {
		log.AddWarning(issue.SourceNormalize, issue.CodeRequired,
			fmt.Sprintf("No topic is defined for '%s'", e.CodeValue()), e.CodeValue())
		e.Topic = TopicUnknown
	}

	return e
}

// NormalizeAll normalizes rows in order.
func NormalizeAll(rows []Row, rules Rules, log *issue.Log) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Normalize(row, rules, log))
	}
	return out
}

// field trims s and returns nil when nothing is left.
func field(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// stripSpace removes every whitespace rune.
func stripSpace(s string) *string {
	out := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return field(out)
}
