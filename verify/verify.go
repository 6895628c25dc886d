// Package verify re-reads compiled documents as FHIR R4 resources and checks
// them before anything is written.
//
// Two checks run:
//   - FHIRPath invariants on the CodeSystem and each ValueSet. A failure
//     means the compiler produced a malformed document and is fatal.
//   - Terminology resolution of every ValueSet member against the
//     CodeSystem. Unresolved codes are reported as issues.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofhir/codebook/pkg/document"
	"github.com/gofhir/codebook/pkg/issue"
	"github.com/gofhir/codebook/terminology"
)

// ErrVerification is returned when a compiled document breaks an invariant.
var ErrVerification = errors.New("verification failed")

// Invariant is a FHIRPath expression that must hold on a resource.
type Invariant struct {
	Key        string
	Human      string
	Expression string
}

// CodeSystemInvariants hold on every compiled CodeSystem.
var CodeSystemInvariants = []Invariant{
	{
		Key:        "cbk-cs-1",
		Human:      "CodeSystem has a canonical url, draft status and complete content",
		Expression: "url.exists() and status = 'draft' and content = 'complete'",
	},
	{
		Key:        "cbk-cs-2",
		Human:      "Top-level concepts carry a code and a concept-type property",
		Expression: "concept.all(code.exists() and property.where(code = 'concept-type').exists())",
	},
	{
		Key:        "cbk-cs-3",
		Human:      "count covers at least the top-level concepts",
		Expression: "count >= concept.count()",
	},
}

// ValueSetInvariants hold on every compiled ValueSet.
var ValueSetInvariants = []Invariant{
	{
		Key:        "cbk-vs-1",
		Human:      "ValueSet has a canonical url and a derived name",
		Expression: "url.exists() and name.startsWith('values-for-')",
	},
	{
		Key:        "cbk-vs-2",
		Human:      "Every include names its system and lists concepts",
		Expression: "compose.include.exists() and compose.include.all(system.exists() and concept.exists())",
	},
}

// Verifier checks compiled documents.
type Verifier struct {
	eval *evaluator
}

// New creates a Verifier.
func New() *Verifier {
	return &Verifier{eval: newEvaluator()}
}

// Verify checks cs and valueSets. Unresolved ValueSet members are appended
// to log; broken invariants and unreadable documents return an error
// wrapping ErrVerification.
func (v *Verifier) Verify(ctx context.Context, cs *document.CodeSystem, valueSets []*document.ValueSet, log *issue.Log) error {
	var errs []error

	errs = append(errs, v.check(cs, cs.URL, CodeSystemInvariants)...)
	for _, vs := range valueSets {
		errs = append(errs, v.check(vs, vs.URL, ValueSetInvariants)...)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
	}

	bundle, err := document.Marshal(document.NewBundle(cs, valueSets))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	cat := terminology.NewCatalog()
	if _, err := cat.LoadBundle(bundle); err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}

	return resolveMembers(ctx, cat, cs.URL, log)
}

func (v *Verifier) check(resource any, url string, invariants []Invariant) []error {
	data, err := document.Marshal(resource)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, inv := range invariants {
		ok, err := v.eval.Evaluate(inv.Expression, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s on %s: %w", inv.Key, url, err))
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("%s on %s: %s", inv.Key, url, inv.Human))
		}
	}
	return errs
}

// resolveMembers reports, once per code, ValueSet members that the
// CodeSystem does not define.
func resolveMembers(ctx context.Context, cat *terminology.Catalog, system string, log *issue.Log) error {
	var missing []string
	uses := make(map[string]int)

	for _, url := range cat.ValueSetURLs() {
		members, _ := cat.Members(url)
		for _, m := range members {
			if m.System != system {
				continue
			}
			result, err := cat.ValidateCode(ctx, system, m.Code)
			if err != nil {
				return err
			}
			if result.Valid {
				continue
			}
			if uses[m.Code] == 0 {
				missing = append(missing, m.Code)
			}
			uses[m.Code]++
		}
	}

	for _, code := range missing {
		log.AddWarning(issue.SourceVerify, issue.CodeNotFound,
			fmt.Sprintf("Code '%s' is included in %d value set(s) but is not part of the CodeSystem hierarchy", code, uses[code]),
			code)
	}
	return nil
}
