// Package hierarchy indexes normalized codebook entries by identity and by
// parent, repairs dangling parent references and renders the concept tree.
package hierarchy

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gofhir/codebook/pkg/entry"
	"github.com/gofhir/codebook/pkg/issue"
)

// Structural integrity violations. They abort a run.
var (
	ErrDuplicateCode = errors.New("duplicate code")
	ErrCycle         = errors.New("parent cycle")
)

// Rules parameterize indexing.
type Rules struct {
	// System is the identity system whose root key holds top-level concepts.
	System string

	// MetaPrefix marks administrative codes.
	MetaPrefix string

	// MetaRoot is the parent code grouping the shared administrative answers.
	// It is accepted as a parent even when no entry defines it.
	MetaRoot string

	// TopLevelNames are sheet names; entries with these codes are silently
	// re-rooted when their parent is missing.
	TopLevelNames []string
}

func (r Rules) entryRules() entry.Rules {
	return entry.Rules{System: r.System, MetaPrefix: r.MetaPrefix}
}

func (r Rules) isMetaRoot(code *string) bool {
	return code != nil && r.MetaRoot != "" && *code == r.MetaRoot
}

// Index is the completed identity and adjacency structure of one run.
// It is read-only once Build returns.
type Index struct {
	rules    Rules
	entries  []entry.Entry
	byCoding map[entry.Coding]entry.Entry
	byParent map[entry.Coding][]entry.Entry
}

// Build indexes entries in order. Entries without a code cannot be
// identified and are left out; the normalizer has already reported them.
//
// Soft problems are recorded in log. A repeated code, whatever its system,
// or a parent cycle returns an error and no index.
func Build(entries []entry.Entry, rules Rules, log *issue.Log) (*Index, error) {
	idx := &Index{
		rules:    rules,
		entries:  make([]entry.Entry, 0, len(entries)),
		byCoding: make(map[entry.Coding]entry.Entry, len(entries)),
		byParent: make(map[entry.Coding][]entry.Entry),
	}

	byCode := make(map[string]entry.Entry, len(entries))
	for _, e := range entries {
		if e.Code == nil {
			continue
		}
		code := e.CodeValue()
		if prev, ok := byCode[code]; ok {
			return nil, fmt.Errorf("%w %q: defined at %s and %s", ErrDuplicateCode, code, prev.Position(), e.Position())
		}
		byCode[code] = e
		idx.byCoding[e.Coding()] = e
		idx.entries = append(idx.entries, e)
	}

	for i, e := range idx.entries {
		if e.HasParent() && !idx.Has(e.ParentCoding()) && !rules.isMetaRoot(e.ParentCode) {
			e = idx.repairParent(e, log)
			idx.entries[i] = e
			idx.byCoding[e.Coding()] = e
		}
		pc := e.ParentCoding()
		idx.byParent[pc] = append(idx.byParent[pc], e)
	}

	if err := idx.checkCycles(); err != nil {
		return nil, err
	}

	for _, e := range idx.entries {
		if e.IsQuestion() && len(idx.byParent[e.Coding()]) == 0 {
			log.AddWarning(issue.SourceIndex, issue.CodeIncomplete,
				fmt.Sprintf("Term '%s' has type=Question, but no answers associated with it", e.CodeValue()),
				e.CodeValue())
		}
	}

	return idx, nil
}

// repairParent re-roots an entry whose parent does not exist. Meta codes are
// moved under the meta root instead of the top level.
func (idx *Index) repairParent(e entry.Entry, log *issue.Log) entry.Entry {
	code := e.CodeValue()
	if !slices.Contains(idx.rules.TopLevelNames, code) {
		log.AddWarning(issue.SourceIndex, issue.CodeNotFound,
			fmt.Sprintf("Parent of '%s' is '%s' but does not exist", code, e.ParentValue()),
			code, e.ParentValue())
	}

	er := idx.rules.entryRules()
	if idx.rules.MetaRoot != "" && er.IsMeta(e.Code) && code != idx.rules.MetaRoot {
		return e.WithParent(entry.Ptr(idx.rules.MetaRoot))
	}
	return e.WithParent(nil)
}

// checkCycles walks every parent chain. Chains end at a root, at the meta
// root sentinel, or at an entry already proven acyclic.
func (idx *Index) checkCycles() error {
	done := make(map[entry.Coding]bool, len(idx.entries))
	for _, e := range idx.entries {
		onPath := make(map[entry.Coding]bool)
		var path []string
		cur := e
		for {
			c := cur.Coding()
			if done[c] {
				break
			}
			if onPath[c] {
				path = append(path, c.Code)
				return fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
			}
			onPath[c] = true
			path = append(path, c.Code)
			if !cur.HasParent() {
				break
			}
			parent, ok := idx.byCoding[cur.ParentCoding()]
			if !ok {
				break
			}
			cur = parent
		}
		for c := range onPath {
			done[c] = true
		}
	}
	return nil
}

// System returns the identity system of the root key.
func (idx *Index) System() string {
	return idx.rules.System
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns the indexed entries, repaired, in source order.
func (idx *Index) Entries() []entry.Entry {
	return slices.Clone(idx.entries)
}

// Has reports whether coding identifies an indexed entry.
func (idx *Index) Has(coding entry.Coding) bool {
	_, ok := idx.byCoding[coding]
	return ok
}

// Lookup returns the entry identified by coding.
func (idx *Index) Lookup(coding entry.Coding) (entry.Entry, bool) {
	e, ok := idx.byCoding[coding]
	return e, ok
}

// Children returns a copy of the entries parented under coding in
// insertion order.
func (idx *Index) Children(coding entry.Coding) []entry.Entry {
	return slices.Clone(idx.byParent[coding])
}

// Roots returns a copy of the top-level entries.
func (idx *Index) Roots() []entry.Entry {
	return slices.Clone(idx.byParent[entry.RootCoding(idx.rules.System)])
}

// MetaEntries returns the shared administrative entries under the meta root.
func (idx *Index) MetaEntries() []entry.Entry {
	if idx.rules.MetaRoot == "" {
		return nil
	}
	return slices.Clone(idx.byParent[entry.CodeOf(idx.rules.System, idx.rules.MetaRoot)])
}

// AnsweredQuestions returns, in source order, the Question entries that
// have at least one child.
func (idx *Index) AnsweredQuestions() []entry.Entry {
	var out []entry.Entry
	for _, e := range idx.entries {
		if e.IsQuestion() && len(idx.byParent[e.Coding()]) > 0 {
			out = append(out, e)
		}
	}
	return out
}
