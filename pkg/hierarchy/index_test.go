package hierarchy

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/gofhir/codebook/pkg/entry"
	"github.com/gofhir/codebook/pkg/issue"
)

const testSystem = "http://terminology.pmi-ops.org/CodeSystem/ppi"

var testRules = Rules{
	System:        testSystem,
	MetaPrefix:    "PMI",
	MetaRoot:      "PMI",
	TopLevelNames: []string{"basics", "overall_health"},
}

func mk(code, parent, typ string) entry.Entry {
	e := entry.Entry{
		Code:    entry.Ptr(code),
		System:  testSystem,
		Type:    typ,
		Topic:   "T",
		Display: entry.Ptr(code + " display"),
		Sheet:   "test",
	}
	if parent != "" {
		e.ParentCode = entry.Ptr(parent)
	}
	return e
}

func build(t *testing.T, entries ...entry.Entry) (*Index, *issue.Log) {
	t.Helper()
	log := issue.NewLog()
	idx, err := Build(entries, testRules, log)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return idx, log
}

func codes(entries []entry.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.CodeValue())
	}
	return out
}

func TestBuildScenario(t *testing.T) {
	idx, log := build(t,
		mk("Q1", "", entry.TypeQuestion),
		mk("A1", "Q1", entry.TypeAnswer),
		mk("A2", "Q1", entry.TypeAnswer),
		mk("SKIP", "PMI", entry.TypeAnswer),
	)

	if log.Len() != 0 {
		t.Errorf("unexpected issues: %q", log.Messages())
	}
	if got := codes(idx.Roots()); strings.Join(got, ",") != "Q1" {
		t.Errorf("Roots() = %v, want [Q1]", got)
	}
	if got := codes(idx.Children(entry.CodeOf(testSystem, "Q1"))); strings.Join(got, ",") != "A1,A2" {
		t.Errorf("Children(Q1) = %v, want [A1 A2]", got)
	}
	if got := codes(idx.MetaEntries()); strings.Join(got, ",") != "SKIP" {
		t.Errorf("MetaEntries() = %v, want [SKIP]", got)
	}
	if got := codes(idx.AnsweredQuestions()); strings.Join(got, ",") != "Q1" {
		t.Errorf("AnsweredQuestions() = %v, want [Q1]", got)
	}
	if idx.Len() != 4 {
		t.Errorf("Len() = %d, want 4", idx.Len())
	}
}

func TestBuildDuplicateCodeAborts(t *testing.T) {
	a := mk("A1", "", entry.TypeAnswer)
	a.Line = 2
	b := mk("A1", "", entry.TypeTopic)
	b.Line = 9

	idx, err := Build([]entry.Entry{a, b}, testRules, issue.NewLog())
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("Build() error = %v, want ErrDuplicateCode", err)
	}
	if idx != nil {
		t.Error("Build() should not return an index on failure")
	}
	if !strings.Contains(err.Error(), "test:2") || !strings.Contains(err.Error(), "test:9") {
		t.Errorf("error should name both positions: %v", err)
	}
}

func TestBuildDuplicateCodeAcrossSystems(t *testing.T) {
	a := mk("A1", "", entry.TypeAnswer)
	a.Line = 3
	b := mk("A1", "", entry.TypeAnswer)
	b.System = "http://other"
	b.Line = 7

	idx, err := Build([]entry.Entry{a, b}, testRules, issue.NewLog())
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("Build() error = %v, want ErrDuplicateCode", err)
	}
	if idx != nil {
		t.Error("Build() should not return an index on failure")
	}
	if !strings.Contains(err.Error(), "test:3") || !strings.Contains(err.Error(), "test:7") {
		t.Errorf("error should name both positions: %v", err)
	}
}

func TestIndexAccessorsReturnCopies(t *testing.T) {
	idx, _ := build(t,
		mk("Q1", "", entry.TypeQuestion),
		mk("A1", "Q1", entry.TypeAnswer),
		mk("A2", "Q1", entry.TypeAnswer),
		mk("PMI_Skip", "PMI", entry.TypeAnswer),
	)
	q1 := entry.CodeOf(testSystem, "Q1")

	tests := []struct {
		name string
		get  func() []entry.Entry
	}{
		{"children", func() []entry.Entry { return idx.Children(q1) }},
		{"roots", idx.Roots},
		{"meta entries", idx.MetaEntries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.get()
			if len(got) == 0 {
				t.Fatal("accessor returned no entries")
			}
			want := codes(got)
			got[0] = mk("MUTATED", "", entry.TypeTopic)
			_ = append(got[:1], mk("EXTRA", "", entry.TypeTopic))
			if after := codes(tt.get()); strings.Join(after, ",") != strings.Join(want, ",") {
				t.Errorf("after mutation = %v, want %v", after, want)
			}
		})
	}
}

func TestBuildDanglingParent(t *testing.T) {
	tests := []struct {
		name       string
		entry      entry.Entry
		wantParent *string
		wantIssue  bool
	}{
		{
			name:      "plain code is re-rooted",
			entry:     mk("X1", "MISSING", entry.TypeTopic),
			wantIssue: true,
		},
		{
			name:       "meta code moves under meta root",
			entry:      mk("PMI_Skip", "MISSING", entry.TypeAnswer),
			wantParent: entry.Ptr("PMI"),
			wantIssue:  true,
		},
		{
			name:      "sheet name is re-rooted silently",
			entry:     mk("basics", "ppi", entry.TypeTopic),
			wantIssue: false,
		},
		{
			name:       "meta root sentinel is accepted",
			entry:      mk("SKIP", "PMI", entry.TypeAnswer),
			wantParent: entry.Ptr("PMI"),
			wantIssue:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, log := build(t, tt.entry)

			got, ok := idx.Lookup(tt.entry.Coding())
			if !ok {
				t.Fatalf("Lookup(%s) not found", tt.entry.CodeValue())
			}
			if (got.ParentCode == nil) != (tt.wantParent == nil) ||
				(got.ParentCode != nil && *got.ParentCode != *tt.wantParent) {
				t.Errorf("parent = %q, want %v", got.ParentValue(), tt.wantParent)
			}

			msgs := log.Messages()
			hasIssue := len(msgs) == 1 && strings.Contains(msgs[0], "does not exist")
			if hasIssue != tt.wantIssue {
				t.Errorf("issues = %q, want issue: %v", msgs, tt.wantIssue)
			}
			if tt.entry.ParentCode == nil {
				t.Error("input entry was mutated")
			}
		})
	}
}

func TestBuildMissingParentScenario(t *testing.T) {
	idx, log := build(t,
		mk("T1", "", entry.TypeTopic),
		mk("X", "MISSING", entry.TypeTopic),
	)

	if got := codes(idx.Roots()); strings.Join(got, ",") != "T1,X" {
		t.Errorf("Roots() = %v, want [T1 X]", got)
	}
	msgs := log.Messages()
	if len(msgs) != 1 || msgs[0] != "Parent of 'X' is 'MISSING' but does not exist" {
		t.Errorf("issues = %q", msgs)
	}
}

func TestBuildParentsExistAfterIndexing(t *testing.T) {
	idx, _ := build(t,
		mk("T", "", entry.TypeTopic),
		mk("Q", "T", entry.TypeQuestion),
		mk("A", "Q", entry.TypeAnswer),
		mk("B", "GONE", entry.TypeAnswer),
		mk("PMI_DontKnow", "GONE", entry.TypeAnswer),
		mk("PMI_Skip", "PMI", entry.TypeAnswer),
	)

	for _, e := range idx.Entries() {
		if !e.HasParent() || e.ParentValue() == testRules.MetaRoot {
			continue
		}
		if !idx.Has(e.ParentCoding()) {
			t.Errorf("entry %s has unresolved parent %s", e.CodeValue(), e.ParentValue())
		}
	}
}

func TestBuildQuestionWithoutAnswers(t *testing.T) {
	idx, log := build(t,
		mk("Q1", "", entry.TypeQuestion),
		mk("Q2", "", entry.TypeQuestion),
		mk("A1", "Q2", entry.TypeAnswer),
	)

	msgs := log.Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "'Q1' has type=Question, but no answers") {
		t.Errorf("issues = %q", msgs)
	}
	if got := codes(idx.AnsweredQuestions()); strings.Join(got, ",") != "Q2" {
		t.Errorf("AnsweredQuestions() = %v, want [Q2]", got)
	}
}

func TestBuildSkipsNullCodes(t *testing.T) {
	nameless := mk("", "", entry.TypeAnswer)
	nameless.Code = nil
	other := mk("", "", entry.TypeAnswer)
	other.Code = nil

	idx, _ := build(t, nameless, other, mk("A", "", entry.TypeTopic))
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
}

func TestBuildDetectsCycles(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry.Entry
	}{
		{"self", []entry.Entry{mk("A", "A", entry.TypeTopic)}},
		{"pair", []entry.Entry{mk("A", "B", entry.TypeTopic), mk("B", "A", entry.TypeTopic)}},
		{"below root", []entry.Entry{
			mk("R", "", entry.TypeTopic),
			mk("A", "C", entry.TypeTopic),
			mk("B", "A", entry.TypeTopic),
			mk("C", "B", entry.TypeTopic),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.entries, testRules, issue.NewLog())
			if !errors.Is(err, ErrCycle) {
				t.Errorf("Build() error = %v, want ErrCycle", err)
			}
		})
	}
}

func TestBuildPreservesInsertionOrder(t *testing.T) {
	idx, _ := build(t,
		mk("Q", "", entry.TypeQuestion),
		mk("Z", "Q", entry.TypeAnswer),
		mk("A", "Q", entry.TypeAnswer),
		mk("M", "Q", entry.TypeAnswer),
	)
	if got := codes(idx.Children(entry.CodeOf(testSystem, "Q"))); strings.Join(got, ",") != "Z,A,M" {
		t.Errorf("Children(Q) = %v, want [Z A M]", got)
	}
}

func TestRenderTree(t *testing.T) {
	idx, _ := build(t,
		mk("Q1", "", entry.TypeQuestion),
		mk("A1", "Q1", entry.TypeAnswer),
		mk("A2", "Q1", entry.TypeAnswer),
		mk("SKIP", "PMI", entry.TypeAnswer),
	)

	tree, err := idx.RenderRoot()
	if err != nil {
		t.Fatalf("RenderRoot() error = %v", err)
	}
	if len(tree) != 1 || tree[0].Code != "Q1" {
		t.Fatalf("top level = %+v, want [Q1]", tree)
	}
	q := tree[0]
	if len(q.Concept) != 2 || q.Concept[0].Code != "A1" || q.Concept[1].Code != "A2" {
		t.Errorf("Q1 children = %+v", q.Concept)
	}
	if q.Concept[0].Concept != nil {
		t.Error("leaf node should have no concept field")
	}
	if q.Display != "Q1 display" {
		t.Errorf("Display = %q", q.Display)
	}
	if len(q.Property) != 2 || q.Property[0].ValueCode != entry.TypeQuestion || q.Property[1].ValueCode != "T" {
		t.Errorf("Property = %+v", q.Property)
	}

	meta, err := idx.Render(entry.Ptr("PMI"))
	if err != nil {
		t.Fatalf("Render(PMI) error = %v", err)
	}
	if len(meta) != 1 || meta[0].Code != "SKIP" {
		t.Errorf("Render(PMI) = %+v", meta)
	}
}

func TestRenderIdempotent(t *testing.T) {
	idx, _ := build(t,
		mk("T", "", entry.TypeTopic),
		mk("Q1", "T", entry.TypeQuestion),
		mk("A1", "Q1", entry.TypeAnswer),
		mk("Q2", "T", entry.TypeQuestion),
		mk("A2", "Q2", entry.TypeAnswer),
		mk("A3", "Q2", entry.TypeAnswer),
	)

	first, err := idx.RenderRoot()
	if err != nil {
		t.Fatalf("RenderRoot() error = %v", err)
	}
	second, err := idx.RenderRoot()
	if err != nil {
		t.Fatalf("RenderRoot() error = %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Errorf("rendering is not idempotent:\n%s\n%s", a, b)
	}
}

func TestRenderGuardsCycles(t *testing.T) {
	a := mk("A", "B", entry.TypeTopic)
	b := mk("B", "A", entry.TypeTopic)
	root := mk("R", "", entry.TypeTopic)
	rootB := b.WithParent(entry.Ptr("R"))

	// Hand-built index: Build would reject this shape.
	idx := &Index{
		rules: testRules,
		byCoding: map[entry.Coding]entry.Entry{
			root.Coding(): root, a.Coding(): a, b.Coding(): b,
		},
		byParent: map[entry.Coding][]entry.Entry{
			entry.RootCoding(testSystem): {root},
			root.Coding():                {rootB},
			b.Coding():                   {a},
			a.Coding():                   {b},
		},
	}

	if _, err := idx.RenderRoot(); !errors.Is(err, ErrCycle) {
		t.Errorf("RenderRoot() error = %v, want ErrCycle", err)
	}
}
