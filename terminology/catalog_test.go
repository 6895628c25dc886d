package terminology

import (
	"context"
	"errors"
	"testing"

	"github.com/gofhir/fhir/r4"
)

func TestCatalog(t *testing.T) {
	url := "http://example.org/CodeSystem/ppi"
	vsURL := "http://example.org/ValueSet/Q1"
	q, a1, a2 := "Q1", "A1", "A2"
	qDisplay, a1Display := "Question", "Yes"

	cs := &r4.CodeSystem{
		Url: &url,
		Concept: []r4.CodeSystemConcept{
			{
				Code:    &q,
				Display: &qDisplay,
				Concept: []r4.CodeSystemConcept{
					{Code: &a1, Display: &a1Display},
					{Code: &a2},
				},
			},
		},
	}
	vs := &r4.ValueSet{
		Url: &vsURL,
		Compose: &r4.ValueSetCompose{
			Include: []r4.ValueSetComposeInclude{
				{
					System: &url,
					Concept: []r4.ValueSetComposeIncludeConcept{
						{Code: &a1, Display: &a1Display},
						{Code: &a2},
					},
				},
			},
		},
	}

	cat := NewCatalog()
	if err := cat.LoadCodeSystem(cs); err != nil {
		t.Fatalf("LoadCodeSystem() error = %v", err)
	}
	if err := cat.LoadValueSet(vs); err != nil {
		t.Fatalf("LoadValueSet() error = %v", err)
	}
	ctx := context.Background()

	t.Run("nested codes are loaded", func(t *testing.T) {
		for _, code := range []string{"Q1", "A1", "A2"} {
			result, err := cat.ValidateCode(ctx, url, code)
			if err != nil {
				t.Fatalf("ValidateCode() error = %v", err)
			}
			if !result.Valid {
				t.Errorf("%s should be defined", code)
			}
		}
	})

	t.Run("validate against codesystem", func(t *testing.T) {
		result, err := cat.ValidateCode(ctx, url, "A1")
		if err != nil {
			t.Fatalf("ValidateCode() error = %v", err)
		}
		if !result.Valid || result.Display != "Yes" {
			t.Errorf("result = %+v, want valid with display Yes", result)
		}

		result, err = cat.ValidateCode(ctx, url, "NOPE")
		if err != nil {
			t.Fatalf("ValidateCode() error = %v", err)
		}
		if result.Valid {
			t.Error("expected NOPE to be invalid")
		}
	})

	t.Run("members keep include order", func(t *testing.T) {
		members, ok := cat.Members(vsURL)
		if !ok || len(members) != 2 || members[0].Code != "A1" || members[1].Code != "A2" {
			t.Errorf("Members() = %+v, %v", members, ok)
		}
		if urls := cat.ValueSetURLs(); len(urls) != 1 || urls[0] != vsURL {
			t.Errorf("ValueSetURLs() = %v", urls)
		}
	})

	t.Run("unknown resources", func(t *testing.T) {
		if _, err := cat.ValidateCode(ctx, "http://example.org/none", "A1"); err == nil {
			t.Error("expected error for unknown codesystem")
		}
		result, err := cat.ValidateCode(ctx, url, "")
		if err != nil || result.Valid {
			t.Errorf("empty code: result = %+v, err = %v", result, err)
		}
		if _, ok := cat.Members("http://example.org/ValueSet/none"); ok {
			t.Error("Members() of an unknown valueset should report false")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := cat.ValidateCode(cctx, url, "A1"); !errors.Is(err, context.Canceled) {
			t.Errorf("ValidateCode() error = %v, want context.Canceled", err)
		}
	})
}

func TestCatalogRejects(t *testing.T) {
	cat := NewCatalog()
	if err := cat.LoadCodeSystem(nil); err == nil {
		t.Error("expected error for nil CodeSystem")
	}
	if err := cat.LoadValueSet(&r4.ValueSet{}); err == nil {
		t.Error("expected error for ValueSet without URL")
	}

	url := "http://example.org/CodeSystem/dup"
	a, b := "A", "A"
	cs := &r4.CodeSystem{
		Url: &url,
		Concept: []r4.CodeSystemConcept{
			{Code: &a, Concept: []r4.CodeSystemConcept{{Code: &b}}},
		},
	}
	if err := cat.LoadCodeSystem(cs); !errors.Is(err, ErrDuplicateConcept) {
		t.Errorf("LoadCodeSystem() error = %v, want ErrDuplicateConcept", err)
	}
}

func TestLoadBundle(t *testing.T) {
	data := []byte(`{
  "resourceType": "Bundle",
  "type": "collection",
  "entry": [
    {"resource": {"resourceType": "ValueSet", "url": "http://example.org/ValueSet/Q1",
      "compose": {"include": [{"system": "http://example.org/cs", "concept": [{"code": "A1"}]}]}}},
    {"resource": {"resourceType": "CodeSystem", "url": "http://example.org/cs",
      "concept": [{"code": "Q1", "concept": [{"code": "A1"}]}]}}
  ]
}`)

	cat := NewCatalog()
	stats, err := cat.LoadBundle(data)
	if err != nil {
		t.Fatalf("LoadBundle() error = %v", err)
	}
	if stats.CodeSystemsLoaded != 1 || stats.ValueSetsLoaded != 1 {
		t.Errorf("stats = %+v", stats)
	}

	result, err := cat.ValidateCode(context.Background(), "http://example.org/cs", "A1")
	if err != nil || !result.Valid {
		t.Errorf("A1 should resolve: %+v, %v", result, err)
	}
}

func TestLoadBundleErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid JSON", `not json`},
		{"not a bundle", `{"resourceType": "CodeSystem"}`},
		{"codesystem without url", `{"resourceType": "Bundle", "entry": [{"resource": {"resourceType": "CodeSystem"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog().LoadBundle([]byte(tt.data)); err == nil {
				t.Error("LoadBundle() should fail")
			}
		})
	}
}
