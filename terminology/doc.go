// Package terminology loads produced CodeSystem and ValueSet documents into
// an in-memory catalog and resolves codes against them.
//
// Documents are decoded into github.com/gofhir/fhir/r4 structs, so the
// catalog sees the output exactly as any FHIR R4 consumer would.
//
// Example usage:
//
//	cat := terminology.NewCatalog()
//	if _, err := cat.LoadBundle(bundleJSON); err != nil {
//	    return err
//	}
//	result, err := cat.ValidateCode(ctx, system, "A1")
package terminology
