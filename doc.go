// Package codebook compiles a spreadsheet codebook of questionnaire
// concepts into FHIR terminology documents.
//
// Rows from every configured sheet are normalized into entries, indexed by
// (system, code) and by parent, and rendered as one hierarchical CodeSystem.
// Every Question entry with answers yields a ValueSet listing its answers
// plus the shared administrative answers parented under the meta root.
//
// Basic usage:
//
//	c, err := codebook.New(
//		codebook.WithSystem("http://terminology.pmi-ops.org/CodeSystem/ppi"),
//		codebook.WithValueSetURLTemplate("http://terminology.pmi-ops.org/ValueSet/%s"),
//	)
//	if err != nil {
//		return err
//	}
//	res, err := c.Compile(ctx, codebook.Input{Rows: rows, Version: version})
//	if err != nil {
//		return err
//	}
//	for _, msg := range res.Issues.Messages() {
//		fmt.Println(msg)
//	}
//
// Data problems are collected as issues and never stop a run. A repeated
// code, a parent cycle or a value set spanning several systems aborts it.
package codebook
