// Package shared groups helpers used by more than one package.
//
// testutil holds test fixtures: slog capture helpers and Excel workbook
// builders for CPT soundings.
package shared
