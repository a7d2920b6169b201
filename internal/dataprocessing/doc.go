// Package dataprocessing turns uploaded CPT workbooks into elevation aligned
// soundings with a soil behaviour type index per record.
//
// # Architecture
//
// The package is organized into three main components:
//
// 1. Parser: reads depth, qc and Rf columns from one sheet of an Excel workbook
// 2. Processor: normalizes depth to elevation and computes the SBT index
// 3. Analytics: column statistics and soil zone shares per sounding
//
// # Usage
//
//	wb, err := dataprocessing.NewParser(logger).ParseFile(ctx, "CPT-01.xlsx", domain.DefaultReadOptions())
//	if err != nil {
//	    return err
//	}
//	s := domain.Sounding{Name: "CPT-01", ReferenceElevation: 100.01, Records: wb.Records}
//	processed, err := dataprocessing.NewProcessor(logger).Process(ctx, s)
//
// # Data Flow
//
//	Excel File → Parser → DepthRecords → Processor → ProcessedSounding → Analytics → Summary
//
// # Error Handling
//
// Workbook problems are reported as *domain.ParseError and undefined index
// values as *domain.ComputationError. Both wrap the sentinel errors of the
// domain package so callers can use errors.Is.
package dataprocessing
