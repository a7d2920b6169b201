package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"cptmerge/internal/infrastructure"
	"cptmerge/pkg/contracts/domain"
)

// Processor aligns soundings to absolute elevation and derives the SBT index.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a processor. A nil logger falls back to the global one.
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{logger: infrastructure.WithComponent(logger, "dataprocessing.processor")}
}

// Process runs the elevation normalizer and then the index calculator on a
// single sounding.
func (p *Processor) Process(ctx context.Context, s domain.Sounding) (domain.ProcessedSounding, error) {
	n := len(s.Records)
	depths := make([]float64, n)
	qc := make([]float64, n)
	rf := make([]float64, n)
	for i, r := range s.Records {
		depths[i] = r.Depth
		qc[i] = r.QC
		rf[i] = r.Rf
	}

	if math.IsNaN(s.ReferenceElevation) || math.IsInf(s.ReferenceElevation, 0) {
		return domain.ProcessedSounding{}, fmt.Errorf("%s: reference elevation %v is not a finite number",
			s.Name, s.ReferenceElevation)
	}

	elevations := NormalizeElevation(s.ReferenceElevation, depths)
	if err := AlignColumns(depths, map[string][]float64{"elevation": elevations, "qc": qc, "Rf": rf}); err != nil {
		return domain.ProcessedSounding{}, fmt.Errorf("%s: %w", s.Name, err)
	}

	sbt, err := SBTIndexSeries(qc, rf)
	if err != nil {
		var ce *domain.ComputationError
		if errors.As(err, &ce) {
			ce.Sounding = s.Name
			if ce.Index >= 0 && ce.Index < n {
				ce.Row = s.Records[ce.Index].Row
			}
		}
		p.logger.WarnContext(ctx, "SBT index undefined",
			slog.String("sounding", s.Name),
			slog.String("error", err.Error()))
		return domain.ProcessedSounding{}, err
	}

	out := domain.ProcessedSounding{
		ID:                 s.ID,
		Name:               s.Name,
		ReferenceElevation: s.ReferenceElevation,
		Records:            make([]domain.ProcessedRecord, n),
	}
	for i := range s.Records {
		out.Records[i] = domain.ProcessedRecord{
			Depth:     depths[i],
			Elevation: elevations[i],
			QC:        qc[i],
			Rf:        rf[i],
			SBT:       sbt[i],
			Zone:      domain.ClassifyZone(sbt[i]),
		}
	}
	return out, nil
}

// ProcessAll processes every sounding in order and stops at the first failure.
func (p *Processor) ProcessAll(ctx context.Context, soundings []domain.Sounding) ([]domain.ProcessedSounding, error) {
	out := make([]domain.ProcessedSounding, 0, len(soundings))
	for _, s := range soundings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ps, err := p.Process(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	p.logger.DebugContext(ctx, "Soundings processed", slog.Int("count", len(out)))
	return out, nil
}

// MergedRow is one line of the merged table: a processed record tagged with
// the sounding it came from.
type MergedRow struct {
	Sounding string
	domain.ProcessedRecord
}

// MergeRows concatenates the records of every sounding. No rows are joined
// across soundings; each keeps its own depth sequence.
func MergeRows(soundings []domain.ProcessedSounding) []MergedRow {
	total := 0
	for _, s := range soundings {
		total += len(s.Records)
	}
	out := make([]MergedRow, 0, total)
	for _, s := range soundings {
		for _, r := range s.Records {
			out = append(out, MergedRow{Sounding: s.Name, ProcessedRecord: r})
		}
	}
	return out
}

// ElevationRange returns the lowest and highest elevation over all
// soundings. ok is false when there are no records.
func ElevationRange(soundings []domain.ProcessedSounding) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range soundings {
		for _, r := range s.Records {
			lo = math.Min(lo, r.Elevation)
			hi = math.Max(hi, r.Elevation)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, false
	}
	return lo, hi, true
}
