package dataprocessing

import (
	"fmt"

	"cptmerge/pkg/contracts/domain"
)

// NormalizeElevation converts depths below a reference level into absolute
// elevations: elevation[i] = reference - depth[i].
func NormalizeElevation(reference float64, depths []float64) []float64 {
	out := make([]float64, len(depths))
	for i, d := range depths {
		out[i] = reference - d
	}
	return out
}

// AlignColumns checks that every companion column matches the depth column
// in length before the columns are combined row by row.
func AlignColumns(depths []float64, companions map[string][]float64) error {
	for name, col := range companions {
		if len(col) != len(depths) {
			return fmt.Errorf("%w: depth has %d rows, %s has %d", domain.ErrLengthMismatch, len(depths), name, len(col))
		}
	}
	return nil
}

// ApplyReferences assigns one reference elevation per sounding, in order.
// The table must have exactly one entry per sounding.
func ApplyReferences(soundings []domain.Sounding, references []float64) ([]domain.Sounding, error) {
	if len(soundings) != len(references) {
		return nil, fmt.Errorf("%w: %d soundings but %d reference elevations",
			domain.ErrLengthMismatch, len(soundings), len(references))
	}
	out := make([]domain.Sounding, len(soundings))
	for i, s := range soundings {
		out[i] = s.Clone()
		out[i].ReferenceElevation = references[i]
	}
	return out, nil
}
