package dataprocessing

import (
	"errors"
	"fmt"
	"math"

	"cptmerge/pkg/contracts/domain"
)

// Constants of the Robertson SBT index chart.
const (
	sbtQCCentre    = 3.47
	sbtRfCentre    = 1.22
	qcReferenceMPa = 0.1
)

// SBTIndex computes
//
//	sqrt((3.47 - log10(qc/0.1))^2 + (log10(Rf) + 1.22)^2)
//
// for cone resistance qc [MPa] and friction ratio Rf [%]. Both inputs must
// be finite and strictly positive.
func SBTIndex(qc, rf float64) (float64, error) {
	if err := checkPositive("qc", qc); err != nil {
		return 0, err
	}
	if err := checkPositive("Rf", rf); err != nil {
		return 0, err
	}
	return sbtFromLogs(math.Log10(qc/qcReferenceMPa), math.Log10(rf)), nil
}

// sbtFromLogs evaluates the index from the two logarithms directly. At the
// chart centre (3.47, -1.22) both terms cancel exactly.
func sbtFromLogs(logQCNorm, logRf float64) float64 {
	return math.Hypot(sbtQCCentre-logQCNorm, logRf+sbtRfCentre)
}

// SBTIndexSeries evaluates SBTIndex element-wise. The first invalid record
// aborts the computation with a *domain.ComputationError carrying its index.
func SBTIndexSeries(qc, rf []float64) ([]float64, error) {
	if len(qc) != len(rf) {
		return nil, fmt.Errorf("%w: qc has %d values, Rf has %d", domain.ErrLengthMismatch, len(qc), len(rf))
	}
	out := make([]float64, len(qc))
	for i := range qc {
		v, err := SBTIndex(qc[i], rf[i])
		if err != nil {
			var ce *domain.ComputationError
			if errors.As(err, &ce) {
				ce.Index = i
			}
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func checkPositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return &domain.ComputationError{Field: field, Value: v, Err: domain.ErrNonPositiveInput}
	}
	return nil
}
