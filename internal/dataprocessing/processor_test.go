package dataprocessing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cptmerge/pkg/contracts/domain"
)

func sounding(name string, ref float64, rows ...[3]float64) domain.Sounding {
	s := domain.Sounding{ID: name + "-id", Name: name, ReferenceElevation: ref}
	for _, r := range rows {
		s.Records = append(s.Records, domain.DepthRecord{Depth: r[0], QC: r[1], Rf: r[2]})
	}
	return s
}

func TestProcessTwoRowScenario(t *testing.T) {
	p := NewProcessor(testLogger())

	got, err := p.Process(context.Background(), sounding("CPT-1", 100, [3]float64{0, 1, 1}, [3]float64{1, 2, 2}))
	require.NoError(t, err)

	assert.Equal(t, "CPT-1", got.Name)
	assert.Equal(t, []float64{100, 99}, got.Elevations())
	for _, r := range got.Records {
		assert.False(t, math.IsNaN(r.SBT) || math.IsInf(r.SBT, 0))
		assert.Equal(t, domain.ClassifyZone(r.SBT), r.Zone)
	}
	assert.InDelta(t, math.Hypot(2.47, 1.22), got.Records[0].SBT, 1e-12)
	assert.Equal(t, []float64{1, 2}, got.Column(domain.VariableQC))
	assert.Equal(t, []float64{1, 2}, got.Column(domain.VariableRf))
}

func TestProcessErrors(t *testing.T) {
	p := NewProcessor(testLogger())

	_, err := p.Process(context.Background(), sounding("bad", 100, [3]float64{0, 1, 1}, [3]float64{1, -2, 1}))
	require.ErrorIs(t, err, domain.ErrNonPositiveInput)
	var ce *domain.ComputationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "bad", ce.Sounding)
	assert.Equal(t, 1, ce.Index)
	assert.Zero(t, ce.Row)
	assert.Contains(t, err.Error(), "bad: record 2")

	rowed := sounding("rowed", 100, [3]float64{0, 1, 1}, [3]float64{1, 0, 1})
	rowed.Records[0].Row = 2
	rowed.Records[1].Row = 5
	_, err = p.Process(context.Background(), rowed)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 5, ce.Row)
	assert.Equal(t, "qc", ce.Field)
	assert.Contains(t, err.Error(), "rowed: row 5")

	_, err = p.Process(context.Background(), sounding("nan-ref", math.NaN(), [3]float64{0, 1, 1}))
	assert.Error(t, err)
}

func TestProcessAll(t *testing.T) {
	p := NewProcessor(testLogger())
	in := []domain.Sounding{
		sounding("A", 10, [3]float64{0, 1, 1}, [3]float64{1, 2, 1}),
		sounding("B", 8, [3]float64{0, 3, 2}),
	}

	got, err := p.ProcessAll(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)

	lo, hi, ok := ElevationRange(got)
	require.True(t, ok)
	assert.Equal(t, 8.0, lo)
	assert.Equal(t, 10.0, hi)

	rows := MergeRows(got)
	require.Len(t, rows, 3)
	assert.Equal(t, "B", rows[2].Sounding)
	assert.Equal(t, 8.0, rows[2].Elevation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ProcessAll(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestElevationRangeEmpty(t *testing.T) {
	_, _, ok := ElevationRange(nil)
	assert.False(t, ok)
	_, _, ok = ElevationRange([]domain.ProcessedSounding{{Name: "empty"}})
	assert.False(t, ok)
}
