package dataprocessing

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"cptmerge/pkg/contracts/domain"
)

// Summarize computes column statistics and the soil zone distribution of a
// processed sounding.
func Summarize(p domain.ProcessedSounding) domain.SoundingSummary {
	out := domain.SoundingSummary{
		ID:      p.ID,
		Name:    p.Name,
		Records: len(p.Records),
		Zones:   zoneShares(p),
	}
	if len(p.Records) == 0 {
		return out
	}

	elev := p.Elevations()
	out.ElevationTop = floats.Max(elev)
	out.ElevationBot = floats.Min(elev)
	out.Thickness = out.ElevationTop - out.ElevationBot

	out.QC = columnStats(p.Column(domain.VariableQC))
	out.Rf = columnStats(p.Column(domain.VariableRf))
	out.SBT = columnStats(p.Column(domain.VariableSBT))

	best := 0
	for _, z := range out.Zones {
		if z.Count > best {
			best = z.Count
			out.DominantZone = z.Zone
		}
	}
	return out
}

func columnStats(x []float64) domain.Stats {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	s := domain.Stats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(x, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
	if len(x) > 1 {
		s.StdDev = stat.StdDev(x, nil)
	}
	return s
}

func zoneShares(p domain.ProcessedSounding) []domain.ZoneShare {
	counts := make(map[int]int, len(domain.SoilZones))
	for _, r := range p.Records {
		counts[r.Zone]++
	}
	out := make([]domain.ZoneShare, len(domain.SoilZones))
	for i, z := range domain.SoilZones {
		out[i] = domain.ZoneShare{Zone: z.Number, Label: z.Label, Count: counts[z.Number]}
		if len(p.Records) > 0 {
			out[i].Fraction = float64(counts[z.Number]) / float64(len(p.Records))
		}
	}
	return out
}
