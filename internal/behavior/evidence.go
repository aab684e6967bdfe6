package behavior

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/internal/features"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// buildEvidence generates up to three evidence items for the dominant
// phase from the current bar's features. Predicates:
// ABSORPTION (effort>=1.5 and result<=0.6), VOLUME_SPIKE (RVOL>=1.5),
// REJECTION (relevant wick ratio > 0.3), SWEEP (shakeouts near support),
// BREAKOUT (markup/markdown).
func buildEvidence(bars []types.Bar, i int, f *features.Features, support, resistance []types.Zone, dominant types.PhaseName) []types.Evidence {
	var items []types.Evidence
	add := func(ev types.Evidence) {
		if len(items) < 3 {
			items = append(items, ev)
		}
	}

	bar := bars[i]
	relevantWick := f.LowerWick[i]
	if dominant == types.PhaseDistribution || dominant == types.PhaseMarkdown {
		relevantWick = f.UpperWick[i]
	}

	if f.AbsorptionAt(i) {
		add(types.Evidence{
			Type: types.EvidenceAbsorption, Behavior: dominant,
			Severity: severity(f.RVOL[i], relevantWick),
			BarTime:  bar.Time, BarIndex: i,
			Metrics: map[string]float64{"effort": f.Effort[i], "result": f.Result[i]},
			Note:    "evidence.absorption",
		})
	}

	if !math.IsNaN(f.RVOL[i]) && f.RVOL[i] >= 1.5 {
		add(types.Evidence{
			Type: types.EvidenceVolumeSpike, Behavior: dominant,
			Severity: severity(f.RVOL[i], relevantWick),
			BarTime:  bar.Time, BarIndex: i,
			Metrics: map[string]float64{"rvol": f.RVOL[i]},
			Note:    "evidence.volume_spike",
		})
	}

	if relevantWick > 0.3 {
		add(types.Evidence{
			Type: types.EvidenceRejection, Behavior: dominant,
			Severity: severity(f.RVOL[i], relevantWick),
			BarTime:  bar.Time, BarIndex: i,
			Metrics: map[string]float64{"wick_ratio": relevantWick},
			Note:    "evidence.rejection",
		})
	}

	if dominant == types.PhaseShakeout {
		near, z := nearZone(bar.Close, support, f.ATR[i])
		if near {
			add(types.Evidence{
				Type: types.EvidenceSweep, Behavior: dominant,
				Severity: severity(f.RVOL[i], relevantWick),
				BarTime:  bar.Time, BarIndex: i,
				Metrics: map[string]float64{"zone_low": z.Low, "zone_high": z.High},
				Note:    "evidence.sweep",
			})
		}
	}

	if dominant == types.PhaseMarkup || dominant == types.PhaseMarkdown {
		zones := resistance
		if dominant == types.PhaseMarkdown {
			zones = support
		}
		near, z := nearZone(bar.Close, zones, f.ATR[i])
		if near {
			add(types.Evidence{
				Type: types.EvidenceBreakout, Behavior: dominant,
				Severity: severity(f.RVOL[i], relevantWick),
				BarTime:  bar.Time, BarIndex: i,
				Metrics: map[string]float64{"zone_low": z.Low, "zone_high": z.High},
				Note:    "evidence.breakout",
			})
		}
	}

	return items
}

// severity tiers evidence: high if RVOL>=2.0 or wick>=0.5,
// med if RVOL>=1.5 or wick>=0.3, else low.
func severity(rvol, wick float64) types.Severity {
	rvolOK := !math.IsNaN(rvol)
	switch {
	case (rvolOK && rvol >= 2.0) || wick >= 0.5:
		return types.SeverityHigh
	case (rvolOK && rvol >= 1.5) || wick >= 0.3:
		return types.SeverityMed
	default:
		return types.SeverityLow
	}
}
