package structure

import (
	"math"
	"sort"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// paddingMultiplier returns the timeframe-dependent zone padding:
// 0.35*ATR at 1-minute, 0.4*ATR at 5-minute, 0.5*ATR otherwise.
func paddingMultiplier(tf types.Timeframe) float64 {
	switch tf {
	case types.Timeframe1m:
		return 0.35
	case types.Timeframe5m:
		return 0.4
	default:
		return 0.5
	}
}

// ClusterZones clusters swing points into scored zones: sort swing
// points by price, split into clusters by a 1-D single-pass partition
// where consecutive prices differing by more than bin_width=0.5*ATR start
// a new cluster. Returns the top maxZones by score, descending.
func ClusterZones(points []types.SwingPoint, atr float64, tf types.Timeframe, maxZones, currentIndex int, side types.ZoneSide) []types.Zone {
	if len(points) == 0 || atr <= 0 || math.IsNaN(atr) {
		return nil
	}

	sorted := make([]types.SwingPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	binWidth := 0.5 * atr
	padding := paddingMultiplier(tf) * atr

	var clusters [][]types.SwingPoint
	cur := []types.SwingPoint{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Price-sorted[i-1].Price <= binWidth {
			cur = append(cur, sorted[i])
		} else {
			clusters = append(clusters, cur)
			cur = []types.SwingPoint{sorted[i]}
		}
	}
	clusters = append(clusters, cur)

	zones := make([]types.Zone, 0, len(clusters))
	for _, c := range clusters {
		low, high := c[0].Price, c[0].Price
		latestIndex := c[0].Index
		latestTime := c[0].BarTime
		for _, p := range c {
			if p.Price < low {
				low = p.Price
			}
			if p.Price > high {
				high = p.Price
			}
			if p.Index > latestIndex {
				latestIndex = p.Index
				latestTime = p.BarTime
			}
		}
		touches := len(c)
		rejections, lastReaction := approximateReactionStats(touches, atr)
		barsSince := currentIndex - latestIndex

		score := zoneScore(touches, rejections, lastReaction, atr, barsSince)

		zones = append(zones, types.Zone{
			Low:           low - padding,
			High:          high + padding,
			Score:         score,
			Touches:       touches,
			Rejections:    rejections,
			LastReaction:  lastReaction,
			LastTestTime:  latestTime,
			LastTestIndex: latestIndex,
			Side:          side,
		})
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].Score > zones[j].Score })
	if len(zones) > maxZones {
		zones = zones[:maxZones]
	}
	return zones
}

// approximateReactionStats is the chosen baseline approximation in place of
// measured per-zone reaction bookkeeping: rejections = floor(0.8*touches),
// last_reaction ~= ATR. A measured implementation would replace this single
// function and feed real per-zone reaction history into zoneScore unchanged.
func approximateReactionStats(touches int, atr float64) (rejections int, lastReaction float64) {
	rejections = int(0.8 * float64(touches))
	lastReaction = atr
	return rejections, lastReaction
}

// zoneScore computes the multi-factor zone strength score.
func zoneScore(touches, rejections int, lastReaction, atr float64, barsSinceLastTest int) float64 {
	touchTerm := 0.30 * math.Min(float64(touches), 5) / 5
	rejectTerm := 0.30 * math.Min(float64(rejections), 5) / 5
	reactionTerm := 0.25 * math.Min(lastReaction/(2*atr), 1)
	recencyTerm := 0.15 * math.Max(1-float64(barsSinceLastTest)/100, 0)
	return touchTerm + rejectTerm + reactionTerm + recencyTerm
}

// InjectEHZones builds narrow (approximately half-tick) pseudo-zones for
// each available EH level,
// marked with a high static score so they sort near the top, placed on
// whichever side they sit relative to currentPrice.
func InjectEHZones(eh *types.EHContext, currentPrice float64) (support, resistance []types.Zone) {
	if eh == nil {
		return nil, nil
	}
	const halfTick = 0.005
	const ehScore = 0.95

	add := func(label string, price float64) {
		if price <= 0 {
			return
		}
		z := types.Zone{
			Low: price - halfTick, High: price + halfTick,
			Score: ehScore, Touches: 0, Rejections: 0,
			IsEHZone: true, EHLabel: label,
		}
		for _, r := range eh.ZoneRoles {
			if r.Label == label {
				z.Role = r.Role
			}
		}
		if price <= currentPrice {
			z.Side = types.ZoneSideSupport
			support = append(support, z)
		} else {
			z.Side = types.ZoneSideResistance
			resistance = append(resistance, z)
		}
	}

	lv := eh.Levels
	if lv.HasYesterday {
		add("YC", lv.YC)
		add("YH", lv.YH)
		add("YL", lv.YL)
	}
	if lv.HasPM {
		add("PMH", lv.PMH)
		add("PML", lv.PML)
	}
	if lv.HasAH {
		add("AHH", lv.AHH)
		add("AHL", lv.AHL)
	}
	return support, resistance
}

// MergeZones merges structural zones with injected EH pseudo-zones,
// re-sorts by score descending, and caps at maxZones.
func MergeZones(structural, injected []types.Zone, maxZones int) []types.Zone {
	merged := make([]types.Zone, 0, len(structural)+len(injected))
	merged = append(merged, structural...)
	merged = append(merged, injected...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > maxZones {
		merged = merged[:maxZones]
	}
	return merged
}
