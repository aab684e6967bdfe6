// Package playbook generates conditional trade-plan templates from the
// current regime and zone geometry, modulated by extended-hours context
// when available.
package playbook

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

const (
	targetATRMultiplier       = 2.0
	invalidationATRMultiplier = 0.5
	ehGapATRThreshold         = 0.5
)

// Generate builds one template plan for each side that has a zone (the
// nearest zone wholly below and wholly above currentPrice), so up to two,
// then applies EH modulation when ctx carries a premarket regime beyond
// "unavailable", which can add a "Plan EH". A side with no zone gets no
// plan, and zones that contain currentPrice count for neither side.
func Generate(regime types.Regime, zones []types.Zone, atr, currentPrice float64, ctx *types.EHContext) []types.PlaybookPlan {
	if atr <= 0 || math.IsNaN(atr) {
		return nil
	}

	support, resistance := nearestEachSide(zones, currentPrice)

	var plans []types.PlaybookPlan
	switch regime {
	case types.RegimeUptrend:
		plans = uptrendPlans(currentPrice, atr, support, resistance)
	case types.RegimeDowntrend:
		plans = downtrendPlans(currentPrice, atr, support, resistance)
	default:
		plans = rangePlans(currentPrice, atr, support, resistance)
	}

	if ctx != nil {
		plans = applyEHModulation(plans, ctx, currentPrice, atr)
	}
	return plans
}

// nearestEachSide returns the nearest support zone below and nearest
// resistance zone above currentPrice, if any.
func nearestEachSide(zones []types.Zone, currentPrice float64) (support, resistance *types.Zone) {
	var bestSupportDist, bestResistDist = math.Inf(1), math.Inf(1)
	for i := range zones {
		z := zones[i]
		if z.High <= currentPrice {
			d := currentPrice - z.High
			if d < bestSupportDist {
				bestSupportDist = d
				support = &zones[i]
			}
		} else if z.Low >= currentPrice {
			d := z.Low - currentPrice
			if d < bestResistDist {
				bestResistDist = d
				resistance = &zones[i]
			}
		}
	}
	return support, resistance
}

// target computes entry +/- 2.0*ATR unless a nearer opposite-side zone
// exists, in which case that zone's near bound is used instead.
func target(entry float64, atr float64, up bool, opposite *types.Zone) float64 {
	atrTarget := entry + signed(up)*targetATRMultiplier*atr
	if opposite == nil {
		return atrTarget
	}
	zoneBound := opposite.High
	if up {
		zoneBound = opposite.Low
	}
	if up && zoneBound < atrTarget && zoneBound > entry {
		return zoneBound
	}
	if !up && zoneBound > atrTarget && zoneBound < entry {
		return zoneBound
	}
	return atrTarget
}

// invalidation computes entry -/+ 0.5*ATR unless a zone bound gives a
// tighter natural invalidation.
func invalidation(entry float64, atr float64, up bool, anchor *types.Zone) float64 {
	atrInval := entry - signed(up)*invalidationATRMultiplier*atr
	if anchor == nil {
		return atrInval
	}
	bound := anchor.Low
	if !up {
		bound = anchor.High
	}
	if up && bound > atrInval && bound < entry {
		return bound
	}
	if !up && bound < atrInval && bound > entry {
		return bound
	}
	return atrInval
}

func signed(up bool) float64 {
	if up {
		return 1
	}
	return -1
}

func uptrendPlans(price, atr float64, support, resistance *types.Zone) []types.PlaybookPlan {
	var plans []types.PlaybookPlan
	if support != nil {
		entry := support.Mid()
		plans = append(plans, types.PlaybookPlan{
			Name: "Plan A", Condition: "playbook.pullback_support", Level: entry,
			Target: target(entry, atr, true, resistance), Invalidation: invalidation(entry, atr, true, support),
			Risk: "playbook.risk.moderate", Direction: types.DirectionUp,
		})
	}
	if resistance != nil {
		entry := resistance.High
		plans = append(plans, types.PlaybookPlan{
			Name: "Plan B", Condition: "playbook.continuation_breakout", Level: entry,
			Target: target(entry, atr, true, nil), Invalidation: invalidation(entry, atr, true, resistance),
			Risk: "playbook.risk.moderate", Direction: types.DirectionUp,
		})
	}
	return plans
}

func downtrendPlans(price, atr float64, support, resistance *types.Zone) []types.PlaybookPlan {
	var plans []types.PlaybookPlan
	if resistance != nil {
		entry := resistance.Mid()
		plans = append(plans, types.PlaybookPlan{
			Name: "Plan A", Condition: "playbook.rejection_resistance", Level: entry,
			Target: target(entry, atr, false, support), Invalidation: invalidation(entry, atr, false, resistance),
			Risk: "playbook.risk.moderate", Direction: types.DirectionDown,
		})
	}
	if support != nil {
		entry := support.Low
		plans = append(plans, types.PlaybookPlan{
			Name: "Plan B", Condition: "playbook.continuation_breakdown", Level: entry,
			Target: target(entry, atr, false, nil), Invalidation: invalidation(entry, atr, false, support),
			Risk: "playbook.risk.moderate", Direction: types.DirectionDown,
		})
	}
	return plans
}

func rangePlans(price, atr float64, support, resistance *types.Zone) []types.PlaybookPlan {
	var plans []types.PlaybookPlan
	if support != nil {
		entry := support.Mid()
		plans = append(plans, types.PlaybookPlan{
			Name: "Plan A", Condition: "playbook.bounce_support", Level: entry,
			Target: target(entry, atr, true, resistance), Invalidation: invalidation(entry, atr, true, support),
			Risk: "playbook.risk.low", Direction: types.DirectionUp,
		})
	}
	if resistance != nil {
		entry := resistance.Mid()
		plans = append(plans, types.PlaybookPlan{
			Name: "Plan B", Condition: "playbook.fade_resistance", Level: entry,
			Target: target(entry, atr, false, support), Invalidation: invalidation(entry, atr, false, resistance),
			Risk: "playbook.risk.low", Direction: types.DirectionDown,
		})
	}
	return plans
}

// applyEHModulation applies the three EH rules: gap_fill_bias
// adds a dedicated "Plan EH" targeting YC; gap_and_go renames the matching
// directional plan to bump its priority; range_day_setup leaves plans
// unmodified.
func applyEHModulation(plans []types.PlaybookPlan, ctx *types.EHContext, currentPrice, atr float64) []types.PlaybookPlan {
	switch ctx.PremarketRegime {
	case types.PremarketGapFillBias:
		if ctx.Levels.HasGap && math.Abs(ctx.Levels.Gap) > ehGapATRThreshold*atr {
			up := ctx.Levels.Gap < 0 // gap down fills upward toward YC
			plans = append(plans, types.PlaybookPlan{
				Name: "Plan EH", Condition: "playbook.gap_fill", Level: currentPrice,
				Target: ctx.Levels.YC, Invalidation: currentPrice - signed(up)*invalidationATRMultiplier*atr,
				Risk: "playbook.risk.moderate", Direction: directionFor(up),
			})
		}
	case types.PremarketGapAndGo:
		gapUp := ctx.Levels.HasGap && ctx.Levels.Gap > 0
		for i := range plans {
			if gapUp && plans[i].Direction == types.DirectionUp && plans[i].Name == "Plan B" {
				plans[i].Name = "Plan A (EH)"
			}
			if !gapUp && plans[i].Direction == types.DirectionDown && plans[i].Name == "Plan B" {
				plans[i].Name = "Plan A (EH)"
			}
		}
	case types.PremarketRangeDaySetup:
		// leave range plans as-is; already the preferred setup.
	}
	return plans
}

func directionFor(up bool) types.Direction {
	if up {
		return types.DirectionUp
	}
	return types.DirectionDown
}
