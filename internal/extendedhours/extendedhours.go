// Package extendedhours classifies a bar stream into premarket/regular/
// afterhours sessions, extracts yesterday/today reference levels, and
// derives the closing-behavior risk heuristic consumed by the playbook
// and sim-trader.
//
// Every bar's Time is treated as already localized to US/Eastern wall
// clock; callers are responsible for converting from UTC before calling
// in. No other package in this module calls BuildContext.
package extendedhours

import (
	"sort"
	"time"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

type session string

const (
	sessionPremarket  session = "premarket"
	sessionRegular    session = "regular"
	sessionAfterhours session = "afterhours"
	sessionDiscard    session = ""
)

func classifySession(t time.Time) session {
	h, m, _ := t.Clock()
	minutes := h*60 + m
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return sessionPremarket
	case minutes >= 9*60+30 && minutes < 16*60:
		return sessionRegular
	case minutes >= 16*60 && minutes < 20*60:
		return sessionAfterhours
	default:
		return sessionDiscard
	}
}

func dateKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type dayBars struct {
	premarket  []types.Bar
	regular    []types.Bar
	afterhours []types.Bar
}

func groupByDate(bars []types.Bar) map[time.Time]*dayBars {
	days := make(map[time.Time]*dayBars)
	for _, b := range bars {
		s := classifySession(b.Time)
		if s == sessionDiscard {
			continue
		}
		k := dateKey(b.Time)
		d, ok := days[k]
		if !ok {
			d = &dayBars{}
			days[k] = d
		}
		switch s {
		case sessionPremarket:
			d.premarket = append(d.premarket, b)
		case sessionRegular:
			d.regular = append(d.regular, b)
		case sessionAfterhours:
			d.afterhours = append(d.afterhours, b)
		}
	}
	return days
}

// latestTwoDates returns (yesterday, today) keys, newest last. Returns
// false if fewer than two distinct dates are present.
func latestTwoDates(days map[time.Time]*dayBars) (yesterday, today time.Time, ok bool) {
	keys := make([]time.Time, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	if len(keys) < 2 {
		return time.Time{}, time.Time{}, false
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	n := len(keys)
	return keys[n-2], keys[n-1], true
}

// BuildContext runs the full extended-hours analysis end to end: session
// classification, date grouping, quality tiering, level extraction,
// zone-role assignment, AH-risk, and (complete tier only) premarket
// regime/bias.
func BuildContext(bars []types.Bar, currentPrice float64, now time.Time) *types.EHContext {
	days := groupByDate(bars)
	yKey, tKey, ok := latestTwoDates(days)
	if !ok {
		return &types.EHContext{DataQuality: types.EHQualityMinimal, PremarketRegime: types.PremarketUnavailable, Bias: "eh.neutral", GeneratedAt: now}
	}
	yesterday, today := days[yKey], days[tKey]

	quality := classifyQuality(today, yesterday)
	levels := extractLevels(yesterday, today)
	roles := assignZoneRoles(levels, currentPrice)
	risk := computeAHRisk(yesterday.regular)

	ctx := &types.EHContext{
		Levels:      levels,
		ZoneRoles:   roles,
		AHRisk:      risk,
		DataQuality: quality,
		GeneratedAt: now,
	}

	if quality == types.EHQualityComplete {
		ctx.PremarketRegime, ctx.Bias = classifyPremarketRegime(levels, today.premarket)
	} else {
		ctx.PremarketRegime = types.PremarketUnavailable
		ctx.Bias = "eh.neutral"
	}

	return ctx
}

// classifyQuality tiers data completeness: complete when today-premarket
// has >=10 bars, partial when yesterday-afterhours has >=5 bars, minimal
// otherwise.
func classifyQuality(today, yesterday *dayBars) types.EHDataQuality {
	if len(today.premarket) >= 10 {
		return types.EHQualityComplete
	}
	if len(yesterday.afterhours) >= 5 {
		return types.EHQualityPartial
	}
	return types.EHQualityMinimal
}

func extractLevels(yesterday, today *dayBars) types.EHLevels {
	var lv types.EHLevels

	if len(yesterday.regular) > 0 {
		lv.HasYesterday = true
		lv.YC = yesterday.regular[len(yesterday.regular)-1].Close
		lv.YH, lv.YL = highLow(yesterday.regular)
	}
	if len(yesterday.afterhours) > 0 {
		lv.HasAH = true
		lv.AHH, lv.AHL = highLow(yesterday.afterhours)
	}
	if len(today.premarket) > 0 {
		lv.HasPM = true
		lv.PMH, lv.PML = highLow(today.premarket)
		if lv.HasYesterday {
			lv.HasGap = true
			lv.Gap = today.premarket[len(today.premarket)-1].Close - lv.YC
		}
	}
	return lv
}

func highLow(bars []types.Bar) (high, low float64) {
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}

// assignZoneRoles maps each available EH level to its role relative to
// currentPrice.
func assignZoneRoles(lv types.EHLevels, currentPrice float64) []types.EHZoneRole {
	var roles []types.EHZoneRole
	if lv.HasYesterday {
		roles = append(roles, types.EHZoneRole{Label: "YC", Role: types.ZoneRoleMagnet, Price: lv.YC})
		if currentPrice < lv.YH {
			roles = append(roles, types.EHZoneRole{Label: "YH", Role: types.ZoneRoleMajorResist, Price: lv.YH})
		} else {
			roles = append(roles, types.EHZoneRole{Label: "YH", Role: types.ZoneRoleConquered, Price: lv.YH})
		}
		if currentPrice > lv.YL {
			roles = append(roles, types.EHZoneRole{Label: "YL", Role: types.ZoneRoleMajorSupport, Price: lv.YL})
		} else {
			roles = append(roles, types.EHZoneRole{Label: "YL", Role: types.ZoneRoleBreached, Price: lv.YL})
		}
	}
	if lv.HasPM {
		if currentPrice < lv.PMH {
			roles = append(roles, types.EHZoneRole{Label: "PMH", Role: types.ZoneRoleBreakoutTrig, Price: lv.PMH})
		} else {
			roles = append(roles, types.EHZoneRole{Label: "PMH", Role: types.ZoneRoleSupportFlip, Price: lv.PMH})
		}
		if currentPrice > lv.PML {
			roles = append(roles, types.EHZoneRole{Label: "PML", Role: types.ZoneRoleSupportFlip, Price: lv.PML})
		} else {
			roles = append(roles, types.EHZoneRole{Label: "PML", Role: types.ZoneRoleBreakoutTrig, Price: lv.PML})
		}
	}
	if lv.HasAH {
		roles = append(roles, types.EHZoneRole{Label: "AHH", Role: types.ZoneRoleStatic, Price: lv.AHH})
		roles = append(roles, types.EHZoneRole{Label: "AHL", Role: types.ZoneRoleStatic, Price: lv.AHL})
	}
	return roles
}
