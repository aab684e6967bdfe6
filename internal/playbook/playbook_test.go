package playbook_test

import (
	"testing"

	"github.com/songzhiyuan98/klinelens-go/internal/playbook"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func TestUptrendPlansCount(t *testing.T) {
	zones := []types.Zone{
		{Low: 98, High: 99, Side: types.ZoneSideSupport},
		{Low: 102, High: 103, Side: types.ZoneSideResistance},
	}
	plans := playbook.Generate(types.RegimeUptrend, zones, 1.0, 100, nil)
	if len(plans) < 2 || len(plans) > 3 {
		t.Fatalf("expected 2-3 plans, got %d", len(plans))
	}
	for _, p := range plans {
		if p.Target == p.Invalidation {
			t.Errorf("plan %s has Target == Invalidation", p.Name)
		}
	}
}

func TestRangePlansDirections(t *testing.T) {
	zones := []types.Zone{
		{Low: 98, High: 99, Side: types.ZoneSideSupport},
		{Low: 102, High: 103, Side: types.ZoneSideResistance},
	}
	plans := playbook.Generate(types.RegimeRange, zones, 1.0, 100, nil)
	foundUp, foundDown := false, false
	for _, p := range plans {
		if p.Direction == types.DirectionUp {
			foundUp = true
		}
		if p.Direction == types.DirectionDown {
			foundDown = true
		}
	}
	if !foundUp || !foundDown {
		t.Error("expected both a long (bounce) and short (fade) range plan")
	}
}

func TestGapFillBiasAddsPlanEH(t *testing.T) {
	zones := []types.Zone{
		{Low: 98, High: 99, Side: types.ZoneSideSupport},
		{Low: 102, High: 103, Side: types.ZoneSideResistance},
	}
	ctx := &types.EHContext{
		PremarketRegime: types.PremarketGapFillBias,
		Levels:          types.EHLevels{YC: 100, HasGap: true, Gap: -2.0},
	}
	plans := playbook.Generate(types.RegimeRange, zones, 1.0, 98, ctx)
	found := false
	for _, p := range plans {
		if p.Name == "Plan EH" {
			found = true
			if p.Target != 100 {
				t.Errorf("Plan EH target = %v, want YC=100", p.Target)
			}
		}
	}
	if !found {
		t.Error("expected a Plan EH entry for a large gap-fill-bias day")
	}
}

func TestGapAndGoRenamesPlan(t *testing.T) {
	zones := []types.Zone{
		{Low: 98, High: 99, Side: types.ZoneSideSupport},
		{Low: 102, High: 103, Side: types.ZoneSideResistance},
	}
	ctx := &types.EHContext{
		PremarketRegime: types.PremarketGapAndGo,
		Levels:          types.EHLevels{HasGap: true, Gap: 1.5},
	}
	plans := playbook.Generate(types.RegimeUptrend, zones, 1.0, 100, ctx)
	found := false
	for _, p := range plans {
		if p.Name == "Plan A (EH)" {
			found = true
		}
	}
	if !found {
		t.Error("expected the continuation plan renamed to Plan A (EH)")
	}
}
