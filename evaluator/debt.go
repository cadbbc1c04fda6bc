package evaluator

import "github.com/hazyhaar/hourmaster/proto"

// clampThresholds caps each hour's accounted minutes at the configured
// ceiling: activity beyond it never reduces future debt. Debt values are
// capped too; at this pipeline position that only matters for records that
// arrive with debt already set.
func (e *Evaluator) clampThresholds(hours []proto.HourSummary) {
	for i := range hours {
		if hours[i].AccountedActiveMinutes > e.cfg.MaxAccountedMinutes {
			hours[i].AccountedActiveMinutes = e.cfg.MaxAccountedMinutes
		}
		if hours[i].Debt > e.cfg.DebtLimit {
			hours[i].Debt = e.cfg.DebtLimit
		}
	}
}

// accumulateDebt applies the forward recurrence:
//
//	debt[0] = max(0, minimum - accounted[0])
//	debt[i] = max(0, required(i) + debt[i-1] - accounted[i])
//
// where required(i) is the minimum for complete hours and 0 for the
// in-progress hour. Debt never goes negative: overperformance discharges
// prior debt plus the current hour's requirement, and any remaining surplus
// is discarded rather than banked. Each hour's debt is additionally capped
// at the configured limit.
func (e *Evaluator) accumulateDebt(hours []proto.HourSummary) {
	if len(hours) == 0 {
		return
	}

	hours[0].Debt = e.capDebt(e.cfg.MinimumActiveMinutes - hours[0].AccountedActiveMinutes)

	for i := 1; i < len(hours); i++ {
		required := 0
		if hours[i].Complete {
			required = e.cfg.MinimumActiveMinutes
		}
		hours[i].Debt = e.capDebt(required + hours[i-1].Debt - hours[i].AccountedActiveMinutes)
	}
}

func (e *Evaluator) capDebt(debt int) int {
	if debt < 0 {
		return 0
	}
	if debt > e.cfg.DebtLimit {
		return e.cfg.DebtLimit
	}
	return debt
}
