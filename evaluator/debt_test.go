package evaluator

import (
	"testing"

	"github.com/hazyhaar/hourmaster/proto"
)

func summaries(spec ...proto.HourSummary) []proto.HourSummary {
	out := make([]proto.HourSummary, len(spec))
	copy(out, spec)
	return out
}

func TestAccumulateDebt_NeverNegative(t *testing.T) {
	// WHAT: Overperformance discharges debt but never produces credit.
	e := New(testConfig(), Data{}, nil)
	hours := summaries(
		proto.HourSummary{Hour: 0, Complete: true, AccountedActiveMinutes: 15},
		proto.HourSummary{Hour: 1, Complete: true, AccountedActiveMinutes: 0},
		proto.HourSummary{Hour: 2, Complete: true, AccountedActiveMinutes: 15},
		proto.HourSummary{Hour: 3, Complete: true, AccountedActiveMinutes: 15},
		proto.HourSummary{Hour: 4, Complete: true, AccountedActiveMinutes: 2},
	)
	e.accumulateDebt(hours)

	for _, h := range hours {
		if h.Debt < 0 {
			t.Errorf("hour %d: debt = %d, want non-negative", h.Hour, h.Debt)
		}
	}
	// Hour 0's 10-minute surplus must not prepay hour 1's requirement.
	if hours[1].Debt != 5 {
		t.Errorf("hour 1 debt = %d, want 5: surplus is discarded, not banked", hours[1].Debt)
	}
}

func TestAccumulateDebt_InProgressHourRequiresNothing(t *testing.T) {
	// WHAT: The incomplete final hour carries prior debt forward but adds no
	// requirement of its own.
	// WHY: Charging an hour that is still running would penalize early polls.
	e := New(testConfig(), Data{}, nil)
	hours := summaries(
		proto.HourSummary{Hour: 0, Complete: true, AccountedActiveMinutes: 0},
		proto.HourSummary{Hour: 1, Complete: false, AccountedActiveMinutes: 0},
	)
	e.accumulateDebt(hours)

	if hours[0].Debt != 5 {
		t.Fatalf("hour 0 debt = %d, want 5", hours[0].Debt)
	}
	if hours[1].Debt != 5 {
		t.Errorf("hour 1 debt = %d, want carried-over 5", hours[1].Debt)
	}
}

func TestAccumulateDebt_CappedAtLimit(t *testing.T) {
	// WHAT: Accumulated debt saturates at DebtLimit instead of growing
	// without bound over a long idle day.
	cfg := testConfig()
	cfg.DebtLimit = 12
	e := New(cfg, Data{}, nil)

	hours := make([]proto.HourSummary, 8)
	for i := range hours {
		hours[i] = proto.HourSummary{Hour: i, Complete: true}
	}
	e.accumulateDebt(hours)

	for _, h := range hours {
		if h.Debt > cfg.DebtLimit {
			t.Errorf("hour %d: debt = %d exceeds limit %d", h.Hour, h.Debt, cfg.DebtLimit)
		}
	}
	if got := hours[len(hours)-1].Debt; got != cfg.DebtLimit {
		t.Errorf("final debt = %d, want saturated at %d", got, cfg.DebtLimit)
	}
}

func TestClampThresholds(t *testing.T) {
	// WHAT: Accounted minutes and pre-set debt are both capped at their
	// configured ceilings before accumulation runs.
	cfg := testConfig()
	cfg.MaxAccountedMinutes = 10
	cfg.DebtLimit = 20
	e := New(cfg, Data{}, nil)

	hours := summaries(
		proto.HourSummary{Hour: 0, AccountedActiveMinutes: 45, Debt: 100},
		proto.HourSummary{Hour: 1, AccountedActiveMinutes: 7, Debt: 3},
	)
	e.clampThresholds(hours)

	if hours[0].AccountedActiveMinutes != 10 {
		t.Errorf("hour 0 accounted = %d, want clamped 10", hours[0].AccountedActiveMinutes)
	}
	if hours[0].Debt != 20 {
		t.Errorf("hour 0 debt = %d, want clamped 20", hours[0].Debt)
	}
	if hours[1].AccountedActiveMinutes != 7 || hours[1].Debt != 3 {
		t.Errorf("hour 1 = %+v, want untouched", hours[1])
	}
}
