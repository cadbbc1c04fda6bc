package evaluator

import (
	"testing"

	"github.com/hazyhaar/hourmaster/grabber"
	"github.com/hazyhaar/hourmaster/proto"
)

// testConfig is a permissive baseline: goal 5 min/hour, generous ceilings,
// day spanning 00:00-23:00 so the default sleep window covers nothing.
func testConfig() Config {
	return Config{
		MinimumActiveMinutes: 5,
		MaxAccountedMinutes:  15,
		DebtLimit:            1000,
		DayBeginsAt:          proto.Midnight,
		DayEndsAt:            proto.TimeOfDayFrom(23, 0, 0),
		DayLengthHours:       23,
	}
}

func completeHours(activeMinutes ...int) []grabber.HourlyActivity {
	hours := make([]grabber.HourlyActivity, len(activeMinutes))
	for i, m := range activeMinutes {
		hours[i] = grabber.HourlyActivity{Hour: i, Complete: true, ActiveMinutes: m}
	}
	return hours
}

func TestSummary_IdleDayAccruesStrictlyIncreasingDebt(t *testing.T) {
	// WHAT: 10 complete idle hours accrue 5 more debt minutes each hour.
	// WHY: The recurrence must carry the full deficit forward, never reset it.
	e := New(testConfig(), Data{HourlyActivity: completeHours(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)}, nil)
	summary := e.Summary()

	prev := 0
	for i, h := range summary.DayLog {
		if h.Debt <= prev && i > 0 {
			t.Fatalf("hour %d: debt %d not strictly greater than previous %d", i, h.Debt, prev)
		}
		prev = h.Debt
	}
	if got := summary.DayLog[9].Debt; got != 50 {
		t.Errorf("final debt = %d, want 50", got)
	}
	if summary.Status.Kind != proto.TriggerDebtCollection {
		t.Errorf("status = %s, want DebtCollection", summary.Status.Kind)
	}
}

func TestSummary_OverperformanceDischargesDebt(t *testing.T) {
	// WHAT: 100 raw minutes clamp to the 10-minute ceiling and pay off a
	// 3-minute carry plus the hour's own requirement exactly.
	// WHY: Pins the clamp-then-accumulate interaction from the pipeline order.
	cfg := testConfig()
	cfg.MaxAccountedMinutes = 10

	// Hour 0 logs 2 of 5 required minutes, carrying 3 minutes of debt.
	e := New(cfg, Data{HourlyActivity: completeHours(2, 100)}, nil)
	summary := e.Summary()

	if got := summary.DayLog[0].Debt; got != 3 {
		t.Fatalf("hour 0 debt = %d, want 3", got)
	}
	if got := summary.DayLog[1].AccountedActiveMinutes; got != 10 {
		t.Errorf("hour 1 accounted = %d, want clamped 10", got)
	}
	if got := summary.DayLog[1].Debt; got != 0 {
		t.Errorf("hour 1 debt = %d, want 0", got)
	}
	if summary.Status.Kind != proto.TriggerNormal {
		t.Errorf("status = %s, want Normal", summary.Status.Kind)
	}
}

func TestSummary_PausedWhenCeilingReached(t *testing.T) {
	// WHAT: Debt plus a maxed-out hour classifies as DebtCollectionPaused.
	// WHY: No further credit is possible this hour; renotifying is pointless.
	cfg := testConfig()
	cfg.MaxAccountedMinutes = 10
	e := New(cfg, Data{HourlyActivity: completeHours(0, 0, 0, 10)}, nil)
	summary := e.Summary()

	last := summary.DayLog[3]
	if last.Debt == 0 {
		t.Fatal("expected residual debt")
	}
	if last.AccountedActiveMinutes < cfg.MaxAccountedMinutes {
		t.Fatalf("accounted = %d, expected ceiling %d", last.AccountedActiveMinutes, cfg.MaxAccountedMinutes)
	}
	if summary.Status.Kind != proto.TriggerDebtCollectionPaused {
		t.Errorf("status = %s, want DebtCollectionPaused", summary.Status.Kind)
	}
}

func TestSummary_EmptyDayLogFallsBackToNormal(t *testing.T) {
	// WHAT: Missing upstream data degrades to a tracking-disabled Normal hour.
	// WHY: The engine prefers a safe default over failing the evaluation.
	e := New(testConfig(), Data{}, nil)
	summary := e.Summary()

	if summary.Status.Kind != proto.TriggerNormal {
		t.Errorf("status = %s, want Normal", summary.Status.Kind)
	}
	if !summary.Status.Hour.TrackingDisabled || !summary.Status.Hour.Complete {
		t.Errorf("fallback hour = %+v, want tracking-disabled and complete", summary.Status.Hour)
	}
	if len(summary.DayLog) != 0 {
		t.Errorf("day log has %d entries, want 0", len(summary.DayLog))
	}
}

func TestSummary_ClassificationIsIdempotent(t *testing.T) {
	// WHAT: Re-evaluating identical input yields an identical status.
	// WHY: Classification must be a pure function of (final hour, config).
	data := Data{HourlyActivity: completeHours(0, 3, 7)}
	first := New(testConfig(), data, nil).Summary()
	second := New(testConfig(), data, nil).Summary()

	if first.Status != second.Status {
		t.Errorf("statuses differ: %+v vs %+v", first.Status, second.Status)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero goal", func(c *Config) { c.MinimumActiveMinutes = 0 }, true},
		{"goal over an hour", func(c *Config) { c.MinimumActiveMinutes = 61 }, true},
		{"day starts after end", func(c *Config) {
			c.DayBeginsAt = proto.TimeOfDayFrom(23, 0, 0)
			c.DayEndsAt = proto.TimeOfDayFrom(8, 0, 0)
		}, true},
		{"zero accounting ceiling", func(c *Config) { c.MaxAccountedMinutes = 0 }, true},
		{"negative debt limit", func(c *Config) { c.DebtLimit = -1 }, true},
		{"zero day length", func(c *Config) { c.DayLengthHours = 0 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}
