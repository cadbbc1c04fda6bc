package proto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStatusJSONRoundTrip(t *testing.T) {
	// WHAT: Status serializes as an internally tagged union and decodes back
	// to the same variant and hour record.
	// WHY: Drivers on the other side of the wire route purely on "type".
	for _, kind := range Triggers() {
		status := Status{
			Kind: kind,
			Hour: HourSummary{Hour: 14, Debt: 7, ActiveMinutes: 3, AccountedActiveMinutes: 3, Complete: true},
		}
		raw, err := json.Marshal(status)
		if err != nil {
			t.Fatalf("%s: marshal: %v", kind, err)
		}

		var decoded Status
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s: unmarshal: %v", kind, err)
		}
		if decoded != status {
			t.Errorf("%s: round trip changed status: %+v -> %+v", kind, status, decoded)
		}
	}
}

func TestStatusWireShape(t *testing.T) {
	// WHAT: The hour fields are flattened next to the camelCase type tag,
	// not nested under a sub-object.
	raw, err := json.Marshal(Status{
		Kind: TriggerDebtCollection,
		Hour: HourSummary{Hour: 9, Debt: 12},
	})
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if string(fields["type"]) != `"debtCollection"` {
		t.Errorf("type = %s, want \"debtCollection\"", fields["type"])
	}
	for _, key := range []string{"hour", "debt", "accountedActiveMinutes", "trackingDisabled", "complete"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing flattened field %q in %s", key, raw)
		}
	}
}

func TestStatusUnmarshalRejectsUnknownTag(t *testing.T) {
	var s Status
	err := json.Unmarshal([]byte(`{"type":"vacation","hour":1}`), &s)
	if err == nil {
		t.Fatal("expected error for unknown variant tag")
	}
}

func TestParseTrigger(t *testing.T) {
	for _, want := range Triggers() {
		got, err := ParseTrigger(string(want))
		if err != nil || got != want {
			t.Errorf("ParseTrigger(%q) = %v, %v", want, got, err)
		}
	}
	if _, err := ParseTrigger("normal"); err == nil {
		t.Error("lowercase discriminant should be rejected")
	}
}

func TestIsDebtCollection(t *testing.T) {
	if !(Status{Kind: TriggerDebtCollection}).IsDebtCollection() {
		t.Error("DebtCollection should report true")
	}
	if (Status{Kind: TriggerDebtCollectionPaused}).IsDebtCollection() {
		t.Error("paused variant should report false")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:30", TimeOfDayFrom(8, 30, 0), false},
		{"23:59:59", EndOfDay, false},
		{"00:00", Midnight, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseTimeOfDay(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayAddWraps(t *testing.T) {
	// WHAT: Adding past midnight wraps instead of overflowing the day.
	got := TimeOfDayFrom(23, 0, 0).Add(2 * time.Hour)
	if want := TimeOfDayFrom(1, 0, 0); got != want {
		t.Errorf("23:00 + 2h = %s, want %s", got, want)
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	raw, err := json.Marshal(TimeOfDayFrom(7, 5, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `"07:05:00"` {
		t.Errorf("marshal = %s, want \"07:05:00\"", raw)
	}

	var decoded TimeOfDay
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != TimeOfDayFrom(7, 5, 0) {
		t.Errorf("round trip = %s", decoded)
	}

	if err := json.Unmarshal([]byte(`730`), &decoded); err == nil {
		t.Error("numeric time of day should be rejected")
	}
}

func TestAsError(t *testing.T) {
	// WHAT: Known service errors pass through, everything else becomes
	// Internal without leaking a sentinel.
	if got := AsError(ErrTokenExpired); got != ErrTokenExpired {
		t.Errorf("AsError(ErrTokenExpired) = %v", got)
	}
	wrapped := AsError(json.Unmarshal([]byte("{"), &struct{}{}))
	if wrapped.Code != "internal" || wrapped.HTTPStatus != 500 {
		t.Errorf("unexpected mapping: %+v", wrapped)
	}
	if !strings.HasPrefix(wrapped.Message, "internal error:") {
		t.Errorf("message = %q", wrapped.Message)
	}
}
