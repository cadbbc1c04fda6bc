// Package proto defines the wire types shared by the hourmaster service and
// its consumers: the per-hour activity log, the three operating states, the
// summary envelope, and the trigger enumeration the driver routes on.
package proto

import (
	"encoding/json"
	"fmt"
)

// HourSummary is one hour of the day log. AccountedActiveMinutes is the
// value actually used in debt computation, after sleep-window floors and
// threshold ceilings; it can differ from the raw ActiveMinutes.
type HourSummary struct {
	Hour                   int  `json:"hour"`
	Debt                   int  `json:"debt"`
	ActiveMinutes          int  `json:"activeMinutes"`
	AccountedActiveMinutes int  `json:"accountedActiveMinutes"`
	TrackingDisabled       bool `json:"trackingDisabled"`
	Complete               bool `json:"complete"`
}

// Trigger is the routing key for dispatch, one per Status variant. Its
// string form is the discriminant name handed to plugin executables.
type Trigger string

const (
	TriggerNormal               Trigger = "Normal"
	TriggerDebtCollection       Trigger = "DebtCollection"
	TriggerDebtCollectionPaused Trigger = "DebtCollectionPaused"
)

// Triggers lists all valid triggers in a stable order.
func Triggers() []Trigger {
	return []Trigger{TriggerNormal, TriggerDebtCollection, TriggerDebtCollectionPaused}
}

// ParseTrigger validates a discriminant name.
func ParseTrigger(s string) (Trigger, error) {
	switch t := Trigger(s); t {
	case TriggerNormal, TriggerDebtCollection, TriggerDebtCollectionPaused:
		return t, nil
	}
	return "", fmt.Errorf("unknown trigger %q", s)
}

// wire tags use camelCase, matching the rest of the JSON surface.
var triggerTags = map[Trigger]string{
	TriggerNormal:               "normal",
	TriggerDebtCollection:       "debtCollection",
	TriggerDebtCollectionPaused: "debtCollectionPaused",
}

// Status is the externally visible signal: the operating-state variant plus
// the hour record it was classified from. On the wire it is an internally
// tagged union, e.g. {"type":"debtCollection","hour":14,"debt":7,...}.
type Status struct {
	Kind Trigger
	Hour HourSummary
}

// IsDebtCollection reports whether the status is the active debt-collection
// variant, the one state that renotifies on every poll.
func (s Status) IsDebtCollection() bool { return s.Kind == TriggerDebtCollection }

type statusWire struct {
	Type string `json:"type"`
	HourSummary
}

func (s Status) MarshalJSON() ([]byte, error) {
	tag, ok := triggerTags[s.Kind]
	if !ok {
		return nil, fmt.Errorf("status: unknown variant %q", s.Kind)
	}
	return json.Marshal(statusWire{Type: tag, HourSummary: s.Hour})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var w statusWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	for kind, tag := range triggerTags {
		if tag == w.Type {
			s.Kind = kind
			s.Hour = w.HourSummary
			return nil
		}
	}
	return fmt.Errorf("status: unknown variant tag %q", w.Type)
}

// Summary is the full evaluation result for one subject and day.
type Summary struct {
	Status Status        `json:"status"`
	DayLog []HourSummary `json:"dayLog"`
}
