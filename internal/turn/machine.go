// Package turn holds the pure decision logic of the pemilu scheduler. Given
// an event, its participants and a clock reading it decides what the driver
// should do next. It never touches storage, so every decision can be replayed
// concurrently and the ledger's conditional updates arbitrate which caller
// commits.
package turn

import (
	"time"

	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/domain/participant"
)

// Action enumerates what the driver should do for an event right now.
type Action byte

const (
	// ActionNone means the event is outside its window, not turn-based, or
	// fully resolved.
	ActionNone Action = iota
	// ActionBegin means the event should start: promote the first registered
	// participant and demote the rest to waiting.
	ActionBegin
	// ActionAdvance means the active participant's turn has expired: mark it
	// done and promote the next waiting participant, if any.
	ActionAdvance
	// ActionIdle means a participant is active and still inside its turn.
	ActionIdle
)

func (a Action) String() string {
	switch a {
	case ActionBegin:
		return "begin"
	case ActionAdvance:
		return "advance"
	case ActionIdle:
		return "idle"
	default:
		return "none"
	}
}

// Decision is the outcome of one evaluation of the state machine.
type Decision struct {
	Action Action

	// First is the participant to activate for ActionBegin.
	First *participant.Participant

	// From is the currently active participant for ActionAdvance and
	// ActionIdle.
	From *participant.Participant

	// To is the next participant to activate for ActionAdvance; nil when the
	// event is finished after From.
	To *participant.Participant

	// TurnEnd is the expiry of the newly activated turn, computed fresh from
	// now for ActionBegin and ActionAdvance.
	TurnEnd time.Time
}

// Decide evaluates the state machine for one event. Participants may arrive
// in any order; ordinal order is the single source of truth for sequencing.
func Decide(ev *event.Event, participants []*participant.Participant, now time.Time) Decision {
	if ev == nil || !ev.IsTurnBased() {
		return Decision{Action: ActionNone}
	}

	active := findActive(participants)

	if active != nil {
		if active.TurnEnd != nil && now.Before(*active.TurnEnd) {
			return Decision{Action: ActionIdle, From: active}
		}
		next := nextWaiting(participants, active.Ordinal)
		return Decision{
			Action:  ActionAdvance,
			From:    active,
			To:      next,
			TurnEnd: now.Add(ev.TurnDuration()),
		}
	}

	if !ev.WindowOpen(now) {
		return Decision{Action: ActionNone}
	}

	first := firstRegistered(participants)
	if first == nil {
		// No one active and no one left to start: the event is either empty
		// or fully resolved.
		return Decision{Action: ActionNone}
	}

	return Decision{
		Action:  ActionBegin,
		First:   first,
		TurnEnd: now.Add(ev.TurnDuration()),
	}
}

// DecideAdvance evaluates an explicit advancement request, ignoring the turn
// timer: the active participant is done regardless of remaining time.
func DecideAdvance(ev *event.Event, participants []*participant.Participant, now time.Time) Decision {
	if ev == nil || !ev.IsTurnBased() {
		return Decision{Action: ActionNone}
	}

	active := findActive(participants)
	if active == nil {
		return Decision{Action: ActionNone}
	}

	return Decision{
		Action:  ActionAdvance,
		From:    active,
		To:      nextWaiting(participants, active.Ordinal),
		TurnEnd: now.Add(ev.TurnDuration()),
	}
}

// ActiveOf returns the event's active participant, or nil.
func ActiveOf(participants []*participant.Participant) *participant.Participant {
	return findActive(participants)
}

func findActive(participants []*participant.Participant) *participant.Participant {
	for _, p := range participants {
		if p.Status == participant.StatusActive {
			return p
		}
	}
	return nil
}

// firstRegistered returns the registered participant with the smallest
// ordinal.
func firstRegistered(participants []*participant.Participant) *participant.Participant {
	var first *participant.Participant
	for _, p := range participants {
		if p.Status != participant.StatusRegistered {
			continue
		}
		if first == nil || p.Ordinal < first.Ordinal {
			first = p
		}
	}
	return first
}

// nextWaiting returns the waiting participant with the smallest ordinal
// strictly greater than after, or nil when the rotation is exhausted.
func nextWaiting(participants []*participant.Participant, after int) *participant.Participant {
	var next *participant.Participant
	for _, p := range participants {
		if p.Status != participant.StatusWaiting || p.Ordinal <= after {
			continue
		}
		if next == nil || p.Ordinal < next.Ordinal {
			next = p
		}
	}
	return next
}

// Resolved reports whether nothing remains to schedule: no active participant
// and nobody registered or waiting.
func Resolved(participants []*participant.Participant) bool {
	for _, p := range participants {
		switch p.Status {
		case participant.StatusRegistered, participant.StatusWaiting, participant.StatusActive:
			return false
		}
	}
	return true
}
