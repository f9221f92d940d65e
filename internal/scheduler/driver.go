// Package scheduler orchestrates the pemilu turn rotation. The driver is
// invoked by the periodic tick, by user actions and by the admin start call;
// every invocation re-derives the decision from the ledger and applies it
// through conditional updates, so any number of callers can race and exactly
// one commit of a given transition wins.
package scheduler

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/propertindo/pemilu-api/internal/apperr"
	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/domain/participant"
	"github.com/propertindo/pemilu-api/internal/domain/selection"
	"github.com/propertindo/pemilu-api/internal/logger"
	"github.com/propertindo/pemilu-api/internal/storage/postgres"
	"github.com/propertindo/pemilu-api/internal/turn"
	"github.com/propertindo/pemilu-api/internal/ws"
)

// Publisher is the broadcast side of the driver. Implemented by ws.Hub.
type Publisher interface {
	Publish(topic string, message ws.Message)
}

// TurnNotification is the payload broadcast after every committed turn
// transition. ActiveAgentID is nil once the rotation is exhausted.
type TurnNotification struct {
	EventID          string  `json:"event_id"`
	ActiveAgentID    *string `json:"active_agent_id"`
	RemainingSeconds int     `json:"remaining_seconds"`
}

// SelectionNotification is the payload broadcast after a committed selection.
type SelectionNotification struct {
	EventID     string    `json:"event_id"`
	SelectionID string    `json:"selection_id"`
	AgentID     string    `json:"agent_id"`
	ListingID   string    `json:"listing_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParticipantStatus is one seat in a status snapshot.
type ParticipantStatus struct {
	AgentID string `json:"agent_id"`
	Ordinal int    `json:"ordinal"`
	Status  string `json:"status"`
}

// StatusSnapshot is the live view of an event returned by GetStatus. The
// remaining seconds are recomputed from the ledger on every call.
type StatusSnapshot struct {
	EventID          string              `json:"event_id"`
	EventName        string              `json:"event_name"`
	ActiveAgentID    *string             `json:"active_agent_id"`
	ActiveOrdinal    *int                `json:"active_ordinal"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Resolved         bool                `json:"resolved"`
	Participants     []ParticipantStatus `json:"participants"`
}

// Driver applies state machine decisions to the ledger and broadcasts the
// results. It holds no scheduling state of its own between calls.
type Driver struct {
	events     postgres.EventRepository
	ledger     postgres.ParticipantRepository
	selections postgres.SelectionRepository
	listings   postgres.ListingRepository
	hub        Publisher
	log        *log.Logger
	now        func() time.Time
}

// NewDriver creates a driver on top of the given repositories and broadcast
// hub.
func NewDriver(
	events postgres.EventRepository,
	ledger postgres.ParticipantRepository,
	selections postgres.SelectionRepository,
	listings postgres.ListingRepository,
	hub Publisher,
) *Driver {
	return &Driver{
		events:     events,
		ledger:     ledger,
		selections: selections,
		listings:   listings,
		hub:        hub,
		log:        logger.Scheduler(),
		now:        time.Now,
	}
}

// WithClock overrides the driver's clock. Used by tests.
func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

// RegisterParticipant gives the agent a seat in the event's turn order. The
// call is idempotent: a repeat registration returns the existing seat with
// created == false and no side effects.
func (d *Driver) RegisterParticipant(eventID, agentID string) (*participant.Participant, bool, error) {
	ev, err := d.turnEvent(eventID)
	if err != nil {
		return nil, false, err
	}

	now := d.now()
	if !now.Before(ev.EndDate) {
		return nil, false, apperr.InvalidState("registration for event %s is closed", eventID)
	}

	seat, err := d.ledger.GetByEventAndAgent(eventID, agentID)
	if err == nil {
		return seat, false, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, false, err
	}

	participants, err := d.ledger.ListByEvent(eventID)
	if err != nil {
		return nil, false, err
	}
	for _, p := range participants {
		if p.Status != participant.StatusRegistered {
			// A started rotation has a fixed order; late joiners would never
			// be scheduled.
			return nil, false, apperr.InvalidState("event %s has already started", eventID)
		}
	}

	return d.ledger.Register(eventID, agentID)
}

// GetRegistration returns the agent's seat in the event, or NotFound.
func (d *Driver) GetRegistration(eventID, agentID string) (*participant.Participant, error) {
	if _, err := d.turnEvent(eventID); err != nil {
		return nil, err
	}
	return d.ledger.GetByEventAndAgent(eventID, agentID)
}

// StartEvent performs the first activation explicitly. A concurrent tick may
// have started the event already; that is absorbed and the current state is
// returned.
func (d *Driver) StartEvent(eventID string) (*StatusSnapshot, error) {
	ev, err := d.turnEvent(eventID)
	if err != nil {
		return nil, err
	}

	participants, err := d.ledger.ListByEvent(eventID)
	if err != nil {
		return nil, err
	}

	now := d.now()
	decision := turn.Decide(ev, participants, now)

	switch decision.Action {
	case turn.ActionIdle, turn.ActionAdvance:
		return nil, apperr.InvalidState("event %s has already started", eventID)
	case turn.ActionNone:
		if !ev.WindowOpen(now) {
			return nil, apperr.InvalidState("event %s is outside its scheduling window", eventID)
		}
		return nil, apperr.InvalidState("event %s has no registered participants", eventID)
	}

	applied, err := d.ledger.Begin(eventID, decision.First.ID.String(), now, decision.TurnEnd)
	if err != nil {
		return nil, err
	}
	if applied {
		transitionsTotal.WithLabelValues(turn.ActionBegin.String()).Inc()
		d.publishTurn(ev, &decision.First.AgentID, decision.TurnEnd)
	} else {
		lostRacesTotal.Inc()
		d.log.Debug("start absorbed, another caller began the event", "event_id", eventID)
	}

	return d.GetStatus(eventID)
}

// RunTick evaluates one event and applies whatever transition is due. It
// reports whether a transition committed. Safe to call repeatedly and
// concurrently: losing a race is a silent no-op.
func (d *Driver) RunTick(eventID string) (bool, error) {
	ticksTotal.Inc()

	ev, err := d.events.GetByID(eventID)
	if err != nil {
		return false, err
	}

	return d.tick(ev)
}

// RunTickAll evaluates every turn-based event whose window is open. Errors on
// individual events are logged and do not stop the sweep. Returns the number
// of committed transitions.
func (d *Driver) RunTickAll() (int, error) {
	ticksTotal.Inc()

	events, err := d.events.ListOpenPemilu(d.now())
	if err != nil {
		return 0, err
	}

	committed := 0
	for _, ev := range events {
		transitioned, err := d.tick(ev)
		if err != nil {
			d.log.Error("tick failed for event", "event_id", ev.ID, "error", err)
			continue
		}
		if transitioned {
			committed++
		}
	}

	return committed, nil
}

func (d *Driver) tick(ev *event.Event) (bool, error) {
	participants, err := d.ledger.ListByEvent(ev.ID.String())
	if err != nil {
		return false, err
	}

	now := d.now()
	decision := turn.Decide(ev, participants, now)

	switch decision.Action {
	case turn.ActionBegin:
		applied, err := d.ledger.Begin(ev.ID.String(), decision.First.ID.String(), now, decision.TurnEnd)
		if err != nil {
			return false, err
		}
		if !applied {
			lostRacesTotal.Inc()
			return false, nil
		}
		transitionsTotal.WithLabelValues(turn.ActionBegin.String()).Inc()
		d.log.Info("event began", "event_id", ev.ID, "agent_id", decision.First.AgentID, "ordinal", decision.First.Ordinal)
		d.publishTurn(ev, &decision.First.AgentID, decision.TurnEnd)
		return true, nil

	case turn.ActionAdvance:
		return d.applyAdvance(ev, decision)

	default:
		return false, nil
	}
}

// AdvanceTurn ends the active participant's turn now, regardless of its
// remaining time. When a concurrent caller advanced first, the race is
// absorbed and the resulting state is returned unchanged.
func (d *Driver) AdvanceTurn(eventID string) (*StatusSnapshot, error) {
	ev, err := d.turnEvent(eventID)
	if err != nil {
		return nil, err
	}

	participants, err := d.ledger.ListByEvent(eventID)
	if err != nil {
		return nil, err
	}

	decision := turn.DecideAdvance(ev, participants, d.now())
	if decision.Action != turn.ActionAdvance {
		return nil, apperr.InvalidState("event %s has no active participant", eventID)
	}

	if _, err := d.applyAdvance(ev, decision); err != nil {
		return nil, err
	}

	return d.GetStatus(eventID)
}

func (d *Driver) applyAdvance(ev *event.Event, decision turn.Decision) (bool, error) {
	toID := ""
	if decision.To != nil {
		toID = decision.To.ID.String()
	}

	applied, err := d.ledger.Advance(decision.From.ID.String(), toID, d.now(), decision.TurnEnd)
	if err != nil {
		return false, err
	}
	if !applied {
		lostRacesTotal.Inc()
		d.log.Debug("advance absorbed, another caller transitioned first",
			"event_id", ev.ID, "from_participant_id", decision.From.ID)
		return false, nil
	}

	transitionsTotal.WithLabelValues(turn.ActionAdvance.String()).Inc()

	if decision.To != nil {
		d.log.Info("turn advanced", "event_id", ev.ID,
			"from_agent_id", decision.From.AgentID, "to_agent_id", decision.To.AgentID)
		d.publishTurn(ev, &decision.To.AgentID, decision.TurnEnd)
	} else {
		d.log.Info("event finished", "event_id", ev.ID, "last_agent_id", decision.From.AgentID)
		d.publishTurn(ev, nil, d.now())
	}

	return true, nil
}

// CastSelection claims a listing for the acting agent. Only the participant
// currently holding the turn may claim, and each listing can be claimed once
// per event. A successful claim does not end the turn.
func (d *Driver) CastSelection(eventID, agentID, listingID string) (*selection.Selection, error) {
	if _, err := d.turnEvent(eventID); err != nil {
		return nil, err
	}

	seat, err := d.ledger.GetByEventAndAgent(eventID, agentID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("agent %s is not a participant of event %s", agentID, eventID)
		}
		return nil, err
	}

	if seat.Status != participant.StatusActive {
		return nil, apperr.Unauthorized("it is not agent %s's turn in event %s", agentID, eventID)
	}

	if _, err := d.listings.GetByID(listingID); err != nil {
		return nil, err
	}

	sel, err := d.selections.Claim(eventID, listingID, agentID)
	if err != nil {
		return nil, err
	}

	selectionsTotal.Inc()
	d.hub.Publish(ws.EventTopic(eventID), ws.Message{
		Type: "selection",
		Data: SelectionNotification{
			EventID:     eventID,
			SelectionID: sel.ID.String(),
			AgentID:     agentID,
			ListingID:   listingID,
			CreatedAt:   sel.CreatedAt,
		},
	})

	return sel, nil
}

// ListSelections returns the committed selections of an event in claim order.
func (d *Driver) ListSelections(eventID string) ([]*selection.Selection, error) {
	if _, err := d.turnEvent(eventID); err != nil {
		return nil, err
	}
	return d.selections.ListByEvent(eventID)
}

// GetStatus builds a fresh snapshot of the event's rotation.
func (d *Driver) GetStatus(eventID string) (*StatusSnapshot, error) {
	ev, err := d.turnEvent(eventID)
	if err != nil {
		return nil, err
	}

	participants, err := d.ledger.ListByEvent(eventID)
	if err != nil {
		return nil, err
	}

	now := d.now()
	snapshot := &StatusSnapshot{
		EventID:      eventID,
		EventName:    ev.Name,
		Resolved:     turn.Resolved(participants),
		Participants: make([]ParticipantStatus, 0, len(participants)),
	}

	for _, p := range participants {
		snapshot.Participants = append(snapshot.Participants, ParticipantStatus{
			AgentID: p.AgentID.String(),
			Ordinal: p.Ordinal,
			Status:  p.Status.String(),
		})
	}

	if active := turn.ActiveOf(participants); active != nil {
		agentID := active.AgentID.String()
		ordinal := active.Ordinal
		snapshot.ActiveAgentID = &agentID
		snapshot.ActiveOrdinal = &ordinal
		snapshot.RemainingSeconds = active.RemainingSeconds(now)
	}

	return snapshot, nil
}

// turnEvent loads an event and checks it is of the turn-based kind.
func (d *Driver) turnEvent(eventID string) (*event.Event, error) {
	ev, err := d.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsTurnBased() {
		return nil, apperr.InvalidState("event %s is not a turn-based event", eventID)
	}
	return ev, nil
}

func (d *Driver) publishTurn(ev *event.Event, agentID *uuid.UUID, turnEnd time.Time) {
	var agent *string
	remaining := 0
	if agentID != nil {
		s := agentID.String()
		agent = &s
		remaining = int(turnEnd.Sub(d.now()).Seconds())
		if remaining < 0 {
			remaining = 0
		}
	}

	d.hub.Publish(ws.EventTopic(ev.ID.String()), ws.Message{
		Type: "turn",
		Data: TurnNotification{
			EventID:          ev.ID.String(),
			ActiveAgentID:    agent,
			RemainingSeconds: remaining,
		},
	})
}
