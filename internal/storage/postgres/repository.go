package postgres

import (
	"time"

	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/domain/listing"
	"github.com/propertindo/pemilu-api/internal/domain/participant"
	"github.com/propertindo/pemilu-api/internal/domain/selection"
)

// EventRepository reads event scheduling data. Events are owned by the event
// management service, so the scheduler never writes them.
type EventRepository interface {
	GetByID(id string) (*event.Event, error)
	// ListOpenPemilu returns the turn-based events whose window contains now.
	ListOpenPemilu(now time.Time) ([]*event.Event, error)
}

// ParticipantRepository is the turn ledger: the durable record of an event's
// participants, their ordinals and statuses. Every status mutation is a
// conditional update guarded by the expected prior status, so concurrent
// callers race safely and exactly one commit of a given transition wins.
type ParticipantRepository interface {
	// ListByEvent returns the event's participants ordered by ordinal.
	ListByEvent(eventID string) ([]*participant.Participant, error)
	GetByEventAndAgent(eventID, agentID string) (*participant.Participant, error)

	// Register inserts a participant with the next free ordinal, atomically
	// with the ordinal computation. When the agent already holds a seat the
	// existing row is returned and created is false.
	Register(eventID, agentID string) (p *participant.Participant, created bool, err error)

	// SetStatus applies newStatus only if the row still holds expected at
	// commit time, returning the number of rows changed (0 means another
	// caller already transitioned the participant).
	SetStatus(participantID string, expected, newStatus participant.Status, turnStart, turnEnd *time.Time) (int64, error)

	// Begin promotes the first participant from registered to active and
	// demotes every other registered participant to waiting, in one
	// transaction. applied is false when the promotion lost the race.
	Begin(eventID, firstID string, turnStart, turnEnd time.Time) (applied bool, err error)

	// Advance marks fromID done and, when toID is non-empty, promotes it to
	// active with a fresh turn window, in one transaction. applied is false
	// when another caller already performed the transition.
	Advance(fromID, toID string, turnStart, turnEnd time.Time) (applied bool, err error)
}

// SelectionRepository records claims of listings by active participants.
type SelectionRepository interface {
	ListByEvent(eventID string) ([]*selection.Selection, error)

	// Claim inserts the selection and assigns the listing to the agent in one
	// transaction. The (event, listing) unique index makes the first writer
	// win; later attempts fail with a conflict.
	Claim(eventID, listingID, agentID string) (*selection.Selection, error)
}

// ListingRepository reads property listings from the catalog.
type ListingRepository interface {
	GetByID(id string) (*listing.Listing, error)
}
