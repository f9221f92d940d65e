// Package memory provides in-memory implementations of the storage
// repositories. They mirror the conditional-update semantics of the
// PostgreSQL ledger under a single mutex, which makes them safe for the
// concurrency tests that hammer the driver from many goroutines.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/propertindo/pemilu-api/internal/apperr"
	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/domain/listing"
	"github.com/propertindo/pemilu-api/internal/domain/participant"
	"github.com/propertindo/pemilu-api/internal/domain/selection"
)

// Store is a shared in-memory database for all repositories.
type Store struct {
	mu           sync.Mutex
	events       map[uuid.UUID]*event.Event
	listings     map[uuid.UUID]*listing.Listing
	participants map[uuid.UUID]*participant.Participant
	selections   map[uuid.UUID]*selection.Selection
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		events:       make(map[uuid.UUID]*event.Event),
		listings:     make(map[uuid.UUID]*listing.Listing),
		participants: make(map[uuid.UUID]*participant.Participant),
		selections:   make(map[uuid.UUID]*selection.Selection),
	}
}

// AddEvent seeds an event.
func (s *Store) AddEvent(ev *event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	s.events[ev.ID] = ev
}

// AddListing seeds a listing.
func (s *Store) AddListing(l *listing.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.listings[l.ID] = l
}

// Listing returns a copy of a seeded listing.
func (s *Store) Listing(id uuid.UUID) (listing.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return listing.Listing{}, false
	}
	return *l, true
}

// InMemoryEventRepository implements postgres.EventRepository.
type InMemoryEventRepository struct {
	store *Store
}

func NewInMemoryEventRepository(store *Store) *InMemoryEventRepository {
	return &InMemoryEventRepository{store: store}
}

func (r *InMemoryEventRepository) GetByID(id string) (*event.Event, error) {
	eventUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ev, ok := r.store.events[eventUUID]
	if !ok {
		return nil, apperr.NotFound("event %s not found", id)
	}
	copied := *ev
	return &copied, nil
}

func (r *InMemoryEventRepository) ListOpenPemilu(now time.Time) ([]*event.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var events []*event.Event
	for _, ev := range r.store.events {
		if ev.IsTurnBased() && ev.WindowOpen(now) {
			copied := *ev
			events = append(events, &copied)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
	return events, nil
}

// InMemoryParticipantRepository implements postgres.ParticipantRepository
// with the same conditional-update semantics as the SQL ledger.
type InMemoryParticipantRepository struct {
	store *Store
}

func NewInMemoryParticipantRepository(store *Store) *InMemoryParticipantRepository {
	return &InMemoryParticipantRepository{store: store}
}

func (r *InMemoryParticipantRepository) ListByEvent(eventID string) ([]*participant.Participant, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var participants []*participant.Participant
	for _, p := range r.store.participants {
		if p.EventID == eventUUID {
			copied := *p
			participants = append(participants, &copied)
		}
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].Ordinal < participants[j].Ordinal })
	return participants, nil
}

func (r *InMemoryParticipantRepository) GetByEventAndAgent(eventID, agentID string) (*participant.Participant, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}
	agentUUID, err := uuid.Parse(agentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid agent ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, p := range r.store.participants {
		if p.EventID == eventUUID && p.AgentID == agentUUID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("agent %s is not registered for event %s", agentID, eventID)
}

func (r *InMemoryParticipantRepository) Register(eventID, agentID string) (*participant.Participant, bool, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}
	agentUUID, err := uuid.Parse(agentID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindNotFound, err, "invalid agent ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	maxOrdinal := 0
	for _, p := range r.store.participants {
		if p.EventID != eventUUID {
			continue
		}
		if p.AgentID == agentUUID {
			copied := *p
			return &copied, false, nil
		}
		if p.Ordinal > maxOrdinal {
			maxOrdinal = p.Ordinal
		}
	}

	now := time.Now()
	p := &participant.Participant{
		ID:        uuid.New(),
		EventID:   eventUUID,
		AgentID:   agentUUID,
		Ordinal:   maxOrdinal + 1,
		Status:    participant.StatusRegistered,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.store.participants[p.ID] = p

	copied := *p
	return &copied, true, nil
}

func (r *InMemoryParticipantRepository) SetStatus(participantID string, expected, newStatus participant.Status, turnStart, turnEnd *time.Time) (int64, error) {
	id, err := uuid.Parse(participantID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.setStatusLocked(id, expected, newStatus, turnStart, turnEnd), nil
}

// setStatusLocked applies the conditional update under the store mutex.
func (r *InMemoryParticipantRepository) setStatusLocked(id uuid.UUID, expected, newStatus participant.Status, turnStart, turnEnd *time.Time) int64 {
	p, ok := r.store.participants[id]
	if !ok || p.Status != expected {
		return 0
	}
	p.Status = newStatus
	p.TurnStart = turnStart
	p.TurnEnd = turnEnd
	p.UpdatedAt = time.Now()
	return 1
}

func (r *InMemoryParticipantRepository) Begin(eventID, firstID string, turnStart, turnEnd time.Time) (bool, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}
	firstUUID, err := uuid.Parse(firstID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.setStatusLocked(firstUUID, participant.StatusRegistered, participant.StatusActive, &turnStart, &turnEnd) == 0 {
		return false, nil
	}

	for _, p := range r.store.participants {
		if p.EventID == eventUUID && p.Status == participant.StatusRegistered {
			p.Status = participant.StatusWaiting
			p.UpdatedAt = time.Now()
		}
	}

	return true, nil
}

func (r *InMemoryParticipantRepository) Advance(fromID, toID string, turnStart, turnEnd time.Time) (bool, error) {
	fromUUID, err := uuid.Parse(fromID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	from, ok := r.store.participants[fromUUID]
	if !ok || from.Status != participant.StatusActive {
		return false, nil
	}

	if toID != "" {
		toUUID, err := uuid.Parse(toID)
		if err != nil {
			return false, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
		}
		to, ok := r.store.participants[toUUID]
		if !ok || to.Status != participant.StatusWaiting {
			return false, nil
		}
		to.Status = participant.StatusActive
		to.TurnStart = &turnStart
		to.TurnEnd = &turnEnd
		to.UpdatedAt = time.Now()
	}

	from.Status = participant.StatusDone
	from.TurnStart = nil
	from.TurnEnd = nil
	from.UpdatedAt = time.Now()

	return true, nil
}

// InMemorySelectionRepository implements postgres.SelectionRepository.
type InMemorySelectionRepository struct {
	store *Store
}

func NewInMemorySelectionRepository(store *Store) *InMemorySelectionRepository {
	return &InMemorySelectionRepository{store: store}
}

func (r *InMemorySelectionRepository) ListByEvent(eventID string) ([]*selection.Selection, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var selections []*selection.Selection
	for _, sel := range r.store.selections {
		if sel.EventID == eventUUID {
			copied := *sel
			selections = append(selections, &copied)
		}
	}
	sort.Slice(selections, func(i, j int) bool { return selections[i].CreatedAt.Before(selections[j].CreatedAt) })
	return selections, nil
}

func (r *InMemorySelectionRepository) Claim(eventID, listingID, agentID string) (*selection.Selection, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}
	listingUUID, err := uuid.Parse(listingID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid listing ID format")
	}
	agentUUID, err := uuid.Parse(agentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid agent ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	target, ok := r.store.listings[listingUUID]
	if !ok {
		return nil, apperr.NotFound("listing %s not found", listingID)
	}

	for _, sel := range r.store.selections {
		if sel.EventID == eventUUID && sel.ListingID == listingUUID {
			return nil, apperr.Conflict("listing %s is already claimed in event %s", listingID, eventID)
		}
	}

	sel := &selection.Selection{
		ID:        uuid.New(),
		EventID:   eventUUID,
		ListingID: listingUUID,
		AgentID:   agentUUID,
		CreatedAt: time.Now(),
	}
	r.store.selections[sel.ID] = sel

	assigned := agentUUID
	target.AgentID = &assigned
	target.UpdatedAt = time.Now()

	copied := *sel
	return &copied, nil
}

// InMemoryListingRepository implements postgres.ListingRepository.
type InMemoryListingRepository struct {
	store *Store
}

func NewInMemoryListingRepository(store *Store) *InMemoryListingRepository {
	return &InMemoryListingRepository{store: store}
}

func (r *InMemoryListingRepository) GetByID(id string) (*listing.Listing, error) {
	listingUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid listing ID format")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	l, ok := r.store.listings[listingUUID]
	if !ok {
		return nil, apperr.NotFound("listing %s not found", id)
	}
	copied := *l
	return &copied, nil
}
