package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertindo/pemilu-api/internal/apperr"
	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/domain/listing"
	"github.com/propertindo/pemilu-api/internal/storage/memory"
	"github.com/propertindo/pemilu-api/internal/ws"
)

// fakePublisher records every broadcast, safe for concurrent use.
type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	Topic   string
	Message ws.Message
}

func (p *fakePublisher) Publish(topic string, message ws.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{Topic: topic, Message: message})
}

func (p *fakePublisher) byType(msgType string) []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedMessage
	for _, m := range p.messages {
		if m.Message.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// fakeClock is a mutable clock shared with the driver under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type driverFixture struct {
	store   *memory.Store
	driver  *Driver
	pub     *fakePublisher
	clock   *fakeClock
	eventID uuid.UUID
}

func newDriverFixture(t *testing.T, turnSeconds int) *driverFixture {
	t.Helper()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)

	store := memory.NewStore()
	ev := &event.Event{
		ID:                  uuid.New(),
		Name:                "Pemilihan Unit Cluster Test",
		Kind:                event.KindPemilu,
		StartDate:           now.Add(-time.Hour),
		EndDate:             now.Add(24 * time.Hour),
		TurnDurationSeconds: turnSeconds,
	}
	store.AddEvent(ev)

	pub := &fakePublisher{}
	driver := NewDriver(
		memory.NewInMemoryEventRepository(store),
		memory.NewInMemoryParticipantRepository(store),
		memory.NewInMemorySelectionRepository(store),
		memory.NewInMemoryListingRepository(store),
		pub,
	).WithClock(clock.Now)

	return &driverFixture{
		store:   store,
		driver:  driver,
		pub:     pub,
		clock:   clock,
		eventID: ev.ID,
	}
}

func (f *driverFixture) registerAgents(t *testing.T, count int) []string {
	t.Helper()
	agents := make([]string, count)
	for i := range agents {
		agents[i] = uuid.New().String()
		_, created, err := f.driver.RegisterParticipant(f.eventID.String(), agents[i])
		require.NoError(t, err)
		require.True(t, created)
	}
	return agents
}

func (f *driverFixture) addListing(title string) uuid.UUID {
	l := &listing.Listing{
		ID:      uuid.New(),
		Title:   title,
		Address: "Jl. Test No. 1",
		Price:   750_000_000,
	}
	f.store.AddListing(l)
	return l.ID
}

func TestRegisterParticipantAssignsContiguousOrdinals(t *testing.T) {
	f := newDriverFixture(t, 60)

	const agents = 8
	var wg sync.WaitGroup
	ordinals := make(chan int, agents)

	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seat, created, err := f.driver.RegisterParticipant(f.eventID.String(), uuid.New().String())
			assert.NoError(t, err)
			assert.True(t, created)
			if seat != nil {
				ordinals <- seat.Ordinal
			}
		}()
	}
	wg.Wait()
	close(ordinals)

	seen := make(map[int]bool)
	for ord := range ordinals {
		assert.False(t, seen[ord], "ordinal %d assigned twice", ord)
		seen[ord] = true
	}
	require.Len(t, seen, agents)
	for i := 1; i <= agents; i++ {
		assert.True(t, seen[i], "ordinal %d missing", i)
	}
}

func TestRegisterParticipantIsIdempotent(t *testing.T) {
	f := newDriverFixture(t, 60)
	agentID := uuid.New().String()

	first, created, err := f.driver.RegisterParticipant(f.eventID.String(), agentID)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.driver.RegisterParticipant(f.eventID.String(), agentID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Ordinal, second.Ordinal)
}

func TestRegisterParticipantClosedAfterEnd(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.clock.Advance(48 * time.Hour)

	_, _, err := f.driver.RegisterParticipant(f.eventID.String(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestRegisterParticipantRejectedAfterStart(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 3)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	_, _, err = f.driver.RegisterParticipant(f.eventID.String(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	// Every seated agent still gets its seat back, whatever its ordinal or
	// current status.
	for i, agentID := range agents {
		seat, created, err := f.driver.RegisterParticipant(f.eventID.String(), agentID)
		require.NoError(t, err, "agent at ordinal %d", i+1)
		assert.False(t, created)
		assert.Equal(t, agentID, seat.AgentID.String())
		assert.Equal(t, i+1, seat.Ordinal)
	}

	// Same once the rotation has moved on and seats are done.
	_, err = f.driver.AdvanceTurn(f.eventID.String())
	require.NoError(t, err)

	seat, created, err := f.driver.RegisterParticipant(f.eventID.String(), agents[0])
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, agents[0], seat.AgentID.String())
}

func TestRegisterParticipantRejectsRegularEvent(t *testing.T) {
	f := newDriverFixture(t, 60)

	regular := &event.Event{
		ID:        uuid.New(),
		Name:      "Open House",
		Kind:      event.KindRegular,
		StartDate: f.clock.Now().Add(-time.Hour),
		EndDate:   f.clock.Now().Add(time.Hour),
	}
	f.store.AddEvent(regular)

	_, _, err := f.driver.RegisterParticipant(regular.ID.String(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestStartEventActivatesFirstOrdinal(t *testing.T) {
	f := newDriverFixture(t, 90)
	agents := f.registerAgents(t, 3)

	snapshot, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	require.NotNil(t, snapshot.ActiveAgentID)
	assert.Equal(t, agents[0], *snapshot.ActiveAgentID)
	require.NotNil(t, snapshot.ActiveOrdinal)
	assert.Equal(t, 1, *snapshot.ActiveOrdinal)
	assert.Equal(t, 90, snapshot.RemainingSeconds)
	assert.False(t, snapshot.Resolved)

	statuses := make(map[int]string)
	for _, p := range snapshot.Participants {
		statuses[p.Ordinal] = p.Status
	}
	assert.Equal(t, "active", statuses[1])
	assert.Equal(t, "waiting", statuses[2])
	assert.Equal(t, "waiting", statuses[3])

	turns := f.pub.byType("turn")
	require.Len(t, turns, 1)
	assert.Equal(t, ws.EventTopic(f.eventID.String()), turns[0].Topic)
}

func TestStartEventTwiceFails(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.registerAgents(t, 2)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	_, err = f.driver.StartEvent(f.eventID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestStartEventWithoutParticipantsFails(t *testing.T) {
	f := newDriverFixture(t, 60)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestStartEventOutsideWindowFails(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.registerAgents(t, 1)
	f.clock.Advance(48 * time.Hour)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestRunTickBeginsAndAdvances(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 2)

	// First tick begins the event.
	transitioned, err := f.driver.RunTick(f.eventID.String())
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Turn still running: tick is a no-op.
	f.clock.Advance(30 * time.Second)
	transitioned, err = f.driver.RunTick(f.eventID.String())
	require.NoError(t, err)
	assert.False(t, transitioned)

	// Turn expired: tick advances to the next ordinal.
	f.clock.Advance(31 * time.Second)
	transitioned, err = f.driver.RunTick(f.eventID.String())
	require.NoError(t, err)
	assert.True(t, transitioned)

	snapshot, err := f.driver.GetStatus(f.eventID.String())
	require.NoError(t, err)
	require.NotNil(t, snapshot.ActiveAgentID)
	assert.Equal(t, agents[1], *snapshot.ActiveAgentID)
}

func TestConcurrentTicksCommitOneTransition(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.registerAgents(t, 3)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)
	f.clock.Advance(61 * time.Second)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transitioned, err := f.driver.RunTick(f.eventID.String())
			assert.NoError(t, err)
			results <- transitioned
		}()
	}
	wg.Wait()
	close(results)

	committed := 0
	for transitioned := range results {
		if transitioned {
			committed++
		}
	}
	assert.Equal(t, 1, committed)

	snapshot, err := f.driver.GetStatus(f.eventID.String())
	require.NoError(t, err)
	require.NotNil(t, snapshot.ActiveOrdinal)
	assert.Equal(t, 2, *snapshot.ActiveOrdinal)
}

func TestRunTickFinishesLastTurn(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.registerAgents(t, 1)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)
	f.clock.Advance(61 * time.Second)

	transitioned, err := f.driver.RunTick(f.eventID.String())
	require.NoError(t, err)
	assert.True(t, transitioned)

	snapshot, err := f.driver.GetStatus(f.eventID.String())
	require.NoError(t, err)
	assert.Nil(t, snapshot.ActiveAgentID)
	assert.True(t, snapshot.Resolved)
	assert.Equal(t, 0, snapshot.RemainingSeconds)

	turns := f.pub.byType("turn")
	require.Len(t, turns, 2)
	final, ok := turns[1].Message.Data.(TurnNotification)
	require.True(t, ok)
	assert.Nil(t, final.ActiveAgentID)
}

func TestAdvanceTurnCutsTurnShort(t *testing.T) {
	f := newDriverFixture(t, 600)
	agents := f.registerAgents(t, 2)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	snapshot, err := f.driver.AdvanceTurn(f.eventID.String())
	require.NoError(t, err)
	require.NotNil(t, snapshot.ActiveAgentID)
	assert.Equal(t, agents[1], *snapshot.ActiveAgentID)
}

func TestAdvanceTurnWithoutActiveFails(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.registerAgents(t, 1)

	_, err := f.driver.AdvanceTurn(f.eventID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestCastSelectionClaimsListing(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 2)
	listingID := f.addListing("Rumah Tipe 45")

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	sel, err := f.driver.CastSelection(f.eventID.String(), agents[0], listingID.String())
	require.NoError(t, err)
	assert.Equal(t, agents[0], sel.AgentID.String())
	assert.Equal(t, listingID, sel.ListingID)

	claimed, ok := f.store.Listing(listingID)
	require.True(t, ok)
	require.NotNil(t, claimed.AgentID)
	assert.Equal(t, agents[0], claimed.AgentID.String())

	selections := f.pub.byType("selection")
	require.Len(t, selections, 1)

	// A successful claim does not end the turn.
	snapshot, err := f.driver.GetStatus(f.eventID.String())
	require.NoError(t, err)
	require.NotNil(t, snapshot.ActiveAgentID)
	assert.Equal(t, agents[0], *snapshot.ActiveAgentID)
}

func TestCastSelectionRejectsOutOfTurn(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 2)
	listingID := f.addListing("Rumah Tipe 36")

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	// Waiting participant.
	_, err = f.driver.CastSelection(f.eventID.String(), agents[1], listingID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// Complete stranger.
	_, err = f.driver.CastSelection(f.eventID.String(), uuid.New().String(), listingID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestCastSelectionConflictsOnClaimedListing(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 2)
	listingID := f.addListing("Ruko Blok A1")

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	_, err = f.driver.CastSelection(f.eventID.String(), agents[0], listingID.String())
	require.NoError(t, err)

	_, err = f.driver.AdvanceTurn(f.eventID.String())
	require.NoError(t, err)

	_, err = f.driver.CastSelection(f.eventID.String(), agents[1], listingID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCastSelectionUnknownListing(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 1)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	_, err = f.driver.CastSelection(f.eventID.String(), agents[0], uuid.New().String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListSelectionsReturnsClaimOrder(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 2)
	first := f.addListing("Rumah Hook")
	second := f.addListing("Rumah Standar")

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	_, err = f.driver.CastSelection(f.eventID.String(), agents[0], first.String())
	require.NoError(t, err)

	_, err = f.driver.AdvanceTurn(f.eventID.String())
	require.NoError(t, err)

	_, err = f.driver.CastSelection(f.eventID.String(), agents[1], second.String())
	require.NoError(t, err)

	selections, err := f.driver.ListSelections(f.eventID.String())
	require.NoError(t, err)
	require.Len(t, selections, 2)
	assert.Equal(t, first, selections[0].ListingID)
	assert.Equal(t, second, selections[1].ListingID)
}

func TestGetStatusRemainingSecondsCountsDown(t *testing.T) {
	f := newDriverFixture(t, 90)
	f.registerAgents(t, 1)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	snapshot, err := f.driver.GetStatus(f.eventID.String())
	require.NoError(t, err)
	assert.Equal(t, 60, snapshot.RemainingSeconds)

	f.clock.Advance(120 * time.Second)
	snapshot, err = f.driver.GetStatus(f.eventID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.RemainingSeconds)
}

func TestGetStatusUnknownEvent(t *testing.T) {
	f := newDriverFixture(t, 60)

	_, err := f.driver.GetStatus(uuid.New().String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestGetRegistration(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 1)

	seat, err := f.driver.GetRegistration(f.eventID.String(), agents[0])
	require.NoError(t, err)
	assert.Equal(t, 1, seat.Ordinal)

	_, err = f.driver.GetRegistration(f.eventID.String(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRunTickAllSweepsOpenEvents(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.registerAgents(t, 1)

	now := f.clock.Now()

	// A second open pemilu event with a registered participant.
	other := &event.Event{
		ID:                  uuid.New(),
		Name:                "Pemilihan Tahap Dua",
		Kind:                event.KindPemilu,
		StartDate:           now.Add(-time.Hour),
		EndDate:             now.Add(24 * time.Hour),
		TurnDurationSeconds: 60,
	}
	f.store.AddEvent(other)
	_, _, err := f.driver.RegisterParticipant(other.ID.String(), uuid.New().String())
	require.NoError(t, err)

	// Closed and regular events must not be swept.
	closed := &event.Event{
		ID:        uuid.New(),
		Name:      "Pemilihan Lama",
		Kind:      event.KindPemilu,
		StartDate: now.Add(-48 * time.Hour),
		EndDate:   now.Add(-24 * time.Hour),
	}
	f.store.AddEvent(closed)
	regular := &event.Event{
		ID:        uuid.New(),
		Name:      "Open House",
		Kind:      event.KindRegular,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	}
	f.store.AddEvent(regular)

	committed, err := f.driver.RunTickAll()
	require.NoError(t, err)
	assert.Equal(t, 2, committed)

	for _, id := range []uuid.UUID{f.eventID, other.ID} {
		snapshot, err := f.driver.GetStatus(id.String())
		require.NoError(t, err)
		require.NotNil(t, snapshot.ActiveOrdinal, "event %s should have started", id)
		assert.Equal(t, 1, *snapshot.ActiveOrdinal)
	}
}

func TestFullRotation(t *testing.T) {
	f := newDriverFixture(t, 60)
	agents := f.registerAgents(t, 3)

	_, err := f.driver.StartEvent(f.eventID.String())
	require.NoError(t, err)

	for i := 0; i < len(agents); i++ {
		f.clock.Advance(61 * time.Second)
		transitioned, err := f.driver.RunTick(f.eventID.String())
		require.NoError(t, err, "tick %d", i)
		assert.True(t, transitioned, "tick %d should commit", i)
	}

	snapshot, err := f.driver.GetStatus(f.eventID.String())
	require.NoError(t, err)
	assert.True(t, snapshot.Resolved)
	for _, p := range snapshot.Participants {
		assert.Equal(t, "done", p.Status, fmt.Sprintf("ordinal %d", p.Ordinal))
	}

	// begin + 2 handovers + final nil broadcast.
	assert.Len(t, f.pub.byType("turn"), 4)
}
