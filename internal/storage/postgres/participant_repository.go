package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/propertindo/pemilu-api/internal/apperr"
	"github.com/propertindo/pemilu-api/internal/domain/participant"
	"github.com/propertindo/pemilu-api/internal/logger"
)

// errLostRace aborts a ledger transaction whose conditional update matched
// zero rows. It never leaves this file; callers see applied == false.
var errLostRace = errors.New("conditional update lost the race")

// registerAttempts bounds the retry loop when two registrations race for the
// same ordinal. The (event_id, ordinal) unique index rejects the loser, which
// simply recomputes max+1 and tries again.
const registerAttempts = 3

// PostgresParticipantRepository implements ParticipantRepository using GORM
type PostgresParticipantRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewParticipantRepository creates a new PostgreSQL participant repository
func NewParticipantRepository(db *gorm.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{
		db:  db,
		log: logger.Repository("participant"),
	}
}

func (r *PostgresParticipantRepository) ListByEvent(eventID string) ([]*participant.Participant, error) {
	r.log.Debug("listing participants", "event_id", eventID)

	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	var participants []*participant.Participant
	if err := r.db.Where("event_id = ?", eventUUID).Order("ordinal ASC").Find(&participants).Error; err != nil {
		r.log.Error("failed to list participants", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	return participants, nil
}

func (r *PostgresParticipantRepository) GetByEventAndAgent(eventID, agentID string) (*participant.Participant, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	agentUUID, err := uuid.Parse(agentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid agent ID format")
	}

	var p participant.Participant
	if err := r.db.Where("event_id = ? AND agent_id = ?", eventUUID, agentUUID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("agent %s is not registered for event %s", agentID, eventID)
		}
		r.log.Error("failed to retrieve participant", "event_id", eventID, "agent_id", agentID, "error", err)
		return nil, fmt.Errorf("failed to retrieve participant: %w", err)
	}

	return &p, nil
}

func (r *PostgresParticipantRepository) Register(eventID, agentID string) (*participant.Participant, bool, error) {
	r.log.Debug("registering participant", "event_id", eventID, "agent_id", agentID)

	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	agentUUID, err := uuid.Parse(agentID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindNotFound, err, "invalid agent ID format")
	}

	for attempt := 1; attempt <= registerAttempts; attempt++ {
		p, created, err := r.registerOnce(eventUUID, agentUUID)
		if err == nil {
			if created {
				r.log.Info("participant registered", "event_id", eventID, "agent_id", agentID, "ordinal", p.Ordinal)
			}
			return p, created, nil
		}

		constraint, unique := uniqueViolation(err)
		if !unique {
			r.log.Error("failed to register participant", "event_id", eventID, "agent_id", agentID, "error", err)
			return nil, false, fmt.Errorf("failed to register participant: %w", err)
		}

		if constraint == "idx_participants_event_agent" {
			// Another call for the same agent committed first; return its row.
			existing, getErr := r.GetByEventAndAgent(eventID, agentID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}

		// Lost the ordinal race; recompute and retry.
		r.log.Debug("ordinal collision, retrying registration", "event_id", eventID, "attempt", attempt)
	}

	return nil, false, apperr.Conflict("could not assign a turn ordinal for event %s", eventID)
}

// registerOnce performs one registration attempt: the max-ordinal read and
// the insert share a transaction so the unique index is the only arbiter
// between concurrent joiners.
func (r *PostgresParticipantRepository) registerOnce(eventID, agentID uuid.UUID) (*participant.Participant, bool, error) {
	var out *participant.Participant
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing participant.Participant
		err := tx.Where("event_id = ? AND agent_id = ?", eventID, agentID).First(&existing).Error
		if err == nil {
			out = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var nextOrdinal int
		if err := tx.Raw(
			"SELECT COALESCE(MAX(ordinal), 0) + 1 FROM participants WHERE event_id = ?", eventID,
		).Scan(&nextOrdinal).Error; err != nil {
			return err
		}

		p := &participant.Participant{
			EventID: eventID,
			AgentID: agentID,
			Ordinal: nextOrdinal,
			Status:  participant.StatusRegistered,
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		out = p
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (r *PostgresParticipantRepository) SetStatus(participantID string, expected, newStatus participant.Status, turnStart, turnEnd *time.Time) (int64, error) {
	id, err := uuid.Parse(participantID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
	}
	return setStatusTx(r.db, id, expected, newStatus, turnStart, turnEnd)
}

// setStatusTx is the conditional-update primitive: the WHERE clause names the
// expected prior status, so the mutation is a no-op if another caller already
// moved the row. Atomicity of this single UPDATE is what every invariant of
// the scheduler rests on.
func setStatusTx(tx *gorm.DB, participantID uuid.UUID, expected, newStatus participant.Status, turnStart, turnEnd *time.Time) (int64, error) {
	res := tx.Model(&participant.Participant{}).
		Where("id = ? AND status = ?", participantID, expected).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"turn_start": turnStart,
			"turn_end":   turnEnd,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update participant status: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PostgresParticipantRepository) Begin(eventID, firstID string, turnStart, turnEnd time.Time) (bool, error) {
	r.log.Debug("beginning event", "event_id", eventID, "first_participant_id", firstID)

	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	firstUUID, err := uuid.Parse(firstID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		rows, err := setStatusTx(tx, firstUUID, participant.StatusRegistered, participant.StatusActive, &turnStart, &turnEnd)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errLostRace
		}

		// Demote everyone still registered. Bulk and unconditional: the
		// promotion above already proved this caller owns the transition.
		if err := tx.Model(&participant.Participant{}).
			Where("event_id = ? AND status = ?", eventUUID, participant.StatusRegistered).
			Update("status", participant.StatusWaiting).Error; err != nil {
			return fmt.Errorf("failed to demote registered participants: %w", err)
		}

		return nil
	})
	if errors.Is(err, errLostRace) {
		r.log.Debug("begin lost the race", "event_id", eventID)
		return false, nil
	}
	if err != nil {
		r.log.Error("failed to begin event", "event_id", eventID, "error", err)
		return false, err
	}

	r.log.Info("event began", "event_id", eventID, "first_participant_id", firstID, "turn_end", turnEnd)
	return true, nil
}

func (r *PostgresParticipantRepository) Advance(fromID, toID string, turnStart, turnEnd time.Time) (bool, error) {
	r.log.Debug("advancing turn", "from_participant_id", fromID, "to_participant_id", toID)

	fromUUID, err := uuid.Parse(fromID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
	}

	var toUUID uuid.UUID
	if toID != "" {
		toUUID, err = uuid.Parse(toID)
		if err != nil {
			return false, apperr.Wrap(apperr.KindNotFound, err, "invalid participant ID format")
		}
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		rows, err := setStatusTx(tx, fromUUID, participant.StatusActive, participant.StatusDone, nil, nil)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errLostRace
		}

		if toID == "" {
			return nil
		}

		rows, err = setStatusTx(tx, toUUID, participant.StatusWaiting, participant.StatusActive, &turnStart, &turnEnd)
		if err != nil {
			return err
		}
		if rows == 0 {
			// The chosen successor moved under us; roll back the whole pair
			// and let the next evaluation pick again.
			return errLostRace
		}

		return nil
	})
	if errors.Is(err, errLostRace) {
		r.log.Debug("advance lost the race", "from_participant_id", fromID)
		return false, nil
	}
	if err != nil {
		r.log.Error("failed to advance turn", "from_participant_id", fromID, "error", err)
		return false, err
	}

	r.log.Info("turn advanced", "from_participant_id", fromID, "to_participant_id", toID)
	return true, nil
}

// uniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation and which constraint tripped. The pgx driver behind
// gorm.io/driver/postgres surfaces these as *pgconn.PgError.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
