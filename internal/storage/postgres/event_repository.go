package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertindo/pemilu-api/internal/apperr"
	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/logger"
)

// PostgresEventRepository implements EventRepository using GORM
type PostgresEventRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewEventRepository creates a new PostgreSQL event repository
func NewEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{
		db:  db,
		log: logger.Repository("event"),
	}
}

func (r *PostgresEventRepository) GetByID(id string) (*event.Event, error) {
	eventUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	var ev event.Event
	if err := r.db.First(&ev, eventUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("event %s not found", id)
		}
		r.log.Error("failed to retrieve event", "event_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve event: %w", err)
	}

	return &ev, nil
}

func (r *PostgresEventRepository) ListOpenPemilu(now time.Time) ([]*event.Event, error) {
	r.log.Debug("listing open turn-based events", "now", now)

	var events []*event.Event
	if err := r.db.
		Where("kind = ? AND start_date <= ? AND end_date > ?", event.KindPemilu, now, now).
		Order("start_date ASC").
		Find(&events).Error; err != nil {
		r.log.Error("failed to list open events", "error", err)
		return nil, fmt.Errorf("failed to list open events: %w", err)
	}

	return events, nil
}
