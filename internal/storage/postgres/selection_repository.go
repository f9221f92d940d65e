package postgres

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertindo/pemilu-api/internal/apperr"
	"github.com/propertindo/pemilu-api/internal/domain/listing"
	"github.com/propertindo/pemilu-api/internal/domain/selection"
	"github.com/propertindo/pemilu-api/internal/logger"
)

// PostgresSelectionRepository implements SelectionRepository using GORM
type PostgresSelectionRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewSelectionRepository creates a new PostgreSQL selection repository
func NewSelectionRepository(db *gorm.DB) *PostgresSelectionRepository {
	return &PostgresSelectionRepository{
		db:  db,
		log: logger.Repository("selection"),
	}
}

func (r *PostgresSelectionRepository) ListByEvent(eventID string) ([]*selection.Selection, error) {
	r.log.Debug("listing selections", "event_id", eventID)

	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid event ID format")
	}

	var selections []*selection.Selection
	if err := r.db.Preload("Listing").
		Where("event_id = ?", eventUUID).
		Order("created_at ASC").
		Find(&selections).Error; err != nil {
		r.log.Error("failed to list selections", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}

	return selections, nil
}

// Claim inserts the selection and assigns the listing in one transaction. The
// (event_id, listing_id) unique index arbitrates concurrent claims: the first
// insert to commit wins, any later one trips 23505 and maps to Conflict. The
// listing mutation rides the same transaction so a lost claim never leaves a
// reassigned listing behind.
func (r *PostgresSelectionRepository) Claim(eventID, listingID, agentID string) (*selection.Selection, error) {
	r.log.Debug("claiming listing", "event_id", eventID, "listing_id", listingID, "agent_id", agentID)

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

	sel := &selection.Selection{
		EventID:   eventUUID,
		ListingID: listingUUID,
		AgentID:   agentUUID,
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		var target listing.Listing
		if err := tx.First(&target, listingUUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("listing %s not found", listingID)
			}
			return fmt.Errorf("failed to retrieve listing: %w", err)
		}

		if err := tx.Create(sel).Error; err != nil {
			if _, unique := uniqueViolation(err); unique {
				return apperr.Conflict("listing %s is already claimed in event %s", listingID, eventID)
			}
			return fmt.Errorf("failed to create selection: %w", err)
		}

		if err := tx.Model(&listing.Listing{}).
			Where("id = ?", listingUUID).
			Update("agent_id", agentUUID).Error; err != nil {
			return fmt.Errorf("failed to assign listing: %w", err)
		}

		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			r.log.Error("failed to claim listing", "event_id", eventID, "listing_id", listingID, "error", err)
		}
		return nil, err
	}

	r.log.Info("listing claimed", "event_id", eventID, "listing_id", listingID, "agent_id", agentID, "selection_id", sel.ID)
	return sel, nil
}

// PostgresListingRepository implements ListingRepository using GORM
type PostgresListingRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewListingRepository creates a new PostgreSQL listing repository
func NewListingRepository(db *gorm.DB) *PostgresListingRepository {
	return &PostgresListingRepository{
		db:  db,
		log: logger.Repository("listing"),
	}
}

func (r *PostgresListingRepository) GetByID(id string) (*listing.Listing, error) {
	listingUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "invalid listing ID format")
	}

	var l listing.Listing
	if err := r.db.First(&l, listingUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("listing %s not found", id)
		}
		r.log.Error("failed to retrieve listing", "listing_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve listing: %w", err)
	}

	return &l, nil
}
