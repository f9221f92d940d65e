package selection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/domain/listing"
)

// Selection is one committed claim of a listing by the active participant of
// an event. At most one selection may exist per (event, listing); the unique
// index makes the first writer win. Selections are never updated or deleted.
type Selection struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_selections_event_listing,priority:1"`
	ListingID uuid.UUID `json:"listing_id" gorm:"type:uuid;not null;uniqueIndex:idx_selections_event_listing,priority:2"`
	AgentID   uuid.UUID `json:"agent_id" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Relations
	Event   event.Event     `json:"event,omitempty" gorm:"foreignKey:EventID"`
	Listing listing.Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
}

// TableName overrides the table name used by GORM
func (Selection) TableName() string {
	return "selections"
}

// BeforeCreate sets a UUID before creating the record
func (s *Selection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
