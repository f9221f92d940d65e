package listing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is a property catalog item. The listing service owns these rows;
// the scheduler only reads them and writes AgentID when a selection for the
// listing commits.
type Listing struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Title     string     `json:"title" gorm:"not null"`
	Address   string     `json:"address"`
	Price     int64      `json:"price" gorm:"not null;default:0"`
	AgentID   *uuid.UUID `json:"agent_id" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets a UUID before creating the record
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Claimed reports whether an agent already holds the listing.
func (l *Listing) Claimed() bool {
	return l.AgentID != nil && *l.AgentID != uuid.Nil
}
