package migrations

import (
	"github.com/propertindo/pemilu-api/internal/domain/event"
	"github.com/propertindo/pemilu-api/internal/domain/listing"
	"github.com/propertindo/pemilu-api/internal/domain/participant"
	"github.com/propertindo/pemilu-api/internal/domain/selection"
)

// AllModels returns every model the scheduler persists, in dependency order
// so AutoMigrate creates referenced tables first.
func AllModels() []interface{} {
	return []interface{}{
		&event.Event{},
		&listing.Listing{},
		&participant.Participant{},
		&selection.Selection{},
	}
}
