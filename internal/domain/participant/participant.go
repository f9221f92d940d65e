package participant

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant is one agent's seat in an event's turn order. The ordinal is
// assigned once at registration and never changes; the status walks
// registered → waiting → active → done, and every status mutation goes
// through the ledger's conditional update.
type Participant struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	EventID   uuid.UUID  `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_participants_event_ordinal,priority:1;uniqueIndex:idx_participants_event_agent,priority:1"`
	AgentID   uuid.UUID  `json:"agent_id" gorm:"type:uuid;not null;uniqueIndex:idx_participants_event_agent,priority:2"`
	Ordinal   int        `json:"ordinal" gorm:"not null;uniqueIndex:idx_participants_event_ordinal,priority:2"`
	Status    Status     `json:"status" gorm:"type:participant_status;not null;default:'registered'"`
	TurnStart *time.Time `json:"turn_start"`
	TurnEnd   *time.Time `json:"turn_end"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Participant) TableName() string {
	return "participants"
}

// BeforeCreate sets a UUID before creating the record
func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RemainingSeconds reports how many whole seconds of the turn are left at
// now, clamped at zero. Zero for participants that are not active.
func (p *Participant) RemainingSeconds(now time.Time) int {
	if p.Status != StatusActive || p.TurnEnd == nil {
		return 0
	}
	remaining := int(p.TurnEnd.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status is the finite state a participant moves through during an event.
type Status byte

const (
	StatusRegistered Status = iota
	StatusWaiting
	StatusActive
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusRegistered:
		return "registered"
	case StatusWaiting:
		return "waiting"
	case StatusActive:
		return "active"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// StatusFromString converts a string to a Status
func StatusFromString(s string) (Status, bool) {
	switch s {
	case "registered":
		return StatusRegistered, true
	case "waiting":
		return StatusWaiting, true
	case "active":
		return StatusActive, true
	case "done":
		return StatusDone, true
	default:
		return StatusRegistered, false
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Status) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	status, valid := StatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid participant status: %s", str)
	}
	*s = status
	return nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *Status) Scan(value interface{}) error {
	if value == nil {
		*s = StatusRegistered
		return nil
	}

	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into Status", value)
	}

	status, valid := StatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid participant status value: %s", str)
	}
	*s = status
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}
