package event

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event represents one auction session of the marketplace. Events are created
// and managed by the event-management service; the scheduler only reads the
// scheduling fields and never mutates an event.
type Event struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name                string    `json:"name" gorm:"not null"`
	Kind                Kind      `json:"kind" gorm:"type:event_kind;not null;default:'regular'"`
	StartDate           time.Time `json:"start_date" gorm:"not null"`
	EndDate             time.Time `json:"end_date" gorm:"not null"`
	TurnDurationSeconds int       `json:"turn_duration_seconds" gorm:"not null;default:60"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Event) TableName() string {
	return "events"
}

// BeforeCreate sets a UUID before creating the record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsTurnBased reports whether the event engages the turn scheduler at all.
func (e *Event) IsTurnBased() bool {
	return e.Kind == KindPemilu
}

// WindowOpen reports whether now falls inside [StartDate, EndDate).
func (e *Event) WindowOpen(now time.Time) bool {
	return !now.Before(e.StartDate) && now.Before(e.EndDate)
}

// TurnDuration returns the per-turn duration, falling back to 60 seconds when
// the event carries no explicit value.
func (e *Event) TurnDuration() time.Duration {
	seconds := e.TurnDurationSeconds
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// Kind distinguishes ordinary listing auctions from sequential-turn (pemilu)
// sessions.
type Kind byte

const (
	KindRegular Kind = iota
	KindPemilu
)

func (k Kind) String() string {
	switch k {
	case KindPemilu:
		return "pemilu"
	default:
		return "regular"
	}
}

// KindFromString converts a string to a Kind
func KindFromString(s string) (Kind, bool) {
	switch s {
	case "regular":
		return KindRegular, true
	case "pemilu":
		return KindPemilu, true
	default:
		return KindRegular, false
	}
}

// MarshalJSON implements the json.Marshaler interface
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (k *Kind) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	kind, valid := KindFromString(str)
	if !valid {
		return fmt.Errorf("invalid event kind: %s", str)
	}
	*k = kind
	return nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (k *Kind) Scan(value interface{}) error {
	if value == nil {
		*k = KindRegular
		return nil
	}

	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into Kind", value)
	}

	kind, valid := KindFromString(str)
	if !valid {
		return fmt.Errorf("invalid event kind value: %s", str)
	}
	*k = kind
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (k Kind) Value() (driver.Value, error) {
	return k.String(), nil
}
