package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidateRequired checks that a field is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateUUID checks that a string is a valid UUID
func ValidateUUID(value, fieldName string) error {
	if _, err := uuid.Parse(value); err != nil {
		return errors.New(fieldName + " must be a valid UUID")
	}
	return nil
}

// ValidateDateRange checks that the dates form a proper window
func ValidateDateRange(startDate, endDate time.Time) error {
	if !endDate.After(startDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}

// ValidateTurnDuration checks a per-turn duration in seconds
func ValidateTurnDuration(seconds int) error {
	if seconds <= 0 {
		return errors.New("turn duration must be positive")
	}
	if seconds > 3600 {
		return errors.New("turn duration must be at most one hour")
	}
	return nil
}
