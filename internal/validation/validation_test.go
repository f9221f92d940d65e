package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("value", "field"))
	assert.Error(t, ValidateRequired("", "field"))
	assert.Error(t, ValidateRequired("   ", "field"))
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID("0b718b2f-6d8e-4cf5-a569-78bb7dcd22f4", "event_id"))
	assert.Error(t, ValidateUUID("not-a-uuid", "event_id"))
	assert.Error(t, ValidateUUID("", "event_id"))
}

func TestValidateDateRange(t *testing.T) {
	now := time.Now()
	assert.NoError(t, ValidateDateRange(now, now.Add(time.Hour)))
	assert.Error(t, ValidateDateRange(now, now))
	assert.Error(t, ValidateDateRange(now.Add(time.Hour), now))
}

func TestValidateTurnDuration(t *testing.T) {
	assert.NoError(t, ValidateTurnDuration(60))
	assert.NoError(t, ValidateTurnDuration(3600))
	assert.Error(t, ValidateTurnDuration(0))
	assert.Error(t, ValidateTurnDuration(-1))
	assert.Error(t, ValidateTurnDuration(3601))
}
