package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowOpen(t *testing.T) {
	now := time.Now()
	ev := &Event{StartDate: now, EndDate: now.Add(time.Hour)}

	assert.True(t, ev.WindowOpen(now))
	assert.True(t, ev.WindowOpen(now.Add(30*time.Minute)))
	assert.False(t, ev.WindowOpen(now.Add(-time.Second)))
	assert.False(t, ev.WindowOpen(now.Add(time.Hour)))
}

func TestTurnDurationFallsBack(t *testing.T) {
	assert.Equal(t, 90*time.Second, (&Event{TurnDurationSeconds: 90}).TurnDuration())
	assert.Equal(t, 60*time.Second, (&Event{}).TurnDuration())
	assert.Equal(t, 60*time.Second, (&Event{TurnDurationSeconds: -5}).TurnDuration())
}

func TestIsTurnBased(t *testing.T) {
	assert.True(t, (&Event{Kind: KindPemilu}).IsTurnBased())
	assert.False(t, (&Event{Kind: KindRegular}).IsTurnBased())
}

func TestKindJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(KindPemilu)
	require.NoError(t, err)
	assert.Equal(t, `"pemilu"`, string(data))

	var k Kind
	require.NoError(t, json.Unmarshal([]byte(`"regular"`), &k))
	assert.Equal(t, KindRegular, k)

	assert.Error(t, json.Unmarshal([]byte(`"unknown"`), &k))
}
