package participant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingSeconds(t *testing.T) {
	now := time.Now()
	end := now.Add(45 * time.Second)

	active := &Participant{Status: StatusActive, TurnEnd: &end}
	assert.Equal(t, 45, active.RemainingSeconds(now))
	assert.Equal(t, 0, active.RemainingSeconds(now.Add(time.Minute)))

	waiting := &Participant{Status: StatusWaiting, TurnEnd: &end}
	assert.Equal(t, 0, waiting.RemainingSeconds(now))

	noEnd := &Participant{Status: StatusActive}
	assert.Equal(t, 0, noEnd.RemainingSeconds(now))
}

func TestStatusFromString(t *testing.T) {
	for _, name := range []string{"registered", "waiting", "active", "done"} {
		s, ok := StatusFromString(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, s.String())
	}

	_, ok := StatusFromString("bogus")
	assert.False(t, ok)
}
