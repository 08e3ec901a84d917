package steeringstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisterIfBackoffExpired_FirstCallAlwaysExpired(t *testing.T) {
	s := New()
	now := time.Now()
	assert.True(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now, time.Minute, false))
}

func TestRegisterIfBackoffExpired_WithinBackoffWindow(t *testing.T) {
	s := New()
	now := time.Now()

	assert.True(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now, 5*time.Minute, false))
	assert.False(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now.Add(time.Second), 5*time.Minute, false))
	assert.False(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now.Add(4*time.Minute), 5*time.Minute, false))
	assert.True(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now.Add(6*time.Minute), 5*time.Minute, false))
}

func TestRegisterIfBackoffExpired_DryRunNeverMutates(t *testing.T) {
	s := New()
	now := time.Now()

	assert.True(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now, 5*time.Minute, false))

	// A dry-run query within the window reports false (matching a real
	// call) but must not have reset anything.
	assert.False(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now.Add(time.Second), 5*time.Minute, true))

	// The real back-off clock is still anchored at `now`, not touched by
	// the dry-run query in between.
	assert.False(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now.Add(4*time.Minute), 5*time.Minute, false))
	assert.True(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now.Add(6*time.Minute), 5*time.Minute, false))
}

func TestRegisterIfBackoffExpired_IndependentPerKey(t *testing.T) {
	s := New()
	now := time.Now()

	assert.True(t, s.RegisterIfBackoffExpired("ap1", "aa:bb", now, time.Minute, false))
	assert.True(t, s.RegisterIfBackoffExpired("ap2", "aa:bb", now, time.Minute, false))
	assert.True(t, s.RegisterIfBackoffExpired("ap1", "cc:dd", now, time.Minute, false))
}
