package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionSession(t *testing.T) {
	assert.True(t, CanTransitionSession(SessionStatusPending, SessionStatusActive))
	assert.True(t, CanTransitionSession(SessionStatusPending, SessionStatusCancelled))
	assert.True(t, CanTransitionSession(SessionStatusActive, SessionStatusCompleted))

	assert.False(t, CanTransitionSession(SessionStatusActive, SessionStatusCancelled), "an active session can only be ended, never cancelled")
	assert.False(t, CanTransitionSession(SessionStatusCompleted, SessionStatusActive))
	assert.False(t, CanTransitionSession(SessionStatusCancelled, SessionStatusActive))
}

func TestIsTerminalSessionStatus(t *testing.T) {
	assert.True(t, IsTerminalSessionStatus(SessionStatusCompleted))
	assert.True(t, IsTerminalSessionStatus(SessionStatusCancelled))
	assert.True(t, IsTerminalSessionStatus(SessionStatusDisputed))
	assert.False(t, IsTerminalSessionStatus(SessionStatusPending))
	assert.False(t, IsTerminalSessionStatus(SessionStatusActive))
}

func TestSessionIsParty(t *testing.T) {
	s := &Session{ClientID: "client-1", ReaderID: "reader-1"}
	assert.True(t, s.IsParty("client-1"))
	assert.True(t, s.IsParty("reader-1"))
	assert.False(t, s.IsParty("someone-else"))
}

func TestReaderProfileRateForType(t *testing.T) {
	r := &ReaderProfile{ChatRateCentsPerMin: 150, VoiceRateCentsPerMin: 250, VideoRateCentsPerMin: 350}

	rate, ok := r.RateForType(SessionTypeChat)
	assert.True(t, ok)
	assert.Equal(t, int64(150), rate)

	rate, ok = r.RateForType(SessionTypeVideo)
	assert.True(t, ok)
	assert.Equal(t, int64(350), rate)

	_, ok = r.RateForType("unknown")
	assert.False(t, ok)
}
