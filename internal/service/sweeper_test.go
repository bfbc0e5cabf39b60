package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
)

func TestRunOnceReversesClaimedMutes(t *testing.T) {
	mutes := newMuteService()
	_, err := mutes.CreateMute("u1", "g1", time.Millisecond, "", "mod")
	require.NoError(t, err)
	_, err = mutes.CreateMute("u2", "g1", time.Millisecond, "", "mod")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	var mu sync.Mutex
	var reversed []string
	sweeper := NewSweeper(mutes, time.Hour, func(m *models.Mute) error {
		mu.Lock()
		defer mu.Unlock()
		reversed = append(reversed, m.UserID)
		return nil
	})

	failures := sweeper.RunOnce(time.Now())
	require.Empty(t, failures)
	require.ElementsMatch(t, []string{"u1", "u2"}, reversed)

	// Already claimed: a second sweep does nothing
	failures = sweeper.RunOnce(time.Now())
	require.Empty(t, failures)
	require.Len(t, reversed, 2)
}

func TestRunOnceFailureIsolation(t *testing.T) {
	mutes := newMuteService()
	_, err := mutes.CreateMute("u1", "g1", time.Millisecond, "", "mod")
	require.NoError(t, err)
	_, err = mutes.CreateMute("u2", "g1", time.Millisecond, "", "mod")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	boom := errors.New("platform rejected the unmute")
	var attempted []string
	sweeper := NewSweeper(mutes, time.Hour, func(m *models.Mute) error {
		attempted = append(attempted, m.UserID)
		if m.UserID == "u1" {
			return boom
		}
		return nil
	})

	failures := sweeper.RunOnce(time.Now())
	require.Len(t, attempted, 2, "one failure must not abort the rest")
	require.Len(t, failures, 1)
	require.Equal(t, "u1", failures[0].Mute.UserID)
	require.ErrorIs(t, failures[0].Err, boom)

	// The failed record stays inactive; no re-claim on the next sweep
	failures = sweeper.RunOnce(time.Now())
	require.Empty(t, failures)
	active, err := mutes.GetActiveMute("u1", "g1")
	require.NoError(t, err)
	require.Nil(t, active)
}

func TestSweeperStartStop(t *testing.T) {
	mutes := newMuteService()
	_, err := mutes.CreateMute("u1", "g1", time.Millisecond, "", "mod")
	require.NoError(t, err)

	done := make(chan struct{})
	sweeper := NewSweeper(mutes, 5*time.Millisecond, func(m *models.Mute) error {
		select {
		case <-done:
		default:
			close(done)
		}
		return nil
	})

	sweeper.Start()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ran the reversal callback")
	}

	// Stop returns once the in-flight tick has finished
	sweeper.Stop()
	sweeper.Stop() // idempotent
}
