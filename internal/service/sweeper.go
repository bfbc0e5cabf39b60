package service

import (
	"sync"
	"time"

	"github.com/lirobabyxoxo/CapitaoCP/internal/crash"
	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
)

// ReversalFunc undoes the platform-side effect of an expired mute
// (removing the Discord timeout). Injected so the sweep is testable
// without a live session.
type ReversalFunc func(mute *models.Mute) error

// SweepFailure pairs a claimed mute with the error its reversal
// produced. The mute stays inactive in storage either way; the caller
// may retry the platform effect independently.
type SweepFailure struct {
	Mute *models.Mute
	Err  error
}

// Sweeper periodically finalizes mutes whose deadline has passed and
// hands each to the reversal callback.
type Sweeper struct {
	mutes    *MuteService
	interval time.Duration
	reverse  ReversalFunc

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewSweeper creates a Sweeper. interval must be positive.
func NewSweeper(mutes *MuteService, interval time.Duration, reverse ReversalFunc) *Sweeper {
	return &Sweeper{
		mutes:    mutes,
		interval: interval,
		reverse:  reverse,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop in a supervised goroutine.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	crash.SafeGoroutine("mute-sweeper", func() {
		defer s.wg.Done()

		logger.Infof("Starting expired-mute sweeper with interval %v", s.interval)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(time.Now())
			case <-s.stop:
				return
			}
		}
	})
}

// Stop ceases future ticks and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

// RunOnce performs a single sweep: claim every overdue mute, reverse its
// platform effect, and collect per-record failures. One failed reversal
// never aborts the rest, and the claimed records stay inactive in
// storage regardless.
func (s *Sweeper) RunOnce(now time.Time) []SweepFailure {
	claimed, err := s.mutes.ClaimExpired(now)
	if err != nil {
		logger.Errorf("Error claiming expired mutes: %v", err)
		return nil
	}
	if len(claimed) == 0 {
		return nil
	}

	var failures []SweepFailure
	for _, mute := range claimed {
		if err := s.reverse(mute); err != nil {
			logger.Warningf("Failed to reverse expired mute %s (user %s, guild %s): %v", mute.ID, mute.UserID, mute.GuildID, err)
			failures = append(failures, SweepFailure{Mute: mute, Err: err})
		} else {
			logger.Infof("Auto-unmuted user %s in guild %s", mute.UserID, mute.GuildID)
		}
	}
	return failures
}
