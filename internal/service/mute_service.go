package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

// MuteService manages the mute lifecycle: imposition, manual lift,
// lazy expiry on read, and the claim used by the sweeper.
type MuteService struct {
	repo storage.Repository

	minDuration time.Duration
	maxDuration time.Duration
}

// NewMuteService creates a MuteService with the configured duration bounds.
func NewMuteService(repo storage.Repository, minDuration, maxDuration time.Duration) *MuteService {
	return &MuteService{
		repo:        repo,
		minDuration: minDuration,
		maxDuration: maxDuration,
	}
}

// CheckDuration validates a requested mute duration against the
// configured bounds. Command handlers call this before imposing.
func (s *MuteService) CheckDuration(d time.Duration) error {
	if d < s.minDuration || d > s.maxDuration {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrDurationOutOfRange, d, s.minDuration, s.maxDuration)
	}
	return nil
}

// CreateMute imposes a mute on a user in a guild. A non-positive
// duration creates an indefinite mute. Returns ErrMuteActive when an
// active mute already covers the pair.
func (s *MuteService) CreateMute(userID, guildID string, duration time.Duration, reason, moderatorID string) (*models.Mute, error) {
	now := time.Now()
	mute := &models.Mute{
		UserID:      userID,
		GuildID:     guildID,
		MutedAt:     now,
		Reason:      reason,
		ModeratorID: moderatorID,
	}
	if duration > 0 {
		expiresAt := now.Add(duration)
		mute.ExpiresAt = &expiresAt
	}

	err := s.repo.CreateMute(mute)
	if errors.Is(err, storage.ErrMuteExists) {
		return nil, ErrMuteActive
	}
	if err != nil {
		return nil, fmt.Errorf("creating mute: %w", err)
	}
	logger.Infof("Muted user %s in guild %s until %v (moderator %s)", userID, guildID, mute.ExpiresAt, moderatorID)
	return mute, nil
}

// RemoveMute lifts the active mute for a user in a guild. Returns false
// when nothing is active; a concurrent sweep winning the transition also
// yields false here, which callers treat as "nothing to do".
func (s *MuteService) RemoveMute(userID, guildID string) (bool, error) {
	won, err := s.repo.DeactivateMute(userID, guildID)
	if err != nil {
		return false, fmt.Errorf("removing mute: %w", err)
	}
	if won {
		logger.Infof("Unmuted user %s in guild %s", userID, guildID)
	}
	return won, nil
}

// GetActiveMute returns the current mute for a user in a guild, or nil.
// A stored mute whose deadline has passed is flipped inactive here, so a
// direct lookup never reports a stale "still muted" and a later sweep
// cannot claim the record again.
func (s *MuteService) GetActiveMute(userID, guildID string) (*models.Mute, error) {
	mute, err := s.repo.GetActiveMute(userID, guildID)
	if err != nil {
		return nil, fmt.Errorf("looking up mute: %w", err)
	}
	if mute == nil {
		return nil, nil
	}
	if mute.Expired(time.Now()) {
		if _, err := s.repo.DeactivateMuteByID(mute.ID); err != nil {
			return nil, fmt.Errorf("expiring mute on read: %w", err)
		}
		return nil, nil
	}
	return mute, nil
}

// ClaimExpired transitions every overdue active mute to inactive and
// returns the claimed records for the caller to reverse platform-side.
func (s *MuteService) ClaimExpired(now time.Time) ([]*models.Mute, error) {
	claimed, err := s.repo.ClaimExpiredMutes(now)
	if err != nil {
		return nil, fmt.Errorf("claiming expired mutes: %w", err)
	}
	return claimed, nil
}
