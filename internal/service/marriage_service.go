package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

// Proposal is an unaccepted marriage offer. It is never persisted: the
// handler round-trips it through the message component custom id, and
// Accept re-validates everything against storage, so a proposal that is
// never answered simply evaporates.
type Proposal struct {
	ProposerID string
	TargetID   string
}

// MarriageService manages proposals, marriages and the history ledger.
type MarriageService struct {
	repo storage.Repository
}

// NewMarriageService creates a MarriageService.
func NewMarriageService(repo storage.Repository) *MarriageService {
	return &MarriageService{repo: repo}
}

// Propose validates a proposal and returns its token. Nothing is
// written; both parties are re-checked at acceptance time.
func (s *MarriageService) Propose(proposerID, targetID string, targetIsBot bool) (Proposal, error) {
	if proposerID == targetID {
		return Proposal{}, ErrSelfMarriage
	}
	if targetIsBot {
		return Proposal{}, ErrBotMarriage
	}

	current, err := s.repo.GetActiveMarriage(proposerID)
	if err != nil {
		return Proposal{}, fmt.Errorf("checking proposer: %w", err)
	}
	if current != nil {
		return Proposal{}, ErrAlreadyMarried
	}

	current, err = s.repo.GetActiveMarriage(targetID)
	if err != nil {
		return Proposal{}, fmt.Errorf("checking target: %w", err)
	}
	if current != nil {
		return Proposal{}, ErrPartnerMarried
	}

	return Proposal{ProposerID: proposerID, TargetID: targetID}, nil
}

// Accept turns a proposal into an active marriage with mirrored history
// entries. Storage re-validates that both parties are still single; if
// either married in the meantime the call fails without mutation.
func (s *MarriageService) Accept(p Proposal) (*models.Marriage, error) {
	marriage := &models.Marriage{
		UserID1:   p.ProposerID,
		UserID2:   p.TargetID,
		MarriedAt: time.Now(),
	}

	err := s.repo.CreateMarriage(marriage)
	if errors.Is(err, storage.ErrAlreadyMarried) {
		return nil, ErrAlreadyMarried
	}
	if err != nil {
		return nil, fmt.Errorf("creating marriage: %w", err)
	}
	logger.Infof("Married %s and %s", p.ProposerID, p.TargetID)
	return marriage, nil
}

// Decline acknowledges a declined proposal. Idempotent; since proposals
// hold no state there is nothing to release.
func (s *MarriageService) Decline(p Proposal) {
	logger.Infof("Proposal from %s to %s declined", p.ProposerID, p.TargetID)
}

// Divorce dissolves the active marriage containing userID and stamps
// both participants' open history entries with the same timestamp.
// Returns false when the user is not married.
func (s *MarriageService) Divorce(userID string) (bool, error) {
	dissolved, err := s.repo.DivorceMarriage(userID, time.Now())
	if errors.Is(err, storage.ErrHistoryMissing) {
		logger.Errorf("Marriage history integrity fault while divorcing %s: %v", userID, err)
		return false, ErrHistoryIntegrity
	}
	if err != nil {
		return false, fmt.Errorf("divorcing: %w", err)
	}
	if dissolved == nil {
		return false, nil
	}
	logger.Infof("Divorced %s and %s", dissolved.UserID1, dissolved.UserID2)
	return true, nil
}

// CurrentMarriage returns the user's active marriage, or nil.
func (s *MarriageService) CurrentMarriage(userID string) (*models.Marriage, error) {
	marriage, err := s.repo.GetActiveMarriage(userID)
	if err != nil {
		return nil, fmt.Errorf("looking up marriage: %w", err)
	}
	return marriage, nil
}

// History returns the user's ledger entries, most recent first.
func (s *MarriageService) History(userID string) ([]*models.MarriageHistory, error) {
	entries, err := s.repo.GetMarriageHistory(userID)
	if err != nil {
		return nil, fmt.Errorf("loading marriage history: %w", err)
	}
	return entries, nil
}
