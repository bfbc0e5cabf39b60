package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

func newMarriageService() *MarriageService {
	return NewMarriageService(storage.NewMemoryRepository())
}

func TestProposeValidation(t *testing.T) {
	s := newMarriageService()

	_, err := s.Propose("a", "a", false)
	require.ErrorIs(t, err, ErrSelfMarriage)

	_, err = s.Propose("a", "b", true)
	require.ErrorIs(t, err, ErrBotMarriage)

	p, err := s.Propose("a", "b", false)
	require.NoError(t, err)
	require.Equal(t, Proposal{ProposerID: "a", TargetID: "b"}, p)
}

func TestProposeWhileMarried(t *testing.T) {
	s := newMarriageService()

	p, err := s.Propose("a", "b", false)
	require.NoError(t, err)
	_, err = s.Accept(p)
	require.NoError(t, err)

	_, err = s.Propose("a", "c", false)
	require.ErrorIs(t, err, ErrAlreadyMarried)

	_, err = s.Propose("c", "b", false)
	require.ErrorIs(t, err, ErrPartnerMarried)
}

func TestAcceptRevalidates(t *testing.T) {
	s := newMarriageService()

	// Both proposals are issued while everyone is single
	first, err := s.Propose("a", "b", false)
	require.NoError(t, err)
	second, err := s.Propose("c", "b", false)
	require.NoError(t, err)

	_, err = s.Accept(first)
	require.NoError(t, err)

	// b married in the meantime, so the stale proposal fails without mutation
	_, err = s.Accept(second)
	require.ErrorIs(t, err, ErrAlreadyMarried)

	m, err := s.CurrentMarriage("c")
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestDeclineLeavesNoResidue(t *testing.T) {
	s := newMarriageService()

	p, err := s.Propose("a", "b", false)
	require.NoError(t, err)
	s.Decline(p)
	s.Decline(p) // idempotent

	// A declined proposal blocks nothing
	next, err := s.Propose("a", "c", false)
	require.NoError(t, err)
	_, err = s.Accept(next)
	require.NoError(t, err)
}

func TestDivorce(t *testing.T) {
	s := newMarriageService()

	p, err := s.Propose("a", "b", false)
	require.NoError(t, err)
	_, err = s.Accept(p)
	require.NoError(t, err)

	divorced, err := s.Divorce("b")
	require.NoError(t, err)
	require.True(t, divorced)

	m, err := s.CurrentMarriage("a")
	require.NoError(t, err)
	require.Nil(t, m)

	// Both ledgers carry the identical divorce timestamp
	historyA, err := s.History("a")
	require.NoError(t, err)
	historyB, err := s.History("b")
	require.NoError(t, err)
	require.Len(t, historyA, 1)
	require.Len(t, historyB, 1)
	require.NotNil(t, historyA[0].DivorcedAt)
	require.NotNil(t, historyB[0].DivorcedAt)
	require.True(t, historyA[0].DivorcedAt.Equal(*historyB[0].DivorcedAt))

	divorced, err = s.Divorce("a")
	require.NoError(t, err)
	require.False(t, divorced, "already divorced is a no-op")
}

func TestRemarryAfterDivorce(t *testing.T) {
	s := newMarriageService()

	p, _ := s.Propose("a", "b", false)
	_, err := s.Accept(p)
	require.NoError(t, err)
	_, err = s.Divorce("a")
	require.NoError(t, err)

	p, err = s.Propose("a", "c", false)
	require.NoError(t, err)
	_, err = s.Accept(p)
	require.NoError(t, err)

	history, err := s.History("a")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "c", history[0].PartnerID, "most recent first")
	require.Nil(t, history[0].DivorcedAt)
	require.Equal(t, "b", history[1].PartnerID)
	require.NotNil(t, history[1].DivorcedAt)
}

func TestConcurrentAcceptSharedTarget(t *testing.T) {
	s := newMarriageService()

	first, err := s.Propose("a", "b", false)
	require.NoError(t, err)
	second, err := s.Propose("c", "b", false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, p := range []Proposal{first, second} {
		wg.Add(1)
		go func(p Proposal) {
			defer wg.Done()
			_, err := s.Accept(p)
			errs <- err
		}(p)
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrAlreadyMarried)
		}
	}
	require.Equal(t, 1, wins, "at most one accept may win the shared target")
}
