package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
)

func activeMute(userID, guildID string, expiresAt *time.Time) *models.Mute {
	return &models.Mute{
		UserID:      userID,
		GuildID:     guildID,
		Reason:      "test",
		ModeratorID: "mod",
		ExpiresAt:   expiresAt,
	}
}

func TestCreateMuteConflict(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.CreateMute(activeMute("u1", "g1", nil)); err != nil {
		t.Fatalf("first CreateMute: %v", err)
	}
	if err := repo.CreateMute(activeMute("u1", "g1", nil)); !errors.Is(err, ErrMuteExists) {
		t.Fatalf("second CreateMute error = %v, want ErrMuteExists", err)
	}

	// Same user in another guild is a separate scope
	if err := repo.CreateMute(activeMute("u1", "g2", nil)); err != nil {
		t.Fatalf("CreateMute in second guild: %v", err)
	}
}

func TestCreateMuteConcurrent(t *testing.T) {
	repo := NewMemoryRepository()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.CreateMute(activeMute("u1", "g1", nil))
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrMuteExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("got %d wins and %d conflicts, want 1 and %d", wins, conflicts, attempts-1)
	}
}

func TestDeactivateMuteAtMostOnce(t *testing.T) {
	repo := NewMemoryRepository()
	if err := repo.CreateMute(activeMute("u1", "g1", nil)); err != nil {
		t.Fatal(err)
	}

	won, err := repo.DeactivateMute("u1", "g1")
	if err != nil || !won {
		t.Fatalf("first deactivate: won=%v err=%v", won, err)
	}
	won, err = repo.DeactivateMute("u1", "g1")
	if err != nil || won {
		t.Fatalf("second deactivate: won=%v err=%v, want no-op", won, err)
	}

	// A lifted mute frees the slot for a new one
	if err := repo.CreateMute(activeMute("u1", "g1", nil)); err != nil {
		t.Fatalf("CreateMute after lift: %v", err)
	}
}

func TestClaimExpiredMutesNoDoubleClaim(t *testing.T) {
	repo := NewMemoryRepository()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	for _, m := range []*models.Mute{
		activeMute("u1", "g1", &past),
		activeMute("u2", "g1", &past),
		activeMute("u3", "g1", &future),
		activeMute("u4", "g1", nil), // indefinite, never expires
	} {
		if err := repo.CreateMute(m); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Now()
	const sweeps = 8
	var wg sync.WaitGroup
	results := make(chan []*models.Mute, sweeps)
	for i := 0; i < sweeps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := repo.ClaimExpiredMutes(now)
			if err != nil {
				t.Error(err)
			}
			results <- claimed
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]int)
	for claimed := range results {
		for _, m := range claimed {
			seen[m.ID]++
		}
	}
	if len(seen) != 2 {
		t.Fatalf("claimed %d distinct mutes, want 2", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("mute %s claimed %d times", id, n)
		}
	}

	// Nothing left to claim
	claimed, err := repo.ClaimExpiredMutes(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 0 {
		t.Fatalf("repeat claim returned %d mutes, want 0", len(claimed))
	}
}

func TestCreateMarriageMutualExclusion(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.CreateMarriage(&models.Marriage{UserID1: "a", UserID2: "b"}); err != nil {
		t.Fatal(err)
	}
	err := repo.CreateMarriage(&models.Marriage{UserID1: "b", UserID2: "c"})
	if !errors.Is(err, ErrAlreadyMarried) {
		t.Fatalf("error = %v, want ErrAlreadyMarried", err)
	}
	err = repo.CreateMarriage(&models.Marriage{UserID1: "c", UserID2: "a"})
	if !errors.Is(err, ErrAlreadyMarried) {
		t.Fatalf("error = %v, want ErrAlreadyMarried", err)
	}
}

func TestCreateMarriageConcurrentSharedTarget(t *testing.T) {
	repo := NewMemoryRepository()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, proposer := range []string{"a", "c"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			errs <- repo.CreateMarriage(&models.Marriage{UserID1: p, UserID2: "b"})
		}(proposer)
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrAlreadyMarried) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d successful marriages targeting b, want 1", wins)
	}
}

func TestCreateMarriageWritesMirroredHistory(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.CreateMarriage(&models.Marriage{UserID1: "a", UserID2: "b"}); err != nil {
		t.Fatal(err)
	}

	for _, side := range [][2]string{{"a", "b"}, {"b", "a"}} {
		entries, err := repo.GetMarriageHistory(side[0])
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatalf("history of %s has %d entries, want 1", side[0], len(entries))
		}
		if entries[0].PartnerID != side[1] {
			t.Errorf("history of %s points at %s, want %s", side[0], entries[0].PartnerID, side[1])
		}
		if entries[0].DivorcedAt != nil {
			t.Errorf("history of %s already divorced", side[0])
		}
	}
}

func TestDivorceMarriageStampsBothSides(t *testing.T) {
	repo := NewMemoryRepository()
	if err := repo.CreateMarriage(&models.Marriage{UserID1: "a", UserID2: "b"}); err != nil {
		t.Fatal(err)
	}

	at := time.Now()
	dissolved, err := repo.DivorceMarriage("a", at)
	if err != nil {
		t.Fatal(err)
	}
	if dissolved == nil || dissolved.IsActive {
		t.Fatalf("dissolved = %+v, want inactive marriage", dissolved)
	}

	for _, user := range []string{"a", "b"} {
		entries, err := repo.GetMarriageHistory(user)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].DivorcedAt == nil {
			t.Fatalf("history of %s not stamped: %+v", user, entries)
		}
		if !entries[0].DivorcedAt.Equal(at) {
			t.Errorf("divorce stamp of %s = %v, want %v", user, entries[0].DivorcedAt, at)
		}
	}

	// Not married anymore
	again, err := repo.DivorceMarriage("a", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Fatalf("second divorce returned %+v, want nil", again)
	}
}

func TestDivorceMarriageHistoryFaultLeavesStateUntouched(t *testing.T) {
	repo := NewMemoryRepository()
	if err := repo.CreateMarriage(&models.Marriage{UserID1: "a", UserID2: "b"}); err != nil {
		t.Fatal(err)
	}

	// Simulate a bookkeeping fault: the partner's ledger is gone
	repo.mu.Lock()
	delete(repo.history, "b")
	repo.mu.Unlock()

	if _, err := repo.DivorceMarriage("a", time.Now()); !errors.Is(err, ErrHistoryMissing) {
		t.Fatalf("DivorceMarriage error = %v, want ErrHistoryMissing", err)
	}

	// The failed divorce must not half-apply: the marriage stays
	// active and a's ledger row stays open
	marriage, err := repo.GetActiveMarriage("a")
	if err != nil {
		t.Fatal(err)
	}
	if marriage == nil || !marriage.IsActive {
		t.Fatalf("active marriage = %+v, want still active after failed divorce", marriage)
	}

	entries, err := repo.GetMarriageHistory("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].DivorcedAt != nil {
		t.Fatalf("history of a = %+v, want single open entry", entries)
	}
}

func TestGetMarriageHistoryOrder(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.CreateMarriage(&models.Marriage{UserID1: "a", UserID2: "b", MarriedAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.DivorceMarriage("a", time.Now().Add(-30*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateMarriage(&models.Marriage{UserID1: "a", UserID2: "c", MarriedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	entries, err := repo.GetMarriageHistory("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(entries))
	}
	if entries[0].PartnerID != "c" || entries[1].PartnerID != "b" {
		t.Errorf("history order = [%s, %s], want [c, b]", entries[0].PartnerID, entries[1].PartnerID)
	}
}

func TestGuildConfigRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()

	cfg, err := repo.GetGuildConfig("g1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != nil {
		t.Fatalf("unexpected config for unconfigured guild: %+v", cfg)
	}

	stored := models.NewGuildConfig("g1", "")
	stored.ClearSystemEnabled = true
	stored.ClearUsers = []string{"u1"}
	stored.LogChannels[models.LogCategoryMessages] = "ch1"
	if err := repo.UpsertGuildConfig(stored); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetGuildConfig("g1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.ClearSystemEnabled || got.ClearTrigger != ".cl" {
		t.Fatalf("got = %+v", got)
	}
	if got.LogChannels[models.LogCategoryMessages] != "ch1" {
		t.Errorf("log channel mapping not persisted: %+v", got.LogChannels)
	}

	// Mutating the returned copy must not touch the stored record
	got.ClearUsers = append(got.ClearUsers, "u2")
	fresh, _ := repo.GetGuildConfig("g1")
	if len(fresh.ClearUsers) != 1 {
		t.Errorf("stored config mutated through returned copy: %+v", fresh.ClearUsers)
	}
}
