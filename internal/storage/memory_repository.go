package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
)

// MemoryRepository is the volatile Repository backend: plain maps behind
// a single mutex. Every method holds the lock for its whole critical
// section, which gives it the same at-most-once transition semantics as
// the conditional updates in the MySQL backend. Instances are
// independent, so tests can run isolated repositories in parallel.
type MemoryRepository struct {
	mu        sync.Mutex
	users     map[string]*models.User
	mutes     map[string]*models.Mute      // mute id -> record
	activeKey map[string]string            // "<user>:<guild>" -> active mute id
	marriages map[string]*models.Marriage  // marriage id -> record
	history   map[string][]*models.MarriageHistory
	configs   map[string]*models.GuildConfig
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]*models.User),
		mutes:     make(map[string]*models.Mute),
		activeKey: make(map[string]string),
		marriages: make(map[string]*models.Marriage),
		history:   make(map[string][]*models.MarriageHistory),
		configs:   make(map[string]*models.GuildConfig),
	}
}

func (r *MemoryRepository) GetUser(id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryRepository) UpsertUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	if existing, ok := r.users[user.ID]; ok {
		copied.JoinedAt = existing.JoinedAt
	} else if copied.JoinedAt.IsZero() {
		copied.JoinedAt = time.Now()
	}
	r.users[user.ID] = &copied
	return nil
}

func (r *MemoryRepository) CreateMute(mute *models.Mute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := models.MuteActiveKey(mute.UserID, mute.GuildID)
	if _, taken := r.activeKey[key]; taken {
		return ErrMuteExists
	}

	if mute.ID == "" {
		mute.ID = uuid.NewString()
	}
	if mute.MutedAt.IsZero() {
		mute.MutedAt = time.Now()
	}
	mute.IsActive = true
	mute.ActiveKey = &key

	copied := copyMute(mute)
	r.mutes[mute.ID] = copied
	r.activeKey[key] = mute.ID
	return nil
}

func (r *MemoryRepository) GetActiveMute(userID, guildID string) (*models.Mute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.activeKey[models.MuteActiveKey(userID, guildID)]
	if !ok {
		return nil, nil
	}
	return copyMute(r.mutes[id]), nil
}

func (r *MemoryRepository) DeactivateMute(userID, guildID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := models.MuteActiveKey(userID, guildID)
	id, ok := r.activeKey[key]
	if !ok {
		return false, nil
	}
	r.deactivateLocked(r.mutes[id])
	return true, nil
}

func (r *MemoryRepository) DeactivateMuteByID(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mute, ok := r.mutes[id]
	if !ok || !mute.IsActive {
		return false, nil
	}
	r.deactivateLocked(mute)
	return true, nil
}

func (r *MemoryRepository) ClaimExpiredMutes(now time.Time) ([]*models.Mute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var claimed []*models.Mute
	for _, mute := range r.mutes {
		if mute.IsActive && mute.Expired(now) {
			claimed = append(claimed, copyMute(mute))
			r.deactivateLocked(mute)
		}
	}
	return claimed, nil
}

// deactivateLocked flips a mute inactive; callers hold the mutex.
func (r *MemoryRepository) deactivateLocked(mute *models.Mute) {
	mute.IsActive = false
	if mute.ActiveKey != nil {
		delete(r.activeKey, *mute.ActiveKey)
		mute.ActiveKey = nil
	}
}

func (r *MemoryRepository) GetActiveMarriage(userID string) (*models.Marriage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyMarriage(r.activeMarriageLocked(userID)), nil
}

func (r *MemoryRepository) activeMarriageLocked(userID string) *models.Marriage {
	for _, marriage := range r.marriages {
		if marriage.IsActive && marriage.Contains(userID) {
			return marriage
		}
	}
	return nil
}

func (r *MemoryRepository) CreateMarriage(marriage *models.Marriage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeMarriageLocked(marriage.UserID1) != nil || r.activeMarriageLocked(marriage.UserID2) != nil {
		return ErrAlreadyMarried
	}

	if marriage.ID == "" {
		marriage.ID = uuid.NewString()
	}
	if marriage.MarriedAt.IsZero() {
		marriage.MarriedAt = time.Now()
	}
	marriage.IsActive = true

	copied := *marriage
	r.marriages[marriage.ID] = &copied

	r.appendHistoryLocked(marriage.UserID1, marriage.UserID2, marriage.MarriedAt)
	r.appendHistoryLocked(marriage.UserID2, marriage.UserID1, marriage.MarriedAt)
	return nil
}

func (r *MemoryRepository) appendHistoryLocked(userID, partnerID string, marriedAt time.Time) {
	r.history[userID] = append(r.history[userID], &models.MarriageHistory{
		ID:        uuid.NewString(),
		UserID:    userID,
		PartnerID: partnerID,
		MarriedAt: marriedAt,
	})
}

func (r *MemoryRepository) DivorceMarriage(userID string, at time.Time) (*models.Marriage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	marriage := r.activeMarriageLocked(userID)
	if marriage == nil {
		return nil, nil
	}

	// Locate both open ledger rows before touching anything, so a
	// missing row fails the divorce without leaving partial state.
	partnerID := marriage.PartnerOf(userID)
	entries := make([]*models.MarriageHistory, 0, 2)
	for _, side := range [][2]string{{userID, partnerID}, {partnerID, userID}} {
		entry := r.openHistoryLocked(side[0], side[1])
		if entry == nil {
			return nil, ErrHistoryMissing
		}
		entries = append(entries, entry)
	}

	marriage.IsActive = false
	for _, entry := range entries {
		stamped := at
		entry.DivorcedAt = &stamped
	}
	return copyMarriage(marriage), nil
}

// openHistoryLocked returns the user's open entry matching the partner,
// or nil when no such entry exists.
func (r *MemoryRepository) openHistoryLocked(userID, partnerID string) *models.MarriageHistory {
	for _, entry := range r.history[userID] {
		if entry.PartnerID == partnerID && entry.DivorcedAt == nil {
			return entry
		}
	}
	return nil
}

func (r *MemoryRepository) GetMarriageHistory(userID string) ([]*models.MarriageHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*models.MarriageHistory, 0, len(r.history[userID]))
	for _, entry := range r.history[userID] {
		copied := *entry
		if entry.DivorcedAt != nil {
			at := *entry.DivorcedAt
			copied.DivorcedAt = &at
		}
		entries = append(entries, &copied)
	}
	// most recent first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (r *MemoryRepository) GetGuildConfig(guildID string) (*models.GuildConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[guildID]
	if !ok {
		return nil, nil
	}
	return copyGuildConfig(cfg), nil
}

func (r *MemoryRepository) UpsertGuildConfig(cfg *models.GuildConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.GuildID] = copyGuildConfig(cfg)
	return nil
}

func copyMute(mute *models.Mute) *models.Mute {
	if mute == nil {
		return nil
	}
	copied := *mute
	if mute.ExpiresAt != nil {
		at := *mute.ExpiresAt
		copied.ExpiresAt = &at
	}
	if mute.ActiveKey != nil {
		key := *mute.ActiveKey
		copied.ActiveKey = &key
	}
	return &copied
}

func copyMarriage(marriage *models.Marriage) *models.Marriage {
	if marriage == nil {
		return nil
	}
	copied := *marriage
	return &copied
}

func copyGuildConfig(cfg *models.GuildConfig) *models.GuildConfig {
	copied := *cfg
	copied.ClearRoles = append([]string(nil), cfg.ClearRoles...)
	copied.ClearUsers = append([]string(nil), cfg.ClearUsers...)
	copied.LogChannels = make(map[string]string, len(cfg.LogChannels))
	for k, v := range cfg.LogChannels {
		copied.LogChannels[k] = v
	}
	return &copied
}
