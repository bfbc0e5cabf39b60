package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
)

// GormRepository is the durable Repository backend over MySQL.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GormRepository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// MigrateTables ensures all tables exist with the right schema
func (r *GormRepository) MigrateTables() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Mute{},
		&models.Marriage{},
		&models.MarriageHistory{},
		&models.GuildConfig{},
	)
}

// GetUser retrieves a cached user by ID
func (r *GormRepository) GetUser(id string) (*models.User, error) {
	var user models.User
	result := r.db.Where("id = ?", id).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// UpsertUser creates a user record or refreshes its display fields
func (r *GormRepository) UpsertUser(user *models.User) error {
	if user.JoinedAt.IsZero() {
		user.JoinedAt = time.Now()
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "discriminator", "avatar"}),
	}).Create(user).Error
}

// CreateMute inserts a new active mute. The unique index on active_key
// makes concurrent imposition race-free: exactly one insert wins and the
// rest fail with ErrMuteExists.
func (r *GormRepository) CreateMute(mute *models.Mute) error {
	if mute.ID == "" {
		mute.ID = uuid.NewString()
	}
	if mute.MutedAt.IsZero() {
		mute.MutedAt = time.Now()
	}
	mute.IsActive = true
	key := models.MuteActiveKey(mute.UserID, mute.GuildID)
	mute.ActiveKey = &key

	err := r.db.Create(mute).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrMuteExists
	}
	return err
}

// GetActiveMute returns the active mute for a user in a guild, or nil.
// Expiry is not applied here; callers own that policy.
func (r *GormRepository) GetActiveMute(userID, guildID string) (*models.Mute, error) {
	var mute models.Mute
	result := r.db.Where("user_id = ? AND guild_id = ? AND is_active = ?", userID, guildID, true).First(&mute)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &mute, nil
}

// DeactivateMute flips the active mute for (user, guild) to inactive.
// The WHERE clause on is_active makes the transition at-most-once under
// concurrent lifts and sweeps; the return value reports whether this
// call won the transition.
func (r *GormRepository) DeactivateMute(userID, guildID string) (bool, error) {
	result := r.db.Model(&models.Mute{}).
		Where("user_id = ? AND guild_id = ? AND is_active = ?", userID, guildID, true).
		Updates(map[string]interface{}{"is_active": false, "active_key": nil})
	return result.RowsAffected > 0, result.Error
}

// DeactivateMuteByID flips a specific mute to inactive if still active.
func (r *GormRepository) DeactivateMuteByID(id string) (bool, error) {
	result := r.db.Model(&models.Mute{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "active_key": nil})
	return result.RowsAffected > 0, result.Error
}

// ClaimExpiredMutes flips every active mute whose deadline has passed and
// returns the records this call transitioned. Each record is claimed by
// a conditional update keyed on is_active, so overlapping sweeps never
// claim the same mute twice.
func (r *GormRepository) ClaimExpiredMutes(now time.Time) ([]*models.Mute, error) {
	var candidates []*models.Mute
	result := r.db.Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).Find(&candidates)
	if result.Error != nil {
		return nil, result.Error
	}

	var claimed []*models.Mute
	for _, mute := range candidates {
		won, err := r.DeactivateMuteByID(mute.ID)
		if err != nil {
			return claimed, err
		}
		if won {
			claimed = append(claimed, mute)
		}
	}
	return claimed, nil
}

// GetActiveMarriage returns the active marriage containing userID, or nil
func (r *GormRepository) GetActiveMarriage(userID string) (*models.Marriage, error) {
	var marriage models.Marriage
	result := r.db.Where("(user_id_1 = ? OR user_id_2 = ?) AND is_active = ?", userID, userID, true).First(&marriage)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &marriage, nil
}

// CreateMarriage creates an active marriage plus the two mirrored history
// rows. It runs in a transaction that takes row locks on both users (in
// stable order, to avoid deadlock) before re-checking that both are still
// single, so two concurrent accepts involving the same user serialize and
// at most one succeeds.
func (r *GormRepository) CreateMarriage(marriage *models.Marriage) error {
	if marriage.ID == "" {
		marriage.ID = uuid.NewString()
	}
	if marriage.MarriedAt.IsZero() {
		marriage.MarriedAt = time.Now()
	}
	marriage.IsActive = true
	pair := []string{marriage.UserID1, marriage.UserID2}

	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range orderedPair(marriage.UserID1, marriage.UserID2) {
			if err := lockUserRow(tx, id); err != nil {
				return err
			}
		}

		var count int64
		err := tx.Model(&models.Marriage{}).
			Where("(user_id_1 IN ? OR user_id_2 IN ?) AND is_active = ?", pair, pair, true).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyMarried
		}

		if err := tx.Create(marriage).Error; err != nil {
			return err
		}

		entries := []*models.MarriageHistory{
			{ID: uuid.NewString(), UserID: marriage.UserID1, PartnerID: marriage.UserID2, MarriedAt: marriage.MarriedAt},
			{ID: uuid.NewString(), UserID: marriage.UserID2, PartnerID: marriage.UserID1, MarriedAt: marriage.MarriedAt},
		}
		return tx.Create(&entries).Error
	})
}

// DivorceMarriage deactivates the active marriage containing userID and
// stamps divorced_at on both open history rows. Returns (nil, nil) when
// the user is not married. Missing history rows abort the transaction
// with ErrHistoryMissing.
func (r *GormRepository) DivorceMarriage(userID string, at time.Time) (*models.Marriage, error) {
	var dissolved *models.Marriage

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var marriage models.Marriage
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("(user_id_1 = ? OR user_id_2 = ?) AND is_active = ?", userID, userID, true).
			First(&marriage)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}

		update := tx.Model(&models.Marriage{}).
			Where("id = ? AND is_active = ?", marriage.ID, true).
			Update("is_active", false)
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			// Lost the transition to a concurrent divorce
			return nil
		}

		partnerID := marriage.PartnerOf(userID)
		for _, side := range [][2]string{{userID, partnerID}, {partnerID, userID}} {
			stamp := tx.Model(&models.MarriageHistory{}).
				Where("user_id = ? AND partner_id = ? AND divorced_at IS NULL", side[0], side[1]).
				Update("divorced_at", at)
			if stamp.Error != nil {
				return stamp.Error
			}
			if stamp.RowsAffected == 0 {
				return ErrHistoryMissing
			}
		}

		marriage.IsActive = false
		dissolved = &marriage
		return nil
	})

	return dissolved, err
}

// GetMarriageHistory returns a user's history, most recent first
func (r *GormRepository) GetMarriageHistory(userID string) ([]*models.MarriageHistory, error) {
	var entries []*models.MarriageHistory
	result := r.db.Where("user_id = ?", userID).Order("married_at DESC").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// GetGuildConfig retrieves guild configuration, or nil when never configured
func (r *GormRepository) GetGuildConfig(guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	result := r.db.Where("guild_id = ?", guildID).First(&cfg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &cfg, nil
}

// UpsertGuildConfig creates or replaces a guild's configuration record
func (r *GormRepository) UpsertGuildConfig(cfg *models.GuildConfig) error {
	var existing models.GuildConfig
	result := r.db.Where("guild_id = ?", cfg.GuildID).First(&existing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return r.db.Create(cfg).Error
		}
		return result.Error
	}
	return r.db.Save(cfg).Error
}

// lockUserRow takes a FOR UPDATE lock on a user row, creating a stub row
// first when the user has never been observed (a missing row cannot be
// locked).
func lockUserRow(tx *gorm.DB, id string) error {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{ID: id, JoinedAt: time.Now()}
		if err := tx.Create(&user).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&user).Error
	}
	return err
}

func orderedPair(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
