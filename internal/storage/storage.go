// Package storage owns the persisted state of the bot: users, mutes,
// marriages, marriage history and guild configuration. All invariants
// (one active mute per user per guild, one active marriage per user,
// at-most-once deactivation) are enforced here, behind the Repository
// interface, so the volatile and durable backends behave identically.
package storage

import (
	"errors"
	"time"

	"github.com/lirobabyxoxo/CapitaoCP/internal/config"
	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
)

var (
	// ErrMuteExists indicates an active mute already covers the user in
	// that guild.
	ErrMuteExists = errors.New("user already has an active mute in this guild")

	// ErrAlreadyMarried indicates one of the parties already has an
	// active marriage.
	ErrAlreadyMarried = errors.New("user already has an active marriage")

	// ErrHistoryMissing indicates a divorce could not find the open
	// history rows belonging to the dissolved marriage. This is a
	// bookkeeping fault, not an expected outcome.
	ErrHistoryMissing = errors.New("open marriage history entry not found")
)

// Repository is the storage contract shared by the in-memory and MySQL
// backends. State-transition methods are atomic with respect to each
// other: a conditional update keyed on the record's current state
// decides the winner between concurrent callers.
type Repository interface {
	// Users
	GetUser(id string) (*models.User, error)
	UpsertUser(user *models.User) error

	// Mutes
	CreateMute(mute *models.Mute) error
	GetActiveMute(userID, guildID string) (*models.Mute, error)
	DeactivateMute(userID, guildID string) (bool, error)
	DeactivateMuteByID(id string) (bool, error)
	ClaimExpiredMutes(now time.Time) ([]*models.Mute, error)

	// Marriages
	GetActiveMarriage(userID string) (*models.Marriage, error)
	CreateMarriage(marriage *models.Marriage) error
	DivorceMarriage(userID string, at time.Time) (*models.Marriage, error)
	GetMarriageHistory(userID string) ([]*models.MarriageHistory, error)

	// Guild config
	GetGuildConfig(guildID string) (*models.GuildConfig, error)
	UpsertGuildConfig(cfg *models.GuildConfig) error
}

// NewRepository selects the backend from configuration: MySQL when the
// database is enabled, the in-process map store otherwise.
func NewRepository(cfg *config.Config) (Repository, error) {
	if !cfg.Database.Enabled {
		return NewMemoryRepository(), nil
	}

	if err := Initialize(cfg); err != nil {
		return nil, err
	}
	repo := NewGormRepository(DB)
	if err := repo.MigrateTables(); err != nil {
		return nil, err
	}
	return repo, nil
}
