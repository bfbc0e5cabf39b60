package service

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

// ConfigService reads and writes per-guild configuration with a short
// read-through cache in front of storage. Quick-clear consults the
// config on every guild message, so lookups need to be cheap.
type ConfigService struct {
	repo           storage.Repository
	cache          *gocache.Cache
	defaultTrigger string
}

// NewConfigService creates a ConfigService.
func NewConfigService(repo storage.Repository, defaultTrigger string) *ConfigService {
	return &ConfigService{
		repo:           repo,
		cache:          gocache.New(5*time.Minute, 10*time.Minute),
		defaultTrigger: defaultTrigger,
	}
}

// GetConfig returns the guild's configuration, or nil when the guild has
// never been configured.
func (s *ConfigService) GetConfig(guildID string) (*models.GuildConfig, error) {
	if cached, found := s.cache.Get(guildID); found {
		return cached.(*models.GuildConfig), nil
	}

	cfg, err := s.repo.GetGuildConfig(guildID)
	if err != nil {
		return nil, fmt.Errorf("loading guild config: %w", err)
	}
	if cfg != nil {
		s.cache.Set(guildID, cfg, gocache.DefaultExpiration)
	}
	return cfg, nil
}

// UpdateConfig loads the guild's configuration (or its documented
// defaults on first write), applies mutate, persists the result and
// refreshes the cache.
func (s *ConfigService) UpdateConfig(guildID string, mutate func(*models.GuildConfig)) (*models.GuildConfig, error) {
	cfg, err := s.repo.GetGuildConfig(guildID)
	if err != nil {
		return nil, fmt.Errorf("loading guild config: %w", err)
	}
	if cfg == nil {
		cfg = models.NewGuildConfig(guildID, s.defaultTrigger)
	}

	mutate(cfg)

	if err := s.repo.UpsertGuildConfig(cfg); err != nil {
		return nil, fmt.Errorf("saving guild config: %w", err)
	}
	s.cache.Set(guildID, cfg, gocache.DefaultExpiration)
	return cfg, nil
}

// CanTriggerClear decides whether a user may fire the quick-clear
// trigger: the user allow-list, the role allow-list, or the native
// manage-messages permission (resolved by the caller) each suffice.
// A guild with no configuration only passes on the native permission.
func CanTriggerClear(cfg *models.GuildConfig, userID string, roleIDs []string, hasManageMessages bool) bool {
	if hasManageMessages {
		return true
	}
	if cfg == nil {
		return false
	}
	return cfg.HasClearUser(userID) || cfg.HasClearRole(roleIDs)
}
