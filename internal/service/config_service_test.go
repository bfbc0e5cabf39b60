package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

func newConfigService() *ConfigService {
	return NewConfigService(storage.NewMemoryRepository(), ".cl")
}

func TestGetConfigUnconfigured(t *testing.T) {
	s := newConfigService()

	cfg, err := s.GetConfig("g1")
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestUpdateConfigAppliesDefaultsOnFirstWrite(t *testing.T) {
	s := newConfigService()

	cfg, err := s.UpdateConfig("g1", func(c *models.GuildConfig) {
		c.ClearSystemEnabled = true
	})
	require.NoError(t, err)
	require.True(t, cfg.ClearSystemEnabled)
	require.Equal(t, ".cl", cfg.ClearTrigger)
	require.Empty(t, cfg.ClearRoles)
	require.Empty(t, cfg.ClearUsers)
	require.Empty(t, cfg.LogChannels)

	// Subsequent reads hit the cache and see the same record
	got, err := s.GetConfig("g1")
	require.NoError(t, err)
	require.True(t, got.ClearSystemEnabled)
}

func TestUpdateConfigLogChannelMapping(t *testing.T) {
	s := newConfigService()

	// Each category maps to the channel the caller names, independently
	_, err := s.UpdateConfig("g1", func(c *models.GuildConfig) {
		c.LogChannels[models.LogCategoryMessages] = "ch-messages"
	})
	require.NoError(t, err)
	cfg, err := s.UpdateConfig("g1", func(c *models.GuildConfig) {
		c.LogChannels[models.LogCategoryMembers] = "ch-members"
	})
	require.NoError(t, err)

	require.Equal(t, "ch-messages", cfg.LogChannels[models.LogCategoryMessages])
	require.Equal(t, "ch-members", cfg.LogChannels[models.LogCategoryMembers])
	require.NotContains(t, cfg.LogChannels, models.LogCategoryServer)
}

func TestCanTriggerClear(t *testing.T) {
	cfg := models.NewGuildConfig("g1", ".cl")
	cfg.ClearUsers = []string{"u1"}
	cfg.ClearRoles = []string{"r1", "r2"}

	tests := []struct {
		name              string
		cfg               *models.GuildConfig
		userID            string
		roleIDs           []string
		hasManageMessages bool
		want              bool
	}{
		{"user allow-list", cfg, "u1", nil, false, true},
		{"role allow-list only", cfg, "u2", []string{"r2"}, false, true},
		{"native permission only", cfg, "u2", []string{"r9"}, true, true},
		{"no grant at all", cfg, "u2", []string{"r9"}, false, false},
		{"nil config with permission", nil, "u1", []string{"r1"}, true, true},
		{"nil config without permission", nil, "u1", []string{"r1"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanTriggerClear(tt.cfg, tt.userID, tt.roleIDs, tt.hasManageMessages)
			require.Equal(t, tt.want, got)
		})
	}
}
