package models

// Log channel categories configurable per guild.
const (
	LogCategoryMessages = "messages"
	LogCategoryMembers  = "members"
	LogCategoryServer   = "server"
)

// DefaultClearTrigger is the trigger text a guild starts with.
const DefaultClearTrigger = ".cl"

// GuildConfig holds per-guild settings: the quick-clear system and the
// log channel mapping. Created lazily on first configuration write.
type GuildConfig struct {
	GuildID            string            `gorm:"primaryKey;size:32"`
	ClearSystemEnabled bool              `gorm:"default:false"`
	ClearTrigger       string            `gorm:"size:64"`
	ClearRoles         []string          `gorm:"serializer:json"`
	ClearUsers         []string          `gorm:"serializer:json"`
	LogChannels        map[string]string `gorm:"serializer:json"`
}

// NewGuildConfig returns the documented defaults for a guild.
func NewGuildConfig(guildID, trigger string) *GuildConfig {
	if trigger == "" {
		trigger = DefaultClearTrigger
	}
	return &GuildConfig{
		GuildID:            guildID,
		ClearSystemEnabled: false,
		ClearTrigger:       trigger,
		ClearRoles:         []string{},
		ClearUsers:         []string{},
		LogChannels:        map[string]string{},
	}
}

// HasClearUser reports whether userID is on the user allow-list.
func (c *GuildConfig) HasClearUser(userID string) bool {
	for _, id := range c.ClearUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// HasClearRole reports whether any of roleIDs is on the role allow-list.
func (c *GuildConfig) HasClearRole(roleIDs []string) bool {
	for _, allowed := range c.ClearRoles {
		for _, id := range roleIDs {
			if id == allowed {
				return true
			}
		}
	}
	return false
}
