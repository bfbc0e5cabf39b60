package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/lirobabyxoxo/CapitaoCP/internal/config"
	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
)

// Bot wraps the Discord session and its lifecycle.
type Bot struct {
	Session *discordgo.Session
	cfg     *config.Config
}

// Initialize creates the Discord session with the intents the handlers
// need. The session is not opened yet; register handlers first, then
// call Start.
func Initialize(cfg *config.Config) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if cfg.Bot.AppID == "" {
		return nil, fmt.Errorf("bot application id is required")
	}

	session, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMembers |
		discordgo.IntentMessageContent |
		discordgo.IntentGuildModeration

	// Keep recent messages cached so delete/edit logs can show content
	session.State.MaxMessageCount = 200

	return &Bot{Session: session, cfg: cfg}, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	if b.Session.State.User != nil {
		logger.Infof("Authorized on account %s", b.Session.State.User.Username)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	if err := b.Session.Close(); err != nil {
		logger.Warningf("Error closing Discord session: %v", err)
	}
}

// DeployCommands bulk-overwrites the global slash command set.
func (b *Bot) DeployCommands(commands []*discordgo.ApplicationCommand) error {
	logger.Infof("Deploying %d application commands", len(commands))
	_, err := b.Session.ApplicationCommandBulkOverwrite(b.cfg.Bot.AppID, "", commands)
	if err != nil {
		return fmt.Errorf("failed to deploy commands: %w", err)
	}
	logger.Infof("Successfully deployed %d application commands", len(commands))
	return nil
}

// RemoveTimeout clears a member's Discord timeout. Used by the handler
// for manual unmutes and injected into the sweeper as the reversal for
// expired mutes.
func (b *Bot) RemoveTimeout(guildID, userID string) error {
	return b.Session.GuildMemberTimeout(guildID, userID, nil)
}
