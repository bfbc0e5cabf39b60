package handler

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lirobabyxoxo/CapitaoCP/internal/crash"
	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/service"
)

// Discord refuses bulk deletion of messages older than two weeks.
const bulkDeleteMaxAge = 14 * 24 * time.Hour

// confirmationTTL is how long the clear confirmation stays visible.
const confirmationTTL = 5 * time.Second

func (h *Handler) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer crash.RecoverWithStack("message handler")

	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	h.ensureUser(m.Author)

	cfg, err := h.services.Configs.GetConfig(m.GuildID)
	if err != nil {
		logger.Errorf("Failed to load config for guild %s: %v", m.GuildID, err)
		return
	}
	if cfg == nil || !cfg.ClearSystemEnabled || m.Content != cfg.ClearTrigger {
		return
	}

	var roleIDs []string
	if m.Member != nil {
		roleIDs = m.Member.Roles
	}
	allowed := service.CanTriggerClear(cfg, m.Author.ID, roleIDs,
		memberHasManageMessages(s, m.Author.ID, m.ChannelID))
	if !allowed {
		// stays silent so the trigger text is not discoverable by probing
		logger.Debugf("Clear trigger by %s in %s denied", m.Author.ID, m.ChannelID)
		return
	}

	h.runQuickClear(s, m)
}

func (h *Handler) runQuickClear(s *discordgo.Session, m *discordgo.MessageCreate) {
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		logger.Warningf("Failed to delete clear trigger message: %v", err)
	}

	deleted, err := deleteRecentMessages(s, m.ChannelID, 100)
	if err != nil {
		logger.Errorf("Quick clear in %s failed: %v", m.ChannelID, err)
		return
	}

	logger.Infof("Cleared %d messages in channel %s (triggered by %s)", deleted, m.ChannelID, m.Author.ID)

	confirmation, err := s.ChannelMessageSendEmbed(m.ChannelID,
		successEmbed("Channel Cleared", fmt.Sprintf("Removed **%d** messages.", deleted)))
	if err != nil {
		logger.Warningf("Failed to send clear confirmation: %v", err)
		return
	}

	time.AfterFunc(confirmationTTL, func() {
		defer crash.RecoverWithStack("clear confirmation cleanup")
		if err := s.ChannelMessageDelete(confirmation.ChannelID, confirmation.ID); err != nil {
			logger.Debugf("Failed to remove clear confirmation: %v", err)
		}
	})
}

// deleteRecentMessages removes up to limit of the channel's newest
// messages, skipping anything older than the bulk-delete window, and
// returns how many were removed.
func deleteRecentMessages(s *discordgo.Session, channelID string, limit int) (int, error) {
	messages, err := s.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return 0, fmt.Errorf("fetching messages: %w", err)
	}

	ids := filterBulkDeletable(messages, time.Now())
	switch len(ids) {
	case 0:
	case 1:
		if err := s.ChannelMessageDelete(channelID, ids[0]); err != nil {
			return 0, fmt.Errorf("deleting message: %w", err)
		}
	default:
		if err := s.ChannelMessagesBulkDelete(channelID, ids); err != nil {
			return 0, fmt.Errorf("bulk deleting: %w", err)
		}
	}
	return len(ids), nil
}

// filterBulkDeletable keeps the ids of messages young enough for
// Discord's bulk-delete endpoint.
func filterBulkDeletable(messages []*discordgo.Message, now time.Time) []string {
	cutoff := now.Add(-bulkDeleteMaxAge)
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Timestamp.After(cutoff) {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}
