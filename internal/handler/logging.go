package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/lirobabyxoxo/CapitaoCP/internal/crash"
	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
)

// logChannelFor resolves the destination channel for a log category.
// Returns "" when the guild has not mapped the category.
func (h *Handler) logChannelFor(guildID, category string) string {
	cfg, err := h.services.Configs.GetConfig(guildID)
	if err != nil {
		logger.Warningf("Failed to load config for guild %s: %v", guildID, err)
		return ""
	}
	if cfg == nil || cfg.LogChannels == nil {
		return ""
	}
	return cfg.LogChannels[category]
}

func (h *Handler) sendLog(s *discordgo.Session, guildID, category string, embed *discordgo.MessageEmbed) {
	channelID := h.logChannelFor(guildID, category)
	if channelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		logger.Warningf("Failed to send %s log to channel %s: %v", category, channelID, err)
	}
}

func (h *Handler) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	defer crash.RecoverWithStack("message delete log")

	if m.GuildID == "" {
		return
	}
	// BeforeDelete is only set while the message is still in the state
	// cache; unattributable deletions would log as bare entries, and
	// that is mostly our own quick-clear cleanup, so skip them
	if !deletionLoggable(m.BeforeDelete) {
		return
	}

	fields := []*discordgo.MessageEmbedField{
		field("Author", userTag(m.BeforeDelete.Author)),
		field("Channel", "<#"+m.ChannelID+">"),
	}
	if m.BeforeDelete.Content != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Content", Value: truncate(m.BeforeDelete.Content, 1024),
		})
	}

	h.sendLog(s, m.GuildID, models.LogCategoryMessages, logEmbed("🗑️ Message Deleted", fields))
}

// deletionLoggable reports whether a deletion carries a known, non-bot
// author worth logging.
func deletionLoggable(before *discordgo.Message) bool {
	return before != nil && before.Author != nil && !before.Author.Bot
}

func (h *Handler) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	defer crash.RecoverWithStack("message edit log")

	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	// embed unfurls arrive as updates with unchanged content
	if m.BeforeUpdate != nil && m.BeforeUpdate.Content == m.Content {
		return
	}

	fields := []*discordgo.MessageEmbedField{
		field("Author", userTag(m.Author)),
		field("Channel", "<#"+m.ChannelID+">"),
	}
	if m.BeforeUpdate != nil && m.BeforeUpdate.Content != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Before", Value: truncate(m.BeforeUpdate.Content, 1024),
		})
	}
	if m.Content != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "After", Value: truncate(m.Content, 1024),
		})
	}

	h.sendLog(s, m.GuildID, models.LogCategoryMessages, logEmbed("✏️ Message Edited", fields))
}

func (h *Handler) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	defer crash.RecoverWithStack("member join log")

	if m.User == nil {
		return
	}
	h.ensureUser(m.User)

	embed := logEmbed("📥 Member Joined", []*discordgo.MessageEmbedField{
		field("User", fmt.Sprintf("%s (%s)", userTag(m.User), mention(m.User.ID))),
		field("ID", m.User.ID),
	})
	h.sendLog(s, m.GuildID, models.LogCategoryMembers, embed)
}

func (h *Handler) onGuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	defer crash.RecoverWithStack("member leave log")

	if m.User == nil {
		return
	}

	embed := logEmbed("📤 Member Left", []*discordgo.MessageEmbedField{
		field("User", fmt.Sprintf("%s (%s)", userTag(m.User), mention(m.User.ID))),
		field("ID", m.User.ID),
	})
	h.sendLog(s, m.GuildID, models.LogCategoryMembers, embed)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(string(runes))+3 > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
