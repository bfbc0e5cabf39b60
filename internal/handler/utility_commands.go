package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lirobabyxoxo/CapitaoCP/internal/crash"
	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
)

func utilityCommands() []*discordgo.ApplicationCommand {
	minAmount := float64(1)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "clear",
			Description:              "Clear messages from this channel",
			DefaultMemberPermissions: &permManageMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "amount",
					Description: "Number of messages to clear (1-100)", Required: true,
					MinValue: &minAmount, MaxValue: 100,
				},
			},
		},
		{
			Name:        "av",
			Description: "Show a user's avatar",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to show the avatar of"},
			},
		},
		{
			Name:        "userinfo",
			Description: "Show detailed user information",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to show info for"},
			},
		},
	}
}

func (h *Handler) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	amount := int(opts["amount"].IntValue())

	deleted, err := deleteRecentMessages(s, i.ChannelID, amount)
	if err != nil {
		logger.Errorf("Failed to clear %d messages in %s: %v", amount, i.ChannelID, err)
		respondError(s, i, "Could not clear messages. They may be too old.")
		return
	}

	moderator := interactionUser(i)
	logger.Infof("Cleared %d messages in channel %s (/clear by %s)", deleted, i.ChannelID, moderator.ID)

	embed := successEmbed("Messages Cleared", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		field("Amount", fmt.Sprintf("%d messages", deleted)),
		field("Channel", "<#"+i.ChannelID+">"),
		field("Staff", userTag(moderator)),
	}
	respondEmbed(s, i, embed, false)

	// The confirmation is transient, like the quick-clear one
	time.AfterFunc(confirmationTTL, func() {
		defer crash.RecoverWithStack("clear confirmation cleanup")
		if err := s.InteractionResponseDelete(i.Interaction); err != nil {
			logger.Debugf("Failed to remove clear confirmation: %v", err)
		}
	})
}

func (h *Handler) handleAvatar(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionalUserTarget(s, i)

	avatarURL := target.AvatarURL("512")
	embed := baseEmbed("Avatar", "")
	embed.Author = &discordgo.MessageEmbedAuthor{
		Name:    userTag(target),
		IconURL: target.AvatarURL("64"),
	}
	embed.Image = &discordgo.MessageEmbedImage{URL: avatarURL}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Download PNG", Style: discordgo.LinkButton, URL: avatarExtensionURL(avatarURL, "png")},
					discordgo.Button{Label: "Download JPG", Style: discordgo.LinkButton, URL: avatarExtensionURL(avatarURL, "jpg")},
				}},
			},
		},
	})
	if err != nil {
		logger.Errorf("Failed to respond to avatar command: %v", err)
	}
}

func (h *Handler) handleUserInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionalUserTarget(s, i)

	embed := baseEmbed("Member Information", "")
	embed.Author = &discordgo.MessageEmbedAuthor{
		Name:    userTag(target),
		IconURL: target.AvatarURL("64"),
	}
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL("128")}
	embed.Fields = []*discordgo.MessageEmbedField{
		field("User ID", "`"+target.ID+"`"),
	}
	if created, err := discordgo.SnowflakeTimestamp(target.ID); err == nil {
		embed.Fields = append(embed.Fields, field("Account Created", discordTimestamp(created)))
	}

	if member, err := s.GuildMember(i.GuildID, target.ID); err == nil {
		if !member.JoinedAt.IsZero() {
			embed.Fields = append(embed.Fields, field("Joined Server", discordTimestamp(member.JoinedAt)))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Roles", Value: roleList(member.Roles),
		})
	}

	respondEmbed(s, i, embed, false)
}

// optionalUserTarget resolves the "user" option, defaulting to the
// invoker when omitted.
func optionalUserTarget(s *discordgo.Session, i *discordgo.InteractionCreate) *discordgo.User {
	if opt, ok := optionMap(i.ApplicationCommandData().Options)["user"]; ok {
		return opt.UserValue(s)
	}
	return interactionUser(i)
}

// avatarExtensionURL rewrites a CDN avatar link to the given extension,
// keeping any query string.
func avatarExtensionURL(avatarURL, ext string) string {
	base, query, found := strings.Cut(avatarURL, "?")
	if dot := strings.LastIndex(base, "."); dot >= 0 {
		base = base[:dot]
	}
	base += "." + ext
	if found {
		return base + "?" + query
	}
	return base
}

// discordTimestamp renders a time as Discord's date markup.
func discordTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:D>", t.Unix())
}

func roleList(roleIDs []string) string {
	if len(roleIDs) == 0 {
		return "None"
	}
	mentions := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		mentions = append(mentions, "<@&"+id+">")
	}
	return strings.Join(mentions, ", ")
}
