package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
	"github.com/lirobabyxoxo/CapitaoCP/internal/service"
	"github.com/lirobabyxoxo/CapitaoCP/internal/timeutil"
)

var (
	permModerate       = int64(discordgo.PermissionModerateMembers)
	permBan            = int64(discordgo.PermissionBanMembers)
	permKick           = int64(discordgo.PermissionKickMembers)
	permManage         = int64(discordgo.PermissionManageServer)
	permManageMessages = int64(discordgo.PermissionManageMessages)
)

// Commands returns the application command set the bot deploys on start.
func Commands() []*discordgo.ApplicationCommand {
	return append(moderationAndSocialCommands(), utilityCommands()...)
}

func moderationAndSocialCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "mute",
			Description:              "Timeout a member for a given duration",
			DefaultMemberPermissions: &permModerate,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to mute", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "Duration like 10m, 2h or 1d", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the mute"},
			},
		},
		{
			Name:                     "unmute",
			Description:              "Lift a member's timeout",
			DefaultMemberPermissions: &permModerate,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to unmute", Required: true},
			},
		},
		{
			Name:                     "vaza",
			Description:              "Ban a member from the server",
			DefaultMemberPermissions: &permBan,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to ban", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the ban"},
			},
		},
		{
			Name:                     "kick",
			Description:              "Kick a member from the server",
			DefaultMemberPermissions: &permKick,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to kick", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the kick"},
			},
		},
		{
			Name:                     "unban",
			Description:              "Remove a user's ban",
			DefaultMemberPermissions: &permBan,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "userid", Description: "ID of the banned user", Required: true},
			},
		},
		{
			Name:        "marry",
			Description: "Propose to someone, or view your marriage",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to propose to"},
			},
		},
		{
			Name:        "resetmarry",
			Description: "Force-dissolve a member's marriage",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member whose marriage to dissolve", Required: true},
			},
		},
		{
			Name:                     "setup",
			Description:              "Configure the bot for this server",
			DefaultMemberPermissions: &permManage,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "clear", Description: "Enable or disable the quick clear trigger",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Whether the trigger is active", Required: true},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "trigger", Description: "Change the quick clear trigger text",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "New trigger text", Required: true},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "clearrole", Description: "Allow or forbid a role to use quick clear",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to change", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "Add or remove", Required: true, Choices: addRemoveChoices()},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "clearuser", Description: "Allow or forbid a user to use quick clear",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to change", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "Add or remove", Required: true, Choices: addRemoveChoices()},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "logchannel", Description: "Route a log category to a channel",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Log category", Required: true, Choices: logCategoryChoices()},
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Destination channel", Required: true},
					},
				},
			},
		},
	}
}

func addRemoveChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "add", Value: "add"},
		{Name: "remove", Value: "remove"},
	}
}

func logCategoryChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "messages", Value: "messages"},
		{Name: "members", Value: "members"},
		{Name: "server", Value: "server"},
	}
}

func (h *Handler) handleMute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target := opts["user"].UserValue(s)
	rawDuration := opts["duration"].StringValue()
	reason := "No reason provided"
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	duration, err := timeutil.ParseDuration(rawDuration)
	if err != nil {
		respondError(s, i, fmt.Sprintf("Invalid duration `%s`. Use a number followed by s, m, h or d, e.g. `10m`.", rawDuration))
		return
	}
	if err := h.services.Mutes.CheckDuration(duration); err != nil {
		respondError(s, i, fmt.Sprintf("Duration must be between %s and %s.",
			timeutil.FormatDuration(h.cfg.Moderation.MinMuteDuration()),
			timeutil.FormatDuration(h.cfg.Moderation.MaxMuteDuration())))
		return
	}

	h.ensureUser(target)
	moderator := interactionUser(i)

	mute, err := h.services.Mutes.CreateMute(target.ID, i.GuildID, duration, reason, moderator.ID)
	if errors.Is(err, service.ErrMuteActive) {
		respondError(s, i, fmt.Sprintf("%s is already muted.", mention(target.ID)))
		return
	}
	if err != nil {
		logger.Errorf("Failed to record mute for %s: %v", target.ID, err)
		respondError(s, i, "Could not record the mute.")
		return
	}

	if err := s.GuildMemberTimeout(i.GuildID, target.ID, mute.ExpiresAt); err != nil {
		logger.Errorf("Failed to timeout %s in guild %s: %v", target.ID, i.GuildID, err)
		// roll back so the slot is not held by a mute that never landed
		if _, rbErr := h.services.Mutes.RemoveMute(target.ID, i.GuildID); rbErr != nil {
			logger.Errorf("Failed to roll back mute %s: %v", mute.ID, rbErr)
		}
		respondError(s, i, "Could not timeout that member. Check my permissions and role position.")
		return
	}

	respondEmbed(s, i, successEmbed("Member Muted", fmt.Sprintf("%s was muted for **%s**.\n**Reason:** %s",
		mention(target.ID), timeutil.FormatDuration(duration), reason)), false)
}

func (h *Handler) handleUnmute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target := opts["user"].UserValue(s)

	lifted, err := h.services.Mutes.RemoveMute(target.ID, i.GuildID)
	if err != nil {
		logger.Errorf("Failed to lift mute for %s: %v", target.ID, err)
		respondError(s, i, "Could not lift the mute.")
		return
	}
	if !lifted {
		respondError(s, i, fmt.Sprintf("%s is not muted.", mention(target.ID)))
		return
	}

	if err := s.GuildMemberTimeout(i.GuildID, target.ID, nil); err != nil {
		logger.Errorf("Failed to clear timeout for %s in guild %s: %v", target.ID, i.GuildID, err)
	}

	respondEmbed(s, i, successEmbed("Member Unmuted", fmt.Sprintf("%s can speak again.", mention(target.ID))), false)
}

func (h *Handler) handleBan(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target := opts["user"].UserValue(s)
	reason := "No reason provided"
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	if err := s.GuildBanCreateWithReason(i.GuildID, target.ID, reason, 0); err != nil {
		logger.Errorf("Failed to ban %s in guild %s: %v", target.ID, i.GuildID, err)
		respondError(s, i, "Could not ban that member.")
		return
	}

	respondEmbed(s, i, successEmbed("Member Banned", fmt.Sprintf("%s is gone.\n**Reason:** %s", userTag(target), reason)), false)
}

func (h *Handler) handleKick(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target := opts["user"].UserValue(s)
	reason := "No reason provided"
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	if err := s.GuildMemberDeleteWithReason(i.GuildID, target.ID, reason); err != nil {
		logger.Errorf("Failed to kick %s in guild %s: %v", target.ID, i.GuildID, err)
		respondError(s, i, "Could not kick that member.")
		return
	}

	respondEmbed(s, i, successEmbed("Member Kicked", fmt.Sprintf("%s was kicked.\n**Reason:** %s", userTag(target), reason)), false)
}

func (h *Handler) handleUnban(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	userID := strings.TrimSpace(opts["userid"].StringValue())

	if err := s.GuildBanDelete(i.GuildID, userID); err != nil {
		logger.Errorf("Failed to unban %s in guild %s: %v", userID, i.GuildID, err)
		respondError(s, i, "Could not unban that user. Is the ID correct?")
		return
	}

	respondEmbed(s, i, successEmbed("User Unbanned", fmt.Sprintf("%s may join again.", mention(userID))), false)
}

func (h *Handler) handleMarry(s *discordgo.Session, i *discordgo.InteractionCreate) {
	invoker := interactionUser(i)
	h.ensureUser(invoker)

	opts := optionMap(i.ApplicationCommandData().Options)
	opt, ok := opts["user"]
	if !ok {
		h.showMarriageStatus(s, i, invoker)
		return
	}

	target := opt.UserValue(s)
	h.ensureUser(target)

	proposal, err := h.services.Marriages.Propose(invoker.ID, target.ID, target.Bot)
	switch {
	case errors.Is(err, service.ErrSelfMarriage):
		respondError(s, i, "You cannot marry yourself.")
		return
	case errors.Is(err, service.ErrBotMarriage):
		respondError(s, i, "Bots do not marry.")
		return
	case errors.Is(err, service.ErrAlreadyMarried):
		respondError(s, i, "You are already married. Divorce first.")
		return
	case errors.Is(err, service.ErrPartnerMarried):
		respondError(s, i, fmt.Sprintf("%s is already married.", mention(target.ID)))
		return
	case err != nil:
		logger.Errorf("Failed to validate proposal %s -> %s: %v", invoker.ID, target.ID, err)
		respondError(s, i, "Could not process the proposal.")
		return
	}

	embed := baseEmbed("💍 Marriage Proposal",
		fmt.Sprintf("%s, %s wants to marry you!\nOnly you can answer.", mention(target.ID), mention(invoker.ID)))

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Accept",
						Style:    discordgo.SuccessButton,
						CustomID: acceptCustomID(proposal),
					},
					discordgo.Button{
						Label:    "Decline",
						Style:    discordgo.DangerButton,
						CustomID: declineCustomID(proposal),
					},
				}},
			},
		},
	})
	if err != nil {
		logger.Errorf("Failed to send proposal message: %v", err)
	}
}

func (h *Handler) showMarriageStatus(s *discordgo.Session, i *discordgo.InteractionCreate, invoker *discordgo.User) {
	marriage, err := h.services.Marriages.CurrentMarriage(invoker.ID)
	if err != nil {
		logger.Errorf("Failed to load marriage for %s: %v", invoker.ID, err)
		respondError(s, i, "Could not load your marriage.")
		return
	}

	history, err := h.services.Marriages.History(invoker.ID)
	if err != nil {
		logger.Errorf("Failed to load marriage history for %s: %v", invoker.ID, err)
	}

	if marriage == nil {
		description := "You are not married."
		if len(history) > 0 {
			description += fmt.Sprintf("\nPast marriages: **%d**", len(history))
		}
		respondEmbed(s, i, baseEmbed("💍 Marriage", description), true)
		return
	}

	partner := marriage.PartnerOf(invoker.ID)
	embed := baseEmbed("💍 Marriage",
		fmt.Sprintf("You are married to %s.\nTogether for **%s**.",
			mention(partner), timeutil.FormatElapsedSince(marriage.MarriedAt)))
	if len(history) > 1 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d marriages on record", len(history))}
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Divorce",
						Style:    discordgo.DangerButton,
						CustomID: divorceCustomID(marriage.ID),
					},
				}},
			},
		},
	})
	if err != nil {
		logger.Errorf("Failed to send marriage status: %v", err)
	}
}

func (h *Handler) handleResetMarry(s *discordgo.Session, i *discordgo.InteractionCreate) {
	invoker := interactionUser(i)
	if h.cfg.Bot.DevUserID == "" || invoker.ID != h.cfg.Bot.DevUserID {
		respondError(s, i, "This command is restricted to the bot developer.")
		return
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	target := opts["user"].UserValue(s)

	dissolved, err := h.services.Marriages.Divorce(target.ID)
	if err != nil {
		logger.Errorf("Failed to force-dissolve marriage of %s: %v", target.ID, err)
		respondError(s, i, "Could not dissolve the marriage.")
		return
	}
	if !dissolved {
		respondError(s, i, fmt.Sprintf("%s is not married.", mention(target.ID)))
		return
	}

	logger.Infof("Marriage of %s force-dissolved by %s", target.ID, invoker.ID)
	respondEmbed(s, i, successEmbed("Marriage Dissolved", fmt.Sprintf("The marriage of %s was dissolved.", mention(target.ID))), true)
}

func (h *Handler) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondError(s, i, "Missing subcommand.")
		return
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "clear":
		enabled := opts["enabled"].BoolValue()
		h.updateGuildConfig(s, i, fmt.Sprintf("Quick clear is now **%s**.", enabledWord(enabled)),
			func(cfg *models.GuildConfig) { cfg.ClearSystemEnabled = enabled })
	case "trigger":
		text := strings.TrimSpace(opts["text"].StringValue())
		if text == "" {
			respondError(s, i, "The trigger text cannot be empty.")
			return
		}
		h.updateGuildConfig(s, i, fmt.Sprintf("Quick clear trigger set to `%s`.", text),
			func(cfg *models.GuildConfig) { cfg.ClearTrigger = text })
	case "clearrole":
		role := opts["role"].RoleValue(s, i.GuildID)
		action := opts["action"].StringValue()
		h.updateGuildConfig(s, i, fmt.Sprintf("Role <@&%s> %s the quick clear list.", role.ID, actionWord(action)),
			func(cfg *models.GuildConfig) { cfg.ClearRoles = applyListAction(cfg.ClearRoles, role.ID, action) })
	case "clearuser":
		user := opts["user"].UserValue(s)
		action := opts["action"].StringValue()
		h.updateGuildConfig(s, i, fmt.Sprintf("User %s %s the quick clear list.", mention(user.ID), actionWord(action)),
			func(cfg *models.GuildConfig) { cfg.ClearUsers = applyListAction(cfg.ClearUsers, user.ID, action) })
	case "logchannel":
		category := opts["category"].StringValue()
		channel := opts["channel"].ChannelValue(s)
		h.updateGuildConfig(s, i, fmt.Sprintf("Logs for **%s** now go to <#%s>.", category, channel.ID),
			func(cfg *models.GuildConfig) {
				if cfg.LogChannels == nil {
					cfg.LogChannels = map[string]string{}
				}
				cfg.LogChannels[category] = channel.ID
			})
	default:
		respondError(s, i, "Unknown setup subcommand.")
	}
}

func (h *Handler) updateGuildConfig(s *discordgo.Session, i *discordgo.InteractionCreate, confirmation string, mutate func(*models.GuildConfig)) {
	if _, err := h.services.Configs.UpdateConfig(i.GuildID, mutate); err != nil {
		logger.Errorf("Failed to update config for guild %s: %v", i.GuildID, err)
		respondError(s, i, "Could not save the configuration.")
		return
	}
	respondEmbed(s, i, successEmbed("Configuration Updated", confirmation), true)
}

func (h *Handler) ensureUser(u *discordgo.User) {
	if u == nil {
		return
	}
	if err := h.services.Users.EnsureUser(u.ID, u.Username, u.Discriminator, u.Avatar); err != nil {
		logger.Warningf("Failed to upsert user %s: %v", u.ID, err)
	}
}

func applyListAction(list []string, id, action string) []string {
	if action == "remove" {
		out := list[:0]
		for _, v := range list {
			if v != id {
				out = append(out, v)
			}
		}
		return out
	}
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func actionWord(action string) string {
	if action == "remove" {
		return "left"
	}
	return "joined"
}
