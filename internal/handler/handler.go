package handler

import (
	"github.com/bwmarrin/discordgo"

	"github.com/lirobabyxoxo/CapitaoCP/internal/config"
	"github.com/lirobabyxoxo/CapitaoCP/internal/crash"
	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/service"
)

// Handler wires Discord gateway events to the service layer.
type Handler struct {
	cfg      *config.Config
	services *service.Services
}

// Initialize creates the event handler backed by the given services.
func Initialize(cfg *config.Config, services *service.Services) *Handler {
	return &Handler{cfg: cfg, services: services}
}

// Register attaches all gateway event handlers to the session.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.onInteractionCreate)
	s.AddHandler(h.onMessageCreate)
	s.AddHandler(h.onMessageDelete)
	s.AddHandler(h.onMessageUpdate)
	s.AddHandler(h.onGuildMemberAdd)
	s.AddHandler(h.onGuildMemberRemove)
}

func (h *Handler) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer crash.RecoverWithStack("interaction handler")

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.dispatchCommand(s, i)
	case discordgo.InteractionMessageComponent:
		h.dispatchComponent(s, i)
	}
}

func (h *Handler) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	logger.Debugf("Command /%s from %s in guild %s", data.Name, interactionUser(i).ID, i.GuildID)

	switch data.Name {
	case "mute":
		h.handleMute(s, i)
	case "unmute":
		h.handleUnmute(s, i)
	case "vaza":
		h.handleBan(s, i)
	case "kick":
		h.handleKick(s, i)
	case "unban":
		h.handleUnban(s, i)
	case "marry":
		h.handleMarry(s, i)
	case "resetmarry":
		h.handleResetMarry(s, i)
	case "setup":
		h.handleSetup(s, i)
	case "clear":
		h.handleClear(s, i)
	case "av":
		h.handleAvatar(s, i)
	case "userinfo":
		h.handleUserInfo(s, i)
	default:
		logger.Warningf("Unknown command: %s", data.Name)
	}
}
