package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/service"
)

// Component custom IDs carry the proposal state so nothing has to be
// persisted while a proposal waits for an answer.
const (
	acceptPrefix  = "marry_accept_"
	declinePrefix = "marry_decline_"
	divorcePrefix = "divorce_"
)

func acceptCustomID(p service.Proposal) string {
	return acceptPrefix + p.ProposerID + "_" + p.TargetID
}

func declineCustomID(p service.Proposal) string {
	return declinePrefix + p.ProposerID + "_" + p.TargetID
}

func divorceCustomID(marriageID string) string {
	return divorcePrefix + marriageID
}

func parseProposal(customID, prefix string) (service.Proposal, bool) {
	parts := strings.Split(strings.TrimPrefix(customID, prefix), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return service.Proposal{}, false
	}
	return service.Proposal{ProposerID: parts[0], TargetID: parts[1]}, true
}

func (h *Handler) dispatchComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	logger.Debugf("Component %s pressed by %s", customID, interactionUser(i).ID)

	switch {
	case strings.HasPrefix(customID, acceptPrefix):
		if p, ok := parseProposal(customID, acceptPrefix); ok {
			h.handleAccept(s, i, p)
		}
	case strings.HasPrefix(customID, declinePrefix):
		if p, ok := parseProposal(customID, declinePrefix); ok {
			h.handleDecline(s, i, p)
		}
	case strings.HasPrefix(customID, divorcePrefix):
		h.handleDivorce(s, i)
	default:
		logger.Warningf("Unknown component custom id: %s", customID)
	}
}

func (h *Handler) handleAccept(s *discordgo.Session, i *discordgo.InteractionCreate, p service.Proposal) {
	presser := interactionUser(i)
	if presser.ID != p.TargetID {
		respondError(s, i, "Only the person being proposed to can answer.")
		return
	}

	marriage, err := h.services.Marriages.Accept(p)
	if errors.Is(err, service.ErrAlreadyMarried) {
		updateComponentMessage(s, i, errorEmbed("One of you married someone else in the meantime. The proposal is void."))
		return
	}
	if err != nil {
		logger.Errorf("Failed to accept proposal %s -> %s: %v", p.ProposerID, p.TargetID, err)
		updateComponentMessage(s, i, errorEmbed("Could not complete the marriage."))
		return
	}

	logger.Infof("Marriage %s created between %s and %s", marriage.ID, p.ProposerID, p.TargetID)
	updateComponentMessage(s, i, baseEmbed("💒 Just Married",
		fmt.Sprintf("%s and %s are now married! 🎉", mention(p.ProposerID), mention(p.TargetID))))
}

func (h *Handler) handleDecline(s *discordgo.Session, i *discordgo.InteractionCreate, p service.Proposal) {
	presser := interactionUser(i)
	if presser.ID != p.TargetID {
		respondError(s, i, "Only the person being proposed to can answer.")
		return
	}

	h.services.Marriages.Decline(p)
	updateComponentMessage(s, i, baseEmbed("💔 Proposal Declined",
		fmt.Sprintf("%s declined the proposal from %s.", mention(p.TargetID), mention(p.ProposerID))))
}

func (h *Handler) handleDivorce(s *discordgo.Session, i *discordgo.InteractionCreate) {
	presser := interactionUser(i)

	marriage, err := h.services.Marriages.CurrentMarriage(presser.ID)
	if err != nil {
		logger.Errorf("Failed to load marriage for %s: %v", presser.ID, err)
		updateComponentMessage(s, i, errorEmbed("Could not load your marriage."))
		return
	}
	if marriage == nil {
		updateComponentMessage(s, i, errorEmbed("You are not married."))
		return
	}

	dissolved, err := h.services.Marriages.Divorce(presser.ID)
	if err != nil {
		logger.Errorf("Failed to divorce %s: %v", presser.ID, err)
		updateComponentMessage(s, i, errorEmbed("Could not complete the divorce."))
		return
	}
	if !dissolved {
		updateComponentMessage(s, i, errorEmbed("You are not married."))
		return
	}

	partner := marriage.PartnerOf(presser.ID)
	updateComponentMessage(s, i, baseEmbed("💔 Divorced",
		fmt.Sprintf("%s and %s are no longer married.", mention(presser.ID), mention(partner))))
}
