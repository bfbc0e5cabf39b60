package handler

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// All embeds share the bot's black accent color.
const embedColor = 0x000000

func baseEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       embedColor,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return baseEmbed("✅ "+title, description)
}

func errorEmbed(description string) *discordgo.MessageEmbed {
	return baseEmbed("❌ Error", description)
}

func logEmbed(title string, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	embed := baseEmbed(title, "")
	embed.Fields = fields
	return embed
}

func field(name, value string) *discordgo.MessageEmbedField {
	if value == "" {
		value = "—"
	}
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}
