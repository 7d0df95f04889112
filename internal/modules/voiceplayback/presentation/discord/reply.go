package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/resonantbot/resonant/internal/bot"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/usecases"
)

func buildComponents(buttons []ports.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	row := make([]discordgo.MessageComponent, len(buttons))
	for i, b := range buttons {
		btn := discordgo.Button{
			CustomID: b.CustomID,
			Label:    b.Label,
			Disabled: b.Disabled,
			Style:    discordgo.SecondaryButton,
		}
		if b.Emoji != "" {
			btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
		}
		row[i] = btn
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: row}}
}

func buildEmbed(e *ports.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
		Timestamp:   e.Timestamp,
	}
	if e.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	return embed
}

// responseData turns a Reply into an interaction response body,
// folding its ephemerality into the message flags.
func responseData(reply usecases.Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    reply.Content.Content,
		Components: buildComponents(reply.Content.Buttons),
	}
	if embed := buildEmbed(reply.Content.Embed); embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

// respond sends reply as the interaction's initial response.
func respond(r bot.Responder, reply usecases.Reply) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(reply),
	})
}

// respondErr classifies err (nil included, rendering a generic "done")
// and sends it as the interaction's response.
func respondErr(r bot.Responder, err error) error {
	return respond(r, usecases.Classify(err))
}
