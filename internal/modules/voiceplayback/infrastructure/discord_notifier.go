package infrastructure

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

var _ ports.Notifier = (*DiscordNotifier)(nil)

// DiscordNotifier sends and edits chat messages for the now-playing
// display and poll prompts over the REST surface.
type DiscordNotifier struct {
	session *discordgo.Session
}

func NewDiscordNotifier(session *discordgo.Session) *DiscordNotifier {
	return &DiscordNotifier{session: session}
}

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

func (n *DiscordNotifier) SendMessage(ctx context.Context, channelID domain.ChannelID, content ports.NotifyContent) (domain.MessageID, error) {
	send := &discordgo.MessageSend{
		Content:    content.Content,
		Components: buildComponents(content.Buttons),
	}
	if embed := buildEmbed(content.Embed); embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}

	msg, err := n.session.ChannelMessageSendComplex(snowflake.ID(channelID).String(), send, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("send message to channel %s: %w", channelID, err)
	}
	id, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return domain.MessageID(id), nil
}

func (n *DiscordNotifier) EditMessage(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, content ports.NotifyContent) error {
	edit := discordgo.NewMessageEdit(snowflake.ID(channelID).String(), snowflake.ID(messageID).String())
	edit.SetContent(content.Content)
	components := buildComponents(content.Buttons)
	edit.Components = &components
	if embed := buildEmbed(content.Embed); embed != nil {
		embeds := []*discordgo.MessageEmbed{embed}
		edit.Embeds = &embeds
	}

	_, err := n.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("edit message %s in channel %s: %w", messageID, channelID, err)
	}
	return nil
}

func (n *DiscordNotifier) DeleteMessage(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID) error {
	err := n.session.ChannelMessageDelete(snowflake.ID(channelID).String(), snowflake.ID(messageID).String(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete message %s in channel %s: %w", messageID, channelID, err)
	}
	return nil
}
