package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/usecases"
)

// AutocompleteHandler serves Discord's live suggestion list for
// commands whose options depend on queue or search-provider state.
type AutocompleteHandler struct {
	playback *usecases.PlaybackService
	audio    ports.AudioService
}

func NewAutocompleteHandler(playback *usecases.PlaybackService, audio ports.AudioService) *AutocompleteHandler {
	return &AutocompleteHandler{playback: playback, audio: audio}
}

// HandlePlay previews the in-progress query option against the audio
// service's search provider.
func (h *AutocompleteHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
		}
	}
	if len(query) < 2 {
		h.respondChoices(s, i, nil)
		return
	}

	result, err := h.audio.LoadTracks(context.Background(), query)
	if err != nil {
		h.respondChoices(s, i, nil)
		return
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	switch result.Kind {
	case ports.LoadResultTrack:
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("🎵 %s - %s", result.Track.Title, result.Track.Author), 100),
			Value: result.Track.EncodedTrack,
		})
	case ports.LoadResultPlaylist:
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("📋 %s (%d tracks)", result.PlaylistName, len(result.Tracks)), 100),
			Value: query,
		})
	case ports.LoadResultSearch:
		for _, t := range result.Tracks {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  truncate(fmt.Sprintf("🎵 %s - %s", t.Title, t.Author), 100),
				Value: t.EncodedTrack,
			})
			if len(choices) >= 10 {
				break
			}
		}
	}
	h.respondChoices(s, i, choices)
}

// HandleQueueRemove and HandleQueueDrain both suggest 1-based raw
// queue positions, the same addressing Dequeue/Drain use.
func (h *AutocompleteHandler) HandleQueueRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.handleQueuePositionAutocomplete(s, i)
}

func (h *AutocompleteHandler) HandleQueueDrain(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.handleQueuePositionAutocomplete(s, i)
}

func (h *AutocompleteHandler) handleQueuePositionAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		h.respondChoices(s, i, nil)
		return
	}

	items, position, ok := h.playback.QueueList(guildID)
	if !ok || len(items) == 0 {
		h.respondChoices(s, i, nil)
		return
	}

	limit := len(items)
	if limit > 25 {
		limit = 25
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, limit)
	for idx := 0; idx < limit; idx++ {
		marker := ""
		if idx+1 == position {
			marker = "▶️ "
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%s%d. %s", marker, idx+1, items[idx].Track.Title), 100),
			Value: idx + 1,
		})
	}
	h.respondChoices(s, i, choices)
}

func (h *AutocompleteHandler) respondChoices(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
