package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/usecases"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// ComponentHandler dispatches button presses. Presses that don't
// belong to the now-playing control row are assumed to belong to a
// poll in progress and are forwarded there; the now-playing row acts
// immediately for anyone sharing the bot's voice channel, without a
// poll of its own, since a poll per button press would make the
// control row unusable.
type ComponentHandler struct {
	checks     *usecases.Checks
	playback   *usecases.PlaybackService
	polls      *PollComponentRouter
	gateway    ports.Gateway
	nowPlaying *usecases.NowPlayingProjector
}

func NewComponentHandler(checks *usecases.Checks, playback *usecases.PlaybackService, polls *PollComponentRouter, gateway ports.Gateway, nowPlaying *usecases.NowPlayingProjector) *ComponentHandler {
	return &ComponentHandler{checks: checks, playback: playback, polls: polls, gateway: gateway, nowPlaying: nowPlaying}
}

// Handle is registered as a module EventHandler; it only acts on
// MessageComponent interactions, leaving application commands to the
// bot's own routing.
func (h *ComponentHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in component interaction", "error", err, "guildID", i.GuildID)
		return
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		slog.Warn("failed to parse user ID in component interaction", "error", err, "userID", i.Member.User.ID)
		return
	}

	if !IsNowPlayingButton(customID) {
		h.polls.Forward(guildID, usecases.ComponentEvent{CustomID: customID, UserID: userID})
		h.ack(s, i)
		return
	}

	if err := h.inBotsChannel(guildID, userID); err != nil {
		h.ack(s, i)
		return
	}

	ctx := context.Background()
	var actionErr error
	switch customID {
	case usecases.NowPlayingShuffleID:
		kind, ok := h.playback.IndexerKind(guildID)
		if ok {
			next := domain.IndexerShuffled
			if kind == domain.IndexerShuffled {
				next = domain.IndexerStandard
			}
			actionErr = h.playback.SetIndexer(ctx, guildID, next)
		}
	case usecases.NowPlayingPreviousID:
		actionErr = h.playback.Seek(ctx, guildID, 0)
	case usecases.NowPlayingPlayPauseID:
		actionErr = h.togglePause(ctx, guildID)
	case usecases.NowPlayingNextID:
		actionErr = h.playback.Skip(ctx, guildID)
	case usecases.NowPlayingRepeatID:
		actionErr = h.cycleRepeat(ctx, guildID)
	}
	if actionErr != nil {
		slog.Warn("now-playing button action failed", "button", customID, "error", actionErr)
	} else if h.nowPlaying != nil {
		if err := h.nowPlaying.Refresh(ctx, guildID); err != nil {
			slog.Warn("failed to refresh now-playing message", "guild", guildID, "error", err)
		}
	}
	h.ack(s, i)
}

// inBotsChannel confirms userID shares the bot's voice channel.
func (h *ComponentHandler) inBotsChannel(guildID domain.GuildID, userID domain.UserID) error {
	ctx := context.Background()
	inVoice, err := h.checks.InVoiceOf(guildID)
	if err != nil {
		return err
	}
	perms, err := h.gateway.PermissionsIn(ctx, guildID, inVoice.Channel, userID)
	if err != nil {
		return domain.NewInfraError(domain.InfraCache, err)
	}
	_, err = h.checks.InVoiceWithUser(ctx, guildID, userID, perms, inVoice)
	return err
}

func (h *ComponentHandler) togglePause(ctx context.Context, guildID domain.GuildID) error {
	paused, _, ok := h.playback.PlaybackState(guildID)
	if !ok {
		return domain.ErrNotInVoice
	}
	if paused {
		return h.playback.Resume(ctx, guildID)
	}
	return h.playback.Pause(ctx, guildID)
}

// cycleRepeat steps off -> all -> track -> off, matching the order
// the now-playing row's repeat emoji is drawn in.
func (h *ComponentHandler) cycleRepeat(ctx context.Context, guildID domain.GuildID) error {
	_, mode, ok := h.playback.PlaybackState(guildID)
	if !ok {
		return domain.ErrNotInVoice
	}
	next := domain.RepeatOff
	switch mode {
	case domain.RepeatOff:
		next = domain.RepeatAll
	case domain.RepeatAll:
		next = domain.RepeatTrack
	case domain.RepeatTrack:
		next = domain.RepeatOff
	}
	return h.playback.SetRepeat(ctx, guildID, next)
}

// ack acknowledges the component interaction without issuing a
// visible reply; the now-playing message itself is refreshed by the
// projector once the action lands.
func (h *ComponentHandler) ack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}
