package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/resonantbot/resonant/internal/bot"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/usecases"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/infrastructure"
)

// CommandHandlers implements every slash command this module
// registers, wiring Checks/PlaybackService/PollRunner together behind
// the democratic poll-gated flow of §4.6/§4.7.
type CommandHandlers struct {
	checks     *usecases.Checks
	playback   *usecases.PlaybackService
	actor      *usecases.ConnectionActor
	pollRunner *usecases.PollRunner
	polls      *PollComponentRouter
	audio      ports.AudioService
	gateway    ports.Gateway
	access     *infrastructure.MemoryAccessStore
	nowPlaying *usecases.NowPlayingProjector
}

func NewCommandHandlers(
	checks *usecases.Checks,
	playback *usecases.PlaybackService,
	actor *usecases.ConnectionActor,
	pollRunner *usecases.PollRunner,
	polls *PollComponentRouter,
	audio ports.AudioService,
	gateway ports.Gateway,
	access *infrastructure.MemoryAccessStore,
	nowPlaying *usecases.NowPlayingProjector,
) *CommandHandlers {
	return &CommandHandlers{
		checks:     checks,
		playback:   playback,
		actor:      actor,
		pollRunner: pollRunner,
		polls:      polls,
		audio:      audio,
		gateway:    gateway,
		access:     access,
		nowPlaying: nowPlaying,
	}
}

// refreshNowPlaying re-renders the now-playing message after a
// state-changing command lands; it is non-fatal and a no-op when no
// projector is wired (e.g. the sessionless test wiring).
func (h *CommandHandlers) refreshNowPlaying(ctx context.Context, guildID domain.GuildID) {
	if h.nowPlaying == nil {
		return
	}
	if err := h.nowPlaying.Refresh(ctx, guildID); err != nil {
		slog.Warn("failed to refresh now-playing message", "guild", guildID, "error", err)
	}
}

// parseActor extracts the IDs and access-control context an
// interaction carries: the guild, the invoking channel and user, the
// user's roles, and the channel's parent (for category-level access
// grants).
func (h *CommandHandlers) parseActor(s *discordgo.Session, i *discordgo.InteractionCreate) (guildID domain.GuildID, channelID domain.ChannelID, userID domain.UserID, roleIDs []domain.UserID, parentIDs []domain.ChannelID, err error) {
	guildID, err = snowflake.Parse(i.GuildID)
	if err != nil {
		return
	}
	channelID, err = snowflake.Parse(i.ChannelID)
	if err != nil {
		return
	}
	userID, err = snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return
	}

	roleIDs = make([]domain.UserID, 0, len(i.Member.Roles))
	for _, raw := range i.Member.Roles {
		if rid, perr := snowflake.Parse(raw); perr == nil {
			roleIDs = append(roleIDs, rid)
		}
	}

	if ch, cerr := s.State.Channel(i.ChannelID); cerr == nil && ch.ParentID != "" {
		if pid, perr := snowflake.Parse(ch.ParentID); perr == nil {
			parentIDs = append(parentIDs, pid)
		}
	}
	return
}

// playbackTopic builds the poll topic playback-state commands share;
// they all void if the bot disconnects mid-vote.
func playbackTopic(description string) domain.Topic {
	return domain.Topic{Description: description, Voids: []string{usecases.VoidCauseDisconnect}}
}

// guarded runs the shared pipeline every playback-state command
// follows: parse the actor, confirm command standing, then gate
// action behind the democratic check (§4.7).
func (h *CommandHandlers) guarded(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder, topic domain.Topic, action func(ctx context.Context, guildID domain.GuildID) error) error {
	ctx := context.Background()
	guildID, channelID, userID, roleIDs, parentIDs, err := h.parseActor(s, i)
	if err != nil {
		return respondErr(r, err)
	}
	if err := h.checks.UserAllowedIn(ctx, guildID, userID, roleIDs, channelID, parentIDs); err != nil {
		return respondErr(r, err)
	}
	err = h.democratic(ctx, guildID, channelID, userID, topic, func() error {
		return action(ctx, guildID)
	})
	if err == nil {
		h.refreshNowPlaying(ctx, guildID)
	}
	return respondErr(r, err)
}

// democratic runs action directly if userID may act unilaterally, or
// gates it behind a poll otherwise, translating the poll outcome back
// into the same error taxonomy a direct check failure would produce.
func (h *CommandHandlers) democratic(ctx context.Context, guildID domain.GuildID, textChannel domain.ChannelID, userID domain.UserID, topic domain.Topic, action func() error) error {
	inVoice, err := h.checks.InVoiceOf(guildID)
	if err != nil {
		return err
	}
	perms, err := h.gateway.PermissionsIn(ctx, guildID, inVoice.Channel, userID)
	if err != nil {
		return domain.NewInfraError(domain.InfraCache, err)
	}
	state, err := h.checks.InVoiceWithUser(ctx, guildID, userID, perms, inVoice)
	if err != nil {
		return err
	}
	if err := h.checks.Only(ctx, guildID, userID, state); err == nil {
		return action()
	}

	components := h.polls.Open(guildID)
	defer h.polls.Close(guildID)

	starter := usecases.NewPollStarter(h.actor, h.pollRunner, guildID)
	outcome, err := starter.AndThenStart(ctx, textChannel, inVoice.Channel, userID, state.UserIsDJ, topic, components, h.djPresser(guildID, inVoice.Channel), domain.InVoiceWithSomeoneElse{Channel: inVoice.Channel})
	if err != nil {
		return err
	}
	if outcome.Resolution.Won() {
		return action()
	}
	if outcome.Resolution == domain.ResolutionTimedOut || outcome.Resolution == domain.ResolutionVoided {
		return domain.PollVoided{Cause: outcome.Resolution.String()}
	}
	source := domain.PollLossUnanimous
	if outcome.Resolution == domain.ResolutionSupersededLossViaDJ {
		source = domain.PollLossSupersededByDJ
	}
	return domain.PollLoss{Source: source, Kind: outcome.Resolution.String()}
}

func (h *CommandHandlers) djPresser(guildID domain.GuildID, channel domain.ChannelID) func(domain.UserID) bool {
	return func(userID domain.UserID) bool {
		perms, err := h.gateway.PermissionsIn(context.Background(), guildID, channel, userID)
		if err != nil {
			return false
		}
		return usecases.DJ(perms)
	}
}

// HandleJoin joins the invoking user's voice channel, or the channel
// option if one was given.
func (h *CommandHandlers) HandleJoin(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	ctx := context.Background()
	guildID, channelID, userID, roleIDs, parentIDs, err := h.parseActor(s, i)
	if err != nil {
		return respondErr(r, err)
	}
	if err := h.checks.UserAllowedIn(ctx, guildID, userID, roleIDs, channelID, parentIDs); err != nil {
		return respondErr(r, err)
	}

	voiceChannel, err := h.resolveJoinTarget(ctx, s, i, guildID, userID)
	if err != nil {
		return respondErr(r, err)
	}
	if err := h.playback.Join(ctx, guildID, voiceChannel, channelID); err != nil {
		return respondErr(r, err)
	}
	return respond(r, usecases.Render(usecases.ReplyOut, "joined"))
}

func (h *CommandHandlers) resolveJoinTarget(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID domain.UserID) (domain.ChannelID, error) {
	opts := i.ApplicationCommandData().Options
	if len(opts) > 0 && opts[0].Name == "channel" {
		return snowflake.Parse(opts[0].ChannelValue(s).ID)
	}
	state, ok, err := h.gateway.VoiceStateOf(ctx, guildID, userID)
	if err != nil {
		return 0, domain.NewInfraError(domain.InfraCache, err)
	}
	if !ok || state.ChannelID == 0 {
		return 0, domain.ErrUserNotInVoice
	}
	return state.ChannelID, nil
}

// HandleLeave disconnects the bot, gated behind a poll if other
// listeners are present.
func (h *CommandHandlers) HandleLeave(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	return h.guarded(s, i, r, playbackTopic("Disconnect the bot?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.Leave(ctx, guildID)
	})
}

// HandlePlay resolves the query option against the audio service and
// enqueues whatever it returns. Playing is never gated by a poll — it
// only ever adds to the queue, it doesn't override anyone else's
// choice.
func (h *CommandHandlers) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	ctx := context.Background()
	guildID, channelID, userID, roleIDs, parentIDs, err := h.parseActor(s, i)
	if err != nil {
		return respondErr(r, err)
	}
	if err := h.checks.UserAllowedIn(ctx, guildID, userID, roleIDs, channelID, parentIDs); err != nil {
		return respondErr(r, err)
	}
	if _, err := h.checks.InVoiceOf(guildID); err != nil {
		return respondErr(r, err)
	}

	query := i.ApplicationCommandData().Options[0].StringValue()
	result, err := h.audio.LoadTracks(ctx, query)
	if err != nil {
		return respondErr(r, domain.NewInfraError(domain.InfraAudioService, err))
	}

	tracks, msg, err := tracksFromLoadResult(result)
	if err != nil {
		return respondErr(r, err)
	}

	now := time.Now()
	items := make([]domain.QueueItem, len(tracks))
	for idx, t := range tracks {
		items[idx] = domain.NewQueueItem(t, userID, now)
	}

	if err := h.playback.Enqueue(ctx, guildID, channelID, items); err != nil {
		return respondErr(r, err)
	}
	h.refreshNowPlaying(ctx, guildID)
	return respond(r, usecases.Render(usecases.ReplyOut, msg))
}

// tracksFromLoadResult picks what to enqueue out of a LoadResult: the
// single track, every track of a playlist, or the top hit of a
// search (this core has no interactive track-picker).
func tracksFromLoadResult(result ports.LoadResult) ([]domain.Track, string, error) {
	switch result.Kind {
	case ports.LoadResultTrack:
		return []domain.Track{result.Track}, fmt.Sprintf("queued **%s**", result.Track.Title), nil
	case ports.LoadResultPlaylist:
		if len(result.Tracks) == 0 {
			return nil, "", domain.ErrQueueEmpty
		}
		return result.Tracks, fmt.Sprintf("queued %d tracks from **%s**", len(result.Tracks), result.PlaylistName), nil
	case ports.LoadResultSearch:
		if len(result.Tracks) == 0 {
			return nil, "", domain.ErrQueueEmpty
		}
		top := result.Tracks[0]
		return []domain.Track{top}, fmt.Sprintf("queued **%s**", top.Title), nil
	case ports.LoadResultError:
		return nil, "", domain.NewInfraError(domain.InfraAudioService, result.Err)
	default:
		return nil, "", domain.ErrQueueEmpty
	}
}

// HandleStop stops playback and clears the queue.
func (h *CommandHandlers) HandleStop(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	return h.guarded(s, i, r, playbackTopic("Stop playback and clear the queue?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.Stop(ctx, guildID)
	})
}

// HandlePause pauses the current track.
func (h *CommandHandlers) HandlePause(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	return h.guarded(s, i, r, playbackTopic("Pause playback?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.Pause(ctx, guildID)
	})
}

// HandleResume resumes the current track.
func (h *CommandHandlers) HandleResume(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	return h.guarded(s, i, r, playbackTopic("Resume playback?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.Resume(ctx, guildID)
	})
}

// HandleSkip skips the current track.
func (h *CommandHandlers) HandleSkip(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	return h.guarded(s, i, r, playbackTopic("Skip the current track?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.Skip(ctx, guildID)
	})
}

// HandleSeek seeks the current track's virtual playhead.
func (h *CommandHandlers) HandleSeek(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	seconds := i.ApplicationCommandData().Options[0].IntValue()
	position := time.Duration(seconds) * time.Second
	return h.guarded(s, i, r, playbackTopic("Seek the current track?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.Seek(ctx, guildID, position)
	})
}

// HandlePitch shifts the current track's pitch.
func (h *CommandHandlers) HandlePitch(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	semitones := int(i.ApplicationCommandData().Options[0].IntValue())
	return h.guarded(s, i, r, playbackTopic("Change the track's pitch?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.SetPitch(ctx, guildID, semitones)
	})
}

// HandleRepeat changes the queue's repeat mode.
func (h *CommandHandlers) HandleRepeat(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	raw := i.ApplicationCommandData().Options[0].StringValue()
	mode, err := domain.ParseRepeatMode(raw)
	if err != nil {
		return respondErr(r, err)
	}
	return h.guarded(s, i, r, playbackTopic("Change the repeat mode?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.SetRepeat(ctx, guildID, mode)
	})
}

// HandleShuffle toggles the queue between shuffled and standard
// traversal.
func (h *CommandHandlers) HandleShuffle(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	return h.guarded(s, i, r, playbackTopic("Toggle shuffled queue traversal?"), func(ctx context.Context, guildID domain.GuildID) error {
		kind, ok := h.playback.IndexerKind(guildID)
		if !ok {
			return domain.ErrNotInVoice
		}
		next := domain.IndexerShuffled
		if kind == domain.IndexerShuffled {
			next = domain.IndexerStandard
		}
		return h.playback.SetIndexer(ctx, guildID, next)
	})
}

// HandleQueue dispatches to the queue subcommands.
func (h *CommandHandlers) HandleQueue(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return respondErr(r, fmt.Errorf("missing queue subcommand"))
	}
	sub := data.Options[0]
	switch sub.Name {
	case "list":
		return h.handleQueueList(s, i, r, sub)
	case "remove":
		return h.handleQueueRemove(s, i, r, sub)
	case "drain":
		return h.handleQueueDrain(s, i, r, sub)
	case "clear":
		return h.handleQueueClear(s, i, r)
	default:
		return respondErr(r, fmt.Errorf("unrecognised queue subcommand %q", sub.Name))
	}
}

const queuePageSize = 10

func (h *CommandHandlers) handleQueueList(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	guildID, channelID, userID, roleIDs, parentIDs, err := h.parseActor(s, i)
	if err != nil {
		return respondErr(r, err)
	}
	if err := h.checks.UserAllowedIn(ctx, guildID, userID, roleIDs, channelID, parentIDs); err != nil {
		return respondErr(r, err)
	}

	items, position, ok := h.playback.QueueList(guildID)
	if !ok {
		return respondErr(r, domain.ErrNotInVoice)
	}
	if len(items) == 0 {
		return respond(r, usecases.Render(usecases.ReplyOut, "the queue is empty"))
	}

	page := 1
	for _, opt := range sub.Options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * queuePageSize
	if start >= len(items) {
		return respondErr(r, domain.ErrPositionOutOfRange)
	}
	end := start + queuePageSize
	if end > len(items) {
		end = len(items)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "page %d — track %d of %d playing\n", page, position, len(items))
	for idx := start; idx < end; idx++ {
		item := items[idx]
		marker := "  "
		if idx+1 == position {
			marker = "▶️"
		}
		fmt.Fprintf(&b, "%s %d. %s (%s)\n", marker, idx+1, item.Track.Title, item.Track.FormattedDuration())
	}
	return respond(r, usecases.Render(usecases.ReplyOut, b.String()))
}

func (h *CommandHandlers) handleQueueRemove(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	guildID, channelID, userID, roleIDs, parentIDs, err := h.parseActor(s, i)
	if err != nil {
		return respondErr(r, err)
	}
	if err := h.checks.UserAllowedIn(ctx, guildID, userID, roleIDs, channelID, parentIDs); err != nil {
		return respondErr(r, err)
	}

	position := int(sub.Options[0].IntValue())
	item, ok := h.playback.TrackAt(guildID, position)
	if !ok {
		return respondErr(r, domain.ErrPositionOutOfRange)
	}

	inVoice, err := h.checks.InVoiceOf(guildID)
	if err != nil {
		return respondErr(r, err)
	}
	perms, err := h.gateway.PermissionsIn(ctx, guildID, inVoice.Channel, userID)
	if err != nil {
		return respondErr(r, domain.NewInfraError(domain.InfraCache, err))
	}
	state, err := h.checks.InVoiceWithUser(ctx, guildID, userID, perms, inVoice)
	if err != nil {
		return respondErr(r, err)
	}
	if err := h.checks.TrackIsUsers(ctx, guildID, userID, item.Track, position, state, item.RequesterID); err != nil {
		return respondErr(r, err)
	}

	if _, ok := h.playback.Dequeue(guildID, []int{position}); !ok {
		return respondErr(r, domain.ErrNotInVoice)
	}
	h.refreshNowPlaying(ctx, guildID)
	return respond(r, usecases.Render(usecases.ReplyOut, fmt.Sprintf("removed **%s**", item.Track.Title)))
}

func (h *CommandHandlers) handleQueueDrain(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	start := int(sub.Options[0].IntValue())
	end := int(sub.Options[1].IntValue())
	return h.guarded(s, i, r, playbackTopic("Remove a range of tracks from the queue?"), func(ctx context.Context, guildID domain.GuildID) error {
		if _, ok := h.playback.Drain(guildID, start, end); !ok {
			return domain.ErrNotInVoice
		}
		return nil
	})
}

func (h *CommandHandlers) handleQueueClear(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	return h.guarded(s, i, r, playbackTopic("Clear the entire queue?"), func(ctx context.Context, guildID domain.GuildID) error {
		return h.playback.Stop(ctx, guildID)
	})
}

// HandleConfig implements the voiceplayback-config admin command's
// subcommands. Discord's own DefaultMemberPermissions gate already
// restricts this to administrators, so it doesn't consult the access
// oracle itself.
func (h *CommandHandlers) HandleConfig(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return respondErr(r, fmt.Errorf("missing config subcommand"))
	}
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondErr(r, err)
	}

	sub := data.Options[0]
	switch sub.Name {
	case "nowplaying":
		enabled := sub.Options[0].BoolValue()
		h.access.SetNowPlaying(guildID, enabled)
		return respond(r, usecases.Render(usecases.ReplyOut, "now-playing messages updated"))
	case "allow", "disallow":
		scope, id, err := h.configTarget(s, i.GuildID, sub)
		if err != nil {
			return respondErr(r, err)
		}
		ctx := context.Background()
		if sub.Name == "allow" {
			err = h.access.Allow(ctx, guildID, scope, id)
		} else {
			err = h.access.Disallow(ctx, guildID, scope, id)
		}
		if err != nil {
			return respondErr(r, err)
		}
		return respond(r, usecases.Render(usecases.ReplyOut, "access list updated"))
	default:
		return respondErr(r, fmt.Errorf("unrecognised config subcommand %q", sub.Name))
	}
}

func (h *CommandHandlers) configTarget(s *discordgo.Session, guildID string, sub *discordgo.ApplicationCommandInteractionDataOption) (ports.AccessScope, domain.UserID, error) {
	for _, opt := range sub.Options {
		switch opt.Name {
		case "user":
			id, err := snowflake.Parse(opt.UserValue(s).ID)
			return ports.AccessScopeUser, id, err
		case "role":
			id, err := snowflake.Parse(opt.RoleValue(s, guildID).ID)
			return ports.AccessScopeRole, id, err
		}
	}
	return 0, 0, fmt.Errorf("user or role option required")
}
