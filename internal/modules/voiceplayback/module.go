// Package voiceplayback wires the per-guild connection/player state
// machine, the pluggable-indexer queue engine, and the democratic
// poll protocol into a bot.Module: a self-contained music-playback
// core built on disgolink for audio and discordgo for the gateway.
package voiceplayback

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/sync/errgroup"

	"github.com/resonantbot/resonant/internal/bot"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/usecases"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/infrastructure"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/presentation/discord"
)

func init() {
	bot.Register(&Module{})
}

var _ bot.ConfigurableModule = (*Module)(nil)

// Module provides the join/leave/play/queue/poll command surface.
type Module struct {
	config *Config

	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	components      *discord.ComponentHandler

	audio      *infrastructure.LavalinkService
	actor      *usecases.ConnectionActor
	players    *usecases.PlayerStore
	playback   *usecases.PlaybackService
	nowPlaying *usecases.NowPlayingProjector
	inactivity *usecases.InactivityScheduler
	voiceState *usecases.VoiceStateHandler
	botID      domain.UserID

	stopActor context.CancelFunc
}

func (m *Module) Name() string { return "voiceplayback" }

func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":                 m.commandHandlers.HandleJoin,
		"leave":                m.commandHandlers.HandleLeave,
		"play":                 m.commandHandlers.HandlePlay,
		"stop":                 m.commandHandlers.HandleStop,
		"pause":                m.commandHandlers.HandlePause,
		"resume":               m.commandHandlers.HandleResume,
		"skip":                 m.commandHandlers.HandleSkip,
		"seek":                 m.commandHandlers.HandleSeek,
		"pitch":                m.commandHandlers.HandlePitch,
		"repeat":               m.commandHandlers.HandleRepeat,
		"shuffle":              m.commandHandlers.HandleShuffle,
		"queue":                m.commandHandlers.HandleQueue,
		"voiceplayback-config": m.commandHandlers.HandleConfig,
	}
}

func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

func (m *Module) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

func (m *Module) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return m.initWithoutSession()
	}
	return m.initWithSession(deps)
}

// initWithoutSession wires a degenerate instance with no audio
// backend or live session, so the module still loads (e.g. under
// test) without a running bot.Session.
func (m *Module) initWithoutSession() error {
	m.actor = usecases.NewConnectionActor()
	m.startActor()
	m.players = usecases.NewPlayerStore()
	access := infrastructure.NewMemoryAccessStore()

	m.playback = usecases.NewPlaybackService(m.actor, m.players, nil, nil, nil)
	checks := usecases.NewChecks(nil, access, m.actor, 0)
	polls := discord.NewPollComponentRouter()

	m.commandHandlers = discord.NewCommandHandlers(checks, m.playback, m.actor, nil, polls, nil, nil, access, nil)
	m.autocomplete = discord.NewAutocompleteHandler(m.playback, nil)
	m.components = discord.NewComponentHandler(checks, m.playback, polls, nil, nil)
	return nil
}

func (m *Module) initWithSession(deps bot.ModuleDependencies) error {
	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return err
	}
	m.botID = domain.UserID(botID)

	m.actor = usecases.NewConnectionActor()
	m.startActor()
	m.players = usecases.NewPlayerStore()

	gateway := infrastructure.NewDiscordGateway(deps.Session)
	notifier := infrastructure.NewDiscordNotifier(deps.Session)
	access := infrastructure.NewMemoryAccessStore()

	listener := &audioEventBridge{}

	audioService, err := infrastructure.NewLavalinkService(context.Background(), m.botID, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
	}, listener)
	if err != nil {
		return err
	}
	m.audio = audioService

	m.playback = usecases.NewPlaybackService(m.actor, m.players, audioService, gateway, nil)
	listener.playback = m.playback

	m.nowPlaying = usecases.NewNowPlayingProjector(m.players, notifier, access)
	listener.nowPlaying = m.nowPlaying

	checks := usecases.NewChecks(gateway, access, m.actor, m.botID)
	pollRunner := usecases.NewPollRunner(m.actor, notifier, gateway, nil)
	polls := discord.NewPollComponentRouter()

	m.inactivity = usecases.NewInactivityScheduler(m.actor, m.playback, gateway, notifier, func(guildID domain.GuildID, _ domain.ChannelID) {
		slog.Info("left voice channel after inactivity timeout", "guild", guildID)
	})
	m.voiceState = usecases.NewVoiceStateHandler(m.actor, m.players, m.playback, gateway, notifier, m.nowPlaying, m.inactivity, m.botID)

	m.commandHandlers = discord.NewCommandHandlers(checks, m.playback, m.actor, pollRunner, polls, audioService, gateway, access, m.nowPlaying)
	m.autocomplete = discord.NewAutocompleteHandler(m.playback, audioService)
	m.components = discord.NewComponentHandler(checks, m.playback, polls, gateway, m.nowPlaying)

	slog.Info("voiceplayback module initialized with lavalink")
	return nil
}

// startActor launches the connection actor's serving loop in its own
// goroutine; it runs for the lifetime of the module and is stopped
// from Shutdown.
func (m *Module) startActor() {
	ctx, cancel := context.WithCancel(context.Background())
	m.stopActor = cancel
	go m.actor.Run(ctx)
}

// Shutdown tears down the audio link, any pending inactivity timers,
// and the connection actor's goroutine concurrently; none depends on
// another.
func (m *Module) Shutdown() error {
	g := new(errgroup.Group)
	if m.audio != nil {
		g.Go(func() error {
			m.audio.Close()
			return nil
		})
	}
	if m.inactivity != nil {
		g.Go(func() error {
			m.inactivity.CancelAll()
			return nil
		})
	}
	if m.stopActor != nil {
		g.Go(func() error {
			m.stopActor()
			return nil
		})
	}
	return g.Wait()
}

// audioEventBridge adapts the audio service's inbound event stream to
// the application layer's own reactions: advancing the queue on
// track-end, and refreshing the now-playing message on track-start.
// It exists because PlaybackService/NowPlayingProjector predate the
// audio service and don't implement ports.AudioEventListener
// themselves.
type audioEventBridge struct {
	playback   *usecases.PlaybackService
	nowPlaying *usecases.NowPlayingProjector
}

func (b *audioEventBridge) HandleAudioEvent(ctx context.Context, event ports.AudioEvent) {
	switch event.Kind {
	case ports.AudioEventTrackEnd:
		if !event.ShouldAdvance {
			return
		}
		fallthrough
	case ports.AudioEventTrackException, ports.AudioEventTrackStuck:
		if err := b.playback.HandleTrackEnd(ctx, event.GuildID); err != nil {
			slog.Warn("failed to advance queue on track end", "guild", event.GuildID, "error", err)
			return
		}
		fallthrough
	case ports.AudioEventTrackStart:
		if b.nowPlaying == nil {
			return
		}
		if err := b.nowPlaying.OnTrackStart(ctx, event.GuildID); err != nil {
			slog.Warn("failed to refresh now-playing message", "guild", event.GuildID, "error", err)
		}
	}
}

func (m *Module) handleVoiceServerUpdate(_ *discordgo.Session, event *discordgo.VoiceServerUpdate) {
	if m.audio == nil {
		return
	}
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		return
	}
	if err := m.audio.OnVoiceServerUpdate(context.Background(), guildID, event.Endpoint, event.Token); err != nil {
		slog.Warn("failed to forward voice server update", "guild", guildID, "error", err)
	}
}

func (m *Module) handleVoiceStateUpdate(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		return
	}
	userID, err := snowflake.Parse(event.UserID)
	if err != nil {
		return
	}

	var newChannel domain.ChannelID
	if event.ChannelID != "" {
		if id, perr := snowflake.Parse(event.ChannelID); perr == nil {
			newChannel = id
		}
	}

	if m.audio != nil && userID == m.botID {
		var chPtr *domain.ChannelID
		if newChannel != 0 {
			chPtr = &newChannel
		}
		if err := m.audio.OnVoiceStateUpdate(context.Background(), guildID, chPtr, event.SessionID); err != nil {
			slog.Warn("failed to forward voice state update", "guild", guildID, "error", err)
		}
	}

	if m.voiceState == nil {
		return
	}

	var oldChannel domain.ChannelID
	if event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != "" {
		if id, perr := snowflake.Parse(event.BeforeUpdate.ChannelID); perr == nil {
			oldChannel = id
		}
	}

	isStage := false
	if newChannel != 0 {
		if ch, cerr := s.State.Channel(event.ChannelID); cerr == nil {
			isStage = ch.Type == discordgo.ChannelTypeGuildStageVoice
		}
	}

	change := usecases.VoiceStateChange{
		GuildID:    guildID,
		UserID:     userID,
		IsBot:      userID == m.botID,
		OldChannel: oldChannel,
		NewChannel: newChannel,
		IsStage:    isStage,
	}
	if err := m.voiceState.Handle(context.Background(), change); err != nil {
		slog.Warn("failed to handle voice state update", "guild", guildID, "error", err)
	}
}

func (m *Module) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if m.components != nil {
		m.components.Handle(s, i)
	}

	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}
	data := i.ApplicationCommandData()
	switch data.Name {
	case "play":
		m.autocomplete.HandlePlay(s, i)
	case "queue":
		if len(data.Options) == 0 {
			return
		}
		switch data.Options[0].Name {
		case "remove":
			m.autocomplete.HandleQueueRemove(s, i)
		case "drain":
			m.autocomplete.HandleQueueDrain(s, i)
		}
	}
}
