package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// VoiceStateChange is a gateway-agnostic notification of one user's
// voice presence changing in a guild (§4.8).
type VoiceStateChange struct {
	GuildID    domain.GuildID
	UserID     domain.UserID
	IsBot      bool
	OldChannel domain.ChannelID // zero means was not in voice
	NewChannel domain.ChannelID // zero means now not in voice
	IsStage    bool
}

// VoiceStateHandler reacts to gateway voice-state updates for guilds
// the bot has a connection in, implementing the four steps of §4.8.
type VoiceStateHandler struct {
	actor      *ConnectionActor
	players    *PlayerStore
	playback   *PlaybackService
	gateway    ports.Gateway
	notifier   ports.Notifier
	nowPlaying *NowPlayingProjector
	inactivity *InactivityScheduler
	botID      domain.UserID
}

func NewVoiceStateHandler(
	actor *ConnectionActor,
	players *PlayerStore,
	playback *PlaybackService,
	gateway ports.Gateway,
	notifier ports.Notifier,
	nowPlaying *NowPlayingProjector,
	inactivity *InactivityScheduler,
	botID domain.UserID,
) *VoiceStateHandler {
	return &VoiceStateHandler{
		actor: actor, players: players, playback: playback, gateway: gateway,
		notifier: notifier, nowPlaying: nowPlaying, inactivity: inactivity, botID: botID,
	}
}

// Handle implements the four voice-state reaction steps: ignore
// unrelated updates, react to other users leaving, react to the bot
// being force-disconnected, and react to the bot being moved.
func (h *VoiceStateHandler) Handle(ctx context.Context, change VoiceStateChange) error {
	handle := h.actor.Handle(change.GuildID)
	conn, ok := handle.Head()
	if !ok {
		return nil
	}

	if change.UserID != h.botID {
		return h.handleOtherUser(ctx, change, conn)
	}

	// The bot's own update is the read side of the change-watch
	// protocol: any commanded voice change has now been observed.
	handle.SetChangeNotification(domain.ChangeRead)

	if change.NewChannel == 0 {
		return h.handleForcedDisconnect(ctx, change.GuildID)
	}

	if change.NewChannel != change.OldChannel {
		return h.handleBotMoved(ctx, change, handle)
	}
	return nil
}

// handleOtherUser implements step 2: a user joining the bot's channel
// cancels any pending inactivity timer; if the departing user leaves
// the bot's channel empty of non-bot listeners, pause and start the
// inactivity timer.
func (h *VoiceStateHandler) handleOtherUser(ctx context.Context, change VoiceStateChange, conn *domain.Connection) error {
	if change.NewChannel == conn.VoiceChannel {
		if change.OldChannel != conn.VoiceChannel {
			h.inactivity.Cancel(change.GuildID)
		}
		return nil
	}
	if change.OldChannel != conn.VoiceChannel {
		return nil
	}

	states, err := h.gateway.VoiceStatesIn(ctx, change.GuildID, conn.VoiceChannel)
	if err != nil {
		return domain.NewInfraError(domain.InfraCache, err)
	}
	for _, s := range states {
		if !s.IsBot {
			return nil
		}
	}

	// Pause is a no-op when the track is already paused.
	_ = h.playback.Pause(ctx, change.GuildID)

	h.inactivity.Start(change.GuildID, conn.VoiceChannel)
	return nil
}

// handleForcedDisconnect implements step 3: the bot's channel became
// none, meaning it was kicked or disconnected externally.
func (h *VoiceStateHandler) handleForcedDisconnect(ctx context.Context, guildID domain.GuildID) error {
	h.inactivity.Cancel(guildID)
	h.nowPlaying.Clear(ctx, guildID)
	h.playback.disconnectCleanup(ctx, guildID)
	return nil
}

// handleBotMoved implements step 4: the bot changed channels,
// updating the connection record and re-evaluating inactivity /
// request-to-speak.
func (h *VoiceStateHandler) handleBotMoved(ctx context.Context, change VoiceStateChange, handle *ConnectionHandle) error {
	handle.SetChannel(change.NewChannel)
	h.inactivity.Cancel(change.GuildID)

	states, err := h.gateway.VoiceStatesIn(ctx, change.GuildID, change.NewChannel)
	if err != nil {
		return domain.NewInfraError(domain.InfraCache, err)
	}
	empty := true
	for _, s := range states {
		if !s.IsBot {
			empty = false
			break
		}
	}
	if empty {
		h.inactivity.Start(change.GuildID, change.NewChannel)
		return nil
	}

	if change.IsStage {
		_ = h.gateway.SetVoiceState(ctx, change.GuildID, &change.NewChannel, true)
	}
	return nil
}

// InactivityScheduler runs one cancellable timer per guild (§4.8,
// §5). On timeout it disables the connection's change-notifier,
// performs disconnect cleanup, and leaves voice.
type InactivityScheduler struct {
	mu        sync.Mutex
	timers    map[domain.GuildID]context.CancelFunc
	actor     *ConnectionActor
	playback  *PlaybackService
	gateway   ports.Gateway
	notifier  ports.Notifier
	onTimeout func(guildID domain.GuildID, channelID domain.ChannelID)
}

func NewInactivityScheduler(actor *ConnectionActor, playback *PlaybackService, gateway ports.Gateway, notifier ports.Notifier, onTimeout func(domain.GuildID, domain.ChannelID)) *InactivityScheduler {
	return &InactivityScheduler{
		timers: make(map[domain.GuildID]context.CancelFunc),
		actor:  actor, playback: playback, gateway: gateway, notifier: notifier, onTimeout: onTimeout,
	}
}

// Start begins (or restarts) the inactivity timer for guildID against
// channelID.
func (s *InactivityScheduler) Start(guildID domain.GuildID, channelID domain.ChannelID) {
	s.Cancel(guildID)

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.timers[guildID] = cancel
	s.mu.Unlock()

	go s.wait(ctx, guildID, channelID)
}

// Cancel stops guildID's timer, if any, without running the timeout
// action — used when a user joins the channel or the bot moves.
func (s *InactivityScheduler) Cancel(guildID domain.GuildID) {
	s.mu.Lock()
	cancel, ok := s.timers[guildID]
	if ok {
		delete(s.timers, guildID)
	}
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAll stops every guild's timer without running the timeout
// action, for use during shutdown.
func (s *InactivityScheduler) CancelAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.timers))
	for guildID, cancel := range s.timers {
		cancels = append(cancels, cancel)
		delete(s.timers, guildID)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (s *InactivityScheduler) wait(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID) {
	timer := time.NewTimer(domain.InactivityTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.mu.Lock()
	_, stillArmed := s.timers[guildID]
	delete(s.timers, guildID)
	s.mu.Unlock()
	if !stillArmed {
		return
	}

	handle := s.actor.Handle(guildID)
	prev := handle.SetChangeNotification(domain.ChangeUnread)
	if prev == domain.ChangeUnread {
		// A commanded voice change has not been observed by the
		// voice-state handler yet; leave the connection to it rather
		// than tearing it down from here.
		return
	}

	s.playback.disconnectCleanup(context.Background(), guildID)
	_ = s.gateway.SetVoiceState(context.Background(), guildID, nil, false)
	if s.onTimeout != nil {
		s.onTimeout(guildID, channelID)
	}
}
