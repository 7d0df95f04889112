// Package infrastructure adapts the voice-playback core's ports to
// concrete collaborators: disgolink for the audio-streaming service,
// discordgo for the gateway/REST surface, and an in-memory store for
// the access-control oracle.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// Ensure LavalinkService implements ports.AudioService.
var _ ports.AudioService = (*LavalinkService)(nil)

// LavalinkConfig is the node connection configuration for the
// Lavalink/audio-streaming service this core delegates all decoding
// to; this module never touches raw audio itself.
type LavalinkConfig struct {
	Address  string
	Password string
}

// LavalinkService wraps a disgolink.Client to implement
// ports.AudioService. disgolink itself buffers the two halves of a
// voice session (state + server update) internally, so this adapter's
// job is translating between domain/port types and disgolink's, and
// fanning the inbound track-start/track-end stream out onto the
// module's event infrastructure.
type LavalinkService struct {
	link  disgolink.Client
	botID domain.UserID

	listener ports.AudioEventListener

	pendingMu sync.Mutex
	pending   map[domain.GuildID]*pendingVoiceReady
}

// pendingVoiceReady tracks, for one in-flight join, whether both
// halves of the Discord voice session (state update, server update)
// have arrived yet, and signals ready once both have.
type pendingVoiceReady struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

func (p *pendingVoiceReady) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
		default:
			close(p.ready)
		}
	}
}

// NewLavalinkService connects a disgolink client for botID and adds
// one node. listener receives every inbound track event; it is
// typically application/usecases.PlaybackService via a small adapter
// in module.go.
func NewLavalinkService(ctx context.Context, botID domain.UserID, cfg LavalinkConfig, listener ports.AudioEventListener) (*LavalinkService, error) {
	svc := &LavalinkService{botID: botID, listener: listener, pending: make(map[domain.GuildID]*pendingVoiceReady)}

	link := disgolink.New(snowflake.ID(botID),
		disgolink.WithListenerFunc(svc.onTrackStart),
		disgolink.WithListenerFunc(svc.onTrackEnd),
		disgolink.WithListenerFunc(svc.onTrackException),
		disgolink.WithListenerFunc(svc.onTrackStuck),
	)
	svc.link = link

	node, err := link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  cfg.Address,
		Password: cfg.Password,
		Secure:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("add lavalink node: %w", err)
	}
	slog.Info("connected to lavalink", "node", node.Config().Name, "address", cfg.Address)

	return svc, nil
}

// Close tears down the node connection and every player on it.
func (s *LavalinkService) Close() {
	s.link.Close()
}

func (s *LavalinkService) CreatePlayer(ctx context.Context, guildID domain.GuildID, info ports.ConnectionInfo) error {
	_ = s.link.Player(snowflake.ID(guildID))
	return nil
}

func (s *LavalinkService) DeletePlayer(ctx context.Context, guildID domain.GuildID) error {
	player := s.link.ExistingPlayer(snowflake.ID(guildID))
	if player == nil {
		return nil
	}
	return player.Destroy(ctx)
}

// GetConnectionInfo waits for disgolink to observe both halves of the
// voice session that SetVoiceState triggered (OnVoiceStateUpdate and
// OnVoiceServerUpdate), returning as soon as both have arrived rather
// than always blocking for the full timeout. timeout is a fallback
// only, in case one half never arrives.
func (s *LavalinkService) GetConnectionInfo(ctx context.Context, guildID domain.GuildID, timeout time.Duration) (ports.ConnectionInfo, error) {
	pending := &pendingVoiceReady{ready: make(chan struct{})}

	s.pendingMu.Lock()
	s.pending[guildID] = pending
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, guildID)
		s.pendingMu.Unlock()
	}()

	select {
	case <-pending.ready:
		return ports.ConnectionInfo{}, nil
	case <-ctx.Done():
		return ports.ConnectionInfo{}, ctx.Err()
	case <-time.After(timeout):
		return ports.ConnectionInfo{}, fmt.Errorf("timed out waiting for voice connection")
	}
}

func (s *LavalinkService) signalVoiceEvent(guildID domain.GuildID, isVoiceState bool) {
	s.pendingMu.Lock()
	pending := s.pending[guildID]
	s.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(isVoiceState)
	}
}

func (s *LavalinkService) LoadTracks(ctx context.Context, query string) (ports.LoadResult, error) {
	node := s.link.BestNode()
	if node == nil {
		return ports.LoadResult{}, fmt.Errorf("no available lavalink node")
	}
	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		return ports.LoadResult{}, err
	}
	return convertLoadResult(result), nil
}

func convertLoadResult(result *lavalink.LoadResult) ports.LoadResult {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return ports.LoadResult{Kind: ports.LoadResultTrack, Track: convertTrack(data)}
	case lavalink.Playlist:
		tracks := make([]domain.Track, len(data.Tracks))
		for i, t := range data.Tracks {
			tracks[i] = convertTrack(t)
		}
		return ports.LoadResult{Kind: ports.LoadResultPlaylist, PlaylistName: data.Info.Name, Tracks: tracks}
	case lavalink.Search:
		tracks := make([]domain.Track, len(data))
		for i, t := range data {
			tracks[i] = convertTrack(t)
		}
		return ports.LoadResult{Kind: ports.LoadResultSearch, Tracks: tracks}
	case lavalink.Exception:
		return ports.LoadResult{Kind: ports.LoadResultError, Err: data}
	default:
		return ports.LoadResult{Kind: ports.LoadResultEmpty}
	}
}

func convertTrack(t lavalink.Track) domain.Track {
	info := t.Info
	var artwork string
	if info.ArtworkURL != nil {
		artwork = *info.ArtworkURL
	}
	var uri string
	if info.URI != nil {
		uri = *info.URI
	}
	return domain.Track{
		EncodedTrack: t.Encoded,
		Identifier:   info.Identifier,
		Title:        info.Title,
		Author:       info.Author,
		URL:          uri,
		ArtworkURL:   artwork,
		Duration:     time.Duration(info.Length) * time.Millisecond,
		Seekable:     !info.IsStream,
		Source:       info.SourceName,
	}
}

func (s *LavalinkService) Play(ctx context.Context, guildID domain.GuildID, track domain.Track) error {
	player := s.link.Player(snowflake.ID(guildID))
	return player.Update(ctx, lavalink.WithEncodedTrack(track.EncodedTrack))
}

func (s *LavalinkService) Stop(ctx context.Context, guildID domain.GuildID) error {
	player := s.link.Player(snowflake.ID(guildID))
	return player.Update(ctx, lavalink.WithNullTrack())
}

func (s *LavalinkService) SetPause(ctx context.Context, guildID domain.GuildID, paused bool) error {
	player := s.link.Player(snowflake.ID(guildID))
	return player.Update(ctx, lavalink.WithPaused(paused))
}

func (s *LavalinkService) Seek(ctx context.Context, guildID domain.GuildID, position time.Duration) error {
	player := s.link.Player(snowflake.ID(guildID))
	return player.Update(ctx, lavalink.WithPosition(lavalink.Duration(position.Milliseconds())))
}

func (s *LavalinkService) SetFilters(ctx context.Context, guildID domain.GuildID, filters ports.Filters) error {
	player := s.link.Player(snowflake.ID(guildID))
	f := lavalink.Filters{
		Timescale: &lavalink.Timescale{Speed: filters.TimeScale, Pitch: semitoneToRatio(filters.Pitch), Rate: 1},
	}
	return player.Update(ctx, lavalink.WithFilters(f))
}

// semitoneToRatio converts a half-tone pitch shift (§3: "integer; 0
// means unmodified") into the pitch-ratio Lavalink's timescale filter
// expects.
func semitoneToRatio(halfTones int) float64 {
	if halfTones == 0 {
		return 1
	}
	ratio := 1.0
	step := 1.0594630943592953 // 2^(1/12)
	for i := 0; i < halfTones; i++ {
		ratio *= step
	}
	for i := 0; i > halfTones; i-- {
		ratio /= step
	}
	return ratio
}

func (s *LavalinkService) OnVoiceServerUpdate(ctx context.Context, guildID domain.GuildID, endpoint, token string) error {
	s.link.OnVoiceServerUpdate(ctx, snowflake.ID(guildID), token, endpoint)
	s.signalVoiceEvent(guildID, false)
	return nil
}

func (s *LavalinkService) OnVoiceStateUpdate(ctx context.Context, guildID domain.GuildID, channelID *domain.ChannelID, sessionID string) error {
	var ch *snowflake.ID
	if channelID != nil {
		id := snowflake.ID(*channelID)
		ch = &id
	}
	s.link.OnVoiceStateUpdate(ctx, snowflake.ID(guildID), ch, sessionID)
	s.signalVoiceEvent(guildID, true)
	return nil
}

func (s *LavalinkService) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	if s.listener == nil {
		return
	}
	s.listener.HandleAudioEvent(context.Background(), ports.AudioEvent{
		Kind:    ports.AudioEventTrackStart,
		GuildID: domain.GuildID(player.GuildID()),
		Track:   convertTrack(event.Track),
	})
}

func (s *LavalinkService) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	if s.listener == nil {
		return
	}
	shouldAdvance := event.Reason == lavalink.TrackEndReasonFinished || event.Reason == lavalink.TrackEndReasonLoadFailed
	s.listener.HandleAudioEvent(context.Background(), ports.AudioEvent{
		Kind:          ports.AudioEventTrackEnd,
		GuildID:       domain.GuildID(player.GuildID()),
		Track:         convertTrack(event.Track),
		Reason:        string(event.Reason),
		ShouldAdvance: shouldAdvance,
	})
}

func (s *LavalinkService) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
	if s.listener == nil {
		return
	}
	s.listener.HandleAudioEvent(context.Background(), ports.AudioEvent{
		Kind:    ports.AudioEventTrackException,
		GuildID: domain.GuildID(player.GuildID()),
		Reason:  event.Exception.Message,
	})
}

func (s *LavalinkService) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
	if s.listener == nil {
		return
	}
	s.listener.HandleAudioEvent(context.Background(), ports.AudioEvent{
		Kind:    ports.AudioEventTrackStuck,
		GuildID: domain.GuildID(player.GuildID()),
	})
}
