// Package ports declares the interfaces the application layer needs
// from collaborators outside this module: the audio-streaming
// service, the chat gateway/REST client, and the access-control
// oracle. Infrastructure adapters implement these; usecases depend
// only on them.
package ports

import (
	"context"
	"time"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// LoadResultKind discriminates the sum type LoadTracks returns.
type LoadResultKind int

const (
	LoadResultTrack LoadResultKind = iota
	LoadResultPlaylist
	LoadResultSearch
	LoadResultEmpty
	LoadResultError
)

// LoadResult is the outcome of resolving a search query against the
// audio service.
type LoadResult struct {
	Kind         LoadResultKind
	Track        domain.Track
	PlaylistName string
	Tracks       []domain.Track
	Err          error
}

// ConnectionInfo is the session data the audio service needs to
// attach a player to a voice session the gateway has already joined.
type ConnectionInfo struct {
	SessionID string
	Token     string
	Endpoint  string
}

// Filters bundles the mutable audio filters this core exposes.
type Filters struct {
	Pitch     int
	TimeScale float64
}

// AudioService is the facade over the external audio-streaming
// service (§1, §6). All methods are per-guild.
type AudioService interface {
	CreatePlayer(ctx context.Context, guildID domain.GuildID, info ConnectionInfo) error
	DeletePlayer(ctx context.Context, guildID domain.GuildID) error
	GetConnectionInfo(ctx context.Context, guildID domain.GuildID, timeout time.Duration) (ConnectionInfo, error)

	LoadTracks(ctx context.Context, query string) (LoadResult, error)

	Play(ctx context.Context, guildID domain.GuildID, track domain.Track) error
	Stop(ctx context.Context, guildID domain.GuildID) error
	SetPause(ctx context.Context, guildID domain.GuildID, paused bool) error
	SetFilters(ctx context.Context, guildID domain.GuildID, filters Filters) error
	Seek(ctx context.Context, guildID domain.GuildID, position time.Duration) error

	// OnVoiceServerUpdate and OnVoiceStateUpdate forward gateway
	// session events verbatim for the audio service's own tracking.
	OnVoiceServerUpdate(ctx context.Context, guildID domain.GuildID, endpoint, token string) error
	OnVoiceStateUpdate(ctx context.Context, guildID domain.GuildID, channelID *domain.ChannelID, sessionID string) error
}

// AudioEventKind discriminates the inbound event stream from the
// audio service.
type AudioEventKind int

const (
	AudioEventTrackStart AudioEventKind = iota
	AudioEventTrackEnd
	AudioEventTrackException
	AudioEventTrackStuck
)

// AudioEvent is one inbound notification from the audio service.
type AudioEvent struct {
	Kind    AudioEventKind
	GuildID domain.GuildID
	Track   domain.Track
	Reason  string

	// ShouldAdvance is only meaningful for AudioEventTrackEnd: it
	// reports whether Reason is one that should move the queue
	// cursor (the track finished or failed to load), as opposed to
	// one caused by a command already replacing the current track
	// (stopped, replaced, cleaned up).
	ShouldAdvance bool
}

// AudioEventListener receives the audio service's inbound events.
// Infrastructure wires this to the application layer's event bus.
type AudioEventListener interface {
	HandleAudioEvent(ctx context.Context, event AudioEvent)
}
