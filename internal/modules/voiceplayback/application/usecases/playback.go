package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// VoidCauseDisconnect is the VoidEvent cause dispatched on disconnect
// cleanup; polls over topics tied to playback state (skip, stop,
// pause/resume, repeat, shuffle) list it in their Voids.
const VoidCauseDisconnect = "disconnect"

// PlaybackService orchestrates connection and player lifecycle: join,
// leave, play, stop, pause/resume, skip, and the track-end reaction
// that advances the queue (§4.1, §4.2, §4.3).
type PlaybackService struct {
	actor   *ConnectionActor
	players *PlayerStore
	audio   ports.AudioService
	gateway ports.Gateway
	clock   domain.Clock
}

func NewPlaybackService(actor *ConnectionActor, players *PlayerStore, audio ports.AudioService, gateway ports.Gateway, clock domain.Clock) *PlaybackService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &PlaybackService{actor: actor, players: players, audio: audio, gateway: gateway, clock: clock}
}

// Join creates a connection record for guildID in voiceChannel if one
// doesn't already exist, and issues the outbound gateway command.
func (p *PlaybackService) Join(ctx context.Context, guildID domain.GuildID, voiceChannel, textChannel domain.ChannelID) error {
	handle := p.actor.Handle(guildID)
	if handle.Exists() {
		return domain.InVoiceAlready{Channel: voiceChannel}
	}

	if err := p.gateway.SetVoiceState(ctx, guildID, &voiceChannel, false); err != nil {
		return domain.NewInfraError(domain.InfraGatewaySend, err)
	}

	conn := domain.NewConnection(guildID, voiceChannel, textChannel)
	handle.Insert(conn)
	return nil
}

// Leave performs the disconnect cleanup (§4.8) and issues the
// outbound leave command.
func (p *PlaybackService) Leave(ctx context.Context, guildID domain.GuildID) error {
	handle := p.actor.Handle(guildID)
	if !handle.Exists() {
		return fmt.Errorf("guild %s: %w", guildID, domain.ErrUnrecognisedConnection)
	}

	p.disconnectCleanup(ctx, guildID)

	if err := p.gateway.SetVoiceState(ctx, guildID, nil, false); err != nil {
		return domain.NewInfraError(domain.InfraGatewaySend, err)
	}
	return nil
}

// disconnectCleanup stops the player, dispatches queue-clear, deletes
// the audio-service player, and drops the connection record (§4.8).
// It does not delete the now-playing message: handleForcedDisconnect
// clears that through the projector before calling it, while Leave and
// the inactivity timeout leave the message in place. It adopts "first
// writer wins" for a racing second caller: if the connection is
// already gone, it is a silent no-op (§9).
func (p *PlaybackService) disconnectCleanup(ctx context.Context, guildID domain.GuildID) {
	handle := p.actor.Handle(guildID)
	if !handle.Exists() {
		return
	}

	_ = p.audio.Stop(ctx, guildID)

	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.Queue.Clear()
	})
	p.players.Delete(guildID)

	handle.Dispatch(domain.QueueClearEvent{GuildID: guildID})
	handle.Dispatch(domain.VoidEvent{GuildID: guildID, Cause: VoidCauseDisconnect})
	_ = p.audio.DeletePlayer(ctx, guildID)
	handle.Remove()
}

// CreatePlayerData waits for connection info from the audio service
// and installs fresh player data, the first time a track is played in
// a guild (§4.2).
func (p *PlaybackService) CreatePlayerData(ctx context.Context, guildID domain.GuildID, textChannel domain.ChannelID) error {
	info, err := p.audio.GetConnectionInfo(ctx, guildID, domain.ConnectionInfoTimeout)
	if err != nil {
		return domain.NewInfraError(domain.InfraAudioService, err)
	}
	if err := p.audio.CreatePlayer(ctx, guildID, info); err != nil {
		return domain.NewInfraError(domain.InfraAudioService, err)
	}

	data := domain.NewPlayerData(textChannel, p.clock)
	p.players.Create(guildID, data)
	return nil
}

// Enqueue appends tracks to the queue, creating player data first if
// necessary, and starts playback if nothing is currently playing.
func (p *PlaybackService) Enqueue(ctx context.Context, guildID domain.GuildID, textChannel domain.ChannelID, items []domain.QueueItem) error {
	if ok := p.players.entryExists(guildID); !ok {
		if err := p.CreatePlayerData(ctx, guildID, textChannel); err != nil {
			return err
		}
	}

	var shouldPlay bool
	var next domain.Track
	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		_, hadCurrent := data.Queue.Current()
		data.Queue.Enqueue(items)
		if !hadCurrent {
			if cur, ok := data.Queue.Current(); ok {
				shouldPlay = true
				next = cur.Track
			}
		}
	})

	if shouldPlay {
		if err := p.audio.Play(ctx, guildID, next); err != nil {
			return domain.NewInfraError(domain.InfraAudioService, err)
		}
	}
	return nil
}

// Skip advances the queue itself, sets the advance-lock, stops the
// current track, and only then clears the lock, before playing the
// new current (§4.3). The lock must still be held when audio.Stop's
// track-end event for the stopped track arrives asynchronously, or
// that event's own (now-suppressed) advance would double-advance the
// queue.
func (p *PlaybackService) Skip(ctx context.Context, guildID domain.GuildID) error {
	var next domain.Track
	var hasNext bool

	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		if data.Queue.Advance() {
			if cur, ok := data.Queue.Current(); ok {
				next, hasNext = cur.Track, true
			}
		}
		data.Queue.LockAdvance()
		data.Timestamp.Reset()
	})

	stopErr := p.audio.Stop(ctx, guildID)

	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.Queue.ClearAdvanceLock()
	})

	if stopErr != nil {
		return domain.NewInfraError(domain.InfraAudioService, stopErr)
	}
	if hasNext {
		if err := p.audio.Play(ctx, guildID, next); err != nil {
			return domain.NewInfraError(domain.InfraAudioService, err)
		}
	}
	return nil
}

// Pause pauses the current track. It is a no-op if already paused.
func (p *PlaybackService) Pause(ctx context.Context, guildID domain.GuildID) error {
	var changed bool
	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		changed = !data.Timestamp.Paused()
		data.Timestamp.Pause()
	})
	if !changed {
		return nil
	}
	return wrapAudioErr(p.audio.SetPause(ctx, guildID, true))
}

// Resume resumes the current track. It is a no-op if already playing.
func (p *PlaybackService) Resume(ctx context.Context, guildID domain.GuildID) error {
	var changed bool
	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		changed = data.Timestamp.Paused()
		data.Timestamp.Resume()
	})
	if !changed {
		return nil
	}
	return wrapAudioErr(p.audio.SetPause(ctx, guildID, false))
}

// Stop halts playback and clears the queue, without leaving voice.
func (p *PlaybackService) Stop(ctx context.Context, guildID domain.GuildID) error {
	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.Queue.Clear()
		data.Timestamp.Reset()
	})
	p.actor.Handle(guildID).Dispatch(domain.QueueClearEvent{GuildID: guildID})
	return wrapAudioErr(p.audio.Stop(ctx, guildID))
}

// HandleTrackEnd reacts to the audio service's track-end event: if
// the advance-lock is held the event is consumed without moving the
// cursor (a command is already replacing the current track);
// otherwise the queue advances and, if a new current exists, it is
// played.
func (p *PlaybackService) HandleTrackEnd(ctx context.Context, guildID domain.GuildID) error {
	var next domain.Track
	var hasNext bool
	var locked bool

	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		locked = data.Queue.AdvanceLocked()
		if locked {
			return
		}
		if data.Queue.Advance() {
			if cur, ok := data.Queue.Current(); ok {
				next, hasNext = cur.Track, true
				data.Timestamp.Reset()
			}
		}
	})

	if locked || !hasNext {
		return nil
	}
	return wrapAudioErr(p.audio.Play(ctx, guildID, next))
}

// Seek moves the current track's virtual playhead and, in lockstep,
// the audio service's own position.
func (p *PlaybackService) Seek(ctx context.Context, guildID domain.GuildID, position time.Duration) error {
	var hasCurrent, seekable bool
	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		item, ok := data.Queue.Current()
		hasCurrent = ok
		if !ok {
			return
		}
		seekable = item.Track.Seekable
		if seekable {
			data.Timestamp.SeekTo(position)
		}
	})
	if !hasCurrent {
		return domain.ErrNotPlaying
	}
	if !seekable {
		return domain.ErrQueueNotSeekable
	}
	return wrapAudioErr(p.audio.Seek(ctx, guildID, position))
}

// SetRepeat changes the queue's repeat mode and dispatches a
// QueueRepeatEvent carrying the new mode on the guild's connection.
func (p *PlaybackService) SetRepeat(ctx context.Context, guildID domain.GuildID, mode domain.RepeatMode) error {
	ok := p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.Queue.SetRepeatMode(mode)
	})
	if !ok {
		return domain.ErrNotInVoice
	}
	p.actor.Handle(guildID).Dispatch(domain.QueueRepeatEvent{GuildID: guildID, Mode: mode})
	return nil
}

// SetIndexer switches the queue's traversal policy.
func (p *PlaybackService) SetIndexer(ctx context.Context, guildID domain.GuildID, kind domain.IndexerKind) error {
	ok := p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.Queue.SetIndexer(kind)
	})
	if !ok {
		return domain.ErrNotInVoice
	}
	return nil
}

// IndexerKind reports the queue's active traversal policy.
func (p *PlaybackService) IndexerKind(guildID domain.GuildID) (domain.IndexerKind, bool) {
	var kind domain.IndexerKind
	ok := p.players.WithReadLock(guildID, func(data *domain.PlayerData) {
		kind = data.Queue.IndexerKind()
	})
	return kind, ok
}

// PlaybackState reports whether the current track is paused and its
// active repeat mode, for toggling now-playing button state.
func (p *PlaybackService) PlaybackState(guildID domain.GuildID) (paused bool, repeat domain.RepeatMode, ok bool) {
	ok = p.players.WithReadLock(guildID, func(data *domain.PlayerData) {
		paused = data.Timestamp.Paused()
		repeat = data.Queue.RepeatMode()
	})
	return paused, repeat, ok
}

// SetPitch sets the current track's pitch shift to halfTones semitones
// (0 restores the original pitch), preserving whatever playback speed
// is already in effect.
func (p *PlaybackService) SetPitch(ctx context.Context, guildID domain.GuildID, halfTones int) error {
	var speed float64
	ok := p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.Pitch = halfTones
		speed = data.Timestamp.Speed()
	})
	if !ok {
		return domain.ErrNotInVoice
	}
	return wrapAudioErr(p.audio.SetFilters(ctx, guildID, ports.Filters{Pitch: halfTones, TimeScale: speed}))
}

// QueueList returns the queue's indexer-order items and 1-based
// current position, for rendering a /queue listing.
func (p *PlaybackService) QueueList(guildID domain.GuildID) ([]domain.QueueItem, int, bool) {
	var items []domain.QueueItem
	var position int
	ok := p.players.WithReadLock(guildID, func(data *domain.PlayerData) {
		items = data.Queue.List()
		position, _ = data.Queue.Position()
	})
	return items, position, ok
}

// TrackAt returns the queue item at 1-based raw position — the same
// addressing Dequeue/Drain use — so a caller can check standing on it
// before removing it.
func (p *PlaybackService) TrackAt(guildID domain.GuildID, position int) (domain.QueueItem, bool) {
	var item domain.QueueItem
	var found bool
	ok := p.players.WithReadLock(guildID, func(data *domain.PlayerData) {
		item, found = data.Queue.EntryAt(position)
	})
	return item, ok && found
}

// Dequeue removes the queue items at the given 1-based raw positions.
func (p *PlaybackService) Dequeue(guildID domain.GuildID, positions []int) ([]domain.QueueItem, bool) {
	var removed []domain.QueueItem
	ok := p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		removed = data.Queue.Dequeue(positions)
	})
	return removed, ok
}

// Drain removes the 1-based inclusive range [start, end] of queue
// items.
func (p *PlaybackService) Drain(guildID domain.GuildID, start, end int) ([]domain.QueueItem, bool) {
	var removed []domain.QueueItem
	ok := p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		removed = data.Queue.Drain(start, end+1)
	})
	return removed, ok
}

func wrapAudioErr(err error) error {
	if err == nil {
		return nil
	}
	return domain.NewInfraError(domain.InfraAudioService, err)
}

// entryExists is a small PlayerStore helper kept here because it's
// only needed by the orchestration above, not by PlayerStore's own
// callers.
func (s *PlayerStore) entryExists(guildID domain.GuildID) bool {
	_, ok := s.entry(guildID)
	return ok
}
