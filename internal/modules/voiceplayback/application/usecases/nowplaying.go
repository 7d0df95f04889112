package usecases

import (
	"context"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// Now-playing button custom IDs (§4.5, §6): fixed, non-empty tokens
// resolved by the presentation layer's component dispatcher.
const (
	NowPlayingShuffleID   = "np:shuffle"
	NowPlayingPreviousID  = "np:previous"
	NowPlayingPlayPauseID = "np:playpause"
	NowPlayingNextID      = "np:next"
	NowPlayingRepeatID    = "np:repeat"
)

// NowPlayingProjector renders PlayerData into the persistent
// now-playing message and keeps it in sync with state changes (§4.5).
// It holds no state itself: everything it needs to decide whether an
// edit is necessary comes from the snapshot already stored on the
// handle.
type NowPlayingProjector struct {
	players  *PlayerStore
	notifier ports.Notifier
	configs  ports.GuildConfigStore
}

func NewNowPlayingProjector(players *PlayerStore, notifier ports.Notifier, configs ports.GuildConfigStore) *NowPlayingProjector {
	return &NowPlayingProjector{players: players, notifier: notifier, configs: configs}
}

// snapshotOf builds the NowPlayingSnapshot that reflects data's
// current state, or false if there is no current track to show.
func snapshotOf(data *domain.PlayerData) (domain.NowPlayingSnapshot, bool) {
	item, ok := data.Queue.Current()
	if !ok {
		return domain.NowPlayingSnapshot{}, false
	}
	position, _ := data.Queue.Position()
	return domain.NowPlayingSnapshot{
		Title:         item.Track.Title,
		URL:           item.Track.URL,
		Artist:        item.Track.Author,
		ArtworkURL:    item.Track.ArtworkURL,
		Position:      data.Timestamp.Get(),
		Duration:      item.Track.Duration,
		QueueLength:   data.Queue.Len(),
		QueuePosition: position,
		Repeat:        data.Queue.RepeatMode(),
		Indexer:       data.Queue.IndexerKind(),
		Paused:        data.Timestamp.Paused(),
		Speed:         data.Timestamp.Speed(),
		RequesterID:   item.RequesterID,
		EnqueuedAt:    item.EnqueuedAt,
	}, true
}

func (p *NowPlayingProjector) render(snap domain.NowPlayingSnapshot) ports.NotifyContent {
	return ports.NotifyContent{
		Embed: &ports.Embed{
			Title:     snap.Title,
			URL:       snap.URL,
			ImageURL:  snap.ArtworkURL,
			Timestamp: snap.EnqueuedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
		Buttons: []ports.Button{
			{CustomID: NowPlayingShuffleID, Emoji: shuffleEmoji(snap.Indexer)},
			{CustomID: NowPlayingPreviousID, Emoji: "⏮"},
			{CustomID: NowPlayingPlayPauseID, Emoji: playPauseEmoji(snap.Paused)},
			{CustomID: NowPlayingNextID, Emoji: "⏭"},
			{CustomID: NowPlayingRepeatID, Emoji: repeatEmoji(snap.Repeat)},
		},
	}
}

func shuffleEmoji(kind domain.IndexerKind) string {
	if kind == domain.IndexerShuffled {
		return "🔀"
	}
	return "➡️"
}

func playPauseEmoji(paused bool) string {
	if paused {
		return "▶️"
	}
	return "⏸️"
}

func repeatEmoji(mode domain.RepeatMode) string {
	switch mode {
	case domain.RepeatAll:
		return "🔁"
	case domain.RepeatTrack:
		return "🔂"
	default:
		return "➡️"
	}
}

// OnTrackStart creates (or replaces) the now-playing message for
// guildID's new current track, if the guild's persisted config
// permits now-playing messages (§3, §4.5).
func (p *NowPlayingProjector) OnTrackStart(ctx context.Context, guildID domain.GuildID) error {
	cfg, err := p.configs.Get(ctx, guildID)
	if err != nil {
		return domain.NewInfraError(domain.InfraDatabase, err)
	}
	if !cfg.NowPlaying {
		return nil
	}

	var textChannel domain.ChannelID
	var snap domain.NowPlayingSnapshot
	var have bool
	var previous *domain.NowPlayingHandle
	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		textChannel = data.TextChannel
		previous = data.NowPlaying
		snap, have = snapshotOf(data)
	})
	if !have {
		return nil
	}

	if previous != nil {
		_ = p.notifier.DeleteMessage(ctx, previous.ChannelID, previous.MessageID)
	}

	id, err := p.notifier.SendMessage(ctx, textChannel, p.render(snap))
	if err != nil {
		return domain.NewInfraError(domain.InfraChatREST, err)
	}

	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.NowPlaying = &domain.NowPlayingHandle{ChannelID: textChannel, MessageID: id, Snapshot: snap}
	})
	return nil
}

// Refresh re-renders the now-playing message if the live snapshot
// differs from what was last rendered (§4.5: "any state change that
// the message mirrors issues an update-request"). A failed edit
// because the message was externally deleted is non-fatal: the handle
// is cleared so the next track-start recreates it.
func (p *NowPlayingProjector) Refresh(ctx context.Context, guildID domain.GuildID) error {
	var handle *domain.NowPlayingHandle
	var snap domain.NowPlayingSnapshot
	var have bool
	p.players.WithReadLock(guildID, func(data *domain.PlayerData) {
		handle = data.NowPlaying
		snap, have = snapshotOf(data)
	})
	if handle == nil || !have || handle.Snapshot.Equal(snap) {
		return nil
	}

	err := p.notifier.EditMessage(ctx, handle.ChannelID, handle.MessageID, p.render(snap))
	if err != nil {
		p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
			data.NowPlaying = nil
		})
		return nil
	}

	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		if data.NowPlaying != nil {
			data.NowPlaying.Snapshot = snap
		}
	})
	return nil
}

// Clear deletes the now-playing message (queue emptied or connection
// torn down) and drops the handle.
func (p *NowPlayingProjector) Clear(ctx context.Context, guildID domain.GuildID) {
	var handle *domain.NowPlayingHandle
	p.players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		handle = data.NowPlaying
		data.NowPlaying = nil
	})
	if handle != nil {
		_ = p.notifier.DeleteMessage(ctx, handle.ChannelID, handle.MessageID)
	}
}
