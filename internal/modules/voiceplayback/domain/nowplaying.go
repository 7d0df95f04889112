package domain

import "time"

// NowPlayingHandle is the persistent message id the now-playing
// message lives at, plus the snapshot last rendered into it so the
// projector can tell whether an update is actually needed.
type NowPlayingHandle struct {
	ChannelID ChannelID
	MessageID MessageID
	Snapshot  NowPlayingSnapshot
}

// NowPlayingSnapshot is every field the now-playing embed mirrors.
// Equal snapshots render identical embeds, which lets the projector
// skip a redundant edit.
type NowPlayingSnapshot struct {
	Title      string
	URL        string
	Artist     string
	ArtworkURL string
	Album      string

	Position time.Duration
	Duration time.Duration

	QueueLength   int
	QueuePosition int

	Repeat   RepeatMode
	Indexer  IndexerKind
	Paused   bool
	Speed    float64
	Playlist string
	Preview  bool

	RequesterID UserID
	EnqueuedAt  time.Time
}

// Equal reports whether two snapshots would render the same embed.
func (s NowPlayingSnapshot) Equal(other NowPlayingSnapshot) bool {
	return s == other
}
