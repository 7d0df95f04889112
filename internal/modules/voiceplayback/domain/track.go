package domain

import (
	"fmt"
	"time"
)

// Track is the loaded audio-service track descriptor the queue
// carries. EncodedTrack is the opaque base64 blob the audio service
// uses to resume playback without re-resolving the query.
type Track struct {
	EncodedTrack string
	Identifier   string
	Title        string
	Author       string
	URL          string
	ArtworkURL   string
	Duration     time.Duration
	Seekable     bool
	Source       string
}

// FormattedDuration renders Duration as mm:ss, or hh:mm:ss past an
// hour, matching how the now-playing embed displays it.
func (t Track) FormattedDuration() string {
	total := int(t.Duration.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// QueueItem is a Track plus the provenance the queue engine needs:
// who requested it and when.
type QueueItem struct {
	Track       Track
	RequesterID UserID
	EnqueuedAt  time.Time
}

// NewQueueItem stamps a Track with its requester and enqueue instant.
func NewQueueItem(track Track, requester UserID, enqueuedAt time.Time) QueueItem {
	return QueueItem{Track: track, RequesterID: requester, EnqueuedAt: enqueuedAt}
}
