package discord

import "github.com/resonantbot/resonant/internal/modules/voiceplayback/application/usecases"

// IsNowPlayingButton reports whether customID belongs to the
// now-playing message's control row, as opposed to a poll's
// agree/disagree buttons.
func IsNowPlayingButton(customID string) bool {
	switch customID {
	case usecases.NowPlayingShuffleID, usecases.NowPlayingPreviousID,
		usecases.NowPlayingPlayPauseID, usecases.NowPlayingNextID, usecases.NowPlayingRepeatID:
		return true
	default:
		return false
	}
}
