package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

func TestPlaybackService_PlaybackState(t *testing.T) {
	actor := NewConnectionActor()
	players := NewPlayerStore()
	playback := NewPlaybackService(actor, players, nil, nil, nil)

	var guildID domain.GuildID = 1

	_, _, ok := playback.PlaybackState(guildID)
	assert.False(t, ok, "no player data yet")

	players.Create(guildID, domain.NewPlayerData(2, domain.SystemClock{}))

	paused, repeat, ok := playback.PlaybackState(guildID)
	assert.True(t, ok)
	assert.False(t, paused)
	assert.Equal(t, domain.RepeatOff, repeat)

	players.WithWriteLock(guildID, func(data *domain.PlayerData) {
		data.Timestamp.Pause()
		data.Queue.SetRepeatMode(domain.RepeatAll)
	})

	paused, repeat, ok = playback.PlaybackState(guildID)
	assert.True(t, ok)
	assert.True(t, paused)
	assert.Equal(t, domain.RepeatAll, repeat)
}
