package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

func TestInactivityScheduler_CancelAll(t *testing.T) {
	scheduler := NewInactivityScheduler(NewConnectionActor(), nil, nil, nil, nil)

	scheduler.Start(1, 10)
	scheduler.Start(2, 20)
	assert.Len(t, scheduler.timers, 2)

	scheduler.CancelAll()
	assert.Empty(t, scheduler.timers)

	// Safe to call with nothing armed.
	scheduler.CancelAll()
}

func TestInactivityScheduler_CancelSingle(t *testing.T) {
	scheduler := NewInactivityScheduler(NewConnectionActor(), nil, nil, nil, nil)

	scheduler.Start(1, 10)
	scheduler.Start(2, 20)

	scheduler.Cancel(1)
	_, stillArmed := scheduler.timers[domain.GuildID(1)]
	assert.False(t, stillArmed)
	_, stillArmed = scheduler.timers[domain.GuildID(2)]
	assert.True(t, stillArmed)

	scheduler.CancelAll()
}
