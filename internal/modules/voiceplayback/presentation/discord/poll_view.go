package discord

import (
	"sync"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/usecases"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// PollComponentRouter fans button presses out to whichever poll is
// currently running for a guild. Only one poll can be active per
// connection, so one channel per guild is enough; Open/Close bracket a
// PollRunner.Run call.
type PollComponentRouter struct {
	mu   sync.Mutex
	subs map[domain.GuildID]chan usecases.ComponentEvent
}

func NewPollComponentRouter() *PollComponentRouter {
	return &PollComponentRouter{subs: make(map[domain.GuildID]chan usecases.ComponentEvent)}
}

// Open registers a fresh, buffered channel for guildID and returns it
// for PollRunner.Run to consume.
func (r *PollComponentRouter) Open(guildID domain.GuildID) <-chan usecases.ComponentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan usecases.ComponentEvent, 8)
	r.subs[guildID] = ch
	return ch
}

// Close unregisters guildID's channel once its poll has resolved.
func (r *PollComponentRouter) Close(guildID domain.GuildID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, guildID)
}

// Forward delivers ev to guildID's open poll, if any. It never blocks:
// a full channel (a burst beyond its buffer) silently drops the press,
// same as a press that arrives after the poll already closed.
func (r *PollComponentRouter) Forward(guildID domain.GuildID, ev usecases.ComponentEvent) {
	r.mu.Lock()
	ch, ok := r.subs[guildID]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
