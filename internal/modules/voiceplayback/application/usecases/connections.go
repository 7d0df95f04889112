// Package usecases orchestrates the voice-playback core: the
// connection actor, per-guild player-data locking, the queue and
// playback operations commands trigger, the poll protocol, the
// precondition check layer, and the voice-state/inactivity handlers.
package usecases

import (
	"context"
	"fmt"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/events"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// connectionInstruction is the closed sum type of requests the
// connection actor serves. Exactly one of the typed fields is set;
// resp, when non-nil, must be written to exactly once.
type connectionInstruction struct {
	insert             *insertInstr
	remove             *removeInstr
	exists             *existsInstr
	dispatch           *dispatchInstr
	subscribe          *subscribeInstr
	setChangeNotif     *setChangeNotifInstr
	toggleMute         *toggleMuteInstr
	setMute            *setMuteInstr
	setChannel         *setChannelInstr
	setTextChannel     *setTextChannelInstr
	head               *headInstr
	getPoll            *getPollInstr
	setPoll            *setPollInstr
}

type insertInstr struct {
	conn *domain.Connection
	fan  *events.Fanout
}
type removeInstr struct {
	guildID domain.GuildID
	resp    chan<- bool
}
type existsInstr struct {
	guildID domain.GuildID
	resp    chan<- bool
}
type dispatchInstr struct {
	guildID domain.GuildID
	event   domain.ConnectionEvent
}
type subscribeInstr struct {
	guildID domain.GuildID
	resp    chan<- subscribeResult
}
type subscribeResult struct {
	sub *events.Subscription
	ok  bool
}
type setChangeNotifInstr struct {
	guildID domain.GuildID
	state   domain.ChangeWatch
	resp    chan<- domain.ChangeWatch
}
type toggleMuteInstr struct {
	guildID domain.GuildID
	resp    chan<- bool
}
type setMuteInstr struct {
	guildID domain.GuildID
	muted   bool
}
type setChannelInstr struct {
	guildID   domain.GuildID
	channelID domain.ChannelID
}
type setTextChannelInstr struct {
	guildID   domain.GuildID
	channelID domain.ChannelID
}
type headInstr struct {
	guildID domain.GuildID
	resp    chan<- headResult
}
type headResult struct {
	conn *domain.Connection
	ok   bool
}
type getPollInstr struct {
	guildID domain.GuildID
	resp    chan<- *domain.PollRecord
}
type setPollInstr struct {
	guildID domain.GuildID
	poll    *domain.PollRecord
}

type connectionRecord struct {
	conn *domain.Connection
	fan  *events.Fanout
}

// ConnectionActor is the single-threaded owner of the guild→connection
// map (§4.1, §5). It is started once and run in its own goroutine;
// every other use case talks to it only through a ConnectionHandle.
type ConnectionActor struct {
	conns chan connectionInstruction
	done  chan struct{}
}

// NewConnectionActor allocates an actor; call Run in a goroutine to
// start serving instructions.
func NewConnectionActor() *ConnectionActor {
	return &ConnectionActor{
		conns: make(chan connectionInstruction, 64),
		done:  make(chan struct{}),
	}
}

// Run serves instructions until ctx is cancelled. It owns the
// connection map exclusively; nothing else may read or write it.
func (a *ConnectionActor) Run(ctx context.Context) {
	connections := make(map[domain.GuildID]*connectionRecord)
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			for _, rec := range connections {
				rec.fan.Close()
			}
			return
		case instr := <-a.conns:
			a.serve(connections, instr)
		}
	}
}

func (a *ConnectionActor) serve(connections map[domain.GuildID]*connectionRecord, instr connectionInstruction) {
	switch {
	case instr.insert != nil:
		i := instr.insert
		connections[i.conn.GuildID] = &connectionRecord{conn: i.conn, fan: i.fan}
	case instr.remove != nil:
		i := instr.remove
		rec, ok := connections[i.guildID]
		if ok {
			rec.fan.Close()
			delete(connections, i.guildID)
		}
		i.resp <- ok
	case instr.exists != nil:
		i := instr.exists
		_, ok := connections[i.guildID]
		i.resp <- ok
	case instr.dispatch != nil:
		i := instr.dispatch
		if rec, ok := connections[i.guildID]; ok {
			rec.fan.Publish(i.event)
		}
	case instr.subscribe != nil:
		i := instr.subscribe
		rec, ok := connections[i.guildID]
		if !ok {
			i.resp <- subscribeResult{ok: false}
			return
		}
		i.resp <- subscribeResult{sub: rec.fan.Subscribe(), ok: true}
	case instr.setChangeNotif != nil:
		i := instr.setChangeNotif
		rec, ok := connections[i.guildID]
		if !ok {
			i.resp <- domain.ChangeRead
			return
		}
		i.resp <- rec.conn.SetChangeNotification(i.state)
	case instr.toggleMute != nil:
		i := instr.toggleMute
		rec, ok := connections[i.guildID]
		if !ok {
			i.resp <- false
			return
		}
		i.resp <- rec.conn.ToggleMute()
	case instr.setMute != nil:
		i := instr.setMute
		if rec, ok := connections[i.guildID]; ok {
			rec.conn.Muted = i.muted
		}
	case instr.setChannel != nil:
		i := instr.setChannel
		if rec, ok := connections[i.guildID]; ok {
			rec.conn.VoiceChannel = i.channelID
		}
	case instr.setTextChannel != nil:
		i := instr.setTextChannel
		if rec, ok := connections[i.guildID]; ok {
			rec.conn.TextChannel = i.channelID
		}
	case instr.head != nil:
		i := instr.head
		rec, ok := connections[i.guildID]
		if !ok {
			i.resp <- headResult{ok: false}
			return
		}
		cp := *rec.conn
		i.resp <- headResult{conn: &cp, ok: true}
	case instr.getPoll != nil:
		i := instr.getPoll
		rec, ok := connections[i.guildID]
		if !ok {
			i.resp <- nil
			return
		}
		i.resp <- rec.conn.Poll
	case instr.setPoll != nil:
		i := instr.setPoll
		if rec, ok := connections[i.guildID]; ok {
			rec.conn.Poll = i.poll
		}
	}
}

// ErrUnrecognisedConnection is returned by handle methods when the
// guild has no connection record.
var ErrUnrecognisedConnection = domain.ErrUnrecognisedConnection

// Handle returns a lightweight, guild-bound facade over the actor.
// Handles never retain a pointer into the actor's internal map; every
// method marshals a fresh instruction.
func (a *ConnectionActor) Handle(guildID domain.GuildID) *ConnectionHandle {
	return &ConnectionHandle{actor: a, guildID: guildID}
}

// ConnectionHandle is the per-guild facade every use case holds
// instead of a raw connection reference (§4.1, §9).
type ConnectionHandle struct {
	actor   *ConnectionActor
	guildID domain.GuildID
}

func (h *ConnectionHandle) Insert(conn *domain.Connection) {
	h.actor.conns <- connectionInstruction{insert: &insertInstr{conn: conn, fan: events.NewFanout()}}
}

func (h *ConnectionHandle) Remove() bool {
	resp := make(chan bool, 1)
	h.actor.conns <- connectionInstruction{remove: &removeInstr{guildID: h.guildID, resp: resp}}
	return <-resp
}

func (h *ConnectionHandle) Exists() bool {
	resp := make(chan bool, 1)
	h.actor.conns <- connectionInstruction{exists: &existsInstr{guildID: h.guildID, resp: resp}}
	return <-resp
}

func (h *ConnectionHandle) Dispatch(event domain.ConnectionEvent) {
	h.actor.conns <- connectionInstruction{dispatch: &dispatchInstr{guildID: h.guildID, event: event}}
}

func (h *ConnectionHandle) Subscribe() (*events.Subscription, error) {
	resp := make(chan subscribeResult, 1)
	h.actor.conns <- connectionInstruction{subscribe: &subscribeInstr{guildID: h.guildID, resp: resp}}
	r := <-resp
	if !r.ok {
		return nil, fmt.Errorf("guild %s: %w", h.guildID, ErrUnrecognisedConnection)
	}
	return r.sub, nil
}

func (h *ConnectionHandle) SetChangeNotification(state domain.ChangeWatch) domain.ChangeWatch {
	resp := make(chan domain.ChangeWatch, 1)
	h.actor.conns <- connectionInstruction{setChangeNotif: &setChangeNotifInstr{guildID: h.guildID, state: state, resp: resp}}
	return <-resp
}

func (h *ConnectionHandle) ToggleMute() bool {
	resp := make(chan bool, 1)
	h.actor.conns <- connectionInstruction{toggleMute: &toggleMuteInstr{guildID: h.guildID, resp: resp}}
	return <-resp
}

func (h *ConnectionHandle) SetMute(muted bool) {
	h.actor.conns <- connectionInstruction{setMute: &setMuteInstr{guildID: h.guildID, muted: muted}}
}

func (h *ConnectionHandle) SetChannel(channelID domain.ChannelID) {
	h.actor.conns <- connectionInstruction{setChannel: &setChannelInstr{guildID: h.guildID, channelID: channelID}}
}

func (h *ConnectionHandle) SetTextChannel(channelID domain.ChannelID) {
	h.actor.conns <- connectionInstruction{setTextChannel: &setTextChannelInstr{guildID: h.guildID, channelID: channelID}}
}

func (h *ConnectionHandle) Head() (*domain.Connection, bool) {
	resp := make(chan headResult, 1)
	h.actor.conns <- connectionInstruction{head: &headInstr{guildID: h.guildID, resp: resp}}
	r := <-resp
	return r.conn, r.ok
}

func (h *ConnectionHandle) GetPoll() *domain.PollRecord {
	resp := make(chan *domain.PollRecord, 1)
	h.actor.conns <- connectionInstruction{getPoll: &getPollInstr{guildID: h.guildID, resp: resp}}
	return <-resp
}

func (h *ConnectionHandle) SetPoll(poll *domain.PollRecord) {
	h.actor.conns <- connectionInstruction{setPoll: &setPollInstr{guildID: h.guildID, poll: poll}}
}
