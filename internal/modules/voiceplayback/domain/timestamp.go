package domain

import "time"

// TrackTimestamp is a monotonic-clock-based virtual playhead that
// composes pause, speed changes, and seeks without requiring a timer
// or a goroutine: the position is always computed on demand from the
// last operation.
type TrackTimestamp struct {
	clock Clock

	started time.Time

	mostRecentOperation time.Time
	mostRecentPosition  time.Time
	paused              bool
	speed               float64

	lastOperation time.Time
}

// NewTrackTimestamp starts a fresh playhead at the clock's current
// reading.
func NewTrackTimestamp(clock Clock) *TrackTimestamp {
	now := clock.Now()
	return &TrackTimestamp{
		clock:               clock,
		started:             now,
		mostRecentOperation: now,
		mostRecentPosition:  now,
		paused:              false,
		speed:               1.0,
		lastOperation:       now,
	}
}

// Reset rewinds the playhead to a fresh start at the clock's current
// reading, as if newly constructed.
func (t *TrackTimestamp) Reset() {
	now := t.clock.Now()
	t.started = now
	t.mostRecentOperation = now
	t.mostRecentPosition = now
	t.paused = false
	t.speed = 1.0
	t.lastOperation = now
}

func satSub(a, b time.Time) time.Duration {
	if a.Before(b) {
		return 0
	}
	return a.Sub(b)
}

// Get returns the current playhead position.
func (t *TrackTimestamp) Get() time.Duration {
	mostRecent := satSub(t.mostRecentPosition, t.started)
	if t.paused {
		return mostRecent
	}
	elapsed := satSub(t.clock.Now(), t.mostRecentOperation)
	return mostRecent + mulDuration(elapsed, t.speed)
}

// Paused reports whether the playhead is currently paused.
func (t *TrackTimestamp) Paused() bool { return t.paused }

// Speed reports the current speed multiplier.
func (t *TrackTimestamp) Speed() float64 { return t.speed }

func mulDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

type timestampOp int

const (
	opPause timestampOp = iota
	opSpeed
	opSeek
)

func (t *TrackTimestamp) apply(op timestampOp, pause bool, speed float64, seek time.Duration) {
	now := t.clock.Now()
	sincePrev := now.Sub(t.lastOperation)
	t.lastOperation = now

	switch op {
	case opPause:
		t.paused = pause
		if pause {
			t.mostRecentPosition = t.mostRecentPosition.Add(mulDuration(sincePrev, t.speed))
		}
	case opSpeed:
		if !t.paused {
			t.mostRecentPosition = t.mostRecentPosition.Add(mulDuration(sincePrev, t.speed))
		}
		t.speed = speed
	case opSeek:
		t.mostRecentPosition = t.started.Add(seek)
	}

	t.mostRecentOperation = t.mostRecentOperation.Add(sincePrev)
}

// SetPause sets the paused state. A call that would not change state
// is a no-op and does not disturb the playhead.
func (t *TrackTimestamp) SetPause(state bool) {
	if state == t.paused {
		return
	}
	t.apply(opPause, state, 0, 0)
}

// SetSpeed changes the playback speed multiplier.
func (t *TrackTimestamp) SetSpeed(multiplier float64) {
	t.apply(opSpeed, false, multiplier, 0)
}

// SeekTo moves the playhead to an absolute position. Pause state is
// unaffected.
func (t *TrackTimestamp) SeekTo(position time.Duration) {
	t.apply(opSeek, false, 0, position)
}

// Resume is SetPause(false).
func (t *TrackTimestamp) Resume() { t.SetPause(false) }

// Pause is SetPause(true).
func (t *TrackTimestamp) Pause() { t.SetPause(true) }

// SeekForward moves the playhead forward by d, scaled by the current
// speed.
func (t *TrackTimestamp) SeekForward(d time.Duration) {
	t.SeekTo(t.Get() + mulDuration(d, t.speed))
}

// SeekBackward moves the playhead backward by d, scaled by the
// current speed, saturating at zero.
func (t *TrackTimestamp) SeekBackward(d time.Duration) {
	back := t.Get() - mulDuration(d, t.speed)
	if back < 0 {
		back = 0
	}
	t.SeekTo(back)
}
