package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const sec = time.Second

func newStamp(t *testing.T) (*TrackTimestamp, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Unix(0, 0))
	return NewTrackTimestamp(clock), clock
}

func TestTrackTimestamp_ThenGet(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())
}

func TestTrackTimestamp_Pause(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Pause()
	assert.Equal(t, sec, stamp.Get())

	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())
}

func TestTrackTimestamp_PauseResume(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Pause()
	assert.Equal(t, sec, stamp.Get())

	stamp.Resume()
	assert.Equal(t, sec, stamp.Get())
}

func TestTrackTimestamp_PauseThenResume(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Pause()
	assert.Equal(t, sec, stamp.Get())

	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Resume()
	assert.Equal(t, sec, stamp.Get())

	clock.Advance(sec)
	assert.Equal(t, 2*sec, stamp.Get())
}

func TestTrackTimestamp_SeekForward(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.SeekForward(sec)
	assert.Equal(t, 2*sec, stamp.Get())
}

func TestTrackTimestamp_PauseSeekForward(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Pause()
	assert.Equal(t, sec, stamp.Get())

	stamp.SeekForward(sec)
	assert.Equal(t, 2*sec, stamp.Get())
}

func TestTrackTimestamp_PauseThenSeekForward(t *testing.T) {
	stamp, clock := newStamp(t)

	stamp.Pause()
	assert.Equal(t, time.Duration(0), stamp.Get())

	clock.Advance(sec)
	assert.Equal(t, time.Duration(0), stamp.Get())

	stamp.SeekForward(sec)
	assert.Equal(t, sec, stamp.Get())
}

func TestTrackTimestamp_SeekBackward(t *testing.T) {
	cases := []struct {
		input, expected time.Duration
	}{
		{sec, sec},
		{2 * sec, 0},
		{3 * sec, 0},
	}
	for _, c := range cases {
		stamp, clock := newStamp(t)
		clock.Advance(2 * sec)
		assert.Equal(t, 2*sec, stamp.Get())

		stamp.SeekBackward(c.input)
		assert.Equal(t, c.expected, stamp.Get())
	}
}

func TestTrackTimestamp_PauseSeekBackward(t *testing.T) {
	cases := []struct {
		input, expected time.Duration
	}{
		{sec, sec},
		{2 * sec, 0},
		{4 * sec, 0},
	}
	for _, c := range cases {
		stamp, clock := newStamp(t)
		clock.Advance(2 * sec)
		assert.Equal(t, 2*sec, stamp.Get())

		stamp.Pause()
		assert.Equal(t, 2*sec, stamp.Get())

		stamp.SeekBackward(c.input)
		assert.Equal(t, c.expected, stamp.Get())
	}
}

func TestTrackTimestamp_Speed(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.SetSpeed(2.0)
	assert.Equal(t, sec, stamp.Get())

	clock.Advance(sec)
	assert.Equal(t, 3*sec, stamp.Get())
}

func TestTrackTimestamp_PauseSpeed(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Pause()
	assert.Equal(t, sec, stamp.Get())

	stamp.SetSpeed(2.0)
	assert.Equal(t, sec, stamp.Get())
}

func TestTrackTimestamp_PauseSpeedResume(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Pause()
	stamp.SetSpeed(2.0)
	assert.Equal(t, sec, stamp.Get())

	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Resume()
	assert.Equal(t, sec, stamp.Get())

	clock.Advance(sec)
	assert.Equal(t, 3*sec, stamp.Get())
}

func TestTrackTimestamp_SpeedSeekForward(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	stamp.SetSpeed(2.0)
	assert.Equal(t, sec, stamp.Get())

	stamp.SeekForward(sec)
	assert.Equal(t, 3*sec, stamp.Get())
}

func TestTrackTimestamp_SpeedSeekBackward(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)
	stamp.SetSpeed(2.0)
	assert.Equal(t, sec, stamp.Get())

	stamp.SeekBackward(sec)
	assert.Equal(t, time.Duration(0), stamp.Get())
}

func TestTrackTimestamp_PausePauseIsIdempotent(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)

	stamp.Pause()
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())

	stamp.Pause()
	clock.Advance(sec)
	assert.Equal(t, sec, stamp.Get())
}

func TestTrackTimestamp_ResumeWithoutPauseIsNoop(t *testing.T) {
	stamp, clock := newStamp(t)
	clock.Advance(sec)

	stamp.Resume()
	assert.Equal(t, sec, stamp.Get())
}
