package domain

// PlayerData is the per-guild mutable state that exists iff the audio
// service has produced a player for this guild. It is created and
// destroyed together with that player.
type PlayerData struct {
	Queue     *Queue
	Volume    int
	Pitch     int
	Timestamp *TrackTimestamp

	TextChannel    ChannelID
	NowPlaying     *NowPlayingHandle
}

// NewPlayerData builds fresh player data at the default volume,
// neutral pitch, and an empty queue, for a player just created in
// textChannel.
func NewPlayerData(textChannel ChannelID, clock Clock) *PlayerData {
	return &PlayerData{
		Queue:       NewQueue(),
		Volume:      DefaultVolume,
		Pitch:       0,
		Timestamp:   NewTrackTimestamp(clock),
		TextChannel: textChannel,
	}
}

// SetVolume clamps v to [MinVolume, MaxVolume] and applies it.
func (p *PlayerData) SetVolume(v int) int {
	if v < MinVolume {
		v = MinVolume
	}
	if v > MaxVolume {
		v = MaxVolume
	}
	p.Volume = v
	return v
}

// Playing reports whether a current track exists and the timestamp
// isn't paused.
func (p *PlayerData) Playing() bool {
	_, ok := p.Queue.Current()
	return ok && !p.Timestamp.Paused()
}

// Paused reports whether a current track exists and is paused.
func (p *PlayerData) Paused() bool {
	_, ok := p.Queue.Current()
	return ok && p.Timestamp.Paused()
}

// Stopped reports whether there is no current track at all.
func (p *PlayerData) Stopped() bool {
	_, ok := p.Queue.Current()
	return !ok
}
