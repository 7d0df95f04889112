package domain

import (
	"hash/maphash"
)

// Topic is any action requiring multi-voter consensus before it can
// proceed. Hash identifies it for poll-collision comparison; Voids
// names the ConnectionEvent causes that invalidate an in-flight poll
// started over this topic; Description is what the poll embed shows.
type Topic struct {
	Description string
	Voids       []string
}

var topicHashSeed = maphash.MakeSeed()

// Hash returns a 64-bit content hash of the topic, used to detect
// poll collisions (§4.6).
func (t Topic) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(topicHashSeed)
	_, _ = h.WriteString(t.Description)
	return h.Sum64()
}

// VoidedBy reports whether cause is one of this topic's voiding
// events.
func (t Topic) VoidedBy(cause string) bool {
	for _, v := range t.Voids {
		if v == cause {
			return true
		}
	}
	return false
}

// Resolution is the terminal state of a poll.
type Resolution int

const (
	ResolutionUnanimousWin Resolution = iota
	ResolutionUnanimousLoss
	ResolutionTimedOut
	ResolutionVoided
	ResolutionSupersededWinViaDJ
	ResolutionSupersededLossViaDJ
)

func (r Resolution) Won() bool {
	return r == ResolutionUnanimousWin || r == ResolutionSupersededWinViaDJ
}

func (r Resolution) String() string {
	switch r {
	case ResolutionUnanimousWin:
		return "unanimous-win"
	case ResolutionUnanimousLoss:
		return "unanimous-loss"
	case ResolutionTimedOut:
		return "timed-out"
	case ResolutionVoided:
		return "voided"
	case ResolutionSupersededWinViaDJ:
		return "superseded-win-via-dj"
	case ResolutionSupersededLossViaDJ:
		return "superseded-loss-via-dj"
	default:
		return "unknown"
	}
}

// Vote is a single voter's ballot.
type Vote bool

const (
	VoteDown Vote = false
	VoteUp   Vote = true
)

// PollRecord is what a Connection remembers about its active poll:
// the topic hash (for collision comparison) and where the poll
// message lives.
type PollRecord struct {
	ID        string
	TopicHash uint64
	GuildID   GuildID
	ChannelID ChannelID
	MessageID MessageID
}

// MessageLink renders the discord.com message-jump URL for the poll,
// the form `another-poll-ongoing` errors point users at.
func (p PollRecord) MessageLink() string {
	return "https://discord.com/channels/" + p.GuildID.String() + "/" + p.ChannelID.String() + "/" + p.MessageID.String()
}

// Threshold is round((voters+1)/2), the vote count needed (in favor
// or against) to resolve the poll without a timeout.
func Threshold(voters int) int {
	return (voters + 1 + 1) / 2
}

// VoteTally counts ballots and reports the running ratios the embed
// bar renders.
type VoteTally struct {
	Up   int
	Down int
}

func (v VoteTally) Total() int { return v.Up + v.Down }

// Resolved reports whether either side has reached threshold, and if
// so whether it was a win.
func (v VoteTally) Resolved(threshold int) (won bool, resolved bool) {
	if v.Up >= threshold {
		return true, true
	}
	if v.Down >= threshold {
		return false, true
	}
	return false, false
}

// Ratios returns the up/down/undecided fractions of voters, for the
// embed's three-character proportional bar.
func (v VoteTally) Ratios(voters int) (up, down, undecided float64) {
	if voters == 0 {
		return 0, 0, 0
	}
	up = float64(v.Up) / float64(voters)
	down = float64(v.Down) / float64(voters)
	undecided = 1 - up - down
	if undecided < 0 {
		undecided = 0
	}
	return up, down, undecided
}
