package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the flat, exhaustive taxonomy this core
// surfaces at its command boundary. Each is a domain error: the
// classifier in application/usecases turns it into a user-facing
// reply rather than a log line.
var (
	ErrUserNotAccessManager = errors.New("user is not an access manager")
	ErrUserNotDJ            = errors.New("user is not dj")
	ErrUserNotStageManager  = errors.New("user is not a stage manager")
	ErrUserNotAllowed       = errors.New("user is not allowed to use this")
	ErrUserNotInVoice       = errors.New("user is not in a voice channel")

	ErrNotInVoice         = errors.New("bot is not in a voice channel")
	ErrQueueEmpty         = errors.New("queue is empty")
	ErrNotPlaying         = errors.New("not playing")
	ErrPaused             = errors.New("playback is paused")
	ErrStopped            = errors.New("playback is stopped")
	ErrQueueNotSeekable   = errors.New("current track is not seekable")
	ErrPositionOutOfRange = errors.New("position is out of range")

	ErrUnrecognisedConnection = errors.New("unrecognised connection")
	ErrConfirmationTimedOut   = errors.New("confirmation timed out")
)

// InVoiceAlready means the bot is already connected to channel.
type InVoiceAlready struct{ Channel ChannelID }

func (e InVoiceAlready) Error() string { return fmt.Sprintf("already in voice channel %s", e.Channel) }

// InVoiceWithoutUser means the bot is in channel but the invoking
// user is not.
type InVoiceWithoutUser struct{ Channel ChannelID }

func (e InVoiceWithoutUser) Error() string {
	return fmt.Sprintf("bot is in voice channel %s without the user", e.Channel)
}

// InVoiceWithSomeoneElse means a non-DJ user shares the channel with
// other non-bot listeners, so a unilateral action isn't permitted.
type InVoiceWithSomeoneElse struct{ Channel ChannelID }

func (e InVoiceWithSomeoneElse) Error() string {
	return fmt.Sprintf("someone else is in voice channel %s", e.Channel)
}

// InVoiceWithoutSomeoneElse means a check required other listeners to
// be present and none are.
type InVoiceWithoutSomeoneElse struct{ Channel ChannelID }

func (e InVoiceWithoutSomeoneElse) Error() string {
	return fmt.Sprintf("no one else is in voice channel %s", e.Channel)
}

// ConnectionForbidden means the bot lacks the permissions required to
// join channel.
type ConnectionForbidden struct {
	Channel            ChannelID
	MissingPermissions []string
}

func (e ConnectionForbidden) Error() string {
	return fmt.Sprintf("forbidden to connect to voice channel %s (missing %v)", e.Channel, e.MissingPermissions)
}

// NotUsersTrack means the user may not act on a track they didn't
// request and don't otherwise have standing over.
type NotUsersTrack struct {
	Requester UserID
	Position  int
	Title     string
	Channel   ChannelID
}

func (e NotUsersTrack) Error() string {
	return fmt.Sprintf("track %q at position %d was requested by %s, not you", e.Title, e.Position, e.Requester)
}

// SuppressionCause distinguishes the two ways a user can be
// suppressed: server-muted, or in a stage channel without speaker
// rights.
type SuppressionCause int

const (
	SuppressedMuted SuppressionCause = iota
	SuppressedNotSpeaker
)

// Suppressed means the bot cannot be heard.
type Suppressed struct{ Cause SuppressionCause }

func (e Suppressed) Error() string {
	if e.Cause == SuppressedMuted {
		return "bot is server-muted"
	}
	return "bot is in a stage channel without speaker rights"
}

// AutoJoinSuppressed is Suppressed raised specifically during the
// auto-join path, where StillNotSpeaker additionally names the
// interaction's last follow-up message so the user can be pointed at
// the "request to speak" notice.
type AutoJoinSuppressed struct {
	Cause        SuppressionCause
	LastFollowup MessageID
}

func (e AutoJoinSuppressed) Error() string {
	if e.Cause == SuppressedMuted {
		return "bot would be server-muted after auto-join"
	}
	return "bot is still not a speaker after auto-join's request to speak"
}

// AutoJoinAttemptFailed wraps the underlying cause of a failed
// auto-join attempt.
type AutoJoinAttemptFailed struct{ Cause error }

func (e AutoJoinAttemptFailed) Error() string { return fmt.Sprintf("auto-join failed: %v", e.Cause) }

func (e AutoJoinAttemptFailed) Unwrap() error { return e.Cause }

// AlternateVote is the outcome reported back to a caller who collided
// with an in-flight poll over the same topic.
type AlternateVote int

const (
	AlternateVoteNone AlternateVote = iota
	AlternateVoteCasted
	AlternateVoteAlreadyCasted
	AlternateVoteDenied
)

// AnotherPollOngoing means a check wanted to start a poll but the
// connection already has one active.
type AnotherPollOngoing struct {
	MessageLink   string
	AlternateVote AlternateVote
}

func (e AnotherPollOngoing) Error() string {
	return fmt.Sprintf("another poll is already ongoing: %s", e.MessageLink)
}

// PollLossSource names why a poll was lost.
type PollLossSource int

const (
	PollLossUnanimous PollLossSource = iota
	PollLossSupersededByDJ
)

// PollLoss means the poll resolved against the caller.
type PollLoss struct {
	Source PollLossSource
	Kind   string
}

func (e PollLoss) Error() string { return fmt.Sprintf("poll lost (%s)", e.Kind) }

// PollVoided means the poll was invalidated by a voiding domain event
// before it could resolve on its own.
type PollVoided struct{ Cause string }

func (e PollVoided) Error() string { return fmt.Sprintf("poll voided: %s", e.Cause) }

// InfraError wraps an infrastructure-layer failure (gateway, audio
// service, database, …) that the classifier logs rather than
// surfacing verbatim to the user.
type InfraError struct {
	Kind  string
	Cause error
}

func (e InfraError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Cause) }

func (e InfraError) Unwrap() error { return e.Cause }

// Infrastructure error kind constants, matching §7's taxonomy.
const (
	InfraCache             = "cache"
	InfraAudioService      = "lavalink"
	InfraChatREST          = "chat-http"
	InfraDeserializeBody   = "deserialize-body"
	InfraGatewaySend       = "gateway-send"
	InfraEventSend         = "event-send"
	InfraEventRecv         = "event-recv"
	InfraDatabase          = "sqlx"
	InfraTaskJoin          = "task-join"
	InfraEmbedValidation   = "embed-validation"
	InfraImageSourceURL    = "image-source-url"
	InfraMessageValidation = "message-validation"
	InfraStandbyCanceled   = "standby-canceled"
	InfraTimestampParse    = "timestamp-parse"
	InfraDominantPalette   = "get-dominant-palette-from-url"
)

// NewInfraError builds an InfraError of the given kind.
func NewInfraError(kind string, cause error) error {
	return InfraError{Kind: kind, Cause: cause}
}
