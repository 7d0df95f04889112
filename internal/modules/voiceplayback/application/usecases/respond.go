package usecases

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// ReplyKind is a small decorator enum standing in for the source's
// reply macros: each variant carries an emoji prefix and whether the
// reply is ephemeral.
type ReplyKind int

const (
	ReplyOut  ReplyKind = iota // normal informational reply
	ReplyNote                  // a minor heads-up
	ReplyWarn                  // a recoverable problem
	ReplySusp                  // suspicious/disallowed action
	ReplyNope                  // precondition failure
	ReplyBlck                  // access denied
	ReplyErro                  // infrastructure failure
	ReplyHid                   // ephemeral-only acknowledgement
)

func (k ReplyKind) emoji() string {
	switch k {
	case ReplyOut:
		return "🎶"
	case ReplyNote:
		return "📝"
	case ReplyWarn:
		return "⚠️"
	case ReplySusp:
		return "🕵️"
	case ReplyNope:
		return "🚫"
	case ReplyBlck:
		return "🔒"
	case ReplyErro:
		return "💥"
	case ReplyHid:
		return "🤫"
	default:
		return ""
	}
}

func (k ReplyKind) ephemeral() bool {
	switch k {
	case ReplyNope, ReplyBlck, ReplyErro, ReplySusp, ReplyHid:
		return true
	default:
		return false
	}
}

// Reply is the dispatch-ready content a classified error (or a
// successful command) produces.
type Reply struct {
	Kind      ReplyKind
	Content   ports.NotifyContent
	Ephemeral bool
}

// Render prefixes msg with Kind's emoji and folds Kind's ephemerality
// in, a single dispatch function in place of the source's
// per-ephemerality reply macros.
func Render(kind ReplyKind, msg string) Reply {
	return Reply{Kind: kind, Content: ports.NotifyContent{Content: kind.emoji() + " " + msg}, Ephemeral: kind.ephemeral()}
}

// Classify turns a command-boundary error into a user-facing Reply,
// or logs it and returns a generic failure Reply when it is an
// infrastructure error (§7). Domain errors are never logged as
// failures: they are expected, everyday control flow.
func Classify(err error) Reply {
	if err == nil {
		return Render(ReplyOut, "done")
	}

	var infra domain.InfraError
	if errors.As(err, &infra) {
		slog.Error("voiceplayback: infrastructure failure", "kind", infra.Kind, "error", infra.Cause)
		return Render(ReplyErro, "something went wrong handling that")
	}

	switch {
	case errors.Is(err, domain.ErrUnrecognisedConnection):
		return Render(ReplyWarn, "the bot's voice session ended unexpectedly; try reconnecting")
	case errors.Is(err, domain.ErrUserNotAllowed), errors.Is(err, domain.ErrUserNotDJ),
		errors.Is(err, domain.ErrUserNotAccessManager), errors.Is(err, domain.ErrUserNotStageManager):
		return Render(ReplyBlck, err.Error())
	case errors.Is(err, domain.ErrUserNotInVoice), errors.Is(err, domain.ErrNotInVoice):
		return Render(ReplyNope, err.Error())
	case errors.Is(err, domain.ErrQueueEmpty), errors.Is(err, domain.ErrNotPlaying),
		errors.Is(err, domain.ErrPaused), errors.Is(err, domain.ErrStopped),
		errors.Is(err, domain.ErrQueueNotSeekable), errors.Is(err, domain.ErrPositionOutOfRange):
		return Render(ReplyNope, err.Error())
	}

	var pollLoss domain.PollLoss
	if errors.As(err, &pollLoss) {
		return Render(ReplySusp, fmt.Sprintf("the vote didn't pass (%s)", pollLoss.Kind))
	}
	var pollVoided domain.PollVoided
	if errors.As(err, &pollVoided) {
		return Render(ReplyWarn, fmt.Sprintf("the vote was cancelled: %s", pollVoided.Cause))
	}
	var anotherPoll domain.AnotherPollOngoing
	if errors.As(err, &anotherPoll) {
		return Render(ReplyNote, "a vote is already in progress: "+anotherPoll.MessageLink)
	}
	var notUsers domain.NotUsersTrack
	if errors.As(err, &notUsers) {
		return Render(ReplySusp, err.Error())
	}
	var suppressed domain.Suppressed
	if errors.As(err, &suppressed) {
		return Render(ReplyWarn, err.Error())
	}

	// Any other error, named domain type or not, renders its own
	// Error() text as a warning; there is no generic fallback message.
	return Render(ReplyWarn, err.Error())
}
