package usecases

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// pollButtonIDAlphabet is the character set custom IDs are drawn from
// (§4.6, §6): 100 random [A-Za-z0-9] characters per button, generated
// through crypto/rand rather than math/rand since these IDs are the
// only thing standing between a vote and a forged button press.
const pollButtonIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomCustomID(n int) (string, error) {
	alphabetLen := big.NewInt(int64(len(pollButtonIDAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate poll button id: %w", err)
		}
		out[i] = pollButtonIDAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// PollOutcome is the terminal report a poll runner hands its caller:
// how the poll resolved.
type PollOutcome struct {
	Resolution domain.Resolution
}

// ComponentEvent is a button press the poll runner watches for,
// normalised away from the specific gateway interaction shape.
type ComponentEvent struct {
	CustomID string
	UserID   domain.UserID
}

// PollRunner drives one poll instance end to end (§4.6): posting the
// embed, registering it on the connection, tallying votes, and
// resolving on threshold, timeout, DJ supersession, or void.
type PollRunner struct {
	actor    *ConnectionActor
	notifier ports.Notifier
	gateway  ports.Gateway
	palette  domain.PollPalette
	clock    domain.Clock
}

func NewPollRunner(actor *ConnectionActor, notifier ports.Notifier, gateway ports.Gateway, clock domain.Clock) *PollRunner {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &PollRunner{actor: actor, notifier: notifier, gateway: gateway, palette: domain.DefaultPollPalette(), clock: clock}
}

// Run posts a poll for topic in textChannel, auto-upvoting initiator,
// and blocks until it resolves. components delivers button presses
// whose CustomID matches one of the two generated IDs; it is the
// caller's responsibility to route presses there (presentation layer
// owns the actual discordgo component dispatch).
func (r *PollRunner) Run(ctx context.Context, guildID domain.GuildID, textChannel domain.ChannelID, voiceChannel domain.ChannelID, initiator domain.UserID, topic domain.Topic, components <-chan ComponentEvent, djPresser func(domain.UserID) bool) (PollOutcome, error) {
	voters, err := r.eligibleVoters(ctx, guildID, voiceChannel, initiator)
	if err != nil {
		return PollOutcome{}, err
	}
	threshold := domain.Threshold(len(voters))

	upID, err := randomCustomID(domain.PollButtonCustomIDLength)
	if err != nil {
		return PollOutcome{}, err
	}
	downID, err := randomCustomID(domain.PollButtonCustomIDLength)
	if err != nil {
		return PollOutcome{}, err
	}

	tally := domain.VoteTally{Up: 1}
	cast := map[domain.UserID]domain.Vote{initiator: domain.VoteUp}

	messageID, err := r.post(ctx, textChannel, topic, tally, threshold, len(voters), upID, downID)
	if err != nil {
		return PollOutcome{}, err
	}

	handle := r.actor.Handle(guildID)
	pollID := uuid.New().String()
	record := &domain.PollRecord{
		ID:        pollID,
		TopicHash: topic.Hash(),
		GuildID:   guildID,
		ChannelID: textChannel,
		MessageID: messageID,
	}
	handle.SetPoll(record)
	defer handle.SetPoll(nil)
	slog.Info("poll started", "poll_id", pollID, "guild", guildID, "topic", topic.Description)

	sub, err := handle.Subscribe()
	if err != nil {
		return PollOutcome{}, err
	}
	defer sub.Unsubscribe()

	eligible := make(map[domain.UserID]bool, len(voters))
	for _, v := range voters {
		eligible[v] = true
	}

	for {
		select {
		case ev, ok := <-components:
			if !ok {
				components = nil
				continue
			}
			if ev.CustomID != upID && ev.CustomID != downID {
				continue
			}
			if djPresser != nil && djPresser(ev.UserID) {
				if ev.CustomID == upID {
					return PollOutcome{Resolution: domain.ResolutionSupersededWinViaDJ}, nil
				}
				return PollOutcome{Resolution: domain.ResolutionSupersededLossViaDJ}, nil
			}
			if !eligible[ev.UserID] {
				continue
			}
			if _, already := cast[ev.UserID]; already {
				continue
			}
			vote := domain.Vote(ev.CustomID == upID)
			cast[ev.UserID] = vote
			if vote {
				tally.Up++
			} else {
				tally.Down++
			}
			if err := r.update(ctx, textChannel, messageID, topic, tally, threshold, len(voters), upID, downID); err != nil {
				return PollOutcome{}, err
			}
			if won, resolved := tally.Resolved(threshold); resolved {
				if won {
					return PollOutcome{Resolution: domain.ResolutionUnanimousWin}, nil
				}
				return PollOutcome{Resolution: domain.ResolutionUnanimousLoss}, nil
			}

		case event, ok := <-sub.Events():
			if !ok {
				return PollOutcome{Resolution: domain.ResolutionVoided}, nil
			}
			switch e := event.(type) {
			case domain.AlternateDJCastEvent:
				return PollOutcome{Resolution: domain.ResolutionSupersededWinViaDJ}, nil
			case domain.VoidEvent:
				if topic.VoidedBy(e.Cause) {
					return PollOutcome{Resolution: domain.ResolutionVoided}, nil
				}
			case domain.AlternateCastEvent:
				if eligible[e.User] {
					if _, already := cast[e.User]; !already {
						cast[e.User] = domain.VoteUp
						tally.Up++
						_ = r.update(ctx, textChannel, messageID, topic, tally, threshold, len(voters), upID, downID)
						handle.Dispatch(domain.AlternateCastAckEvent{GuildID: guildID, Vote: domain.AlternateVoteCasted})
						if won, resolved := tally.Resolved(threshold); resolved {
							if won {
								return PollOutcome{Resolution: domain.ResolutionUnanimousWin}, nil
							}
							return PollOutcome{Resolution: domain.ResolutionUnanimousLoss}, nil
						}
						continue
					}
					handle.Dispatch(domain.AlternateCastAckEvent{GuildID: guildID, Vote: domain.AlternateVoteAlreadyCasted})
					continue
				}
				handle.Dispatch(domain.AlternateCastAckEvent{GuildID: guildID, Vote: domain.AlternateVoteDenied})
			}

		case <-time.After(domain.PollEventTimeout):
			return PollOutcome{Resolution: domain.ResolutionTimedOut}, nil

		case <-ctx.Done():
			return PollOutcome{}, ctx.Err()
		}
	}
}

// eligibleVoters is every non-bot user in voiceChannel at poll-start
// time, always including initiator even if the cache lookup races.
func (r *PollRunner) eligibleVoters(ctx context.Context, guildID domain.GuildID, voiceChannel domain.ChannelID, initiator domain.UserID) ([]domain.UserID, error) {
	states, err := r.gateway.VoiceStatesIn(ctx, guildID, voiceChannel)
	if err != nil {
		return nil, domain.NewInfraError(domain.InfraCache, err)
	}
	seen := map[domain.UserID]bool{initiator: true}
	voters := []domain.UserID{initiator}
	for _, s := range states {
		if s.IsBot || seen[s.UserID] {
			continue
		}
		seen[s.UserID] = true
		voters = append(voters, s.UserID)
	}
	return voters, nil
}

func (r *PollRunner) render(topic domain.Topic, tally domain.VoteTally, threshold, voters int, upID, downID string) ports.NotifyContent {
	up, down, _ := tally.Ratios(voters)
	bar := domain.Bar(up, down)
	desc := fmt.Sprintf("%s\n\n%s\n👍 %d  👎 %d  ·  need %d to resolve", topic.Description, bar, tally.Up, tally.Down, threshold)
	return ports.NotifyContent{
		Embed: &ports.Embed{
			Title:       "Vote required",
			Description: desc,
			Color:       r.palette.Mix(up, down),
		},
		Buttons: []ports.Button{
			{CustomID: upID, Label: "Agree", Emoji: "👍"},
			{CustomID: downID, Label: "Disagree", Emoji: "👎"},
		},
	}
}

func (r *PollRunner) post(ctx context.Context, textChannel domain.ChannelID, topic domain.Topic, tally domain.VoteTally, threshold, voters int, upID, downID string) (domain.MessageID, error) {
	id, err := r.notifier.SendMessage(ctx, textChannel, r.render(topic, tally, threshold, voters, upID, downID))
	if err != nil {
		return 0, domain.NewInfraError(domain.InfraChatREST, err)
	}
	return id, nil
}

func (r *PollRunner) update(ctx context.Context, textChannel domain.ChannelID, messageID domain.MessageID, topic domain.Topic, tally domain.VoteTally, threshold, voters int, upID, downID string) error {
	if err := r.notifier.EditMessage(ctx, textChannel, messageID, r.render(topic, tally, threshold, voters, upID, downID)); err != nil {
		return domain.NewInfraError(domain.InfraChatREST, err)
	}
	return nil
}

// PollStarter is handed to a caller whose check failed only because
// of an in-voice-with-someone-else precondition; AndThenStart either
// resolves the check via a poll or fails with AnotherPollOngoing when
// a poll is already active. The originalErr it is given is never
// returned (§4.7). It also implements the poll-collision branches of
// §4.6.
type PollStarter struct {
	actor   *ConnectionActor
	runner  *PollRunner
	guildID domain.GuildID
}

func NewPollStarter(actor *ConnectionActor, runner *PollRunner, guildID domain.GuildID) *PollStarter {
	return &PollStarter{actor: actor, runner: runner, guildID: guildID}
}

// AndThenStart starts a poll over topic, or, if the connection
// already has one active, resolves the collision per §4.6 and
// returns an AnotherPollOngoing error.
func (s *PollStarter) AndThenStart(ctx context.Context, textChannel, voiceChannel domain.ChannelID, initiator domain.UserID, isDJ bool, topic domain.Topic, components <-chan ComponentEvent, djPresser func(domain.UserID) bool, originalErr error) (PollOutcome, error) {
	handle := s.actor.Handle(s.guildID)
	active := handle.GetPoll()
	if active == nil {
		return s.runner.Run(ctx, s.guildID, textChannel, voiceChannel, initiator, topic, components, djPresser)
	}

	if active.TopicHash == topic.Hash() {
		if isDJ {
			handle.Dispatch(domain.AlternateDJCastEvent{GuildID: s.guildID})
			return PollOutcome{}, domain.AnotherPollOngoing{MessageLink: active.MessageLink(), AlternateVote: domain.AlternateVoteNone}
		}
		return PollOutcome{}, s.waitForAlternateCast(handle, active, initiator)
	}

	return PollOutcome{}, domain.AnotherPollOngoing{MessageLink: active.MessageLink(), AlternateVote: domain.AlternateVoteNone}
}

// waitForAlternateCast dispatches an AlternateCastEvent for initiator
// against the active poll and waits up to AlternateCastAckTimeout for
// the poll waiter to acknowledge how the cast was resolved. Absence of
// an ack within the deadline is treated as casted (§4.6). Unlike the
// source's "on alternate-cast-denied the caller returns Casted"
// quirk, this implementation surfaces denial as its own vote instead
// of silently treating it as a cast.
func (s *PollStarter) waitForAlternateCast(handle *ConnectionHandle, active *domain.PollRecord, initiator domain.UserID) error {
	sub, err := handle.Subscribe()
	if err != nil {
		return domain.AnotherPollOngoing{MessageLink: active.MessageLink(), AlternateVote: domain.AlternateVoteCasted}
	}
	defer sub.Unsubscribe()

	handle.Dispatch(domain.AlternateCastEvent{GuildID: s.guildID, User: initiator})

	timeout := time.NewTimer(domain.AlternateCastAckTimeout)
	defer timeout.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return domain.AnotherPollOngoing{MessageLink: active.MessageLink(), AlternateVote: domain.AlternateVoteCasted}
			}
			ack, ok := event.(domain.AlternateCastAckEvent)
			if !ok {
				continue
			}
			return domain.AnotherPollOngoing{MessageLink: active.MessageLink(), AlternateVote: ack.Vote}
		case <-timeout.C:
			return domain.AnotherPollOngoing{MessageLink: active.MessageLink(), AlternateVote: domain.AlternateVoteCasted}
		}
	}
}
