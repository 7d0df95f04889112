package usecases

import (
	"context"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// DJ is a user with both move-members and mute-members permissions
// (GLOSSARY), a bypass for most democratic checks.
func DJ(perms ports.Permissions) bool {
	return perms.MoveMembers && perms.MuteMembers
}

// InVoice is the result of confirming the bot is voice-connected in a
// guild.
type InVoice struct {
	Channel domain.ChannelID
}

// Checks composes the small precondition predicates of §4.7 against a
// gateway snapshot. It holds no state of its own; every method is
// pure given its inputs.
type Checks struct {
	gateway ports.Gateway
	access  ports.AccessOracle
	actor   *ConnectionActor
	botID   domain.UserID
}

func NewChecks(gateway ports.Gateway, access ports.AccessOracle, actor *ConnectionActor, botID domain.UserID) *Checks {
	return &Checks{gateway: gateway, access: access, actor: actor, botID: botID}
}

// UserAllowedIn consults the access-control oracle for userID's
// standing to use commands in channelID, given its thread/category
// parents.
func (c *Checks) UserAllowedIn(ctx context.Context, guildID domain.GuildID, userID domain.UserID, roleIDs []domain.UserID, channelID domain.ChannelID, parentIDs []domain.ChannelID) error {
	allowed, err := c.access.MayUse(ctx, guildID, userID, roleIDs, channelID, parentIDs)
	if err != nil {
		return domain.NewInfraError(domain.InfraDatabase, err)
	}
	if !allowed {
		return domain.ErrUserNotAllowed
	}
	return nil
}

// InVoiceOf confirms the bot is voice-connected in guildID.
func (c *Checks) InVoiceOf(guildID domain.GuildID) (InVoice, error) {
	conn, ok := c.actor.Handle(guildID).Head()
	if !ok {
		return InVoice{}, domain.ErrNotInVoice
	}
	return InVoice{Channel: conn.VoiceChannel}, nil
}

// InVoiceWithUserResult is returned by InVoiceWithUser: either the
// invoking user is a DJ (bypassing the shared-channel requirement), or
// the check still needs Only to rule out other non-bot listeners.
type InVoiceWithUserResult struct {
	UserIsDJ       bool
	ToBeDetermined bool
	Channel        domain.ChannelID
}

// InVoiceWithUser confirms userID shares the bot's voice channel,
// unless they are DJ.
func (c *Checks) InVoiceWithUser(ctx context.Context, guildID domain.GuildID, userID domain.UserID, perms ports.Permissions, inVoice InVoice) (InVoiceWithUserResult, error) {
	if DJ(perms) {
		return InVoiceWithUserResult{UserIsDJ: true, Channel: inVoice.Channel}, nil
	}

	state, ok, err := c.gateway.VoiceStateOf(ctx, guildID, userID)
	if err != nil {
		return InVoiceWithUserResult{}, domain.NewInfraError(domain.InfraCache, err)
	}
	if !ok || state.ChannelID != inVoice.Channel {
		return InVoiceWithUserResult{}, domain.InVoiceWithoutUser{Channel: inVoice.Channel}
	}
	return InVoiceWithUserResult{ToBeDetermined: true, Channel: inVoice.Channel}, nil
}

// Only confirms no non-bot third party shares the channel, unless the
// invoking user is DJ (already handled upstream by
// InVoiceWithUserResult.UserIsDJ).
func (c *Checks) Only(ctx context.Context, guildID domain.GuildID, userID domain.UserID, state InVoiceWithUserResult) error {
	if state.UserIsDJ {
		return nil
	}
	states, err := c.gateway.VoiceStatesIn(ctx, guildID, state.Channel)
	if err != nil {
		return domain.NewInfraError(domain.InfraCache, err)
	}
	for _, s := range states {
		if s.IsBot || s.UserID == userID {
			continue
		}
		return domain.InVoiceWithSomeoneElse{Channel: state.Channel}
	}
	return nil
}

// Unsuppressed confirms the bot can actually be heard: not
// server-muted, and if in a stage channel, an active speaker.
func (c *Checks) Unsuppressed(ctx context.Context, guildID domain.GuildID, inVoice InVoice) error {
	conn, ok := c.actor.Handle(guildID).Head()
	if !ok {
		return domain.ErrNotInVoice
	}
	if conn.Muted {
		return domain.Suppressed{Cause: domain.SuppressedMuted}
	}

	isStage, err := c.gateway.IsStageChannel(ctx, guildID, inVoice.Channel)
	if err != nil {
		return domain.NewInfraError(domain.InfraCache, err)
	}
	if !isStage {
		return nil
	}

	perms, err := c.gateway.PermissionsIn(ctx, guildID, inVoice.Channel, c.botID)
	if err != nil {
		return domain.NewInfraError(domain.InfraCache, err)
	}
	if !perms.Speak {
		return domain.Suppressed{Cause: domain.SuppressedNotSpeaker}
	}
	return nil
}

// TrackIsUsers confirms userID may act on the track at position:
// either they are DJ, they requested it, or they are the only non-bot
// listener present.
func (c *Checks) TrackIsUsers(ctx context.Context, guildID domain.GuildID, userID domain.UserID, track domain.Track, position int, state InVoiceWithUserResult, requester domain.UserID) error {
	if state.UserIsDJ || requester == userID {
		return nil
	}
	if err := c.Only(ctx, guildID, userID, state); err == nil {
		return nil
	}
	return domain.NotUsersTrack{Requester: requester, Position: position, Title: track.Title, Channel: state.Channel}
}
