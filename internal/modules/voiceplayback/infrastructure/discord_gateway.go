package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

var _ ports.Gateway = (*DiscordGateway)(nil)

// DiscordGateway reads voice/permission state from discordgo's local
// cache and issues outbound voice-state commands over the gateway.
type DiscordGateway struct {
	session *discordgo.Session
}

func NewDiscordGateway(session *discordgo.Session) *DiscordGateway {
	return &DiscordGateway{session: session}
}

func (g *DiscordGateway) VoiceStatesIn(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID) ([]ports.VoiceState, error) {
	guild, err := g.session.State.Guild(snowflake.ID(guildID).String())
	if err != nil {
		return nil, fmt.Errorf("cache miss for guild %s: %w", guildID, err)
	}

	var states []ports.VoiceState
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != snowflake.ID(channelID).String() {
			continue
		}
		member, err := g.session.State.Member(snowflake.ID(guildID).String(), vs.UserID)
		isBot := err == nil && member.User != nil && member.User.Bot

		userID, parseErr := snowflake.Parse(vs.UserID)
		if parseErr != nil {
			continue
		}
		states = append(states, ports.VoiceState{
			UserID:    domain.UserID(userID),
			ChannelID: channelID,
			Muted:     vs.Mute || vs.SelfMute,
			Suppress:  vs.Suppress,
			IsBot:     isBot,
		})
	}
	return states, nil
}

func (g *DiscordGateway) VoiceStateOf(ctx context.Context, guildID domain.GuildID, userID domain.UserID) (ports.VoiceState, bool, error) {
	guild, err := g.session.State.Guild(snowflake.ID(guildID).String())
	if err != nil {
		return ports.VoiceState{}, false, fmt.Errorf("cache miss for guild %s: %w", guildID, err)
	}
	uid := snowflake.ID(userID).String()
	for _, vs := range guild.VoiceStates {
		if vs.UserID != uid || vs.ChannelID == "" {
			continue
		}
		channelID, err := snowflake.Parse(vs.ChannelID)
		if err != nil {
			return ports.VoiceState{}, false, err
		}
		member, err := g.session.State.Member(snowflake.ID(guildID).String(), uid)
		isBot := err == nil && member.User != nil && member.User.Bot
		return ports.VoiceState{
			UserID:    userID,
			ChannelID: domain.ChannelID(channelID),
			Muted:     vs.Mute || vs.SelfMute,
			Suppress:  vs.Suppress,
			IsBot:     isBot,
		}, true, nil
	}
	return ports.VoiceState{}, false, nil
}

func (g *DiscordGateway) PermissionsIn(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID, userID domain.UserID) (ports.Permissions, error) {
	bits, err := g.session.State.UserChannelPermissions(snowflake.ID(userID).String(), snowflake.ID(channelID).String())
	if err != nil {
		return ports.Permissions{}, fmt.Errorf("compute channel permissions: %w", err)
	}
	return ports.Permissions{
		MoveMembers: bits&discordgo.PermissionVoiceMoveMembers != 0,
		MuteMembers: bits&discordgo.PermissionVoiceMuteMembers != 0,
		ManageStage: bits&discordgo.PermissionManageChannels != 0,
		Connect:     bits&discordgo.PermissionVoiceConnect != 0,
		Speak:       bits&discordgo.PermissionVoiceSpeak != 0,
	}, nil
}

func (g *DiscordGateway) IsStageChannel(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID) (bool, error) {
	channel, err := g.session.State.Channel(snowflake.ID(channelID).String())
	if err != nil {
		return false, fmt.Errorf("cache miss for channel %s: %w", channelID, err)
	}
	return channel.Type == discordgo.ChannelTypeGuildStageVoice, nil
}

func (g *DiscordGateway) SetVoiceState(ctx context.Context, guildID domain.GuildID, channelID *domain.ChannelID, requestToSpeak bool) error {
	if channelID == nil {
		return g.session.ChannelVoiceJoinManual(snowflake.ID(guildID).String(), "", false, false)
	}

	if err := g.session.ChannelVoiceJoinManual(snowflake.ID(guildID).String(), snowflake.ID(*channelID).String(), false, true); err != nil {
		return err
	}

	if requestToSpeak {
		return g.requestToSpeak(guildID)
	}
	return nil
}

// requestToSpeak asks a stage channel's moderators to invite the bot
// to speak, via the "modify current user voice state" REST endpoint
// discordgo has no typed wrapper for.
func (g *DiscordGateway) requestToSpeak(guildID domain.GuildID) error {
	body := struct {
		RequestToSpeakTimestamp string `json:"request_to_speak_timestamp"`
	}{RequestToSpeakTimestamp: time.Now().UTC().Format(time.RFC3339)}

	_, err := g.session.RequestWithBucketID(
		"PATCH",
		discordgo.EndpointGuild(snowflake.ID(guildID).String())+"/voice-states/@me",
		body,
		discordgo.EndpointGuild(snowflake.ID(guildID).String())+"/voice-states/@me",
	)
	return err
}
