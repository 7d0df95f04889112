package ports

import (
	"context"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// VoiceState is a cache snapshot of one user's voice presence in a
// guild.
type VoiceState struct {
	UserID    domain.UserID
	ChannelID domain.ChannelID // zero value means not in voice
	Muted     bool
	Suppress  bool // server-suppressed (stage audience)
	IsBot     bool
}

// Permissions is the subset of chat-service permission bits this core
// consults.
type Permissions struct {
	MoveMembers  bool
	MuteMembers  bool
	ManageStage  bool
	Connect      bool
	Speak        bool
}

// Gateway is the typed interaction/cache/REST surface this core
// consumes from the chat service (§1, §6). It deliberately omits
// command parsing and localisation — those are presentation concerns.
type Gateway interface {
	VoiceStatesIn(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID) ([]VoiceState, error)
	VoiceStateOf(ctx context.Context, guildID domain.GuildID, userID domain.UserID) (VoiceState, bool, error)
	PermissionsIn(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID, userID domain.UserID) (Permissions, error)
	IsStageChannel(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID) (bool, error)

	// SetVoiceState issues an outbound gateway voice-state command:
	// join channelID (nil to leave) and optionally request to speak
	// in a stage channel.
	SetVoiceState(ctx context.Context, guildID domain.GuildID, channelID *domain.ChannelID, requestToSpeak bool) error
}

// Notifier is the chat-REST surface used to create/edit/delete
// messages and respond to interactions (§6). It is independent of any
// specific interaction in flight, unlike the per-command Responder in
// internal/bot.
type Notifier interface {
	SendMessage(ctx context.Context, channelID domain.ChannelID, content NotifyContent) (domain.MessageID, error)
	EditMessage(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, content NotifyContent) error
	DeleteMessage(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID) error
}

// NotifyContent is a chat-service-agnostic message body: a content
// string, at most one embed, and at most one row of buttons.
type NotifyContent struct {
	Content string
	Embed   *Embed
	Buttons []Button
}

// Embed is the subset of embed fields this core renders.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	ImageURL    string
	Timestamp   string // RFC3339, empty means unset
}

// Button is one component row entry.
type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Disabled bool
}
