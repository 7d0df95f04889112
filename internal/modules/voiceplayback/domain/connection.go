package domain

// ChangeWatch is the two-state flag used by the voice-state-change
// protocol (§4.1) to tell a bot-commanded voice change apart from one
// caused externally. A new connection (a commanded join) starts
// Unread, and the inactivity timeout sets it Unread before tearing the
// connection down; the voice-state handler sets it back to Read on the
// bot's own next voice-state update. An explicit leave does not set it.
type ChangeWatch int

const (
	ChangeRead ChangeWatch = iota
	ChangeUnread
)

// Connection is the per-guild record that exists iff the bot is, or
// was just commanded to be, voice-joined in that guild.
type Connection struct {
	GuildID       GuildID
	VoiceChannel  ChannelID
	TextChannel   ChannelID
	Muted         bool
	Poll          *PollRecord
	ChangeWatch   ChangeWatch
}

// NewConnection constructs a Connection freshly joined to voiceChannel
// with replies routed to textChannel.
func NewConnection(guildID GuildID, voiceChannel, textChannel ChannelID) *Connection {
	return &Connection{
		GuildID:      guildID,
		VoiceChannel: voiceChannel,
		TextChannel:  textChannel,
		ChangeWatch:  ChangeUnread,
	}
}

// SetChangeNotification sets the watch, returning the previous value.
func (c *Connection) SetChangeNotification(state ChangeWatch) ChangeWatch {
	prev := c.ChangeWatch
	c.ChangeWatch = state
	return prev
}

// ToggleMute flips the mute flag and returns the new value.
func (c *Connection) ToggleMute() bool {
	c.Muted = !c.Muted
	return c.Muted
}
