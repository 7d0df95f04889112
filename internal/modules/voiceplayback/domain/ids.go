// Package domain holds the pure, framework-free types for the
// voice-playback core: connections, player data, queues, track
// timestamps, now-playing snapshots, and polls. Nothing in this
// package imports discordgo, disgolink, or any adapter.
package domain

import "github.com/disgoorg/snowflake/v2"

// GuildID, ChannelID, UserID and MessageID are all chat-service
// snowflakes. They are distinct aliases only for readability at call
// sites; the underlying representation is shared.
type (
	GuildID   = snowflake.ID
	ChannelID = snowflake.ID
	UserID    = snowflake.ID
	MessageID = snowflake.ID
)
