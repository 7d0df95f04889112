package ports

import (
	"context"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// AccessScope names which list an access-control entry belongs to
// (§6): the engine issues idempotent insert-if-absent / delete-by-id
// operations against these, keyed by guild.
type AccessScope int

const (
	AccessScopeUser AccessScope = iota
	AccessScopeRole
	AccessScopeThread
	AccessScopeTextChannel
	AccessScopeVoiceChannel
	AccessScopeCategoryChannel
)

// AccessOracle is the boolean may-use(user, roles, channel, parents)
// consultation this core treats the access-control database as (§1).
// It is the only surface the database is exposed through; schema and
// SQL live entirely in the adapter.
type AccessOracle interface {
	MayUse(ctx context.Context, guildID domain.GuildID, userID domain.UserID, roleIDs []domain.UserID, channelID domain.ChannelID, parentIDs []domain.ChannelID) (bool, error)

	Allow(ctx context.Context, guildID domain.GuildID, scope AccessScope, id domain.UserID) error
	Disallow(ctx context.Context, guildID domain.GuildID, scope AccessScope, id domain.UserID) error
}

// GuildConfig is the persisted per-guild configuration row this core
// reads (§6): currently just whether now-playing messages are
// enabled.
type GuildConfig struct {
	NowPlaying bool
}

// GuildConfigStore is the persistence surface for GuildConfig.
type GuildConfigStore interface {
	Get(ctx context.Context, guildID domain.GuildID) (GuildConfig, error)
}
