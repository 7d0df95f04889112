package infrastructure

import (
	"context"
	"sync"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/application/ports"
	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

var (
	_ ports.AccessOracle     = (*MemoryAccessStore)(nil)
	_ ports.GuildConfigStore = (*MemoryAccessStore)(nil)
)

type accessKey struct {
	guildID domain.GuildID
	scope   ports.AccessScope
	id      domain.UserID
}

// MemoryAccessStore is an in-memory AccessOracle and GuildConfigStore.
// A persistent deployment would back this with a real database driver
// behind the same two interfaces; nothing in the application layer
// depends on the storage technology.
type MemoryAccessStore struct {
	mu      sync.RWMutex
	allowed map[accessKey]struct{}
	configs map[domain.GuildID]ports.GuildConfig
}

func NewMemoryAccessStore() *MemoryAccessStore {
	return &MemoryAccessStore{
		allowed: make(map[accessKey]struct{}),
		configs: make(map[domain.GuildID]ports.GuildConfig),
	}
}

// MayUse reports whether any of userID, its roles, channelID, or
// channelID's ancestor chain has an explicit allow entry. Access
// control here is purely additive: there is no deny list, only
// presence or absence of an allow entry.
func (s *MemoryAccessStore) MayUse(ctx context.Context, guildID domain.GuildID, userID domain.UserID, roleIDs []domain.UserID, channelID domain.ChannelID, parentIDs []domain.ChannelID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.has(guildID, ports.AccessScopeUser, userID) {
		return true, nil
	}
	for _, role := range roleIDs {
		if s.has(guildID, ports.AccessScopeRole, role) {
			return true, nil
		}
	}
	if channelID != 0 && s.has(guildID, ports.AccessScopeTextChannel, domain.UserID(channelID)) {
		return true, nil
	}
	if channelID != 0 && s.has(guildID, ports.AccessScopeVoiceChannel, domain.UserID(channelID)) {
		return true, nil
	}
	for _, parent := range parentIDs {
		if s.has(guildID, ports.AccessScopeCategoryChannel, domain.UserID(parent)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryAccessStore) has(guildID domain.GuildID, scope ports.AccessScope, id domain.UserID) bool {
	_, ok := s.allowed[accessKey{guildID: guildID, scope: scope, id: id}]
	return ok
}

func (s *MemoryAccessStore) Allow(ctx context.Context, guildID domain.GuildID, scope ports.AccessScope, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowed[accessKey{guildID: guildID, scope: scope, id: id}] = struct{}{}
	return nil
}

func (s *MemoryAccessStore) Disallow(ctx context.Context, guildID domain.GuildID, scope ports.AccessScope, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.allowed, accessKey{guildID: guildID, scope: scope, id: id})
	return nil
}

// Get returns guildID's config, or the zero-value default (now-playing
// messages disabled) if the guild has never set one.
func (s *MemoryAccessStore) Get(ctx context.Context, guildID domain.GuildID) (ports.GuildConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[guildID], nil
}

// SetNowPlaying is an administrative mutator exposed to the
// presentation layer's config command, not part of ports.GuildConfigStore.
func (s *MemoryAccessStore) SetNowPlaying(guildID domain.GuildID, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.configs[guildID]
	cfg.NowPlaying = enabled
	s.configs[guildID] = cfg
}
