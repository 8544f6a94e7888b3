package directory

import (
	"context"
	"sync"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/google/uuid"
)

type overwriteKey struct {
	target   goPerm.OverwriteTarget
	targetID string
}

// Memory is an in-memory store implementing both goPerm.Directory and
// goPerm.MutationStore. One RWMutex guards everything; this store is for
// tests, examples, and load harnesses, not for production scale.
type Memory struct {
	mu          sync.RWMutex
	servers     map[string]goPerm.Server
	roles       map[string]map[string]goPerm.Role
	everyone    map[string]string
	channels    map[string]goPerm.Channel
	members     map[string]map[string]goPerm.Member
	memberRoles map[string]map[string]map[string]struct{}
	overwrites  map[string]map[overwriteKey]goPerm.ChannelOverwrite
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		servers:     make(map[string]goPerm.Server),
		roles:       make(map[string]map[string]goPerm.Role),
		everyone:    make(map[string]string),
		channels:    make(map[string]goPerm.Channel),
		members:     make(map[string]map[string]goPerm.Member),
		memberRoles: make(map[string]map[string]map[string]struct{}),
		overwrites:  make(map[string]map[overwriteKey]goPerm.ChannelOverwrite),
	}
}

/*
====================================
SEEDING
====================================
*/

// CreateServer creates a server and its implicit @everyone role at position
// zero with the given base permissions. The owner is added as a member.
func (m *Memory) CreateServer(ownerID, name string, everyonePerms permission.Mask) goPerm.Server {
	m.mu.Lock()
	defer m.mu.Unlock()

	server := goPerm.Server{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
	}
	m.servers[server.ID] = server

	everyone := goPerm.Role{
		ID:          uuid.NewString(),
		ServerID:    server.ID,
		Name:        goPerm.EveryoneRoleName,
		Permissions: everyonePerms,
		Position:    0,
	}
	m.roles[server.ID] = map[string]goPerm.Role{everyone.ID: everyone}
	m.everyone[server.ID] = everyone.ID

	m.members[server.ID] = map[string]goPerm.Member{
		ownerID: {ServerID: server.ID, UserID: ownerID, JoinedAt: time.Now().UTC()},
	}
	m.memberRoles[server.ID] = map[string]map[string]struct{}{}

	return server
}

// EveryoneRoleID returns the id of a server's @everyone role.
func (m *Memory) EveryoneRoleID(serverID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.everyone[serverID]
}

// AddMember creates a membership row.
func (m *Memory) AddMember(serverID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[serverID]; !ok {
		return goPerm.ErrServerNotFound
	}

	m.members[serverID][userID] = goPerm.Member{
		ServerID: serverID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	return nil
}

// RemoveMember deletes a membership row and its role assignments; this is
// how leave, kick, and ban reach the store.
func (m *Memory) RemoveMember(serverID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.members[serverID], userID)
	delete(m.memberRoles[serverID], userID)
}

/*
====================================
DIRECTORY (READ SIDE)
====================================
*/

// GetServer implements goPerm.Directory.
func (m *Memory) GetServer(_ context.Context, serverID string) (goPerm.Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	server, ok := m.servers[serverID]
	if !ok {
		return goPerm.Server{}, goPerm.ErrServerNotFound
	}
	return server, nil
}

// GetMemberRoles implements goPerm.Directory. The @everyone role is always
// first in the returned slice.
func (m *Memory) GetMemberRoles(_ context.Context, serverID, userID string) ([]goPerm.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.servers[serverID]; !ok {
		return nil, goPerm.ErrServerNotFound
	}
	if _, ok := m.members[serverID][userID]; !ok {
		return nil, goPerm.ErrNotAMember
	}

	serverRoles := m.roles[serverID]
	roles := []goPerm.Role{serverRoles[m.everyone[serverID]]}
	for roleID := range m.memberRoles[serverID][userID] {
		if role, ok := serverRoles[roleID]; ok {
			roles = append(roles, role)
		}
	}

	return roles, nil
}

// GetChannel implements goPerm.Directory.
func (m *Memory) GetChannel(_ context.Context, channelID string) (goPerm.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channel, ok := m.channels[channelID]
	if !ok {
		return goPerm.Channel{}, goPerm.ErrChannelNotFound
	}
	return channel, nil
}

// GetChannelOverwrites implements goPerm.Directory.
func (m *Memory) GetChannelOverwrites(_ context.Context, channelID string) ([]goPerm.ChannelOverwrite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channelOverwrites := m.overwrites[channelID]
	if len(channelOverwrites) == 0 {
		return nil, nil
	}

	out := make([]goPerm.ChannelOverwrite, 0, len(channelOverwrites))
	for _, ow := range channelOverwrites {
		out = append(out, ow)
	}
	return out, nil
}

/*
====================================
MUTATION STORE (WRITE SIDE)
====================================
*/

// CreateChannel implements goPerm.MutationStore.
func (m *Memory) CreateChannel(_ context.Context, ch goPerm.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[ch.ServerID]; !ok {
		return goPerm.ErrServerNotFound
	}

	m.channels[ch.ID] = ch
	return nil
}

// UpsertOverwrite implements goPerm.MutationStore.
func (m *Memory) UpsertOverwrite(_ context.Context, ow goPerm.ChannelOverwrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.channels[ow.ChannelID]; !ok {
		return goPerm.ErrChannelNotFound
	}

	if m.overwrites[ow.ChannelID] == nil {
		m.overwrites[ow.ChannelID] = make(map[overwriteKey]goPerm.ChannelOverwrite)
	}
	m.overwrites[ow.ChannelID][overwriteKey{target: ow.TargetType, targetID: ow.TargetID}] = ow
	return nil
}

// DeleteOverwrite implements goPerm.MutationStore.
func (m *Memory) DeleteOverwrite(_ context.Context, channelID string, target goPerm.OverwriteTarget, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.channels[channelID]; !ok {
		return goPerm.ErrChannelNotFound
	}

	delete(m.overwrites[channelID], overwriteKey{target: target, targetID: targetID})
	return nil
}

// CreateRole implements goPerm.MutationStore.
func (m *Memory) CreateRole(_ context.Context, role goPerm.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[role.ServerID]; !ok {
		return goPerm.ErrServerNotFound
	}

	m.roles[role.ServerID][role.ID] = role
	return nil
}

// UpdateRolePermissions implements goPerm.MutationStore.
func (m *Memory) UpdateRolePermissions(_ context.Context, serverID, roleID string, permissions permission.Mask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	role, ok := m.roles[serverID][roleID]
	if !ok {
		return goPerm.ErrRoleNotFound
	}

	role.Permissions = permissions
	m.roles[serverID][roleID] = role
	return nil
}

// UpdateRolePosition implements goPerm.MutationStore. The @everyone role is
// pinned to position zero.
func (m *Memory) UpdateRolePosition(_ context.Context, serverID, roleID string, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	role, ok := m.roles[serverID][roleID]
	if !ok {
		return goPerm.ErrRoleNotFound
	}
	if role.Name == goPerm.EveryoneRoleName {
		return goPerm.ErrEveryoneRoleImmutable
	}

	role.Position = position
	m.roles[serverID][roleID] = role
	return nil
}

// DeleteRole implements goPerm.MutationStore. Deleting a role also drops its
// assignments and its channel overwrites so nothing dangles.
func (m *Memory) DeleteRole(_ context.Context, serverID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	role, ok := m.roles[serverID][roleID]
	if !ok {
		return goPerm.ErrRoleNotFound
	}
	if role.Name == goPerm.EveryoneRoleName {
		return goPerm.ErrEveryoneRoleImmutable
	}

	delete(m.roles[serverID], roleID)
	for userID := range m.memberRoles[serverID] {
		delete(m.memberRoles[serverID][userID], roleID)
	}
	key := overwriteKey{target: goPerm.TargetRole, targetID: roleID}
	for channelID, channel := range m.channels {
		if channel.ServerID == serverID {
			delete(m.overwrites[channelID], key)
		}
	}
	return nil
}

// AddMemberRole implements goPerm.MutationStore.
func (m *Memory) AddMemberRole(_ context.Context, serverID, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.members[serverID][userID]; !ok {
		return goPerm.ErrNotAMember
	}
	if _, ok := m.roles[serverID][roleID]; !ok {
		return goPerm.ErrRoleNotFound
	}

	if m.memberRoles[serverID][userID] == nil {
		m.memberRoles[serverID][userID] = make(map[string]struct{})
	}
	m.memberRoles[serverID][userID][roleID] = struct{}{}
	return nil
}

// RemoveMemberRole implements goPerm.MutationStore.
func (m *Memory) RemoveMemberRole(_ context.Context, serverID, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.members[serverID][userID]; !ok {
		return goPerm.ErrNotAMember
	}

	delete(m.memberRoles[serverID][userID], roleID)
	return nil
}
