package goPerm

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/goPerm/permission"
)

// fakeStore is an in-package Directory + MutationStore for engine tests.
// Setting failErr makes every read fail with it, simulating a directory
// outage.
type fakeStore struct {
	mu         sync.RWMutex
	servers    map[string]Server
	channels   map[string]Channel
	roles      map[string]map[string]Role
	everyone   map[string]string
	members    map[string]map[string]map[string]struct{}
	overwrites map[string]map[string]ChannelOverwrite
	failErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		servers:    make(map[string]Server),
		channels:   make(map[string]Channel),
		roles:      make(map[string]map[string]Role),
		everyone:   make(map[string]string),
		members:    make(map[string]map[string]map[string]struct{}),
		overwrites: make(map[string]map[string]ChannelOverwrite),
	}
}

func (f *fakeStore) addServer(id, ownerID string, everyonePerms permission.Mask) Role {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.servers[id] = Server{ID: id, OwnerID: ownerID, Name: id}
	everyone := Role{ID: id + "-everyone", ServerID: id, Name: EveryoneRoleName, Permissions: everyonePerms, Position: 0}
	f.roles[id] = map[string]Role{everyone.ID: everyone}
	f.everyone[id] = everyone.ID
	f.members[id] = map[string]map[string]struct{}{
		ownerID: {},
	}
	return everyone
}

func (f *fakeStore) addRole(role Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[role.ServerID][role.ID] = role
}

func (f *fakeStore) addMember(serverID, userID string, roleIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	held := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}
	f.members[serverID][userID] = held
}

func (f *fakeStore) addChannel(ch Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[ch.ID] = ch
}

func (f *fakeStore) setOverwrite(ow ChannelOverwrite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putOverwriteLocked(ow)
}

func (f *fakeStore) putOverwriteLocked(ow ChannelOverwrite) {
	if f.overwrites[ow.ChannelID] == nil {
		f.overwrites[ow.ChannelID] = make(map[string]ChannelOverwrite)
	}
	f.overwrites[ow.ChannelID][overwritePairKey(ow.TargetType, ow.TargetID)] = ow
}

func overwritePairKey(target OverwriteTarget, targetID string) string {
	if target == TargetRole {
		return "r:" + targetID
	}
	return "u:" + targetID
}

func (f *fakeStore) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

/* Directory */

func (f *fakeStore) GetServer(_ context.Context, serverID string) (Server, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.failErr != nil {
		return Server{}, f.failErr
	}
	server, ok := f.servers[serverID]
	if !ok {
		return Server{}, ErrServerNotFound
	}
	return server, nil
}

func (f *fakeStore) GetMemberRoles(_ context.Context, serverID, userID string) ([]Role, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.failErr != nil {
		return nil, f.failErr
	}
	held, ok := f.members[serverID][userID]
	if !ok {
		return nil, ErrNotAMember
	}

	serverRoles := f.roles[serverID]
	roles := []Role{serverRoles[f.everyone[serverID]]}
	for roleID := range held {
		if role, ok := serverRoles[roleID]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (f *fakeStore) GetChannel(_ context.Context, channelID string) (Channel, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.failErr != nil {
		return Channel{}, f.failErr
	}
	channel, ok := f.channels[channelID]
	if !ok {
		return Channel{}, ErrChannelNotFound
	}
	return channel, nil
}

func (f *fakeStore) GetChannelOverwrites(_ context.Context, channelID string) ([]ChannelOverwrite, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make([]ChannelOverwrite, 0, len(f.overwrites[channelID]))
	for _, ow := range f.overwrites[channelID] {
		out = append(out, ow)
	}
	return out, nil
}

/* MutationStore */

func (f *fakeStore) UpsertOverwrite(_ context.Context, ow ChannelOverwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.channels[ow.ChannelID]; !ok {
		return ErrChannelNotFound
	}
	f.putOverwriteLocked(ow)
	return nil
}

func (f *fakeStore) DeleteOverwrite(_ context.Context, channelID string, target OverwriteTarget, targetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.channels[channelID]; !ok {
		return ErrChannelNotFound
	}
	delete(f.overwrites[channelID], overwritePairKey(target, targetID))
	return nil
}

func (f *fakeStore) CreateChannel(_ context.Context, ch Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.servers[ch.ServerID]; !ok {
		return ErrServerNotFound
	}
	f.channels[ch.ID] = ch
	return nil
}

func (f *fakeStore) CreateRole(_ context.Context, role Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.servers[role.ServerID]; !ok {
		return ErrServerNotFound
	}
	f.roles[role.ServerID][role.ID] = role
	return nil
}

func (f *fakeStore) UpdateRolePermissions(_ context.Context, serverID, roleID string, permissions permission.Mask) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[serverID][roleID]
	if !ok {
		return ErrRoleNotFound
	}
	role.Permissions = permissions
	f.roles[serverID][roleID] = role
	return nil
}

func (f *fakeStore) UpdateRolePosition(_ context.Context, serverID, roleID string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[serverID][roleID]
	if !ok {
		return ErrRoleNotFound
	}
	if role.Name == EveryoneRoleName {
		return ErrEveryoneRoleImmutable
	}
	role.Position = position
	f.roles[serverID][roleID] = role
	return nil
}

func (f *fakeStore) DeleteRole(_ context.Context, serverID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[serverID][roleID]
	if !ok {
		return ErrRoleNotFound
	}
	if role.Name == EveryoneRoleName {
		return ErrEveryoneRoleImmutable
	}
	delete(f.roles[serverID], roleID)
	for userID := range f.members[serverID] {
		delete(f.members[serverID][userID], roleID)
	}
	return nil
}

func (f *fakeStore) AddMemberRole(_ context.Context, serverID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	held, ok := f.members[serverID][userID]
	if !ok {
		return ErrNotAMember
	}
	if _, ok := f.roles[serverID][roleID]; !ok {
		return ErrRoleNotFound
	}
	held[roleID] = struct{}{}
	return nil
}

func (f *fakeStore) RemoveMemberRole(_ context.Context, serverID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	held, ok := f.members[serverID][userID]
	if !ok {
		return ErrNotAMember
	}
	delete(held, roleID)
	return nil
}

func buildTestEngine(t *testing.T, store *fakeStore, mutate func(*Builder)) *Engine {
	t.Helper()

	builder := New().WithDirectory(store)
	if mutate != nil {
		mutate(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}
