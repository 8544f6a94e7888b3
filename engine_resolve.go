package goPerm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/goPerm/permission"
)

// Check reports whether userID holds every bit of required in channelID.
// Directory failures are returned as errors, never as a false result, so
// callers can tell "denied" apart from "could not determine".
func (e *Engine) Check(ctx context.Context, userID, channelID string, required permission.Mask) (bool, error) {
	effective, err := e.Resolve(ctx, userID, channelID)
	if err != nil {
		return false, err
	}

	if !effective.Has(required) {
		e.metricInc(MetricCheckDenied)
		return false, nil
	}

	e.metricInc(MetricCheckAllowed)
	return true, nil
}

// Resolve computes the effective permission mask for userID in channelID,
// serving from the resolution cache when possible.
//
// The computation is deterministic and totally ordered: channel load, server
// load, owner bypass, member role union, role overwrites in ascending
// position order (senior roles last, so they win conflicts), the single user
// overwrite, then the post-overwrite ADMINISTRATOR bypass. Position ties
// break on role id so storage order can never influence the answer.
func (e *Engine) Resolve(ctx context.Context, userID, channelID string) (permission.Mask, error) {
	if e == nil || e.directory == nil {
		return 0, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if e.cache != nil {
		if mask, ok := e.cache.Get(ctx, userID, channelID); ok {
			e.metricInc(MetricResolveCacheHit)
			return mask, nil
		}
	}
	e.metricInc(MetricResolveCacheMiss)

	start := time.Now()
	mask, serverID, err := e.computeEffective(ctx, userID, channelID)
	if err != nil {
		return 0, err
	}
	if e.metrics != nil {
		e.metrics.Observe(MetricResolveLatency, time.Since(start))
	}

	// A cancelled resolution must not leave a partial cache write behind.
	if e.cache != nil && ctx.Err() == nil {
		e.cache.Put(ctx, userID, channelID, serverID, mask)
	}

	return mask, nil
}

// ResolveServer computes the server-level effective mask for userID: owner
// bypass plus role union, with no channel overwrites applied. Callers use it
// to gate server-scoped management operations. Results are not cached; the
// two fetches it costs are off the per-message hot path.
func (e *Engine) ResolveServer(ctx context.Context, userID, serverID string) (permission.Mask, error) {
	if e == nil || e.directory == nil {
		return 0, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	server, err := e.fetchServer(ctx, serverID)
	if err != nil {
		return 0, err
	}

	if server.OwnerID == userID {
		e.metricInc(MetricOwnerBypass)
		return e.registry.All(), nil
	}

	roles, err := e.fetchMemberRoles(ctx, serverID, userID)
	if err != nil {
		return 0, err
	}

	var base permission.Mask
	for _, role := range roles {
		base |= role.Permissions
	}

	if base.HasAny(permission.Administrator) {
		e.metricInc(MetricAdministratorBypass)
		return e.registry.All(), nil
	}

	return base, nil
}

func (e *Engine) computeEffective(ctx context.Context, userID, channelID string) (permission.Mask, string, error) {
	channel, err := e.fetchChannel(ctx, channelID)
	if err != nil {
		return 0, "", err
	}

	if channel.ServerID == "" {
		// DM channel: participant policy is the caller's, not this engine's.
		return 0, "", ErrNotServerChannel
	}

	server, err := e.fetchServer(ctx, channel.ServerID)
	if err != nil {
		return 0, "", err
	}

	// Owner bypass: no roles or overwrites apply.
	if server.OwnerID == userID {
		e.metricInc(MetricOwnerBypass)
		return e.registry.All(), server.ID, nil
	}

	roles, err := e.fetchMemberRoles(ctx, server.ID, userID)
	if err != nil {
		return 0, "", err
	}

	var base permission.Mask
	for _, role := range roles {
		base |= role.Permissions
	}

	overwrites, err := e.fetchOverwrites(ctx, channelID)
	if err != nil {
		return 0, "", err
	}

	effective := applyChannelOverwrites(base, roles, overwrites, userID)

	// ADMINISTRATOR is evaluated after overwrites, so a deny overwrite can
	// strip it for this one channel.
	if effective.HasAny(permission.Administrator) {
		e.metricInc(MetricAdministratorBypass)
		return e.registry.All(), server.ID, nil
	}

	return effective, server.ID, nil
}

// applyChannelOverwrites layers overwrites onto the role-union base:
// held-role overwrites in ascending (position, roleID) order, then the
// user's own overwrite last. Overwrites for roles the user does not hold are
// ignored.
func applyChannelOverwrites(base permission.Mask, roles []Role, overwrites []ChannelOverwrite, userID string) permission.Mask {
	if len(overwrites) == 0 {
		return base
	}

	held := make(map[string]int, len(roles))
	for _, role := range roles {
		held[role.ID] = role.Position
	}

	roleOverwrites := overwrites[:0:0]
	var userOverwrite *ChannelOverwrite
	for i := range overwrites {
		ow := overwrites[i]
		switch ow.TargetType {
		case TargetRole:
			if _, ok := held[ow.TargetID]; ok {
				roleOverwrites = append(roleOverwrites, ow)
			}
		case TargetUser:
			if ow.TargetID == userID {
				userOverwrite = &overwrites[i]
			}
		}
	}

	sort.Slice(roleOverwrites, func(i, j int) bool {
		pi, pj := held[roleOverwrites[i].TargetID], held[roleOverwrites[j].TargetID]
		if pi != pj {
			return pi < pj
		}
		return roleOverwrites[i].TargetID < roleOverwrites[j].TargetID
	})

	effective := base
	for _, ow := range roleOverwrites {
		effective = effective.Apply(ow.Allow, ow.Deny)
	}

	if userOverwrite != nil {
		effective = effective.Apply(userOverwrite.Allow, userOverwrite.Deny)
	}

	return effective
}

func (e *Engine) fetchChannel(ctx context.Context, channelID string) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return Channel{}, err
	}

	fctx, cancel := context.WithTimeout(ctx, e.config.Directory.FetchTimeout)
	defer cancel()

	channel, err := e.directory.GetChannel(fctx, channelID)
	if err != nil {
		return Channel{}, e.directoryError(ctx, err, ErrChannelNotFound)
	}
	return channel, nil
}

func (e *Engine) fetchServer(ctx context.Context, serverID string) (Server, error) {
	if err := ctx.Err(); err != nil {
		return Server{}, err
	}

	fctx, cancel := context.WithTimeout(ctx, e.config.Directory.FetchTimeout)
	defer cancel()

	server, err := e.directory.GetServer(fctx, serverID)
	if err != nil {
		return Server{}, e.directoryError(ctx, err, ErrServerNotFound)
	}
	return server, nil
}

func (e *Engine) fetchMemberRoles(ctx context.Context, serverID, userID string) ([]Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fctx, cancel := context.WithTimeout(ctx, e.config.Directory.FetchTimeout)
	defer cancel()

	roles, err := e.directory.GetMemberRoles(fctx, serverID, userID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			e.metricInc(MetricResolveNotAMember)
			return nil, err
		}
		return nil, e.directoryError(ctx, err, nil)
	}
	return roles, nil
}

func (e *Engine) fetchOverwrites(ctx context.Context, channelID string) ([]ChannelOverwrite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fctx, cancel := context.WithTimeout(ctx, e.config.Directory.FetchTimeout)
	defer cancel()

	overwrites, err := e.directory.GetChannelOverwrites(fctx, channelID)
	if err != nil {
		return nil, e.directoryError(ctx, err, nil)
	}
	return overwrites, nil
}

// directoryError classifies a directory failure: the expected not-found
// sentinel passes through, caller cancellation passes through, and anything
// else — timeouts included — becomes ErrDirectoryUnavailable.
func (e *Engine) directoryError(ctx context.Context, err error, notFound error) error {
	if notFound != nil && errors.Is(err, notFound) {
		e.metricInc(MetricResolveNotFound)
		return err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	e.metricInc(MetricDirectoryError)
	return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
}
