package goPerm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goPerm/permission"
	"github.com/google/uuid"
)

// OverwriteRequest is the write-path shape of a channel overwrite before the
// guard has validated it: exactly one of RoleID and UserID must be set.
type OverwriteRequest struct {
	ChannelID string
	RoleID    string
	UserID    string
	Allow     permission.Mask
	Deny      permission.Mask
}

// ApplyOverwrite validates, normalizes, and persists a channel overwrite,
// then invalidates the channel's cache namespace.
//
// Validation: the request must target exactly one of role or user. An
// allow/deny bit conflict is normalized by clearing the bit from allow (deny
// wins) so the resolver never has to arbitrate it. Rejected writes reach
// neither the store nor the cache — no invalidation is emitted for them.
func (e *Engine) ApplyOverwrite(ctx context.Context, req OverwriteRequest) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if (req.RoleID == "") == (req.UserID == "") {
		e.metricInc(MetricMutationRejected)
		return ErrOverwriteTargetMissing
	}

	ow := ChannelOverwrite{
		ChannelID: req.ChannelID,
		Allow:     req.Allow,
		Deny:      req.Deny,
	}
	if req.RoleID != "" {
		ow.TargetType = TargetRole
		ow.TargetID = req.RoleID
	} else {
		ow.TargetType = TargetUser
		ow.TargetID = req.UserID
	}

	return e.UpsertOverwrite(ctx, ow)
}

// UpsertOverwrite is the typed form of [Engine.ApplyOverwrite] for callers
// that already carry a [ChannelOverwrite]. Same validation, normalization,
// and invalidation behavior.
func (e *Engine) UpsertOverwrite(ctx context.Context, ow ChannelOverwrite) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if ow.ChannelID == "" || ow.TargetID == "" {
		e.metricInc(MetricMutationRejected)
		return ErrOverwriteTargetMissing
	}
	if ow.TargetType != TargetRole && ow.TargetType != TargetUser {
		e.metricInc(MetricMutationRejected)
		return ErrOverwriteTargetInvalid
	}

	// Clamp to the catalogue, then let deny win any shared bit.
	all := e.registry.All()
	ow.Allow &= all
	ow.Deny &= all
	if ow.Allow.HasAny(ow.Deny) {
		ow.Allow.Clear(ow.Deny)
		e.metricInc(MetricOverwriteNormalized)
	}

	channel, err := e.fetchChannel(ctx, ow.ChannelID)
	if err != nil {
		e.metricInc(MetricMutationRejected)
		return err
	}

	if err := e.store.UpsertOverwrite(ctx, ow); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	e.invalidateChannel(ctx, channel.ServerID, ow.ChannelID, "overwrite.upsert")
	return nil
}

// DeleteOverwrite removes one (target, targetID) overwrite from a channel
// and invalidates the channel's cache namespace.
func (e *Engine) DeleteOverwrite(ctx context.Context, channelID string, target OverwriteTarget, targetID string) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if channelID == "" || targetID == "" {
		e.metricInc(MetricMutationRejected)
		return ErrOverwriteTargetMissing
	}
	if target != TargetRole && target != TargetUser {
		e.metricInc(MetricMutationRejected)
		return ErrOverwriteTargetInvalid
	}

	channel, err := e.fetchChannel(ctx, channelID)
	if err != nil {
		e.metricInc(MetricMutationRejected)
		return err
	}

	if err := e.store.DeleteOverwrite(ctx, channelID, target, targetID); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	e.invalidateChannel(ctx, channel.ServerID, channelID, "overwrite.delete")
	return nil
}

// CreateChannel validates and persists a new channel. A category can never
// carry a parent; a parented channel's parent must be a category in the same
// server. Overwrites on the parent category are copied onto the new channel
// at creation time — there is no runtime inheritance through ParentID.
func (e *Engine) CreateChannel(ctx context.Context, ch Channel) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if ch.ID == "" || ch.ServerID == "" {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidChannel
	}
	if ch.Type == ChannelCategory && ch.ParentID != "" {
		e.metricInc(MetricMutationRejected)
		return ErrCategoryNested
	}

	var inherited []ChannelOverwrite
	if ch.ParentID != "" {
		parent, err := e.fetchChannel(ctx, ch.ParentID)
		if err != nil {
			e.metricInc(MetricMutationRejected)
			return err
		}
		if parent.Type != ChannelCategory {
			e.metricInc(MetricMutationRejected)
			return ErrParentNotCategory
		}
		if parent.ServerID != ch.ServerID {
			e.metricInc(MetricMutationRejected)
			return ErrInvalidChannel
		}

		inherited, err = e.fetchOverwrites(ctx, ch.ParentID)
		if err != nil {
			e.metricInc(MetricMutationRejected)
			return err
		}
	}

	if err := e.store.CreateChannel(ctx, ch); err != nil {
		return e.storeError(err)
	}

	for _, ow := range inherited {
		ow.ChannelID = ch.ID
		if err := e.store.UpsertOverwrite(ctx, ow); err != nil {
			return e.storeError(err)
		}
	}

	e.metricInc(MetricMutationApplied)
	return nil
}

// CreateRole validates and persists a new role. Position 0 and the
// @everyone name are reserved for the implicit base role the store creates
// with the server. A fresh role has no holders, so no invalidation is needed.
func (e *Engine) CreateRole(ctx context.Context, role Role) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if role.ID == "" || role.ServerID == "" || role.Name == "" {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidRole
	}
	if role.Name == EveryoneRoleName || role.Position <= 0 {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidRole
	}

	role.Permissions &= e.registry.All()

	if err := e.store.CreateRole(ctx, role); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	return nil
}

// SetRolePermissions replaces a role's permission mask and invalidates the
// whole server's cache namespace — every member holding the role may resolve
// differently now, and finding just those members costs more than the
// conservative sweep.
func (e *Engine) SetRolePermissions(ctx context.Context, serverID, roleID string, permissions permission.Mask) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if serverID == "" || roleID == "" {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidRole
	}

	permissions &= e.registry.All()

	if err := e.store.UpdateRolePermissions(ctx, serverID, roleID, permissions); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	e.invalidateServer(ctx, serverID, "role.permissions")
	return nil
}

// SetRolePosition moves a role on the precedence ladder and invalidates the
// server's cache namespace: positional precedence feeds overwrite ordering.
// The @everyone role cannot be repositioned.
func (e *Engine) SetRolePosition(ctx context.Context, serverID, roleID string, position int) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if serverID == "" || roleID == "" || position <= 0 {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidRole
	}

	if err := e.store.UpdateRolePosition(ctx, serverID, roleID, position); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	e.invalidateServer(ctx, serverID, "role.position")
	return nil
}

// DeleteRole removes a role and invalidates the server's cache namespace.
// The store rejects deleting @everyone with [ErrEveryoneRoleImmutable].
func (e *Engine) DeleteRole(ctx context.Context, serverID, roleID string) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if serverID == "" || roleID == "" {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidRole
	}

	if err := e.store.DeleteRole(ctx, serverID, roleID); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	e.invalidateServer(ctx, serverID, "role.delete")
	return nil
}

// AssignRole grants a member an explicit role and invalidates that member's
// entries under the server.
func (e *Engine) AssignRole(ctx context.Context, serverID, userID, roleID string) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if serverID == "" || userID == "" || roleID == "" {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidRole
	}

	if err := e.store.AddMemberRole(ctx, serverID, userID, roleID); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	e.invalidateMember(ctx, serverID, userID, "member.role.assign")
	return nil
}

// UnassignRole removes an explicit role from a member and invalidates that
// member's entries under the server.
func (e *Engine) UnassignRole(ctx context.Context, serverID, userID, roleID string) error {
	if err := e.guardReady(); err != nil {
		return err
	}

	if serverID == "" || userID == "" || roleID == "" {
		e.metricInc(MetricMutationRejected)
		return ErrInvalidRole
	}

	if err := e.store.RemoveMemberRole(ctx, serverID, userID, roleID); err != nil {
		return e.storeError(err)
	}

	e.metricInc(MetricMutationApplied)
	e.invalidateMember(ctx, serverID, userID, "member.role.unassign")
	return nil
}

func (e *Engine) guardReady() error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	if e.store == nil {
		return ErrMutationsDisabled
	}
	return nil
}

// storeError passes domain sentinels through and wraps transport failures.
func (e *Engine) storeError(err error) error {
	switch {
	case errors.Is(err, ErrRoleNotFound),
		errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrServerNotFound),
		errors.Is(err, ErrNotAMember),
		errors.Is(err, ErrEveryoneRoleImmutable):
		e.metricInc(MetricMutationRejected)
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// Local invalidation is synchronous so the mutating actor reads its own
// write on the next resolution. A failed remote invalidate is covered by the
// TTL ceiling; the published event is the cross-instance signal.

func (e *Engine) invalidateChannel(ctx context.Context, serverID, channelID, mutation string) {
	if e.cache != nil {
		_ = e.cache.InvalidateChannel(ctx, channelID)
	}
	e.metricInc(MetricInvalidateChannel)
	e.emitInvalidation(ctx, InvalidationEvent{
		Scope:     ScopeChannel,
		ServerID:  serverID,
		ChannelID: channelID,
		Mutation:  mutation,
	})
}

func (e *Engine) invalidateServer(ctx context.Context, serverID, mutation string) {
	if e.cache != nil {
		_ = e.cache.InvalidateServer(ctx, serverID)
	}
	e.metricInc(MetricInvalidateServer)
	e.emitInvalidation(ctx, InvalidationEvent{
		Scope:    ScopeServer,
		ServerID: serverID,
		Mutation: mutation,
	})
}

func (e *Engine) invalidateMember(ctx context.Context, serverID, userID, mutation string) {
	if e.cache != nil {
		_ = e.cache.InvalidateUserServer(ctx, serverID, userID)
	}
	e.metricInc(MetricInvalidateMember)
	e.emitInvalidation(ctx, InvalidationEvent{
		Scope:    ScopeMember,
		ServerID: serverID,
		UserID:   userID,
		Mutation: mutation,
	})
}

func (e *Engine) emitInvalidation(ctx context.Context, event InvalidationEvent) {
	if e.invalidations == nil {
		return
	}

	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	event.ActorID = actorIDFromContext(ctx)
	event.RequestID = requestIDFromContext(ctx)

	e.invalidations.Emit(ctx, event)
}
