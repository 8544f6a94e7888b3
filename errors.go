package goPerm

import (
	"errors"
	"fmt"
)

var (
	// ErrServerNotFound is returned when a referenced server does not exist.
	ErrServerNotFound = errors.New("server not found")
	// ErrChannelNotFound is returned when a referenced channel does not exist.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrRoleNotFound is returned when a referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrNotAMember is returned when the user has no membership row in the
	// channel's server. Callers surface it as 403, distinct from a false
	// permission check.
	ErrNotAMember = errors.New("user is not a member of the server")
	// ErrNotServerChannel is returned when resolving against a channel with
	// no server (a DM); participant policy for DMs belongs to the caller.
	ErrNotServerChannel = errors.New("channel does not belong to a server")
	// ErrDirectoryUnavailable is returned when a directory fetch fails or
	// times out. Never folded into a deny.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrInvalidOverwrite is returned by the mutation guard for overwrite
	// writes that fail validation.
	ErrInvalidOverwrite = errors.New("invalid overwrite")
	// ErrOverwriteTargetMissing is returned for an overwrite with no target.
	// Matches ErrInvalidOverwrite under errors.Is.
	ErrOverwriteTargetMissing = fmt.Errorf("%w: exactly one of role or user target required", ErrInvalidOverwrite)
	// ErrOverwriteTargetInvalid is returned for an overwrite whose target
	// type is neither role nor user. Matches ErrInvalidOverwrite.
	ErrOverwriteTargetInvalid = fmt.Errorf("%w: target type must be role or user", ErrInvalidOverwrite)
	// ErrInvalidChannel is returned by the mutation guard for channel writes
	// that fail validation.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrCategoryNested is returned when a category channel carries a parent.
	// Matches ErrInvalidChannel under errors.Is.
	ErrCategoryNested = fmt.Errorf("%w: category channel cannot have a parent", ErrInvalidChannel)
	// ErrParentNotCategory is returned when a channel's parent is not a
	// category channel. Matches ErrInvalidChannel.
	ErrParentNotCategory = fmt.Errorf("%w: channel parent must be a category", ErrInvalidChannel)
	// ErrInvalidRole is returned by the mutation guard for role writes that
	// fail validation.
	ErrInvalidRole = errors.New("invalid role")
	// ErrEveryoneRoleImmutable is returned when a write tries to delete or
	// reposition the @everyone role.
	ErrEveryoneRoleImmutable = errors.New("@everyone role cannot be deleted or repositioned")
	// ErrMutationsDisabled is returned by guard methods when the engine was
	// built without a mutation store.
	ErrMutationsDisabled = errors.New("mutation store not configured")
	// ErrStoreUnavailable is returned when a mutation store write fails for
	// transport reasons.
	ErrStoreUnavailable = errors.New("mutation store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not ready")
)
