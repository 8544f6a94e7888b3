package goPerm

import (
	"context"
	"time"

	"github.com/MrEthical07/goPerm/permission"
)

// ChannelType discriminates channel kinds. Only categories participate in
// the parent/child rules the mutation guard enforces.
type ChannelType uint8

const (
	// ChannelCategory is a grouping channel; it can parent other channels
	// and can never have a parent itself.
	ChannelCategory ChannelType = iota
	// ChannelText is a message channel.
	ChannelText
	// ChannelVoice is a voice channel.
	ChannelVoice
	// ChannelAnnouncement is a broadcast text channel.
	ChannelAnnouncement
)

// OverwriteTarget discriminates what a channel overwrite applies to.
type OverwriteTarget uint8

const (
	// TargetRole scopes an overwrite to every member holding a role.
	TargetRole OverwriteTarget = iota + 1
	// TargetUser scopes an overwrite to a single member.
	TargetUser
)

// EveryoneRoleName is the implicit base role every member holds. It exists
// exactly once per server at position 0 and is edited, never deleted.
const EveryoneRoleName = "@everyone"

// Server is the top-level community container. The owner always resolves to
// the full permission mask regardless of roles and overwrites.
type Server struct {
	ID      string
	OwnerID string
	Name    string
}

// Role is a named permission grant within one server. Position is the
// precedence ladder: higher position is more senior. Color, Hoist, and
// Mentionable are presentation fields carried for store round-trips; they
// never influence permission math.
type Role struct {
	ID          string
	ServerID    string
	Name        string
	Permissions permission.Mask
	Position    int
	Color       uint32
	Hoist       bool
	Mentionable bool
}

// Member is a (server, user) membership row. Deleting it is how leave, kick,
// and ban are expressed to this engine.
type Member struct {
	ServerID string
	UserID   string
	JoinedAt time.Time
}

// Channel is a server channel. ServerID is empty for direct-message channels,
// which this engine refuses to resolve (ErrNotServerChannel); ParentID, when
// set, must reference a ChannelCategory in the same server.
type Channel struct {
	ID        string
	ServerID  string
	ParentID  string
	Type      ChannelType
	IsPrivate bool
	Position  int
}

// ChannelOverwrite layers an allow/deny mask pair onto one channel for one
// role or one user. A channel holds at most one overwrite per
// (TargetType, TargetID) pair. Allow and Deny never share bits once the
// mutation guard has normalized the write (deny wins).
type ChannelOverwrite struct {
	ChannelID  string
	TargetType OverwriteTarget
	TargetID   string
	Allow      permission.Mask
	Deny       permission.Mask
}

// Directory is the read-only snapshot interface the resolver pulls from on a
// cache miss. Implementations return consistent point-in-time data and do no
// caching of their own; staleness control belongs to the resolution cache.
//
// Failure contract: GetServer and GetChannel return [ErrServerNotFound] /
// [ErrChannelNotFound] for absent rows; GetMemberRoles returns
// [ErrNotAMember] when the user has no membership row and always includes
// the @everyone role otherwise. Any transport failure surfaces as an error
// the engine wraps in [ErrDirectoryUnavailable] — never as empty data.
type Directory interface {
	GetServer(ctx context.Context, serverID string) (Server, error)
	GetMemberRoles(ctx context.Context, serverID, userID string) ([]Role, error)
	GetChannel(ctx context.Context, channelID string) (Channel, error)
	GetChannelOverwrites(ctx context.Context, channelID string) ([]ChannelOverwrite, error)
}

// MutationStore is the write interface behind the mutation guard. The guard
// validates and normalizes every write before it reaches this store and is
// the only engine path that calls it.
type MutationStore interface {
	UpsertOverwrite(ctx context.Context, ow ChannelOverwrite) error
	DeleteOverwrite(ctx context.Context, channelID string, target OverwriteTarget, targetID string) error

	CreateChannel(ctx context.Context, ch Channel) error

	CreateRole(ctx context.Context, role Role) error
	UpdateRolePermissions(ctx context.Context, serverID, roleID string, permissions permission.Mask) error
	UpdateRolePosition(ctx context.Context, serverID, roleID string, position int) error
	DeleteRole(ctx context.Context, serverID, roleID string) error

	AddMemberRole(ctx context.Context, serverID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, serverID, userID, roleID string) error
}

// ResolutionCache memoizes effective masks keyed by (userID, channelID).
// Put carries the owning serverID so server-scoped invalidation can find the
// entry. Implementations must be safe for concurrent use without a single
// global lock; Get and Put are best-effort, while the Invalidate calls are
// the primary consistency mechanism and the TTL ceiling is the backstop.
type ResolutionCache interface {
	Get(ctx context.Context, userID, channelID string) (permission.Mask, bool)
	Put(ctx context.Context, userID, channelID, serverID string, mask permission.Mask)

	InvalidateChannel(ctx context.Context, channelID string) error
	InvalidateServer(ctx context.Context, serverID string) error
	InvalidateUserServer(ctx context.Context, serverID, userID string) error

	Close()
}
