package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/google/uuid"

	// Registers the pure-Go "sqlite" driver for database/sql.
	_ "modernc.org/sqlite"
)

// SQLite is a SQLite-backed store implementing both goPerm.Directory and
// goPerm.MutationStore. Masks are stored as INTEGER columns; the catalogue
// fits well inside 63 bits, so the int64 round-trip is lossless.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a store over an existing database handle. The handle is
// caller-owned.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Open opens a SQLite database with foreign keys enforced and returns it
// ready for [NewSQLite]. Use ":memory:" for tests.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS servers (
	id       TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS roles (
	id          TEXT PRIMARY KEY,
	server_id   TEXT NOT NULL REFERENCES servers(id),
	name        TEXT NOT NULL,
	permissions INTEGER NOT NULL DEFAULT 0,
	position    INTEGER NOT NULL DEFAULT 0,
	color       INTEGER NOT NULL DEFAULT 0,
	hoist       INTEGER NOT NULL DEFAULT 0,
	mentionable INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS channels (
	id         TEXT PRIMARY KEY,
	server_id  TEXT NOT NULL REFERENCES servers(id),
	parent_id  TEXT,
	type       INTEGER NOT NULL,
	is_private INTEGER NOT NULL DEFAULT 0,
	position   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS members (
	server_id TEXT NOT NULL REFERENCES servers(id),
	user_id   TEXT NOT NULL,
	joined_at TIMESTAMP NOT NULL,
	PRIMARY KEY (server_id, user_id)
);

CREATE TABLE IF NOT EXISTS member_roles (
	server_id TEXT NOT NULL,
	user_id   TEXT NOT NULL,
	role_id   TEXT NOT NULL REFERENCES roles(id),
	PRIMARY KEY (server_id, user_id, role_id)
);

CREATE TABLE IF NOT EXISTS channel_overwrites (
	channel_id  TEXT NOT NULL REFERENCES channels(id),
	target_type INTEGER NOT NULL,
	target_id   TEXT NOT NULL,
	allow       INTEGER NOT NULL DEFAULT 0,
	deny        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (channel_id, target_type, target_id)
);
`

// Migrate creates the schema if it does not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

/*
====================================
SEEDING
====================================
*/

// CreateServer creates a server, its @everyone role at position zero, and
// the owner's membership row in one transaction.
func (s *SQLite) CreateServer(ctx context.Context, ownerID, name string, everyonePerms permission.Mask) (goPerm.Server, error) {
	server := goPerm.Server{ID: uuid.NewString(), OwnerID: ownerID, Name: name}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goPerm.Server{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO servers (id, owner_id, name) VALUES (?, ?, ?)`,
		server.ID, server.OwnerID, server.Name,
	); err != nil {
		return goPerm.Server{}, fmt.Errorf("failed to insert server: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO roles (id, server_id, name, permissions, position) VALUES (?, ?, ?, ?, 0)`,
		uuid.NewString(), server.ID, goPerm.EveryoneRoleName, int64(everyonePerms.Raw()),
	); err != nil {
		return goPerm.Server{}, fmt.Errorf("failed to insert @everyone role: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO members (server_id, user_id, joined_at) VALUES (?, ?, ?)`,
		server.ID, ownerID, time.Now().UTC(),
	); err != nil {
		return goPerm.Server{}, fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return goPerm.Server{}, fmt.Errorf("failed to commit server creation: %w", err)
	}
	return server, nil
}

// AddMember creates a membership row.
func (s *SQLite) AddMember(ctx context.Context, serverID, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO members (server_id, user_id, joined_at) VALUES (?, ?, ?)
		 ON CONFLICT (server_id, user_id) DO NOTHING`,
		serverID, userID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row and its role assignments.
func (s *SQLite) RemoveMember(ctx context.Context, serverID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM member_roles WHERE server_id = ? AND user_id = ?`, serverID, userID,
	); err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM members WHERE server_id = ? AND user_id = ?`, serverID, userID,
	); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member removal: %w", err)
	}
	return nil
}

/*
====================================
DIRECTORY (READ SIDE)
====================================
*/

// GetServer implements goPerm.Directory.
func (s *SQLite) GetServer(ctx context.Context, serverID string) (goPerm.Server, error) {
	var server goPerm.Server
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name FROM servers WHERE id = ?`, serverID,
	).Scan(&server.ID, &server.OwnerID, &server.Name)
	if err == sql.ErrNoRows {
		return goPerm.Server{}, goPerm.ErrServerNotFound
	}
	if err != nil {
		return goPerm.Server{}, fmt.Errorf("failed to get server: %w", err)
	}
	return server, nil
}

// GetMemberRoles implements goPerm.Directory: the member's assigned roles
// plus the server's @everyone role, or goPerm.ErrNotAMember when no
// membership row exists.
func (s *SQLite) GetMemberRoles(ctx context.Context, serverID, userID string) ([]goPerm.Role, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM members WHERE server_id = ? AND user_id = ?`, serverID, userID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, goPerm.ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, server_id, name, permissions, position, color, hoist, mentionable
		 FROM roles
		 WHERE server_id = ?
		   AND (name = ? OR id IN (
		     SELECT role_id FROM member_roles WHERE server_id = ? AND user_id = ?
		   ))
		 ORDER BY position ASC, id ASC`,
		serverID, goPerm.EveryoneRoleName, serverID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get member roles: %w", err)
	}
	defer rows.Close()

	var roles []goPerm.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	return roles, nil
}

// GetChannel implements goPerm.Directory.
func (s *SQLite) GetChannel(ctx context.Context, channelID string) (goPerm.Channel, error) {
	var (
		channel  goPerm.Channel
		parentID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, server_id, parent_id, type, is_private, position FROM channels WHERE id = ?`,
		channelID,
	).Scan(&channel.ID, &channel.ServerID, &parentID, &channel.Type, &channel.IsPrivate, &channel.Position)
	if err == sql.ErrNoRows {
		return goPerm.Channel{}, goPerm.ErrChannelNotFound
	}
	if err != nil {
		return goPerm.Channel{}, fmt.Errorf("failed to get channel: %w", err)
	}
	channel.ParentID = parentID.String
	return channel, nil
}

// GetChannelOverwrites implements goPerm.Directory.
func (s *SQLite) GetChannelOverwrites(ctx context.Context, channelID string) ([]goPerm.ChannelOverwrite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, target_type, target_id, allow, deny
		 FROM channel_overwrites WHERE channel_id = ?`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel overwrites: %w", err)
	}
	defer rows.Close()

	var overwrites []goPerm.ChannelOverwrite
	for rows.Next() {
		var (
			ow          goPerm.ChannelOverwrite
			allow, deny int64
		)
		if err := rows.Scan(&ow.ChannelID, &ow.TargetType, &ow.TargetID, &allow, &deny); err != nil {
			return nil, fmt.Errorf("failed to scan overwrite row: %w", err)
		}
		ow.Allow = permission.Mask(allow)
		ow.Deny = permission.Mask(deny)
		overwrites = append(overwrites, ow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overwrite rows: %w", err)
	}

	return overwrites, nil
}

/*
====================================
MUTATION STORE (WRITE SIDE)
====================================
*/

// CreateChannel implements goPerm.MutationStore.
func (s *SQLite) CreateChannel(ctx context.Context, ch goPerm.Channel) error {
	parent := sql.NullString{String: ch.ParentID, Valid: ch.ParentID != ""}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (id, server_id, parent_id, type, is_private, position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.ServerID, parent, ch.Type, ch.IsPrivate, ch.Position,
	); err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}
	return nil
}

// UpsertOverwrite implements goPerm.MutationStore.
func (s *SQLite) UpsertOverwrite(ctx context.Context, ow goPerm.ChannelOverwrite) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_overwrites (channel_id, target_type, target_id, allow, deny)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (channel_id, target_type, target_id)
		 DO UPDATE SET allow = excluded.allow, deny = excluded.deny`,
		ow.ChannelID, ow.TargetType, ow.TargetID, int64(ow.Allow.Raw()), int64(ow.Deny.Raw()),
	); err != nil {
		return fmt.Errorf("failed to upsert overwrite: %w", err)
	}
	return nil
}

// DeleteOverwrite implements goPerm.MutationStore.
func (s *SQLite) DeleteOverwrite(ctx context.Context, channelID string, target goPerm.OverwriteTarget, targetID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_overwrites WHERE channel_id = ? AND target_type = ? AND target_id = ?`,
		channelID, target, targetID,
	); err != nil {
		return fmt.Errorf("failed to delete overwrite: %w", err)
	}
	return nil
}

// CreateRole implements goPerm.MutationStore.
func (s *SQLite) CreateRole(ctx context.Context, role goPerm.Role) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (id, server_id, name, permissions, position, color, hoist, mentionable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		role.ID, role.ServerID, role.Name, int64(role.Permissions.Raw()),
		role.Position, role.Color, role.Hoist, role.Mentionable,
	); err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

// UpdateRolePermissions implements goPerm.MutationStore.
func (s *SQLite) UpdateRolePermissions(ctx context.Context, serverID, roleID string, permissions permission.Mask) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE roles SET permissions = ? WHERE id = ? AND server_id = ?`,
		int64(permissions.Raw()), roleID, serverID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role permissions: %w", err)
	}
	return roleMustExist(res)
}

// UpdateRolePosition implements goPerm.MutationStore. The @everyone role is
// pinned to position zero.
func (s *SQLite) UpdateRolePosition(ctx context.Context, serverID, roleID string, position int) error {
	if err := s.rejectEveryone(ctx, serverID, roleID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE roles SET position = ? WHERE id = ? AND server_id = ?`,
		position, roleID, serverID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role position: %w", err)
	}
	return roleMustExist(res)
}

// DeleteRole implements goPerm.MutationStore. Assignments and overwrites
// referencing the role are removed in the same transaction.
func (s *SQLite) DeleteRole(ctx context.Context, serverID, roleID string) error {
	if err := s.rejectEveryone(ctx, serverID, roleID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM member_roles WHERE server_id = ? AND role_id = ?`, serverID, roleID,
	); err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM channel_overwrites WHERE target_type = ? AND target_id = ?`,
		goPerm.TargetRole, roleID,
	); err != nil {
		return fmt.Errorf("failed to delete role overwrites: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM roles WHERE id = ? AND server_id = ?`, roleID, serverID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if err := roleMustExist(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role deletion: %w", err)
	}
	return nil
}

// AddMemberRole implements goPerm.MutationStore.
func (s *SQLite) AddMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM members WHERE server_id = ? AND user_id = ?`, serverID, userID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return goPerm.ErrNotAMember
	}
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM roles WHERE id = ? AND server_id = ?`, roleID, serverID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return goPerm.ErrRoleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO member_roles (server_id, user_id, role_id) VALUES (?, ?, ?)
		 ON CONFLICT (server_id, user_id, role_id) DO NOTHING`,
		serverID, userID, roleID,
	); err != nil {
		return fmt.Errorf("failed to insert role assignment: %w", err)
	}
	return nil
}

// RemoveMemberRole implements goPerm.MutationStore.
func (s *SQLite) RemoveMemberRole(ctx context.Context, serverID, userID, roleID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM member_roles WHERE server_id = ? AND user_id = ? AND role_id = ?`,
		serverID, userID, roleID,
	); err != nil {
		return fmt.Errorf("failed to delete role assignment: %w", err)
	}
	return nil
}

func (s *SQLite) rejectEveryone(ctx context.Context, serverID, roleID string) error {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM roles WHERE id = ? AND server_id = ?`, roleID, serverID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return goPerm.ErrRoleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}
	if name == goPerm.EveryoneRoleName {
		return goPerm.ErrEveryoneRoleImmutable
	}
	return nil
}

func roleMustExist(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return goPerm.ErrRoleNotFound
	}
	return nil
}

func scanRole(rows *sql.Rows) (goPerm.Role, error) {
	var (
		role  goPerm.Role
		perms int64
	)
	if err := rows.Scan(
		&role.ID, &role.ServerID, &role.Name, &perms,
		&role.Position, &role.Color, &role.Hoist, &role.Mentionable,
	); err != nil {
		return goPerm.Role{}, fmt.Errorf("failed to scan role row: %w", err)
	}
	role.Permissions = permission.Mask(perms)
	return role, nil
}
