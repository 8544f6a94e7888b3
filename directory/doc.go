// Package directory provides store implementations behind the goPerm
// Directory and MutationStore interfaces: an in-memory store for tests,
// embedding, and load harnesses, and a SQLite-backed store for single-node
// deployments.
//
// Both stores uphold the same contract: every server owns exactly one
// @everyone role at position 0 that is created with the server and can be
// edited but never deleted or repositioned; GetMemberRoles always includes
// it for members and fails with goPerm.ErrNotAMember otherwise; a channel
// holds at most one overwrite per (target type, target id) pair.
//
// Stores do no caching and no permission math. They return snapshots; the
// engine owns resolution and the cache owns staleness.
package directory
