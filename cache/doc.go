// Package cache provides resolution cache implementations for the goPerm
// engine: a sharded in-process cache for single-instance deployments and a
// Redis-backed cache with pub/sub invalidation fan-out for multi-instance
// deployments.
//
// Both implementations satisfy the goPerm.ResolutionCache interface without
// importing goPerm. Entries are keyed by (userID, channelID) and tagged with
// the owning serverID so channel-, server-, and member-scoped invalidation
// can find them. Explicit invalidation is the primary consistency mechanism;
// the TTL ceiling bounds staleness from missed invalidations.
//
// # What this package must NOT do
//
//   - Compute permissions. It stores what the resolver hands it.
//   - Return expired entries, even before the janitor has evicted them.
//   - Serve a Get error as a hit. Transport failures degrade to misses.
package cache
