// Package goPerm provides a low-latency channel permission resolution engine
// with Discord-style role bitmasks, per-channel allow/deny overwrites, a
// sharded resolution cache, and a mutation guard that keeps cached answers
// consistent with role and overwrite writes.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goPerm is the public surface. It exposes [Engine], [Builder], [Config], the
// domain value types (Server, Role, Channel, ChannelOverwrite), and the
// [Directory], [MutationStore], [ResolutionCache], and [InvalidationSink]
// integration interfaces. Store and cache implementations live under
// directory/ and cache/; the engine never talks to a database or Redis
// directly.
//
// # What this package must NOT do
//
//   - Write to the primary store outside the mutation guard methods.
//   - Swallow a directory failure into a false permission check. "Denied" and
//     "could not determine" stay distinct end to end.
//   - Cache a result learned only from a failed or cancelled fetch.
//   - Log. Observability is the metrics snapshot and the invalidation sink.
//
// # Performance contract
//
// Check is the hot path: it runs on nearly every channel-scoped request. A
// cache hit must complete without directory round-trips; a miss is allowed
// one bounded-timeout fetch per directory call in the resolution pipeline.
package goPerm
