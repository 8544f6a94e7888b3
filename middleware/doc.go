// Package middleware exposes an HTTP guard that enforces channel permissions
// resolved by goPerm.Engine.
//
// # Guards
//
//   - [Guard] — full configuration: engine, JWT secret, channel extractor,
//     required permission set.
//   - [RequirePermission] — common case: channel id from the "channel" query
//     parameter.
//
// The guard reads the Authorization bearer token, takes the acting user id
// from the HS256 JWT subject, resolves the effective mask for the extracted
// channel, and injects a [Decision] into the request context on success.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement permission logic itself — all decisions are delegated to
// Engine.Resolve.
//
// # What this package must NOT do
//
//   - Compute or override permission bits (delegates to Engine).
//   - Call the directory or cache directly (Engine handles I/O).
//   - Mint JWTs; it only verifies them.
package middleware
