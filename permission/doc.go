// Package permission provides the fixed-width bitmask type and the named
// permission registry used by goPerm authorization checks.
//
// # Mask width
//
// A [Mask] is a 64-bit set of permission bits. Bit positions are assigned by
// the [Registry] and are stable for the lifetime of the process. The default
// catalogue is built once by [DefaultRegistry] and frozen; adding a permission
// is a registry version bump, never a reinterpretation of stored masks.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It provides the
// codec (EncodeMask/DecodeMask) used wherever masks cross a storage or wire
// boundary; encoded masks carry the registry version so that a mask persisted
// under one catalogue is rejected, not misread, under another.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import goPerm, cache, or directory.
//   - Assign or reassign bits after [Registry.Freeze].
package permission
