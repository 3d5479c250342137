// Package payload provides typed JSON values for ProcessQuery response
// payloads.
//
// The server answers every retrieval action with an arbitrary JSON
// object (an identity record, a property snapshot, a child item
// collection). Those objects are decoded into a small sealed union so
// callers can inspect them without type-asserting on interface{} trees.
//
// Key constraints:
//   - Numbers without a fraction or exponent decode as Int, never Float
//   - JSON null decodes as Null, never as a nil Value
//   - Object keys iterate in RFC 8785 order via SortedKeys
//   - MarshalCanonical is the only serialization used for snapshots
package payload
