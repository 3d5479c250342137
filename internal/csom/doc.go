// Package csom implements a client for the SharePoint client object model
// ProcessQuery protocol.
//
// A request is a Graph: object paths describe how to reach a server-side
// object (static method, instance method, property, constructor, or a
// previously captured identity) and actions describe what to do with a
// reached object (instantiate, query identity, query properties, set a
// property, invoke a method). Every node carries an integer id from one
// shared Allocator. The Graph is serialized to a single XML Request and
// POSTed; the server answers with a flat JSON array that Correlate turns
// back into an id -> payload map.
//
// # Response envelope
//
//	[
//	  {"SchemaVersion": "15.0.0.0", "LibraryVersion": "16.0.0.0",
//	   "ErrorInfo": null, "TraceCorrelationId": "..."},
//	  7, {"IsNull": false},
//	  8, {"_ObjectIdentity_": "..."},
//	  9, {"_ObjectType_": "SP.Taxonomy.TermSet", "Name": "..."}
//	]
//
// Element 0 is always the batch metadata. A non-null ErrorInfo fails the
// whole batch and nothing else in the array is read. The (id, payload)
// pairs may arrive in any order.
//
// # Identity threading
//
// An object created by one request can only be mutated by a later request
// through its _ObjectIdentity_ token. Tokens are captured into a Session as
// IdentityToken values, escaped once at capture time, and replayed verbatim
// by Graph.Identity. They are never parsed.
//
// # Lifecycle
//
// A Graph, its Allocator and its Session are created per operation and are
// not shared between goroutines. Builder misuse (dangling parent ids,
// mutation after serialization) is recorded as the graph's first error and
// returned by Err and Serialize, so no request is ever sent for a broken
// graph.
package csom
