// Package journal records ProcessQuery round trips in SQLite.
//
// Every request the client sends is stored with the response it received
// (if any), its outcome and the server's trace correlation id, so a failed
// or partially successful operation can be inspected after the fact.
// Rows are keyed by a content hash and read back in insertion order.
package journal
