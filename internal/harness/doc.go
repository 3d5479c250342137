// Package harness runs YAML conformance scenarios against the taxonomy
// operations.
//
// A scenario scripts the server side of every round trip. The harness
// drives the real request builder, correlator and orchestrators against a
// scripted poster, records every round trip in an in-memory journal and
// evaluates assertions over the resulting trace and journal.
//
// # Scenario Format
//
//	name: term-set-add-describe
//	description: "Create a term set, then describe it"
//	steps:
//	  - invoke: term set add
//	    args: { name: PnP-Organizations, group: People, description: "List of organizations" }
//	    responses:
//	      - pairs:
//	          7: { _ObjectIdentity_: "tok-A" }
//	          8: { Name: PnP-Organizations, Id: "/Guid(...)/" }
//	          9: { _ObjectIdentity_: "store-tok" }
//	      - {}
//	    expect:
//	      outcome: ok
//	      result: { Description: "List of organizations" }
//	assertions:
//	  - type: trace_count
//	    operation: term set add
//	    count: 2
//	  - type: final_state
//	    table: round_trips
//	    where: { phase: 2 }
//	    expect: { outcome: ok }
//
// A response is one of: pairs (a successful batch answering the listed
// ids), raw (a body sent verbatim), error (a batch whose metadata carries
// ErrorInfo) or transport_error (the post itself fails). An empty response
// is a successful batch with no pairs.
//
// # Assertion Types
//
//   - trace_contains: an invoked operation with matching args
//   - trace_order: operations invoked in the given order
//   - trace_count: number of round trips made for an operation
//   - request_contains: a request body of a step contains a fragment
//   - final_state: a single journal row with the expected columns
package harness
