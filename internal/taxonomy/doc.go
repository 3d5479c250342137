// Package taxonomy composes ProcessQuery graphs into managed metadata
// operations: creating term groups, term sets and terms, and listing term
// groups.
//
// Creation follows a two-phase pattern. Phase 1 navigates from the
// taxonomy session to the parent container, invokes the create method and
// queries the identity and properties of the new object together with the
// identity of the term store. Phase 2 runs only when refinements were
// requested (description, custom properties). It is a separate request
// that resumes at both objects through their identity tokens, applies the
// refinements and ends with CommitAll on the term store.
//
// Phase 2 cannot undo phase 1. When it fails the created object is
// returned together with a *csom.PartialSuccessError.
//
// Each call builds its own graphs and session; a Service may be shared by
// concurrent callers.
package taxonomy
