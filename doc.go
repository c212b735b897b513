// Package state implements a reactive, path-addressable state container: a
// single nested snapshot addressed by dotted/bracketed string paths
// ("system.n", "system.x[2]"), with opt-in validation, wildcard change
// subscriptions, atomic batches and best-effort persistence to an external
// key/value medium.
//
// Responsibilities:
//   - Store owns exactly one piece of state, the current snapshot, and
//     replaces it wholesale on every commit. Published snapshots are never
//     mutated in place; untouched subtrees are shared between consecutive
//     snapshots (copy-on-write along the written path's ancestor chain), so
//     references handed out earlier stay valid and merely go stale.
//   - Subscriptions match exact paths, "prefix.*" or "*", and fire
//     synchronously inside the Set/Batch call that committed the change, in
//     registration order, with panic isolation between subscribers.
//   - Validators are exact-path predicates wired at construction and run only
//     when a call opts in; a rejection leaves the snapshot untouched.
//     Predicates can be plain Go functions or compiled from expr-lang, CEL or
//     (behind the js_eval tag) JavaScript expressions.
//   - The persistence bridge serializes single subtrees to a medium.Medium
//     under explicit or table-inferred keys, swallowing and logging every
//     medium failure: persistence must never destabilize the live state.
//
// Data flow:
//
//	Set/Batch -> validate -> copy-on-write -> commit root -> notify -> persist
//
// The store is synchronous and run-to-completion: no operation suspends, and
// a subscriber may re-enter Set against the now-current snapshot (bounded by
// WithMaxNotifyDepth). It is intended for a cooperative single-writer model,
// such as a UI loop feeding solver, audio and display state.
package state
