// Package harness runs scripted scenarios against a document manager and
// records what happened as a deterministic trace.
//
// # Scenario Format
//
//	name: eviction_keeps_referenced
//	description: "A record pinned by a reference survives eviction"
//	kind: note
//	seed:
//	  - id: 2
//	    data: { title: "kept" }
//	    links: { parent: 1 }
//	flow:
//	  - op: ref
//	    args: { name: r, to: 2 }
//	  - op: resolve
//	    args: { name: r }
//	    expect: { case: ok, result: { state: resolved } }
//	assertions:
//	  - type: resident
//	    ids: [2, 1]
//
// Seed records are written to an in-memory backend before the flow runs;
// the manager starts empty and loads them lazily. Every flow step adds an
// invocation and a completion to the trace. A completion's output case is
// "ok" or the fault code of the returned error, and its result always
// carries the resident persistent ids in list order.
//
// # Operations
//
//   - create {transient}: append a record
//   - delete {id, backing}: delete a resident record
//   - set {id, data, name, auxiliary}: edit a resident record
//   - link {id, name, to}: point a record's named link at a persistent id
//   - ref {name, to}: point a standalone harness reference at an id
//   - resolve {name, forced, table}: resolve a harness reference
//   - sync {id, table}: sync one record
//   - sync_all {table}, unsync_all {table}
//   - set_current {id}, next, prev
//   - mark {needed}: set every record's Needed bit
//   - evict
//   - lookup {id, in_memory}
//   - save {id}, save_all, load_all, renumber {persist}
//   - defer_sync {id}, defer_delete {id}, drain
//   - reset
//
// # Assertion Types
//
//   - resident: resident persistent ids, in list order
//   - count: number of resident records
//   - current: persistent id of the current record (0 for none)
//   - stored: ids the backend lists
//   - loads: number of backend Load calls after seeding
//   - broken_links: given-up link names of a resident record
//   - trace_count: number of steps with a given op
//   - trace_order: ops appear in this relative order
//
// # Golden Traces
//
// RunWithGolden compares the canonical JSON trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
