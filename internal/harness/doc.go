// Package harness runs store scenarios written in YAML and checks the
// notifications and final state they produce.
//
// # Scenario Format
//
//	name: offline_todo
//	description: "Temporary ids are resolved after sync"
//	backend: durable            # memory (default) or durable
//	schema: schema.cue          # optional, relative to the scenario file
//	observers:
//	  - name: all
//	  - name: done
//	    table: todos
//	    where: done == true
//	    local_only: true
//	seed:
//	  - table: users
//	    rows:
//	      - { id: 1, name: kim }
//	steps:
//	  - op: create
//	    table: todos
//	    record: { title: "write docs", user_id: 1 }
//	    as: todo
//	  - op: update_id
//	    table: todos
//	    id: $todo
//	    to: 41
//	  - op: query
//	    table: todos
//	    where: user_id == 1
//	    expect:
//	      ids: [41]
//	assertions:
//	  - type: trace_count
//	    observer: all
//	    count: 1
//	  - type: final_state
//	    table: todos
//	    where: { id: 41 }
//	    expect: { title: "write docs" }
//
// Seed rows are pushed without notifying observers. A string of the form
// "$name" anywhere in a step refers to the id captured by an earlier step's
// "as"; "$$" escapes a literal leading dollar sign.
//
// # Operations
//
//   - create, push: store record (push does not notify)
//   - update: merge record into the stored row, or insert it when absent
//   - destroy: remove the row with id
//   - update_id: move the row at id to the server id in to
//   - find: read the row with id
//   - query: run where/order/limit/offset/joins against table
//   - unsubscribe: drop the named observer
//
// A step's expect clause checks an error name (not_found, duplicate_id,
// missing_id, config), a record subset, result ids or a result count.
//
// # Assertion Types
//
//   - trace_contains: some notification matches observer, kind, table and a
//     record subset
//   - trace_order: an observer saw the listed kinds in order
//   - trace_count: exactly N notifications match
//   - final_state: exactly one row matches where and contains expect
//
// # Deterministic Testing
//
// Notifications are stamped by testutil.Clock and observer handles come
// from store.SequenceGenerator, so the same scenario always yields the
// same trace. RunWithGolden compares that trace and the final table dump
// against testdata/golden/<name>.golden.
package harness
