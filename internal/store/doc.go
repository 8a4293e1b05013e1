// Package store keeps tables of attribute maps and runs query descriptors
// against them.
//
// Two variants share every operation:
//   - NewMemory: tables live in process memory
//   - NewDurable: tables persist through a kv.KV host
//
// # Execution
//
// Execute follows a fixed pipeline: load the primary table as single-table
// views, sort-merge join each association hop (JoinTables), filter with the
// predicate, project back to the primary table's row, then order, offset
// and limit.
//
// # Identifiers
//
// Create allocates an unresolved attr.StoreID from the table's generator
// when a record has no id. UpdateID later relocates the row to the
// server-assigned id and resolves the same StoreID instance in place, so
// every holder of it sees the final value.
//
// # Durable layout
//
// For a table T the durable variant writes:
//
//	T:<id key>    canonical JSON attribute map
//	T:index       JSON array of ids in table order
//	T:generator   {"next_id": n}
//
// A legacy T:next_id counter is migrated to T:generator when the table is
// first opened.
//
// # Observers
//
// Every mutation fans out through a Registry. Observers may be limited to
// one table and predicate (Watch) and to local or remote changes
// (ObserveOptions). Callbacks run synchronously; a callback error aborts
// the notification pass and is returned by the mutating call.
package store
