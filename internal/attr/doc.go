// Package attr provides the value model for shelf records.
//
// Records are schemaless attribute maps (Map) whose values are drawn from a
// sealed union (Value). Joined query rows are Views: a table name mapped to
// that table's attribute map.
//
// The package also owns record identity: StoreID is the client-generated,
// resolvable identifier handed out by a per-table Generator, and Key turns
// any identifier value into the string used to address rows in a table.
//
// attr imports nothing internal. Every other internal package builds on it.
//
// Key design constraints:
//   - Go nil is the absent value. Null is an explicit JSON null. Both are
//     "nil-like": equal to each other, falsy, and sorted before everything
//     else by Compare.
//   - Maps are never mutated by readers. Store code clones before writing.
//   - Canonical encoding (MarshalCanonical) is used for persistence and
//     golden traces so identical maps always produce identical bytes.
package attr
