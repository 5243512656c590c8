// Package store provides SQLite-backed storage for departments.
//
// Queries run against a Queryer, so the same code serves a *sql.DB in a
// running server and a *sql.Tx in tests, where every scenario is rolled
// back to a savepoint inside one transaction.
//
// # Ordering
//
// Listings always end with ORDER BY seq ASC, the insertion order. A
// caller-supplied ordering is applied first; seq breaks ties so results are
// identical across runs.
//
// # Uniqueness
//
// Department titles are unique. Violations surface as *DuplicateError
// rather than raw driver errors.
package store
