// Package postgres contains the PostgreSQL implementations of the
// persistence interfaces defined in internal/store. All implementations
// work against a store.DBTX, so they run equally inside and outside of
// transactions.
package postgres
