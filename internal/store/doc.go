// Package store defines the persistence interfaces consumed by the service
// layer, together with the error taxonomy shared by all implementations.
// Concrete implementations live under internal/platform/postgres.
package store
