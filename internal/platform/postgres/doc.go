// Package postgres contains the PostgreSQL implementations of the store
// interfaces defined in the store package.
package postgres
