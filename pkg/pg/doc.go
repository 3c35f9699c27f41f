// Package pg provides the postgres connection pool, goose migrations and
// error classification helpers shared by the durable stores.
package pg
