// Package database provides pooled access to the analytics database.
//
// Queries use named parameters, return column-oriented results and
// retry transient failures with exponential backoff. The package
// exposes its query path as an executor function so the result cache
// can wrap it without either package knowing about the other's
// internals.
package database
