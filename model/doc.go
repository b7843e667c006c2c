// Package model defines the sales-domain entities and a factory that
// builds them from raw query rows.
//
// Entities validate themselves on construction: monetary amounts use
// decimal arithmetic, identifiers must be positive, and free-text
// fields are trimmed and length-checked. The factory maps an entity
// kind to a builder so callers can turn a result row into a typed
// value without scattering conversion logic.
package model
