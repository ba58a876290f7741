// Package normalize converts raw export fields into comparable canonical forms.
//
// Every function is pure and total: it never panics and never touches global
// state. Text and Phone are idempotent, so normalized values can be fed back
// through the same functions (for example when seeding a pool from a
// previously persisted ID map) without drifting.
package normalize
