// Package types defines the Task entity, the Store contract shared by every
// persistence variant, the standard errors, and the board configuration.
//
// Store implementations live in internal/store (client side) and in
// internal/sqlite and internal/postgres (server side); pkg/store selects one
// at startup.
package types
