// Package stores provides the local SQLite backend for sitefroyo.
//
// The store keeps two things: site parameters, laid out like the remote
// parameter store so the engine can read them through
// engine.ParameterStore, and a status history written after each
// evaluation for the history command. Schema changes are applied with
// embedded golang-migrate migrations.
package stores
