// Package audit keeps the command trail: every command the coordinator
// publishes, who asked for it, and when (if ever) the device acknowledged it.
//
// Rows live in the command_log table created by the embedded migrations.
// Command ids restart with every coordinator run, so each Trail carries a
// run id and acknowledgements match on (run_id, command_id).
//
// Writes pass through a circuit breaker. A failing database trips it after
// a few consecutive errors and later writes are dropped until the breaker
// half-opens again, so a broken disk never slows the message path.
package audit
