// Package trace records every stage attempt of a request in an append-only
// log and forwards each attempt to a Sink (logs, NATS, Prometheus).
package trace
