// Package observability provides event logging, metrics, alerting, tracing
// and run notifications for Maestro. Events are persisted as JSON Lines and
// metrics are derived from the event log on demand.
package observability
