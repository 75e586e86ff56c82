// Package webhooks verifies and dispatches inbound 1Sub webhook events.
//
// Deliveries are signed with a timestamped HMAC-SHA256 header in the
// `t=<unix_seconds>,v1=<hex_hmac>` format. The Dispatcher checks the
// signature, deduplicates deliveries by event id, and routes each event to
// the handler registered for its type.
package webhooks
