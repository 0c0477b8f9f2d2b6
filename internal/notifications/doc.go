// Package notifications delivers job lifecycle events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The completed and errors toggles control which event groups are
// sent, so operators can subscribe to failures only.
//
// Notifications are best-effort: delivery failures are logged by callers and
// never affect pipeline state. Extend this package if you need alternative
// transports; pipeline code depends only on the Service interface.
package notifications
