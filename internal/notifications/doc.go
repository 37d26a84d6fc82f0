// Package notifications pushes job outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the workflow manager can always call it. Each event type can be muted in
// the [notifications] config section.
package notifications
