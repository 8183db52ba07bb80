// Package notifications delivers run summaries via ntfy.
//
// NewService returns an ntfy-backed notifier when a topic is configured and a
// no-op otherwise, so callers never branch on whether notifications are on.
package notifications
