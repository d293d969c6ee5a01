// Package notifications publishes sweep events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Each Event maps to a fixed title, tag set
// and priority; the Payload supplies the values interpolated into the
// message body.
package notifications
