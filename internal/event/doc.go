// Package event defines the messages a download run sends to its caller:
// Log lines and per-file Progress. Producers use a Sink; consumers may fold
// progress into a ProgressTable keyed by (path, total).
package event
