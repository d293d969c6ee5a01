// Package sonarr stops the monitoring service from re-downloading a series
// once it has been cleaned up: the series is located by tvdb id, unmonitored,
// and optionally removed.
package sonarr
