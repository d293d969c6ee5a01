// Package tautulli answers whether a series has watch statistics in the
// history service and discovers the series' tvdb id, which the monitoring
// service needs to find it.
package tautulli
