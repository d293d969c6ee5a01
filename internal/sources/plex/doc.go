// Package plex talks to the media server. It enumerates the TV library
// (inventory), answers whether a series has play history, computes on-disk
// size, and performs the structural operations applied to eligible series:
// delete, keep first season, and keep first episode.
package plex
