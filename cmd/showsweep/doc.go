// Package main hosts the ShowSweep CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, wires the source
// adapters, cache and store for the sweep pipeline, and renders reports as
// tables or JSON. Maintenance commands cover the durable store, the
// freshness cache, configuration scaffolding and notification testing.
//
// Keep this package lean: behaviour belongs in the internal packages, and
// commands here only translate flags into their inputs.
package main
