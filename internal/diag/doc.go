// Package diag implements the server's diagnostics query engine: a static
// registry of diagnostic sections, each exposing a fixed set of counter
// fields addressed by bits in a 32-bit mask, and an assembler that filters
// a subsystem's counter snapshot through a requested mask into an ordered
// output document.
//
// The package computes no statistics itself. Subsystems hand it point-in-time
// snapshots through the StatsProvider interface; the engine only selects,
// validates, and formats. It holds no shared mutable state and is safe to use
// from any goroutine handling a single request.
//
// The registry is process-wide, compile-time configuration. Sections and
// field bit assignments never change at runtime, so output ordering follows
// registry declaration order and is stable across calls.
package diag
