// Package server implements the HTTP server and HTTP handlers for
// FileHub. It wires together the HTTP routes and the owned components
// (blob store, chunk assembler, broadcast hub, expiry sweeper) and
// provides lifecycle helpers used by tests and the production binary.
package server
