// Package session drives the per-reader side of an LLRP connection.
//
// Ownership boundary:
// - canned client commands and the handshake reply table
// - per-origin decode state (frame stitching, reader identity)
// - the registry that routes chunks to their origin's state
//
// Framing and parameter decoding live in the protocol packages; transport
// (dialing, retries, TLS) lives in internal/reader.
package session
