// Package protocol interprets LLRP frames as semantic messages.
//
// Ownership boundary:
// - frame: header primitives, chunk scanning and cross-read stitching
// - param: TV/TLV parameter split and per-type decode rules
// - schema: message and parameter code tables
// - session: per-origin state, handshake replies and the decode facade
package protocol
