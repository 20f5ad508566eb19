// Package wire implements the wavelink message envelope encoding.
//
// Every application message travels as an envelope carrying a type
// identifier and an opaque payload. Envelopes are CBOR-encoded with
// integer keys for compactness:
//
//	{1: "chat.message", 2: <payload bytes>}
//
// The payload is itself CBOR, produced from the sender's typed value and
// decoded into the receiver's registered type by the router. The envelope
// layer never interprets payload contents.
//
// Encoding is deterministic (canonical key ordering) so that identical
// messages produce identical bytes. Decoding is lenient to allow forward
// compatibility with envelopes produced by newer peers.
package wire
