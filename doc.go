// Package wspulse manages the lifecycle of a single persistent WebSocket
// session on the client side: connecting with a bounded exponential-backoff
// retry policy, probing liveness on a fixed cadence, and encoding payloads
// through a JSON/CBOR codec. The transport engine itself (handshake, framing,
// TLS) is pluggable behind the Dialer/Conn interfaces.
package wspulse
