// Package stun implements the RFC 5389 STUN message codec used by the
// TURN client: header framing, the attribute set, XOR address encoding,
// long-term-credential message integrity and fingerprint.
package stun

import "encoding/binary"

// bin is shorthand for binary.BigEndian.
var bin = binary.BigEndian

const (
	// magicCookie is fixed to 0x2112A442 in every STUN message.
	magicCookie = 0x2112A442
	// TransactionIDSize is the length of the transaction id in bytes.
	TransactionIDSize = 12

	messageHeaderSize   = 20
	attributeHeaderSize = 4
	padding             = 4
)

// Default ports from RFC 5389 Section 18.4.
const (
	DefaultPort    = 3478
	DefaultTLSPort = 5349
)

func nearestPaddedValueLength(l int) int {
	n := padding * (l / padding)
	if n < l {
		n += padding
	}
	return n
}
