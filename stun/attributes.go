package stun

import "fmt"

// AttrType is a 16-bit attribute type code.
type AttrType uint16

// Required reports whether the attribute is comprehension-required:
// codes below 0x8000 must be understood by the receiver, codes at or
// above it may be ignored.
func (t AttrType) Required() bool {
	return t < 0x8000
}

// Value returns the wire representation.
func (t AttrType) Value() uint16 {
	return uint16(t)
}

// Attribute codes from RFC 5389 and RFC 5766.
const (
	AttrUsername           AttrType = 0x0006
	AttrMessageIntegrity   AttrType = 0x0008
	AttrErrorCode          AttrType = 0x0009
	AttrChannelNumber      AttrType = 0x000C
	AttrLifetime           AttrType = 0x000D
	AttrXORPeerAddress     AttrType = 0x0012
	AttrData               AttrType = 0x0013
	AttrRealm              AttrType = 0x0014
	AttrNonce              AttrType = 0x0015
	AttrXORRelayedAddress  AttrType = 0x0016
	AttrRequestedTransport AttrType = 0x0019
	AttrXORMappedAddress   AttrType = 0x0020
	AttrSoftware           AttrType = 0x8022
	AttrFingerprint        AttrType = 0x8028
)

// Vendor extension attributes carried by the wire dialect this client
// speaks. All are in the comprehension-optional range.
const (
	AttrSTUNID             AttrType = 0xFF03
	AttrProtocolVersion    AttrType = 0xFF04
	AttrNATBindingInterval AttrType = 0xFF05
	AttrResponseAddress    AttrType = 0xFF06
)

// attrNames is the set of recognized attributes. Decode consults it to
// reject unknown comprehension-required codes.
var attrNames = map[AttrType]string{
	AttrUsername:           "USERNAME",
	AttrMessageIntegrity:   "MESSAGE-INTEGRITY",
	AttrErrorCode:          "ERROR-CODE",
	AttrChannelNumber:      "CHANNEL-NUMBER",
	AttrLifetime:           "LIFETIME",
	AttrXORPeerAddress:     "XOR-PEER-ADDRESS",
	AttrData:               "DATA",
	AttrRealm:              "REALM",
	AttrNonce:              "NONCE",
	AttrXORRelayedAddress:  "XOR-RELAYED-ADDRESS",
	AttrRequestedTransport: "REQUESTED-TRANSPORT",
	AttrXORMappedAddress:   "XOR-MAPPED-ADDRESS",
	AttrSoftware:           "SOFTWARE",
	AttrFingerprint:        "FINGERPRINT",
	AttrSTUNID:             "STUN-ID",
	AttrProtocolVersion:    "PROTOCOL-VERSION",
	AttrNATBindingInterval: "NAT-BINDING-INTERVAL",
	AttrResponseAddress:    "RESPONSE-ADDRESS",
}

func (t AttrType) String() string {
	s, ok := attrNames[t]
	if !ok {
		return fmt.Sprintf("0x%x", uint16(t))
	}
	return s
}

// RawAttribute is one TLV entry of a message. Value aliases the
// message's Raw buffer.
type RawAttribute struct {
	Type   AttrType
	Length uint16 // excluding padding
	Value  []byte
}

func (a RawAttribute) String() string {
	return fmt.Sprintf("%s: %x", a.Type, a.Value)
}

// Attributes is a message's attribute list in wire order.
type Attributes []RawAttribute

// Get returns the first attribute of type t.
func (a Attributes) Get(t AttrType) (RawAttribute, bool) {
	for _, attr := range a {
		if attr.Type == t {
			return attr, true
		}
	}
	return RawAttribute{}, false
}
