package turn

import (
	"strconv"

	"github.com/gortc/turnc/stun"
)

// Protocol is IANA assigned protocol number.
type Protocol byte

// ProtoUDP is IANA assigned protocol number for UDP.
const ProtoUDP Protocol = 17

func (p Protocol) String() string {
	switch p {
	case ProtoUDP:
		return "UDP"
	default:
		return strconv.Itoa(int(p))
	}
}

// RequestedTransport represents REQUESTED-TRANSPORT attribute.
//
// This attribute is used by the client to request a specific transport
// protocol for the allocated transport address.
//
// RFC 5766 Section 14.7
type RequestedTransport struct {
	Protocol Protocol
}

// RequestedTransportUDP is shorthand for requesting a UDP relay.
var RequestedTransportUDP = RequestedTransport{Protocol: ProtoUDP}

// 8 bits of protocol + 24 bits of RFFU = 0.
const requestedTransportSize = 4

// AddTo adds REQUESTED-TRANSPORT to message.
func (t RequestedTransport) AddTo(m *stun.Message) error {
	v := make([]byte, requestedTransportSize)
	v[0] = byte(t.Protocol)
	// v[1:4] are zeroes (RFFU = 0)
	m.Add(stun.AttrRequestedTransport, v)
	return nil
}

// GetFrom decodes REQUESTED-TRANSPORT from message.
func (t *RequestedTransport) GetFrom(m *stun.Message) error {
	v, err := m.Get(stun.AttrRequestedTransport)
	if err != nil {
		return err
	}
	if len(v) != requestedTransportSize {
		return &BadAttrLength{
			Attr:     stun.AttrRequestedTransport,
			Got:      len(v),
			Expected: requestedTransportSize,
		}
	}
	t.Protocol = Protocol(v[0])
	return nil
}
