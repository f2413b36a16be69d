package stun

import (
	"errors"
	"net"
	"strconv"
)

// Address families from RFC 5389 Section 15.1.
const (
	familyIPv4 uint16 = 0x01
	familyIPv6 uint16 = 0x02
)

var (
	// ErrBadIPLength means the IP is neither 4 nor 16 bytes.
	ErrBadIPLength = errors.New("invalid IP length")
	// ErrBadAddressFamily means the family byte is neither IPv4 nor IPv6.
	ErrBadAddressFamily = errors.New("invalid address family")
)

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// XORMappedAddress implements the XOR-MAPPED-ADDRESS attribute: the
// port is XORed with the top 16 bits of the magic cookie, an IPv4
// address with the cookie, an IPv6 address with the cookie concatenated
// with the transaction id.
//
// RFC 5389 Section 15.2
type XORMappedAddress struct {
	IP   net.IP
	Port int
}

func (a XORMappedAddress) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(a.Port))
}

// AddTo adds XOR-MAPPED-ADDRESS to the message.
func (a XORMappedAddress) AddTo(m *Message) error {
	return a.AddToAs(m, AttrXORMappedAddress)
}

// AddToAs adds the address under an arbitrary attribute code, for the
// TURN attributes sharing this encoding (XOR-PEER-ADDRESS,
// XOR-RELAYED-ADDRESS).
func (a XORMappedAddress) AddToAs(m *Message, t AttrType) error {
	var (
		family = familyIPv4
		ip     = a.IP
	)
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4
	} else if len(ip) == net.IPv6len {
		family = familyIPv6
	} else {
		return ErrBadIPLength
	}
	value := make([]byte, 4+len(ip))
	bin.PutUint16(value[0:2], family)
	bin.PutUint16(value[2:4], uint16(a.Port)^uint16(magicCookie>>16))
	xorValue := make([]byte, 4+TransactionIDSize)
	bin.PutUint32(xorValue[0:4], magicCookie)
	copy(xorValue[4:], m.TransactionID[:])
	xorBytes(value[4:], ip, xorValue)
	m.Add(t, value)
	return nil
}

// GetFrom decodes XOR-MAPPED-ADDRESS from the message.
func (a *XORMappedAddress) GetFrom(m *Message) error {
	return a.GetFromAs(m, AttrXORMappedAddress)
}

// GetFromAs decodes the address from an arbitrary attribute code
// sharing this encoding.
func (a *XORMappedAddress) GetFromAs(m *Message, t AttrType) error {
	v, err := m.Get(t)
	if err != nil {
		return err
	}
	if len(v) < 4 {
		return ErrBadLength
	}
	ipLen := net.IPv4len
	switch bin.Uint16(v[0:2]) {
	case familyIPv4:
	case familyIPv6:
		ipLen = net.IPv6len
	default:
		return ErrBadAddressFamily
	}
	if len(v) != 4+ipLen {
		return ErrBadIPLength
	}
	a.Port = int(bin.Uint16(v[2:4])) ^ (magicCookie >> 16)
	xorValue := make([]byte, 4+TransactionIDSize)
	bin.PutUint32(xorValue[0:4], magicCookie)
	copy(xorValue[4:], m.TransactionID[:])
	if cap(a.IP) < ipLen {
		a.IP = make(net.IP, ipLen)
	}
	a.IP = a.IP[:ipLen]
	xorBytes(a.IP, v[4:], xorValue)
	return nil
}
