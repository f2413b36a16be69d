package stun

import "hash/crc32"

const (
	fingerprintXORValue uint32 = 0x5354554e
	fingerprintSize            = 4
)

// FingerprintValue returns the FINGERPRINT checksum for b: CRC-32 XORed
// with 0x5354554E (RFC 5389 Section 15.5).
func FingerprintValue(b []byte) uint32 {
	return crc32.ChecksumIEEE(b) ^ fingerprintXORValue
}

// FingerprintAttr is the FINGERPRINT attribute setter. It must be the
// last attribute added; Decode verifies the checksum and rejects a
// message where it is not last.
type FingerprintAttr struct{}

// Fingerprint appends FINGERPRINT when used with Build.
var Fingerprint FingerprintAttr

// AddTo appends the checksum over the message so far, with the header
// length pre-adjusted to cover the fingerprint attribute itself.
func (FingerprintAttr) AddTo(m *Message) error {
	prevLen := m.Length
	m.Length += attributeHeaderSize + fingerprintSize
	m.WriteLength()
	v := make([]byte, fingerprintSize)
	bin.PutUint32(v, FingerprintValue(m.Raw))
	m.Length = prevLen
	m.Add(AttrFingerprint, v)
	return nil
}
