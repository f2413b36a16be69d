package stun

import (
	"crypto/rand"
	"fmt"
	"io"
)

// NewTransactionID returns a new cryptographically random transaction id.
func NewTransactionID() (b [TransactionIDSize]byte) {
	readFullOrPanic(rand.Reader, b[:])
	return b
}

func readFullOrPanic(r io.Reader, v []byte) {
	if _, err := io.ReadFull(r, v); err != nil {
		panic(err)
	}
}

// Setter sets attributes or header fields on a message being built.
type Setter interface {
	AddTo(m *Message) error
}

// Getter decodes an attribute from a parsed message.
type Getter interface {
	GetFrom(m *Message) error
}

// Message represents a single STUN packet. The Raw byte slice and the
// decoded fields are kept in sync: Add serializes each attribute into
// Raw as it is appended, and Decode fills the fields back from Raw.
type Message struct {
	Type          MessageType
	Length        uint32 // len(Raw) excluding the 20-byte header
	TransactionID [TransactionIDSize]byte
	Attributes    Attributes
	Raw           []byte

	// integrityStart is the offset of the MESSAGE-INTEGRITY attribute
	// within Raw, recorded by Decode (and by MessageIntegrity.AddTo) so
	// Check can recompute the HMAC over exactly the bytes it covers.
	integrityStart int
}

// New allocates a message with room for the header already reserved.
func New() *Message {
	const defaultRawCapacity = 120
	return &Message{Raw: make([]byte, messageHeaderSize, defaultRawCapacity)}
}

func (m *Message) String() string {
	return fmt.Sprintf("%s l=%d attrs=%d id=%x",
		m.Type, m.Length, len(m.Attributes), m.TransactionID,
	)
}

// Reset returns the message to the empty state, keeping Raw's capacity.
func (m *Message) Reset() {
	m.Raw = m.Raw[:0]
	m.Length = 0
	m.Attributes = m.Attributes[:0]
	m.integrityStart = 0
}

// grow ensures len(m.Raw) >= v, extending with zeroes if needed.
func (m *Message) grow(v int) {
	if len(m.Raw) >= v {
		return
	}
	if cap(m.Raw) >= v {
		m.Raw = m.Raw[:v]
		return
	}
	m.Raw = append(m.Raw, make([]byte, v-len(m.Raw))...)
}

// Add appends attribute t with value v to the message, serializing it
// into Raw (with zero padding to the 4-byte boundary) and updating the
// header length field.
func (m *Message) Add(t AttrType, v []byte) {
	allocSize := attributeHeaderSize + len(v)
	first := messageHeaderSize + int(m.Length)
	last := first + allocSize
	m.grow(last)
	m.Length += uint32(allocSize)
	buf := m.Raw[first:last]
	bin.PutUint16(buf[0:2], t.Value())
	bin.PutUint16(buf[2:4], uint16(len(v)))
	copy(buf[attributeHeaderSize:], v)
	attr := RawAttribute{
		Type:   t,
		Length: uint16(len(v)),
		Value:  buf[attributeHeaderSize:],
	}
	if toAdd := nearestPaddedValueLength(len(v)) - len(v); toAdd > 0 {
		last += toAdd
		m.grow(last)
		for i := last - toAdd; i < last; i++ {
			m.Raw[i] = 0
		}
		m.Length += uint32(toAdd)
	}
	m.Attributes = append(m.Attributes, attr)
	m.WriteLength()
}

// Get returns the value of the first attribute of type t, or
// ErrAttributeNotFound. The slice aliases Raw and must not be modified.
func (m *Message) Get(t AttrType) ([]byte, error) {
	v, ok := m.Attributes.Get(t)
	if !ok {
		return nil, ErrAttributeNotFound
	}
	return v.Value, nil
}

// WriteLength writes the current Length into the header.
func (m *Message) WriteLength() {
	m.grow(4)
	bin.PutUint16(m.Raw[2:4], uint16(m.Length))
}

// WriteType writes the current Type into the header.
func (m *Message) WriteType() {
	m.grow(2)
	bin.PutUint16(m.Raw[0:2], m.Type.Value())
}

// WriteTransactionID writes the current TransactionID into the header.
func (m *Message) WriteTransactionID() {
	m.grow(messageHeaderSize)
	copy(m.Raw[8:messageHeaderSize], m.TransactionID[:])
}

// WriteHeader writes the full 20-byte header for the current Type,
// Length and TransactionID.
func (m *Message) WriteHeader() {
	m.grow(messageHeaderSize)
	_ = m.Raw[:messageHeaderSize]
	bin.PutUint16(m.Raw[0:2], m.Type.Value())
	bin.PutUint16(m.Raw[2:4], uint16(m.Length))
	bin.PutUint32(m.Raw[4:8], magicCookie)
	copy(m.Raw[8:messageHeaderSize], m.TransactionID[:])
}

// Encode finalizes Raw for sending. Attributes are already serialized
// incrementally by Add, so only the header needs (re)writing.
func (m *Message) Encode() {
	m.WriteHeader()
}

// SetType sets m.Type and writes it to Raw.
func (m *Message) SetType(t MessageType) {
	m.Type = t
	m.WriteType()
}

// NewTransactionID draws a fresh random transaction id and writes it to
// Raw.
func (m *Message) NewTransactionID() error {
	if _, err := io.ReadFull(rand.Reader, m.TransactionID[:]); err != nil {
		return err
	}
	m.WriteTransactionID()
	return nil
}

// Build resets the message and applies setters in order.
func (m *Message) Build(setters ...Setter) error {
	m.Reset()
	m.WriteHeader()
	for _, s := range setters {
		if err := s.AddTo(m); err != nil {
			return err
		}
	}
	return nil
}

// Build constructs a new message from setters applied in order.
func Build(setters ...Setter) (*Message, error) {
	m := New()
	return m, m.Build(setters...)
}

// Parse applies getters in order, stopping at the first failure.
func (m *Message) Parse(getters ...Getter) error {
	for _, g := range getters {
		if err := g.GetFrom(m); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses data as a STUN message.
func Decode(data []byte) (*Message, error) {
	m := &Message{Raw: append([]byte(nil), data...)}
	if err := m.Decode(); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode parses m.Raw, validating the header, every attribute's framing
// and, if a FINGERPRINT attribute is present, its CRC. Unknown
// comprehension-required attributes fail the decode; unknown optional
// ones are preserved opaquely in Attributes. A MESSAGE-INTEGRITY
// attribute is recorded for a later Check but not verified here, since
// the key is not known at decode time.
func (m *Message) Decode() error {
	buf := m.Raw
	if len(buf) < messageHeaderSize {
		return ErrTruncated
	}
	t := bin.Uint16(buf[0:2])
	if t&0xC000 != 0 {
		return ErrNoSTUNPrefix
	}
	if bin.Uint32(buf[4:8]) != magicCookie {
		return ErrInvalidMagicCookie
	}
	size := int(bin.Uint16(buf[2:4]))
	if messageHeaderSize+size > len(buf) {
		return ErrTruncated
	}
	m.Type.ReadValue(t)
	m.Length = uint32(size)
	copy(m.TransactionID[:], buf[8:messageHeaderSize])
	m.Attributes = m.Attributes[:0]
	m.integrityStart = 0

	var (
		offset  = messageHeaderSize
		end     = messageHeaderSize + size
		fpStart = 0
		fpValue []byte
	)
	for offset < end {
		if fpStart > 0 {
			return ErrFingerprintNotLast
		}
		if offset+attributeHeaderSize > end {
			return ErrTruncated
		}
		at := AttrType(bin.Uint16(buf[offset : offset+2]))
		al := int(bin.Uint16(buf[offset+2 : offset+4]))
		vStart := offset + attributeHeaderSize
		vEnd := vStart + al
		padEnd := vStart + nearestPaddedValueLength(al)
		if padEnd > end {
			return ErrBadLength
		}
		for _, b := range buf[vEnd:padEnd] {
			if b != 0 {
				return ErrBadPadding
			}
		}
		v := buf[vStart:vEnd]
		if _, known := attrNames[at]; !known && at.Required() {
			return &UnknownAttrError{Type: at}
		}
		switch at {
		case AttrMessageIntegrity:
			m.integrityStart = offset
		case AttrFingerprint:
			fpStart, fpValue = offset, v
		}
		m.Attributes = append(m.Attributes, RawAttribute{
			Type:   at,
			Length: uint16(al),
			Value:  v,
		})
		offset = padEnd
	}
	if fpStart > 0 {
		if len(fpValue) != fingerprintSize {
			return ErrBadLength
		}
		if FingerprintValue(buf[:fpStart]) != bin.Uint32(fpValue) {
			return ErrFingerprintMismatch
		}
	}
	return nil
}

type transactionIDSetter struct{}

func (transactionIDSetter) AddTo(m *Message) error {
	return m.NewTransactionID()
}

// TransactionID is a Setter drawing a fresh random transaction id.
var TransactionID Setter = transactionIDSetter{}

type transactionIDValueSetter [TransactionIDSize]byte

// NewTransactionIDSetter returns a Setter writing the given transaction
// id, for callers that generate ids themselves.
func NewTransactionIDSetter(value [TransactionIDSize]byte) Setter {
	return transactionIDValueSetter(value)
}

func (t transactionIDValueSetter) AddTo(m *Message) error {
	m.TransactionID = t
	m.WriteTransactionID()
	return nil
}
