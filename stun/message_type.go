package stun

import "fmt"

// MessageClass is the 2-bit message class.
type MessageClass byte

// Possible message classes.
const (
	ClassRequest         MessageClass = 0x00
	ClassIndication      MessageClass = 0x01
	ClassSuccessResponse MessageClass = 0x02
	ClassErrorResponse   MessageClass = 0x03
)

func (c MessageClass) String() string {
	switch c {
	case ClassRequest:
		return "request"
	case ClassIndication:
		return "indication"
	case ClassSuccessResponse:
		return "success response"
	case ClassErrorResponse:
		return "error response"
	default:
		panic("unknown message class")
	}
}

// Method is the 12-bit STUN method.
type Method uint16

// Methods from RFC 5389 and RFC 5766.
const (
	MethodBinding          Method = 0x001
	MethodAllocate         Method = 0x003
	MethodRefresh          Method = 0x004
	MethodSend             Method = 0x006
	MethodData             Method = 0x007
	MethodCreatePermission Method = 0x008
	MethodChannelBind      Method = 0x009
)

var methodNames = map[Method]string{
	MethodBinding:          "binding",
	MethodAllocate:         "allocate",
	MethodRefresh:          "refresh",
	MethodSend:             "send",
	MethodData:             "data",
	MethodCreatePermission: "create permission",
	MethodChannelBind:      "channel bind",
}

func (m Method) String() string {
	s, ok := methodNames[m]
	if !ok {
		return fmt.Sprintf("0x%x", uint16(m))
	}
	return s
}

// MessageType is the combination of method and class packed into the
// 14-bit type field of the header.
type MessageType struct {
	Method Method
	Class  MessageClass
}

// NewType returns the MessageType for the given method and class.
func NewType(method Method, class MessageClass) MessageType {
	return MessageType{Method: method, Class: class}
}

// The 14-bit type field interleaves the class bits C1 and C0 into the
// method at bit positions 8 and 4 (RFC 5389 Section 6).
const (
	methodABits = 0xf   // M0..M3
	methodBBits = 0x70  // M4..M6
	methodDBits = 0xf80 // M7..M11

	methodBShift = 1
	methodDShift = 2

	firstBit  = 0x1
	secondBit = 0x2

	c0Bit = firstBit
	c1Bit = secondBit

	classC0Shift = 4
	classC1Shift = 7
)

// Value packs the type into its wire representation.
func (t MessageType) Value() uint16 {
	m := uint16(t.Method)
	a := m & methodABits
	b := m & methodBBits
	d := m & methodDBits
	m = a + (b << methodBShift) + (d << methodDShift)
	c := uint16(t.Class)
	c0 := (c & c0Bit) << classC0Shift
	c1 := (c & c1Bit) << classC1Shift
	return m + c0 + c1
}

// ReadValue unpacks the wire representation into t.
func (t *MessageType) ReadValue(v uint16) {
	c0 := (v >> classC0Shift) & c0Bit
	c1 := (v >> classC1Shift) & c1Bit
	t.Class = MessageClass(c0 + c1)
	a := v & methodABits
	b := (v >> methodBShift) & methodBBits
	d := (v >> methodDShift) & methodDBits
	t.Method = Method(a + b + d)
}

// AddTo makes MessageType usable as a Setter.
func (t MessageType) AddTo(m *Message) error {
	m.SetType(t)
	return nil
}

func (t MessageType) String() string {
	return fmt.Sprintf("%s %s", t.Method, t.Class)
}
