package stun

import "errors"

const (
	errorCodeHeaderSize = 4
	errorCodeModulo     = 100
	errorCodeReasonMaxB = 763
)

// ErrBadErrorCode means the ERROR-CODE attribute violates its encoding:
// class outside 3..6 or number outside 0..99.
var ErrBadErrorCode = errors.New("invalid error code")

// ErrorCodeAttribute implements the ERROR-CODE attribute: 21 reserved
// bits, a 3-bit class, an 8-bit number and a UTF-8 reason phrase.
//
// RFC 5389 Section 15.6
type ErrorCodeAttribute struct {
	Code   int
	Reason string
}

// Error codes from RFC 5389 Section 15.6.
const (
	CodeTryAlternate     = 300
	CodeBadRequest       = 400
	CodeUnauthorized     = 401
	CodeUnknownAttribute = 420
	CodeStaleNonce       = 438
	CodeRoleConflict     = 487
	CodeServerError      = 500
)

// Error codes from RFC 5766 Section 15.
const (
	CodeForbidden             = 403
	CodeAllocMismatch         = 437
	CodeWrongCredentials      = 441
	CodeUnsupportedTransProto = 442
	CodeAllocQuotaReached     = 486
	CodeInsufficientCapacity  = 508
)

// AddTo adds ERROR-CODE to the message.
func (a ErrorCodeAttribute) AddTo(m *Message) error {
	class := a.Code / errorCodeModulo
	number := a.Code % errorCodeModulo
	if class < 3 || class > 6 {
		return ErrBadErrorCode
	}
	if len(a.Reason) > errorCodeReasonMaxB {
		return &AttrOverflowErr{Type: AttrErrorCode, Max: errorCodeReasonMaxB, Got: len(a.Reason)}
	}
	value := make([]byte, errorCodeHeaderSize+len(a.Reason))
	value[2] = byte(class)
	value[3] = byte(number)
	copy(value[errorCodeHeaderSize:], a.Reason)
	m.Add(AttrErrorCode, value)
	return nil
}

// GetFrom decodes ERROR-CODE from the message.
func (a *ErrorCodeAttribute) GetFrom(m *Message) error {
	v, err := m.Get(AttrErrorCode)
	if err != nil {
		return err
	}
	if len(v) < errorCodeHeaderSize {
		return ErrBadLength
	}
	class := int(v[2] & 0x07)
	number := int(v[3])
	if class < 3 || class > 6 || number > 99 {
		return ErrBadErrorCode
	}
	a.Code = class*errorCodeModulo + number
	a.Reason = string(v[errorCodeHeaderSize:])
	return nil
}
