package turn

import (
	"time"

	"github.com/gortc/turnc/stun"
)

// Lifetime represents LIFETIME attribute.
//
// The LIFETIME attribute represents the duration for which the server
// will maintain an allocation in the absence of a refresh. The value
// portion of this attribute is 4-bytes long and consists of a 32-bit
// unsigned integral value representing the number of seconds remaining
// until expiration.
//
// RFC 5766 Section 14.2
type Lifetime struct {
	time.Duration
}

// 4 bytes, 32 bits of unsigned seconds.
const lifetimeSize = 4

// AddTo adds LIFETIME to message.
func (l Lifetime) AddTo(m *stun.Message) error {
	v := make([]byte, lifetimeSize)
	bin.PutUint32(v, uint32(l.Seconds()))
	m.Add(stun.AttrLifetime, v)
	return nil
}

// GetFrom decodes LIFETIME from message.
func (l *Lifetime) GetFrom(m *stun.Message) error {
	v, err := m.Get(stun.AttrLifetime)
	if err != nil {
		return err
	}
	if len(v) != lifetimeSize {
		return &BadAttrLength{
			Attr:     stun.AttrLifetime,
			Got:      len(v),
			Expected: lifetimeSize,
		}
	}
	l.Duration = time.Duration(bin.Uint32(v)) * time.Second
	return nil
}
