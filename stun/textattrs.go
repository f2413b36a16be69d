package stun

import "unicode/utf8"

// Size limits from RFC 5389 Section 15: REALM and SOFTWARE are bounded
// in characters, USERNAME and NONCE in bytes.
const (
	maxUsernameB     = 513
	maxNonceB        = 763
	maxRealmChars    = 128
	maxSoftwareChars = 128
)

func addTextAttr(m *Message, t AttrType, v []byte, max int) error {
	if len(v) > max {
		return &AttrOverflowErr{Type: t, Max: max, Got: len(v)}
	}
	m.Add(t, v)
	return nil
}

func addTextAttrChars(m *Message, t AttrType, v []byte, maxChars int) error {
	if n := utf8.RuneCount(v); n > maxChars {
		return &AttrOverflowErr{Type: t, Max: maxChars, Got: n}
	}
	m.Add(t, v)
	return nil
}

func getTextAttr(m *Message, t AttrType, max int) ([]byte, error) {
	v, err := m.Get(t)
	if err != nil {
		return nil, err
	}
	if len(v) > max {
		return nil, &AttrOverflowErr{Type: t, Max: max, Got: len(v)}
	}
	return v, nil
}

func getTextAttrChars(m *Message, t AttrType, maxChars int) ([]byte, error) {
	v, err := m.Get(t)
	if err != nil {
		return nil, err
	}
	if n := utf8.RuneCount(v); n > maxChars {
		return nil, &AttrOverflowErr{Type: t, Max: maxChars, Got: n}
	}
	return v, nil
}

// Username represents the USERNAME attribute.
type Username []byte

// NewUsername returns a Username for the given string.
func NewUsername(username string) Username {
	return Username(username)
}

func (u Username) String() string { return string(u) }

// AddTo adds USERNAME to the message.
func (u Username) AddTo(m *Message) error {
	return addTextAttr(m, AttrUsername, u, maxUsernameB)
}

// GetFrom decodes USERNAME from the message.
func (u *Username) GetFrom(m *Message) error {
	v, err := getTextAttr(m, AttrUsername, maxUsernameB)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Realm represents the REALM attribute.
type Realm []byte

// NewRealm returns a Realm for the given string.
func NewRealm(realm string) Realm {
	return Realm(realm)
}

func (r Realm) String() string { return string(r) }

// AddTo adds REALM to the message.
func (r Realm) AddTo(m *Message) error {
	return addTextAttrChars(m, AttrRealm, r, maxRealmChars)
}

// GetFrom decodes REALM from the message.
func (r *Realm) GetFrom(m *Message) error {
	v, err := getTextAttrChars(m, AttrRealm, maxRealmChars)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Nonce represents the NONCE attribute.
type Nonce []byte

// NewNonce returns a Nonce for the given string.
func NewNonce(nonce string) Nonce {
	return Nonce(nonce)
}

func (n Nonce) String() string { return string(n) }

// AddTo adds NONCE to the message.
func (n Nonce) AddTo(m *Message) error {
	return addTextAttr(m, AttrNonce, n, maxNonceB)
}

// GetFrom decodes NONCE from the message.
func (n *Nonce) GetFrom(m *Message) error {
	v, err := getTextAttr(m, AttrNonce, maxNonceB)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// Software represents the SOFTWARE attribute, a free-form description
// of the sending agent.
type Software []byte

// NewSoftware returns a Software for the given string.
func NewSoftware(software string) Software {
	return Software(software)
}

func (s Software) String() string { return string(s) }

// AddTo adds SOFTWARE to the message.
func (s Software) AddTo(m *Message) error {
	return addTextAttrChars(m, AttrSoftware, s, maxSoftwareChars)
}

// GetFrom decodes SOFTWARE from the message.
func (s *Software) GetFrom(m *Message) error {
	v, err := getTextAttrChars(m, AttrSoftware, maxSoftwareChars)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
