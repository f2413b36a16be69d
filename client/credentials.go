package client

import (
	"github.com/gortc/turnc/stun"
)

// credState tags which variant of Credentials is in play. Kept as an
// immutable value type replaced wholesale on challenge — evolution never
// mutates a Credentials value in place.
type credState int

const (
	credNone credState = iota
	credLongTerm
	credFinal
)

// Credentials is a {None | LongTerm | Final} variant. Only Final can sign
// a message; a 401 carrying realm and nonce promotes LongTerm to Final.
type Credentials struct {
	state    credState
	username string
	secret   string
	realm    string
	nonce    string
}

// newCredentials builds the initial credential state: None if either
// username or secret is blank, LongTerm otherwise.
func newCredentials(username, secret string) Credentials {
	if username == "" || secret == "" {
		return Credentials{state: credNone}
	}
	return Credentials{state: credLongTerm, username: username, secret: secret}
}

// canSign reports whether these credentials can produce a
// MESSAGE-INTEGRITY attribute.
func (c Credentials) canSign() bool { return c.state == credFinal }

// promote returns a new Final credential set challenged with realm/nonce.
// Valid only when c is LongTerm (including re-promoting an existing Final
// on re-challenge, e.g. a stale-nonce 438); a None credential has nothing
// to promote and is returned unchanged.
func (c Credentials) promote(realm, nonce string) Credentials {
	if c.state == credNone {
		return c
	}
	return Credentials{
		state:    credFinal,
		username: c.username,
		secret:   c.secret,
		realm:    realm,
		nonce:    nonce,
	}
}

// integrity returns the MessageIntegrity key for signing, valid only when
// canSign is true.
func (c Credentials) integrity() stun.MessageIntegrity {
	return stun.NewLongTermIntegrity(c.username, c.realm, c.secret)
}

// setters returns, in wire order, the USERNAME/REALM/NONCE/MESSAGE-INTEGRITY
// setters a request must carry to be accepted, or nil if credentials
// cannot yet sign. Building the whole request through stun.Build in one
// pass (rather than mutating an already-built message) means signing is
// just another slice of setters appended before the call.
func (c Credentials) setters() []stun.Setter {
	if !c.canSign() {
		return nil
	}
	return []stun.Setter{
		stun.NewUsername(c.username),
		stun.NewRealm(c.realm),
		stun.NewNonce(c.nonce),
		c.integrity(),
	}
}
