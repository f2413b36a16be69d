package stun

import (
	"errors"
	"strings"
	"testing"
)

func TestTextAttributes_RoundTrip(t *testing.T) {
	m, err := Build(
		NewTransactionIDSetter(testID()),
		NewType(MethodAllocate, ClassRequest),
		NewUsername("alice"),
		NewRealm("example.org"),
		NewNonce("N1"),
		NewSoftware("test agent"),
	)
	if err != nil {
		t.Fatal(err)
	}
	var (
		u Username
		r Realm
		n Nonce
		s Software
	)
	if err := m.Parse(&u, &r, &n, &s); err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		got, want string
	}{
		{u.String(), "alice"},
		{r.String(), "example.org"},
		{n.String(), "N1"},
		{s.String(), "test agent"},
	} {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}

func TestTextAttributes_Overflow(t *testing.T) {
	for _, tc := range []struct {
		name   string
		setter Setter
	}{
		{"username over 513 bytes", NewUsername(strings.Repeat("u", 514))},
		{"realm over 128 chars", NewRealm(strings.Repeat("r", 129))},
		{"nonce over 763 bytes", NewNonce(strings.Repeat("n", 764))},
		{"software over 128 chars", NewSoftware(strings.Repeat("s", 129))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := New()
			var overflow *AttrOverflowErr
			if err := tc.setter.AddTo(m); !errors.As(err, &overflow) {
				t.Fatalf("AddTo() = %v, want AttrOverflowErr", err)
			}
		})
	}
}

func TestRealm_OverflowOnGet(t *testing.T) {
	m := New()
	m.Add(AttrRealm, []byte(strings.Repeat("r", 132)))
	var r Realm
	var overflow *AttrOverflowErr
	if err := r.GetFrom(m); !errors.As(err, &overflow) {
		t.Fatalf("GetFrom() = %v, want AttrOverflowErr", err)
	}
}
