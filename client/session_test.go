package client

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gortc/turnc/internal/testutil"
	"github.com/gortc/turnc/stun"
	"github.com/gortc/turnc/turn"
)

// fakeServer is a minimal in-process STUN/TURN server for exercising
// Session against real UDP sockets: it decodes each request and calls
// handle to build and send a response, without any protocol logic of its
// own.
type fakeServer struct {
	conn   *net.UDPConn
	t      *testing.T
	handle func(m *stun.Message) *stun.Message
}

func newFakeServer(t *testing.T, handle func(m *stun.Message) *stun.Message) *fakeServer {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{conn: conn, t: t, handle: handle}
	go s.serve()
	t.Cleanup(func() { conn.Close() })
	return s
}

func (s *fakeServer) addr() *net.UDPAddr { return s.conn.LocalAddr().(*net.UDPAddr) }

func (s *fakeServer) serve() {
	buf := make([]byte, 1500)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		m, err := stun.Decode(buf[:n])
		if err != nil {
			continue
		}
		if resp := s.handle(m); resp != nil {
			resp.Encode()
			s.conn.WriteToUDP(resp.Raw, addr)
		}
	}
}

func newTestSession(t *testing.T, server *fakeServer, cfg Config) *Session {
	t.Helper()
	cfg.Server = server.addr()
	if cfg.Timeout == 0 {
		cfg.Timeout = 500 * time.Millisecond
	}
	s, err := NewSession(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Binding round trip: the reflexive address comes back XOR-decoded.
func TestSession_Bind(t *testing.T) {
	want := Addr{IP: net.ParseIP("192.0.2.1").To4(), Port: 32853}
	server := newFakeServer(t, func(m *stun.Message) *stun.Message {
		resp := &stun.Message{Type: turn.BindingRequest, TransactionID: m.TransactionID}
		resp.Type.Class = stun.ClassSuccessResponse
		xma := stun.XORMappedAddress{IP: want.IP, Port: want.Port}
		xma.AddTo(resp)
		return resp
	})
	s := newTestSession(t, server, Config{})
	got, err := s.Bind()
	if err != nil {
		t.Fatal(err)
	}
	if got.Port != want.Port || !got.IP.Equal(want.IP) {
		t.Fatalf("Bind() = %+v, want %+v", got, want)
	}
}

// A 401 challenge promotes credentials; the retried allocate signs and succeeds.
func TestSession_AllocateChallenge(t *testing.T) {
	const realm = "example.org"
	const nonce = "N1"
	server := newFakeServer(t, func(m *stun.Message) *stun.Message {
		resp := &stun.Message{TransactionID: m.TransactionID}
		if m.Type.Method != stun.MethodAllocate {
			return nil
		}
		var u stun.Username
		if u.GetFrom(m) != nil {
			resp.Type = stun.NewType(stun.MethodAllocate, stun.ClassErrorResponse)
			stun.ErrorCodeAttribute{Code: stun.CodeUnauthorized, Reason: "Unauthorized"}.AddTo(resp)
			stun.NewRealm(realm).AddTo(resp)
			stun.NewNonce(nonce).AddTo(resp)
			return resp
		}
		key := stun.NewLongTermIntegrity(string(u), realm, "s3cr3t")
		if key.Check(m) != nil {
			resp.Type = stun.NewType(stun.MethodAllocate, stun.ClassErrorResponse)
			stun.ErrorCodeAttribute{Code: stun.CodeUnauthorized, Reason: "Unauthorized"}.AddTo(resp)
			return resp
		}
		resp.Type = stun.NewType(stun.MethodAllocate, stun.ClassSuccessResponse)
		turn.RelayedAddress{IP: net.ParseIP("198.51.100.7").To4(), Port: 49160}.AddTo(resp)
		turn.Lifetime{Duration: 30 * time.Second}.AddTo(resp)
		return resp
	})
	s := newTestSession(t, server, Config{Username: "alice", Secret: "s3cr3t"})

	_, err := s.Allocate()
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindUnauthorized {
		t.Fatalf("first Allocate() err = %v, want KindUnauthorized", err)
	}

	addr, err := s.Allocate()
	if err != nil {
		t.Fatalf("retried Allocate() = %v", err)
	}
	want := Addr{IP: net.ParseIP("198.51.100.7").To4(), Port: 49160}
	if addr.Port != want.Port || !addr.IP.Equal(want.IP) {
		t.Fatalf("Allocate() = %+v, want %+v", addr, want)
	}
}

// When the allocation lifetime elapses, the relay reverts to empty.
func TestSession_AllocationExpiry(t *testing.T) {
	server := newFakeServer(t, func(m *stun.Message) *stun.Message {
		switch m.Type.Method {
		case stun.MethodAllocate:
			resp := &stun.Message{Type: stun.NewType(stun.MethodAllocate, stun.ClassSuccessResponse), TransactionID: m.TransactionID}
			turn.RelayedAddress{IP: net.ParseIP("198.51.100.7").To4(), Port: 49160}.AddTo(resp)
			turn.Lifetime{Duration: time.Second}.AddTo(resp)
			return resp
		default:
			return nil
		}
	})
	s := newTestSession(t, server, Config{})
	if _, err := s.Allocate(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1500 * time.Millisecond)
	err := s.Send(Addr{IP: net.ParseIP("198.51.100.9"), Port: 9000}, []byte("hi"))
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindNoAllocation {
		t.Fatalf("Send() after expiry err = %v, want KindNoAllocation", err)
	}
}

// Permissions flip to acked on the matching success response; send is
// gated on an acked permission for the peer IP.
func TestSession_PermissionAcking(t *testing.T) {
	allowed := net.ParseIP("203.0.113.4").To4()
	denied := net.ParseIP("203.0.113.9").To4()
	server := newFakeServer(t, func(m *stun.Message) *stun.Message {
		switch m.Type.Method {
		case stun.MethodAllocate:
			resp := &stun.Message{Type: stun.NewType(stun.MethodAllocate, stun.ClassSuccessResponse), TransactionID: m.TransactionID}
			turn.RelayedAddress{IP: net.ParseIP("198.51.100.7").To4(), Port: 49160}.AddTo(resp)
			turn.Lifetime{Duration: 30 * time.Second}.AddTo(resp)
			return resp
		case stun.MethodCreatePermission:
			return &stun.Message{Type: stun.NewType(stun.MethodCreatePermission, stun.ClassSuccessResponse), TransactionID: m.TransactionID}
		default:
			return nil
		}
	})
	s := newTestSession(t, server, Config{})
	if _, err := s.Allocate(); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePermission([]net.IP{allowed, net.ParseIP("203.0.113.5").To4()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(Addr{IP: allowed, Port: 9000}, []byte("hi")); err != nil {
		t.Fatalf("Send() to permitted peer = %v", err)
	}
	err := s.Send(Addr{IP: denied, Port: 9000}, []byte("hi"))
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindNoPermission {
		t.Fatalf("Send() to non-permitted peer err = %v, want KindNoPermission", err)
	}
}

// Outstanding transactions are correlated by id, so responses may resolve
// out of submission order.
func TestSession_ConcurrentTransactions(t *testing.T) {
	server := newFakeServer(t, func(m *stun.Message) *stun.Message {
		switch m.Type.Method {
		case stun.MethodAllocate:
			resp := &stun.Message{Type: stun.NewType(stun.MethodAllocate, stun.ClassSuccessResponse), TransactionID: m.TransactionID}
			turn.RelayedAddress{IP: net.ParseIP("198.51.100.7").To4(), Port: 49160}.AddTo(resp)
			turn.Lifetime{Duration: 30 * time.Second}.AddTo(resp)
			return resp
		case stun.MethodCreatePermission:
			// Each request is answered as it arrives; with both operations
			// in flight at once, either response may come back first.
			return &stun.Message{Type: stun.NewType(stun.MethodCreatePermission, stun.ClassSuccessResponse), TransactionID: m.TransactionID}
		case stun.MethodRefresh:
			resp := &stun.Message{Type: stun.NewType(stun.MethodRefresh, stun.ClassSuccessResponse), TransactionID: m.TransactionID}
			turn.Lifetime{Duration: 60 * time.Second}.AddTo(resp)
			return resp
		default:
			return nil
		}
	})
	s := newTestSession(t, server, Config{})
	if _, err := s.Allocate(); err != nil {
		t.Fatal(err)
	}

	type result struct {
		name string
		err  error
	}
	results := make(chan result, 2)
	go func() {
		err := s.Refresh()
		results <- result{"refresh", err}
	}()
	go func() {
		err := s.CreatePermission([]net.IP{net.ParseIP("203.0.113.4").To4()})
		results <- result{"permission", err}
	}()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("%s: %v", r.name, r.err)
		}
		seen[r.name] = true
	}
	if !seen["refresh"] || !seen["permission"] {
		t.Fatalf("expected both operations to complete, got %v", seen)
	}
	if n := s.txTable.outstanding(); n != 0 {
		t.Fatalf("transaction table not empty after both resolved: %d", n)
	}
}

// Data indications fan out to every subscriber of the peer IP, and a dead
// subscriber is unregistered everywhere.
type testSubscriber struct {
	recv chan struct {
		peer Addr
		data []byte
	}
	dead chan struct{}
}

func newTestSubscriber() *testSubscriber {
	return &testSubscriber{
		recv: make(chan struct {
			peer Addr
			data []byte
		}, 4),
		dead: make(chan struct{}),
	}
}

func (s *testSubscriber) Receive(peer Addr, data []byte) {
	s.recv <- struct {
		peer Addr
		data []byte
	}{peer, data}
}

func (s *testSubscriber) Dead() <-chan struct{} { return s.dead }

func TestSession_SubscriberDispatch(t *testing.T) {
	peer := net.ParseIP("203.0.113.4").To4()
	server := newFakeServer(t, func(m *stun.Message) *stun.Message { return nil })
	s := newTestSession(t, server, Config{})

	s1 := newTestSubscriber()
	s2 := newTestSubscriber()
	s.Subscribe(peer, s1)
	s.Subscribe(peer, s2)

	send := func() {
		m := &stun.Message{Type: turn.DataIndication, TransactionID: stun.NewTransactionID()}
		turn.PeerAddress{IP: peer, Port: 1000}.AddTo(m)
		turn.Data("hi").AddTo(m)
		m.Encode()
		server.conn.WriteToUDP(m.Raw, s.conn.LocalAddr().(*net.UDPAddr))
	}
	send()
	for _, sub := range []*testSubscriber{s1, s2} {
		select {
		case got := <-sub.recv:
			if string(got.data) != "hi" || got.peer.Port != 1000 {
				t.Fatalf("got %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	close(s1.dead)
	time.Sleep(50 * time.Millisecond) // let the liveness watcher unregister s1

	send()
	select {
	case <-s1.recv:
		t.Fatal("dead subscriber should not receive further deliveries")
	case got := <-s2.recv:
		if string(got.data) != "hi" {
			t.Fatalf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second delivery")
	}
}

// A successful round trip must never log at error level.
func TestSession_Bind_NoErrorLogs(t *testing.T) {
	want := Addr{IP: net.ParseIP("192.0.2.1").To4(), Port: 32853}
	server := newFakeServer(t, func(m *stun.Message) *stun.Message {
		resp := &stun.Message{Type: turn.BindingRequest, TransactionID: m.TransactionID}
		resp.Type.Class = stun.ClassSuccessResponse
		stun.XORMappedAddress{IP: want.IP, Port: want.Port}.AddTo(resp)
		return resp
	})
	core, logs := observer.New(zapcore.DebugLevel)
	s := newTestSession(t, server, Config{})
	s.log = zap.New(core)
	if _, err := s.Bind(); err != nil {
		t.Fatal(err)
	}
	testutil.EnsureNoErrors(t, logs)
}
