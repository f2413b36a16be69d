// Package client implements the STUN/TURN client session: a single-
// threaded event loop over one UDP socket and one server, driving the
// wire codec, credential store, transaction table, allocation/permission
// state, and subscription dispatcher into the public operation surface.
package client

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gortc/turnc/stun"
	"github.com/gortc/turnc/turn"
)

const datagramBufferSize = 1500

// ClientSoftware is the value sent in the SOFTWARE attribute on every
// outgoing request/indication, the way gortcd tags its responses.
const ClientSoftware = "gortc/turnc"

// Session is a STUN/TURN client talking to a single server over UDP. All
// internal state is owned by one event-loop goroutine; public methods
// submit work to it and block only the calling goroutine, never the loop.
type Session struct {
	cfg    Config
	conn   *net.UDPConn
	server *net.UDPAddr
	log    *zap.Logger

	creds      Credentials
	txTable    *transactionTable
	relay      *relay
	dispatcher *dispatcher
	metrics    *metrics

	tasks   chan func()
	closing chan struct{}
}

// NewSession opens a UDP socket on a system-allocated port, in active
// mode, and starts the event loop and the socket reader.
func NewSession(cfg Config, log *zap.Logger) (*Session, error) {
	if cfg.Server == nil {
		return nil, errors.New("client: Config.Server is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, errors.Wrap(err, "open socket")
	}
	s := &Session{
		cfg:     cfg,
		conn:    conn,
		server:  cfg.Server,
		log:     log.Named("client"),
		creds:   newCredentials(cfg.Username, cfg.Secret),
		txTable: newTransactionTable(),
		tasks:   make(chan func()),
		closing: make(chan struct{}),
		metrics: newMetrics(nil),
	}
	s.relay = newRelay(s.submit, s.onAllocationExpired, s.onPermissionExpired)
	s.dispatcher = newDispatcher(s.submit)
	go s.loop()
	go s.readLoop()
	return s, nil
}

// Metrics returns the session's prometheus.Collector. The caller is
// responsible for registering it; Session never registers itself.
func (s *Session) Metrics() prometheus.Collector { return s.metrics }

// submit marshals f onto the event loop's single queue. It blocks the
// calling goroutine (not the loop) until the loop accepts it, or until
// the session is closing.
func (s *Session) submit(f func()) {
	select {
	case s.tasks <- f:
	case <-s.closing:
	}
}

// loop is the single-threaded event loop: the only goroutine that ever
// touches creds, txTable, relay, or dispatcher state.
func (s *Session) loop() {
	for {
		select {
		case f := <-s.tasks:
			f()
		case <-s.closing:
			return
		}
	}
}

// readLoop owns the socket's read side, decoding nothing itself: it just
// filters by source address and hands raw datagrams to the event loop.
// Only datagrams from the configured server endpoint are accepted; others
// are dropped. A read error is fatal and terminates the session.
func (s *Session) readLoop() {
	buf := make([]byte, datagramBufferSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.closing:
				return
			default:
			}
			s.log.Error("socket read failed, closing session", zap.Error(err))
			s.Close()
			return
		}
		if !addr.IP.Equal(s.server.IP) || addr.Port != s.server.Port {
			continue
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])
		s.submit(func() { s.handleDatagram(raw) })
	}
}

// handleDatagram decodes one inbound datagram and either routes it as a
// data indication or correlates it against an outstanding transaction.
// Decode failures and unrecognized messages are dropped silently.
func (s *Session) handleDatagram(raw []byte) {
	m := &stun.Message{Raw: raw}
	if err := m.Decode(); err != nil {
		if ce := s.log.Check(zapcore.DebugLevel, "dropping undecodable datagram"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return
	}
	if m.Type.Method == stun.MethodData && m.Type.Class == stun.ClassIndication {
		s.handleDataIndication(m)
		return
	}
	if m.Type.Class != stun.ClassSuccessResponse && m.Type.Class != stun.ClassErrorResponse {
		return
	}
	s.handleResponse(m)
}

func (s *Session) handleDataIndication(m *stun.Message) {
	var peer turn.PeerAddress
	var data turn.Data
	if err := peer.GetFrom(m); err != nil {
		return
	}
	if err := data.GetFrom(m); err != nil {
		return
	}
	s.dispatcher.deliver(Addr{IP: peer.IP, Port: peer.Port}, []byte(data))
}

// handleResponse applies a response's effect on credentials/relay state
// (if any) before waking the caller blocked on the matching transaction.
// Unrecognized transaction ids are dropped.
func (s *Session) handleResponse(m *stun.Message) {
	id := txID(m.TransactionID)
	tx, ok := s.txTable.peek(id)
	if !ok {
		return
	}
	var r reply
	if m.Type.Class == stun.ClassErrorResponse {
		r = s.applyError(m)
	} else {
		r = s.applySuccess(tx.request.Type.Method, m)
	}
	s.txTable.resolve(id, r)
	s.metrics.sample(s)
}

func (s *Session) applyError(m *stun.Message) reply {
	var ec stun.ErrorCodeAttribute
	if err := ec.GetFrom(m); err != nil {
		return reply{err: err}
	}
	switch ec.Code {
	case stun.CodeUnauthorized, stun.CodeStaleNonce:
		var realm stun.Realm
		var nonce stun.Nonce
		_ = realm.GetFrom(m)
		_ = nonce.GetFrom(m)
		s.creds = s.creds.promote(string(realm), string(nonce))
		kind := KindUnauthorized
		if ec.Code == stun.CodeStaleNonce {
			kind = KindStaleNonce
		}
		return reply{err: &Error{Kind: kind, Code: ec.Code, Reason: ec.Reason}}
	default:
		return reply{err: errServer(ec.Code, ec.Reason)}
	}
}

func (s *Session) applySuccess(method stun.Method, m *stun.Message) reply {
	switch method {
	case stun.MethodAllocate:
		var ra turn.RelayedAddress
		var lt turn.Lifetime
		if err := m.Parse(&ra, &lt); err != nil {
			return reply{err: err}
		}
		s.relay.allocate(turnAddr{IP: ra.IP, Port: ra.Port}, lt.Duration)
	case stun.MethodRefresh:
		var lt turn.Lifetime
		if err := lt.GetFrom(m); err != nil {
			return reply{err: err}
		}
		s.relay.refresh(lt.Duration)
	case stun.MethodCreatePermission:
		s.relay.ackPermissions(txID(m.TransactionID))
	}
	return reply{msg: m}
}

func (s *Session) onAllocationExpired() {
	s.log.Debug("allocation lifetime expired")
	s.metrics.sample(s)
}

func (s *Session) onPermissionExpired(key string) {
	s.log.Debug("permission expired", zap.String("peer", key))
	s.metrics.sample(s)
}

// evalOnLoop runs f on the event loop and returns its result, without
// a network round trip.
func (s *Session) evalOnLoop(f func() (interface{}, error)) (interface{}, error) {
	type result struct {
		v   interface{}
		err error
	}
	ch := make(chan result, 1)
	s.submit(func() {
		v, err := f()
		ch <- result{v, err}
	})
	select {
	case r := <-ch:
		return r.v, r.err
	case <-s.closing:
		return nil, ErrClosed
	}
}

// buildRequest assembles a request in one pass through stun.Build, the
// way gortc/turn's own client does it: a transaction id drawn by the
// table (which redraws on collision with one already in flight), the
// message type, SOFTWARE, the caller's attribute setters, and finally
// any credential setters this session's current state can produce.
func (s *Session) buildRequest(typ stun.MessageType, setters []stun.Setter) (*stun.Message, error) {
	id := s.txTable.nextID()
	all := make([]stun.Setter, 0, len(setters)+7)
	all = append(all,
		stun.NewTransactionIDSetter([stun.TransactionIDSize]byte(id)),
		typ,
		stun.NewSoftware(ClientSoftware),
	)
	all = append(all, setters...)
	all = append(all, s.creds.setters()...)
	return stun.Build(all...)
}

// roundTrip builds and sends a request, waits for the matching response
// or the session's configured timeout, and returns the decoded response
// message. guard, if non-nil, runs on the loop with the freshly built
// message's transaction id before anything is sent; returning an error
// aborts the request with no network I/O.
func (s *Session) roundTrip(typ stun.MessageType, setters []stun.Setter, guard func(id txID) error) (*stun.Message, error) {
	done := make(chan reply, 1)
	errCh := make(chan error, 1)
	var id txID
	s.submit(func() {
		m, err := s.buildRequest(typ, setters)
		if err != nil {
			errCh <- err
			return
		}
		id = txID(m.TransactionID)
		if guard != nil {
			if err := guard(id); err != nil {
				errCh <- err
				return
			}
		}
		if _, err := s.conn.WriteToUDP(m.Raw, s.server); err != nil {
			errCh <- err
			return
		}
		s.txTable.insert(m, done)
		s.metrics.sample(s)
		errCh <- nil
	})
	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-s.closing:
		return nil, ErrClosed
	}
	timer := time.AfterFunc(s.cfg.timeout(), func() {
		s.submit(func() {
			s.txTable.cancel(id, ErrTimeout)
			s.metrics.sample(s)
		})
	})
	defer timer.Stop()
	select {
	case r := <-done:
		return r.msg, r.err
	case <-s.closing:
		return nil, ErrClosed
	}
}

// Bind performs a STUN binding request, returning the reflexive address
// the server observed for this socket.
func (s *Session) Bind() (Addr, error) {
	m, err := s.roundTrip(stun.NewType(stun.MethodBinding, stun.ClassRequest), nil, nil)
	if err != nil {
		return Addr{}, err
	}
	var xma stun.XORMappedAddress
	if err := xma.GetFrom(m); err != nil {
		return Addr{}, err
	}
	return Addr{IP: xma.IP, Port: xma.Port}, nil
}

// Persist sends a STUN Binding Indication: a fire-and-forget keep-alive
// that refreshes this session's NAT/server binding without expecting or
// awaiting any response. RFC 5389 §10 defines indications for exactly
// this purpose.
func (s *Session) Persist() error {
	errCh := make(chan error, 1)
	s.submit(func() {
		m, err := stun.Build(stun.TransactionID, stun.NewType(stun.MethodBinding, stun.ClassIndication), stun.NewSoftware(ClientSoftware))
		if err != nil {
			errCh <- err
			return
		}
		_, err = s.conn.WriteToUDP(m.Raw, s.server)
		errCh <- err
	})
	select {
	case err := <-errCh:
		return err
	case <-s.closing:
		return ErrClosed
	}
}

// Allocate requests a relayed transport address. If one is already held,
// it is returned immediately with no network I/O.
func (s *Session) Allocate() (Addr, error) {
	if addr, ok := s.currentRelay(); ok {
		return addr, nil
	}
	setters := []stun.Setter{turn.RequestedTransportUDP}
	m, err := s.roundTrip(turn.AllocateRequest, setters, nil)
	if err != nil {
		return Addr{}, err
	}
	var ra turn.RelayedAddress
	if err := ra.GetFrom(m); err != nil {
		return Addr{}, err
	}
	return Addr{IP: ra.IP, Port: ra.Port}, nil
}

func (s *Session) currentRelay() (Addr, bool) {
	v, _ := s.evalOnLoop(func() (interface{}, error) {
		if !s.relay.active() {
			return nil, nil
		}
		return Addr{IP: s.relay.address.IP, Port: s.relay.address.Port}, nil
	})
	addr, ok := v.(Addr)
	return addr, ok
}

// Refresh renews the current allocation's lifetime. Fails with
// ErrNoAllocation if none is held.
func (s *Session) Refresh() error {
	guard := func(txID) error {
		if !s.relay.active() {
			return ErrNoAllocation
		}
		return nil
	}
	_, err := s.roundTrip(turn.RefreshRequest, nil, guard)
	return err
}

// CreatePermission installs (or refreshes) permission to send to each of
// peers. Fails with ErrNoAllocation if no allocation is held.
func (s *Session) CreatePermission(peers []net.IP) error {
	if len(peers) == 0 {
		return errors.New("client: CreatePermission requires at least one peer")
	}
	setters := make([]stun.Setter, 0, len(peers))
	for _, ip := range peers {
		setters = append(setters, turn.PeerAddress{IP: ip})
	}
	guard := func(id txID) error {
		if !s.relay.active() {
			return ErrNoAllocation
		}
		for _, ip := range peers {
			s.relay.installPermission(ip, id)
		}
		return nil
	}
	_, err := s.roundTrip(turn.CreatePermissionRequest, setters, guard)
	return err
}

// Send transmits payload to peer as a fire-and-forget SEND indication.
// No response is expected. Fails with ErrNoAllocation or ErrNoPermission.
func (s *Session) Send(peer Addr, payload []byte) error {
	errCh := make(chan error, 1)
	s.submit(func() {
		if !s.relay.active() {
			errCh <- ErrNoAllocation
			return
		}
		if !s.relay.permitted(peer.IP) {
			errCh <- ErrNoPermission
			return
		}
		m, err := stun.Build(
			stun.TransactionID,
			turn.SendIndication,
			stun.NewSoftware(ClientSoftware),
			turn.PeerAddress{IP: peer.IP, Port: peer.Port},
			turn.Data(payload),
			stun.Fingerprint,
		)
		if err != nil {
			errCh <- err
			return
		}
		if ce := s.log.Check(zapcore.DebugLevel, "send indication"); ce != nil {
			local := s.conn.LocalAddr().(*net.UDPAddr)
			f := flow{
				Local:  Addr{IP: local.IP, Port: local.Port},
				Server: Addr{IP: s.server.IP, Port: s.server.Port},
				Peer:   peer,
			}
			ce.Write(zap.Stringer("flow", f), zap.Int("bytes", len(payload)))
		}
		_, err = s.conn.WriteToUDP(m.Raw, s.server)
		errCh <- err
	})
	select {
	case err := <-errCh:
		return err
	case <-s.closing:
		return ErrClosed
	}
}

// Subscribe registers sub to receive data indications from peer.
func (s *Session) Subscribe(peer net.IP, sub Subscriber) {
	s.submit(func() { s.dispatcher.subscribe(peer, sub) })
}

// Unsubscribe removes sub's registration against peer, a no-op if absent.
func (s *Session) Unsubscribe(peer net.IP, sub Subscriber) {
	s.submit(func() { s.dispatcher.unsubscribe(peer, sub) })
}

// Close terminates the session: the socket is closed, all timers are
// stopped, and the event loop exits.
func (s *Session) Close() error {
	select {
	case <-s.closing:
		return nil
	default:
		close(s.closing)
	}
	err := s.conn.Close()
	s.relay.close()
	return err
}
