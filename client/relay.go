package client

import (
	"net"
	"time"
)

// permission is one entry of the relay's permission set: the peer IP it
// authorizes sending to, the transaction that last installed or refreshed
// it, whether that transaction's success response has been seen, and the
// expiry timer once acked.
type permission struct {
	peer  net.IP
	txID  txID
	acked bool
	timer *time.Timer
}

// relay is the client-visible allocation/permission state machine.
// Invariants held at all times:
//
//	relay.timer != nil  iff  relay.lifetime > 0  iff  relay.address != nil
//	p.acked implies p.timer != nil, for every permission p
type relay struct {
	address  *turnAddr
	lifetime time.Duration
	deadline time.Time
	timer    *time.Timer

	permissions map[string]*permission // keyed by peer IP string

	// onExpire is invoked (on the event loop goroutine, via submit) when
	// the allocation lifetime elapses.
	onExpire func()
	// onPermExpire is invoked with the expired permission's peer key.
	onPermExpire func(key string)
	// submit marshals a callback onto the session's single event-loop
	// queue; timers fire on their own goroutine and must not touch relay
	// state directly.
	submit func(func())
}

// turnAddr is the minimal address shape the relay stores: only IP and
// port are needed here.
type turnAddr struct {
	IP   net.IP
	Port int
}

func newRelay(submit func(func()), onExpire func(), onPermExpire func(key string)) *relay {
	return &relay{
		permissions:  make(map[string]*permission),
		submit:       submit,
		onExpire:     onExpire,
		onPermExpire: onPermExpire,
	}
}

// active reports whether an allocation is currently held.
func (r *relay) active() bool { return r.address != nil }

// allocate records a freshly granted allocation and (re)arms the
// allocation timer. Called on a success response to an allocate request.
func (r *relay) allocate(addr turnAddr, lifetime time.Duration) {
	r.address = &addr
	r.armLifetime(lifetime)
}

// refresh updates the allocation lifetime on a successful refresh. A
// lifetime of zero tears the allocation down identically to natural
// expiry.
func (r *relay) refresh(lifetime time.Duration) {
	if lifetime <= 0 {
		r.expire()
		return
	}
	r.armLifetime(lifetime)
}

func (r *relay) armLifetime(lifetime time.Duration) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.lifetime = lifetime
	r.deadline = time.Now().Add(lifetime)
	r.timer = time.AfterFunc(lifetime, func() {
		r.submit(r.expire)
	})
}

// remaining reports the time left until the allocation expires, zero
// when none is held.
func (r *relay) remaining() time.Duration {
	if r.address == nil {
		return 0
	}
	d := time.Until(r.deadline)
	if d < 0 {
		return 0
	}
	return d
}

// expire reverts the relay to empty, cancelling every permission timer.
// No network message is sent. Called both on lifetime-timer fire and on
// a refresh granting lifetime=0.
func (r *relay) expire() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.address = nil
	r.lifetime = 0
	r.deadline = time.Time{}
	for key, p := range r.permissions {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(r.permissions, key)
	}
	if r.onExpire != nil {
		r.onExpire()
	}
}

// installPermission records an un-acked permission for peer, tagged with
// the transaction that will acknowledge it. Called when a
// create-permission request is sent, once per requested peer address. An
// existing entry for the peer is refreshed in place, stopping its expiry
// timer so a stale deadline cannot fire against the refreshed
// permission.
func (r *relay) installPermission(peer net.IP, id txID) {
	key := peer.String()
	if p, ok := r.permissions[key]; ok {
		if p.timer != nil {
			p.timer.Stop()
			p.timer = nil
		}
		p.txID = id
		p.acked = false
		return
	}
	r.permissions[key] = &permission{peer: peer, txID: id}
}

// ackPermissions flips every permission installed under id to acked,
// arming a fresh 5-minute expiry timer on each. Called on the matching
// create-permission success response.
func (r *relay) ackPermissions(id txID) {
	for key, p := range r.permissions {
		if p.txID != id || p.acked {
			continue
		}
		p.acked = true
		if p.timer != nil {
			p.timer.Stop()
		}
		k := key
		p.timer = time.AfterFunc(PermissionLifetime, func() {
			r.submit(func() { r.expirePermission(k) })
		})
	}
}

func (r *relay) expirePermission(key string) {
	p, ok := r.permissions[key]
	if !ok {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	delete(r.permissions, key)
	if r.onPermExpire != nil {
		r.onPermExpire(key)
	}
}

// permitted reports whether an acked permission exists for peer's IP;
// port is not part of the match.
func (r *relay) permitted(peer net.IP) bool {
	p, ok := r.permissions[peer.String()]
	return ok && p.acked
}

// close stops every live timer, used on session shutdown.
func (r *relay) close() {
	if r.timer != nil {
		r.timer.Stop()
	}
	for _, p := range r.permissions {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
}
