package client

import (
	"net"
	"testing"
	"time"
)

func newTestRelay() (*relay, chan func()) {
	tasks := make(chan func(), 16)
	submit := func(f func()) { tasks <- f }
	return newRelay(submit, func() {}, func(string) {}), tasks
}

func drain(tasks chan func()) {
	for {
		select {
		case f := <-tasks:
			f()
		default:
			return
		}
	}
}

func TestRelay_AllocateAndExpire(t *testing.T) {
	r, tasks := newTestRelay()
	if r.active() {
		t.Fatal("relay should start empty")
	}
	r.allocate(turnAddr{IP: net.ParseIP("198.51.100.7"), Port: 49160}, 30*time.Millisecond)
	if !r.active() {
		t.Fatal("relay should be active after allocate")
	}
	time.Sleep(100 * time.Millisecond)
	drain(tasks)
	if r.active() {
		t.Fatal("relay should be empty after lifetime expiry")
	}
}

func TestRelay_RefreshZeroLifetimeExpires(t *testing.T) {
	r, _ := newTestRelay()
	r.allocate(turnAddr{IP: net.ParseIP("198.51.100.7"), Port: 49160}, time.Hour)
	r.refresh(0)
	if r.active() {
		t.Fatal("refresh with lifetime=0 must deallocate")
	}
}

func TestRelay_PermissionAcking(t *testing.T) {
	r, tasks := newTestRelay()
	r.allocate(turnAddr{IP: net.ParseIP("198.51.100.7"), Port: 49160}, time.Hour)
	peer := net.ParseIP("203.0.113.4")
	id := txID{1, 2, 3}
	r.installPermission(peer, id)
	if r.permitted(peer) {
		t.Fatal("unacked permission must not be permitted")
	}
	r.ackPermissions(id)
	if !r.permitted(peer) {
		t.Fatal("acked permission must be permitted")
	}
	_ = tasks
}

func TestRelay_ReinstallRefreshesPermission(t *testing.T) {
	r, _ := newTestRelay()
	r.allocate(turnAddr{IP: net.ParseIP("198.51.100.7"), Port: 49160}, time.Hour)
	peer := net.ParseIP("203.0.113.4")
	id1 := txID{1}
	r.installPermission(peer, id1)
	r.ackPermissions(id1)
	p := r.permissions[peer.String()]
	if p.timer == nil {
		t.Fatal("acked permission must have an expiry timer")
	}
	id2 := txID{2}
	r.installPermission(peer, id2)
	if got := r.permissions[peer.String()]; got != p {
		t.Fatal("reinstall must refresh the existing permission in place")
	}
	if p.timer != nil {
		t.Fatal("reinstall must stop the prior expiry timer")
	}
	if p.acked {
		t.Fatal("refreshed permission must await the new ack")
	}
	r.ackPermissions(id2)
	if !r.permitted(peer) {
		t.Fatal("re-acked permission must be permitted")
	}
	if p.timer == nil {
		t.Fatal("re-acked permission must have a fresh expiry timer")
	}
}

func TestRelay_Remaining(t *testing.T) {
	r, _ := newTestRelay()
	if r.remaining() != 0 {
		t.Fatal("empty relay must report no remaining lifetime")
	}
	r.allocate(turnAddr{IP: net.ParseIP("198.51.100.7"), Port: 49160}, time.Hour)
	if d := r.remaining(); d <= 0 || d > time.Hour {
		t.Fatalf("remaining = %s, want within (0, 1h]", d)
	}
	r.expire()
	if r.remaining() != 0 {
		t.Fatal("expired relay must report no remaining lifetime")
	}
}

func TestRelay_ExpiryCancelsPermissions(t *testing.T) {
	r, tasks := newTestRelay()
	r.allocate(turnAddr{IP: net.ParseIP("198.51.100.7"), Port: 49160}, time.Hour)
	peer := net.ParseIP("203.0.113.4")
	id := txID{1, 2, 3}
	r.installPermission(peer, id)
	r.ackPermissions(id)
	r.expire()
	if len(r.permissions) != 0 {
		t.Fatal("expiry must clear all permissions")
	}
	drain(tasks)
}
