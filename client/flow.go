package client

// flow identifies one relayed send for logging purposes only: this
// session's local socket address, the server it is talking to, and the
// peer the datagram is addressed to. It is never serialized — the wire
// attributes are turn.PeerAddress/turn.RelayedAddress — it exists purely
// to give a log field a single stable value to key on, the way a TURN
// server keys its allocation table by five-tuple.
type flow struct {
	Local  Addr
	Server Addr
	Peer   Addr
}

func (f flow) String() string {
	return f.Local.String() + "->" + f.Server.String() + "->" + f.Peer.String()
}
