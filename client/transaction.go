package client

import "github.com/gortc/turnc/stun"

// txID is this package's own handle on a STUN transaction id: a named type
// over the same array stun.Message.TransactionID carries, so it converts
// to and from that field directly and can be used as a map key.
type txID [stun.TransactionIDSize]byte

// reply is what a transaction resolves to: either a decoded response
// message or the error that ended the wait (timeout, an error response,
// or a response attribute that failed to decode).
type reply struct {
	msg *stun.Message
	err error
}

// transaction is a single in-flight request: the message that was sent,
// and the one-shot channel its caller is blocked reading from.
type transaction struct {
	request *stun.Message
	done    chan reply
}

// transactionTable tracks in-flight requests by transaction id, for
// matching inbound responses and for resolving timeouts. It is only ever
// touched from the event loop goroutine, so it needs no locking of its
// own.
type transactionTable struct {
	byID map[txID]*transaction
}

func newTransactionTable() *transactionTable {
	return &transactionTable{byID: make(map[txID]*transaction)}
}

// taken reports whether id already names an in-flight transaction.
func (t *transactionTable) taken(id txID) bool {
	_, ok := t.byID[id]
	return ok
}

// nextID draws a fresh cryptographically random transaction id,
// redrawing on the vanishingly unlikely event of a collision with one
// already in flight.
func (t *transactionTable) nextID() txID {
	for {
		id := txID(stun.NewTransactionID())
		if !t.taken(id) {
			return id
		}
	}
}

// insert registers a new in-flight transaction for req, to be resolved on
// the given channel (created by the caller before the request was sent,
// so it can be waited on without racing the send).
func (t *transactionTable) insert(req *stun.Message, done chan reply) {
	t.byID[txID(req.TransactionID)] = &transaction{request: req, done: done}
}

// peek returns the in-flight transaction for id without removing it, so
// its original request can inform how to interpret a matching response.
func (t *transactionTable) peek(id txID) (*transaction, bool) {
	tx, ok := t.byID[id]
	return tx, ok
}

// resolve delivers a reply to the transaction matching id's waiter, if
// any is still outstanding, and removes it from the table. Reports
// whether a matching transaction was found.
func (t *transactionTable) resolve(id txID, r reply) bool {
	tx, ok := t.byID[id]
	if !ok {
		return false
	}
	delete(t.byID, id)
	tx.done <- r
	return true
}

// cancel resolves id's transaction with an error (used for timeouts) if
// it is still outstanding.
func (t *transactionTable) cancel(id txID, err error) {
	t.resolve(id, reply{err: err})
}

// outstanding reports the number of transactions currently in flight, for
// metrics.
func (t *transactionTable) outstanding() int {
	return len(t.byID)
}
