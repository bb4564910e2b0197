package lnpeer

import (
	"net"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"

	"github.com/lightningnetwork/lnlite/lnwire"
)

// Peer is the external collaborator that owns the wire connection to a
// remote node: everything in this package reacts to packets handed to it
// and hands packets back through this interface, never touching a socket
// directly.
type Peer interface {
	// SendMessage sends a variadic number of messages to the remote
	// peer. The first argument denotes whether the call should block
	// until the messages have actually been written.
	SendMessage(sync bool, msg ...lnwire.Message) error

	// AddNewChannel registers a freshly negotiated channel with the
	// peer, failing if cancel is closed before registration completes.
	AddNewChannel(channel *Channel, cancel <-chan struct{}) error

	// WipeChannel removes the channel uniquely identified by its
	// anchor outpoint from every index associated with the peer.
	WipeChannel(*wire.OutPoint) error

	// PubKey returns the serialized public key of the remote peer.
	PubKey() [33]byte

	// IdentityKey returns the public key of the remote peer.
	IdentityKey() *btcec.PublicKey

	// Address returns the network address of the remote peer.
	Address() net.Addr

	// QuitSignal returns a channel that is closed once the backing
	// connection exits, letting callers cancel in-flight work.
	QuitSignal() <-chan struct{}
}
