package daemon

import (
	"crypto/rand"
	"fmt"
	"net"
	"sync"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/tv42/zbase32"

	"github.com/lightningnetwork/lnlite/buffer"
	"github.com/lightningnetwork/lnlite/lnpeer"
	"github.com/lightningnetwork/lnlite/lnwire"
	"github.com/lightningnetwork/lnlite/shachain"
)

// defaultAnchorSatoshis is the anchor size the funding side proposes when
// no on-chain wallet is wired in to size it from an actual UTXO. Funding
// is exogenous to this daemon (the anchor outpoint is taken as given, per
// the channel protocol's own scope), so a fixed size keeps the bootstrap
// self-contained for local testing and the dev-add-route control surface.
const defaultAnchorSatoshis = btcutil.Amount(1_000_000)

// peer owns one TCP connection to a remote node and the single channel
// negotiated over it. It implements lnpeer.Peer.
type peer struct {
	conn    net.Conn
	recvBuf buffer.Read

	identityKey *btcec.PublicKey
	pubKeyBytes [33]byte

	quit     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	channel *lnpeer.Channel

	server *Server
}

func newPeer(srv *Server, conn net.Conn, identityKey *btcec.PublicKey) *peer {
	p := &peer{
		conn:        conn,
		identityKey: identityKey,
		quit:        make(chan struct{}),
		server:      srv,
	}
	if identityKey != nil {
		copy(p.pubKeyBytes[:], identityKey.SerializeCompressed())
	}
	return p
}

// SendMessage writes each message to the connection in order. The sync
// flag is part of the Peer contract for callers that want to block until
// the message has left the process; every write here is already
// synchronous, so it is accepted but unused.
func (p *peer) SendMessage(sync bool, msgs ...lnwire.Message) error {
	for _, msg := range msgs {
		if err := lnwire.WriteMessage(p.conn, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *peer) AddNewChannel(channel *lnpeer.Channel, cancel <-chan struct{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = channel
	return nil
}

func (p *peer) WipeChannel(*wire.OutPoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = nil
	return nil
}

// nodeID renders the peer's identity key the way every log line and CLI
// listing does: zbase32, the same human-friendly encoding the teacher uses
// for its signed-message output, rather than raw hex.
func (p *peer) nodeID() string {
	return zbase32.EncodeToString(p.pubKeyBytes[:])
}

func (p *peer) PubKey() [33]byte             { return p.pubKeyBytes }
func (p *peer) IdentityKey() *btcec.PublicKey { return p.identityKey }
func (p *peer) Address() net.Addr            { return p.conn.RemoteAddr() }
func (p *peer) QuitSignal() <-chan struct{}  { return p.quit }

func (p *peer) stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.conn.Close()
		p.recvBuf.Recycle()
	})
}

// negotiateOpen builds our own channel proposal, registers it with the
// peer, and sends it. weFundAnchor decides which side offers to create
// the anchor; the dialing side funds by convention, matching the outbound
// "we reach out to open a channel" direction the control surface exposes.
func (p *peer) negotiateOpen(weFundAnchor bool) error {
	commitPriv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return err
	}
	finalPriv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return err
	}

	var seed [shachain.SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return err
	}

	// The channel derives its own revocation preimages from this same
	// seed internally; building a throwaway producer here just to read
	// out index 0 keeps CreateOpen's revocation hash in lockstep with
	// what the channel will later produce, without exposing the
	// channel's internal producer.
	revHash, err := shachain.NewProducer(seed).RevocationHash(0)
	if err != nil {
		return err
	}

	signer := &localSigner{priv: commitPriv}
	channel := lnpeer.NewChannel(p, signer, seed)

	if err := p.AddNewChannel(channel, p.quit); err != nil {
		return err
	}

	open := channel.CreateOpen(revHash, commitPriv.PubKey(), finalPriv.PubKey(),
		uint32(p.server.cfg.RelLocktimeMax/30), btcutil.Amount(p.server.cfg.CommitmentFeeMin),
		weFundAnchor, 1)

	return p.SendMessage(true, open)
}

// readLoop dispatches every frame received on the connection to the
// negotiated channel until the connection errors out or is closed.
func (p *peer) readLoop() {
	defer p.server.removePeer(p)
	defer p.stop()

	for {
		msg, err := lnwire.ReadMessage(p.conn)
		if err != nil {
			peerLog.Debugf("peer %s: connection closed: %v", p.nodeID(), err)
			return
		}

		if err := p.dispatch(msg); err != nil {
			peerLog.Errorf("peer %s: %v", p.nodeID(), err)
			if _, isErr := msg.(*lnwire.Error); !isErr {
				p.SendMessage(true, &lnwire.Error{Problem: err.Error()})
			}
			return
		}
	}
}

func (p *peer) dispatch(msg lnwire.Message) error {
	p.mu.Lock()
	ch := p.channel
	p.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("no channel negotiated yet, dropping %v", msg.MsgType())
	}

	switch m := msg.(type) {
	case *lnwire.Open:
		if err := ch.HandleOpen(m); err != nil {
			return err
		}
		if !ch.IsFunder() {
			return nil
		}
		anchor := wire.OutPoint{Index: 0}
		anchorMsg, err := ch.CreateOpenAnchor(anchor, defaultAnchorSatoshis)
		if err != nil {
			return err
		}
		return p.SendMessage(true, anchorMsg)

	case *lnwire.OpenAnchor:
		reply, err := ch.HandleOpenAnchor(m)
		if err != nil {
			return err
		}
		return p.SendMessage(true, reply)

	case *lnwire.OpenCommitSig:
		if err := ch.HandleOpenCommitSig(m); err != nil {
			return err
		}
		if err := ch.HandleOpenComplete(&lnwire.OpenComplete{}); err != nil {
			return err
		}
		return p.SendMessage(true, &lnwire.OpenComplete{})

	case *lnwire.OpenComplete:
		return ch.HandleOpenComplete(m)

	case *lnwire.UpdateAddHTLC:
		reply, err := ch.HandleUpdateAddHTLC(m)
		if err != nil {
			return err
		}
		return p.SendMessage(true, reply)

	case *lnwire.UpdateCommit:
		weInitiated, pending := ch.PendingRole()
		if !pending {
			return fmt.Errorf("unexpected update_commit with no pending update")
		}
		if weInitiated {
			reply, err := ch.HandleUpdateAccept(m)
			if err != nil {
				return err
			}
			return p.SendMessage(true, reply)
		}
		reply, err := ch.HandleUpdateSignature(m)
		if err != nil {
			return err
		}
		return p.SendMessage(true, reply)

	case *lnwire.UpdateRevocation:
		return ch.HandleUpdateComplete(m)

	case *lnwire.CloseShutdown:
		if errPkt := ch.HandleCloseShutdown(m); errPkt != nil {
			return p.SendMessage(true, errPkt)
		}
		return nil

	case *lnwire.CloseSignature:
		if errPkt := ch.HandleCloseSignature(m); errPkt != nil {
			return p.SendMessage(true, errPkt)
		}
		return nil

	case *lnwire.UpdateFulfillHTLC:
		if errPkt := ch.HandleUpdateFulfillHTLC(m); errPkt != nil {
			return p.SendMessage(true, errPkt)
		}
		return nil

	case *lnwire.UpdateFailHTLC:
		if errPkt := ch.HandleUpdateFailHTLC(m); errPkt != nil {
			return p.SendMessage(true, errPkt)
		}
		return nil

	case *lnwire.Error:
		return fmt.Errorf("peer reported error: %s", m.Problem)

	default:
		return fmt.Errorf("unhandled packet %v", msg.MsgType())
	}
}

// localSigner signs commitment transactions with a single in-memory key.
// It is the daemon's stand-in for the external key-management collaborator
// lnpeer.Signer abstracts away; a production deployment would back this
// with a hardware wallet or a remote signer instead.
type localSigner struct {
	priv *btcec.PrivateKey
}

func (s *localSigner) SignCommitment(tx *wire.MsgTx, redeemScript []byte,
	amt btcutil.Amount) (*btcec.Signature, error) {

	hash, err := txscript.CalcSignatureHash(redeemScript, txscript.SigHashAll, tx, 0)
	if err != nil {
		return nil, err
	}
	return s.priv.Sign(hash)
}
