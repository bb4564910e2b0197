package lnwire

import (
	"bytes"
	"fmt"
	"io"
)

// MaxMessagePayload is the maximum size, in bytes, allowed for the payload
// of a single wire message. It bounds the length prefix the codec trusts
// when reading a message off the wire.
const MaxMessagePayload = 65533

// PktCase is the wire discriminator selecting one of the packet union's
// variants. The numeric values are the wire-assigned tags; they are not
// sequential because they were assigned in groups as the protocol evolved.
type PktCase uint8

const (
	PktUpdateAddHTLC     PktCase = 2
	PktUpdateFulfillHTLC PktCase = 3
	PktUpdateFailHTLC    PktCase = 4
	PktUpdateCommit      PktCase = 5
	PktUpdateRevocation  PktCase = 6
	PktOpen              PktCase = 20
	PktOpenAnchor        PktCase = 21
	PktOpenCommitSig     PktCase = 22
	PktOpenComplete      PktCase = 23
	PktCloseShutdown     PktCase = 30
	PktCloseSignature    PktCase = 31
	PktError             PktCase = 40
	PktAuth              PktCase = 50
	PktReconnect         PktCase = 51
)

// String renders the packet case using the same names the control surface
// and error diagnostics use.
func (c PktCase) String() string {
	switch c {
	case PktUpdateAddHTLC:
		return "update_add_htlc"
	case PktUpdateFulfillHTLC:
		return "update_fulfill_htlc"
	case PktUpdateFailHTLC:
		return "update_fail_htlc"
	case PktUpdateCommit:
		return "update_commit"
	case PktUpdateRevocation:
		return "update_revocation"
	case PktOpen:
		return "open"
	case PktOpenAnchor:
		return "open_anchor"
	case PktOpenCommitSig:
		return "open_commit_sig"
	case PktOpenComplete:
		return "open_complete"
	case PktCloseShutdown:
		return "close_shutdown"
	case PktCloseSignature:
		return "close_signature"
	case PktError:
		return "error"
	case PktAuth:
		return "auth"
	case PktReconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Message is implemented by every packet the peer protocol exchanges.
type Message interface {
	// MsgType returns the wire discriminator for this packet.
	MsgType() PktCase

	// Encode serializes the packet's payload (not including the
	// discriminator or length prefix) to w.
	Encode(w io.Writer) error

	// Decode populates the packet's fields by reading its payload from r.
	Decode(r io.Reader) error
}

// makeEmptyMessage allocates the zero value of the packet kind identified
// by pktCase, or an error if the tag is unrecognized.
func makeEmptyMessage(pktCase PktCase) (Message, error) {
	switch pktCase {
	case PktAuth:
		return &Auth{}, nil
	case PktReconnect:
		return &Reconnect{}, nil
	case PktOpen:
		return &Open{}, nil
	case PktOpenAnchor:
		return &OpenAnchor{}, nil
	case PktOpenCommitSig:
		return &OpenCommitSig{}, nil
	case PktOpenComplete:
		return &OpenComplete{}, nil
	case PktUpdateAddHTLC:
		return &UpdateAddHTLC{}, nil
	case PktUpdateFulfillHTLC:
		return &UpdateFulfillHTLC{}, nil
	case PktUpdateFailHTLC:
		return &UpdateFailHTLC{}, nil
	case PktUpdateCommit:
		return &UpdateCommit{}, nil
	case PktUpdateRevocation:
		return &UpdateRevocation{}, nil
	case PktCloseShutdown:
		return &CloseShutdown{}, nil
	case PktCloseSignature:
		return &CloseSignature{}, nil
	case PktError:
		return &Error{}, nil
	default:
		return nil, fmt.Errorf("unknown pkt_case %d", uint8(pktCase))
	}
}

// WriteMessage serializes msg as a length-prefixed, tagged frame:
// [4-byte big-endian length][1-byte pkt_case][payload].
func WriteMessage(w io.Writer, msg Message) error {
	var payload bytes.Buffer
	if err := msg.Encode(&payload); err != nil {
		return err
	}
	if payload.Len() > MaxMessagePayload {
		return fmt.Errorf("message payload of %d bytes exceeds max of %d",
			payload.Len(), MaxMessagePayload)
	}

	frame := make([]byte, 4+1+payload.Len())
	putUint32(frame[:4], uint32(1+payload.Len()))
	frame[4] = byte(msg.MsgType())
	copy(frame[5:], payload.Bytes())

	_, err := w.Write(frame)
	return err
}

// ReadMessage reads one length-prefixed, tagged frame from r and decodes it
// into the concrete Message implementation its pkt_case identifies.
func ReadMessage(r io.Reader) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := getUint32(lenBuf[:])
	if length == 0 {
		return nil, fmt.Errorf("zero-length message frame")
	}
	if length-1 > MaxMessagePayload {
		return nil, fmt.Errorf("message length %d exceeds max payload %d",
			length-1, MaxMessagePayload)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	msg, err := makeEmptyMessage(PktCase(body[0]))
	if err != nil {
		return nil, err
	}
	if err := msg.Decode(bytes.NewReader(body[1:])); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", msg.MsgType(), err)
	}
	return msg, nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
