package buffer

import (
	"github.com/lightningnetwork/lnlite/lnwire"
)

// ReadSize represents the size of the maximum message that can be read off
// the wire for a single peer connection, plus 16 bytes of slack for framing
// overhead in transports that add a trailer.
const ReadSize = lnwire.MaxMessagePayload + 16

// Read is a static byte array sized to the maximum-allowed Lightning message
// size, plus the same 16 bytes of framing slack as ReadSize.
type Read [ReadSize]byte

// Recycle zeroes the Read, making it fresh for another use.
func (b *Read) Recycle() {
	RecycleSlice(b[:])
}
