package routing

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnlite/lnwire"
)

// AddRouteArg is a parsed dev-add-route literal: src/dst/base/var/delay/minblocks.
type AddRouteArg struct {
	Src, Dst        lnwire.BitcoinPubkey
	BaseFee         uint32
	ProportionalFee int32
	Delay           uint32
	MinBlocks       uint32
}

// ParseAddRouteArg parses the "src/dst/base/var/delay/minblocks" literal
// accepted by the dev-add-route control surface call and command-line
// flag: two 33-byte hex pubkeys followed by four slash-separated decimal
// fields, with no trailing data permitted.
func ParseAddRouteArg(arg string) (*AddRouteArg, error) {
	fields := strings.Split(arg, "/")
	if len(fields) != 6 {
		return nil, fmt.Errorf("expected src/dst/base/var/delay/minblocks, got %d fields", len(fields))
	}

	src, err := parsePubkeyHex(fields[0])
	if err != nil {
		return nil, fmt.Errorf("bad src pubkey: %v", err)
	}
	dst, err := parsePubkeyHex(fields[1])
	if err != nil {
		return nil, fmt.Errorf("bad dst pubkey: %v", err)
	}

	base, err := parseU32(fields[2])
	if err != nil {
		return nil, fmt.Errorf("bad base fee: %v", err)
	}
	variable, err := parseU32(fields[3])
	if err != nil {
		return nil, fmt.Errorf("bad var fee: %v", err)
	}
	delay, err := parseU32(fields[4])
	if err != nil {
		return nil, fmt.Errorf("bad delay: %v", err)
	}
	minBlocks, err := parseU32(fields[5])
	if err != nil {
		return nil, fmt.Errorf("bad minblocks: %v", err)
	}

	return &AddRouteArg{
		Src:             src,
		Dst:             dst,
		BaseFee:         base,
		ProportionalFee: int32(variable),
		Delay:           delay,
		MinBlocks:       minBlocks,
	}, nil
}

func parsePubkeyHex(s string) (lnwire.BitcoinPubkey, error) {
	var pk lnwire.BitcoinPubkey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, err
	}
	if len(b) != len(pk) {
		return pk, fmt.Errorf("expected %d bytes, got %d", len(pk), len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
