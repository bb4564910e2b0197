package routing

import (
	"bytes"
	"strings"
	"testing"
)

func hexPubkey(fill byte) string {
	b := make([]byte, 33)
	b[0] = 0x02
	for i := 1; i < 33; i++ {
		b[i] = fill
	}
	return hexEncode(b)
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	var buf bytes.Buffer
	for _, c := range b {
		buf.WriteByte(hexDigits[c>>4])
		buf.WriteByte(hexDigits[c&0xf])
	}
	return buf.String()
}

func TestParseAddRouteArg(t *testing.T) {
	src := hexPubkey(0x11)
	dst := hexPubkey(0x22)
	arg := strings.Join([]string{src, dst, "1000", "1000", "10", "1"}, "/")

	got, err := ParseAddRouteArg(arg)
	if err != nil {
		t.Fatalf("ParseAddRouteArg: %v", err)
	}

	if got.BaseFee != 1000 || got.ProportionalFee != 1000 || got.Delay != 10 || got.MinBlocks != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestParseAddRouteArgRejectsTrailingData(t *testing.T) {
	src := hexPubkey(0x11)
	dst := hexPubkey(0x22)
	arg := strings.Join([]string{src, dst, "1000", "1000", "10", "1", "garbage"}, "/")

	if _, err := ParseAddRouteArg(arg); err == nil {
		t.Fatal("expected error for trailing data after minblocks")
	}
}

func TestParseAddRouteArgRejectsBadPubkey(t *testing.T) {
	arg := strings.Join([]string{"nothex", hexPubkey(0x22), "1000", "1000", "10", "1"}, "/")

	if _, err := ParseAddRouteArg(arg); err == nil {
		t.Fatal("expected error for malformed src pubkey")
	}
}
