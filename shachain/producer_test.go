package shachain

import (
	"testing"
)

func TestProducerIsDeterministic(t *testing.T) {
	var seed [SeedSize]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	p1 := NewProducer(seed)
	p2 := NewProducer(seed)

	for n := uint64(0); n < 5; n++ {
		a, err := p1.Preimage(n)
		if err != nil {
			t.Fatalf("Preimage(%d): %v", n, err)
		}
		b, err := p2.Preimage(n)
		if err != nil {
			t.Fatalf("Preimage(%d): %v", n, err)
		}
		if a != b {
			t.Fatalf("preimage[%d] not deterministic: %x != %x", n, a, b)
		}
	}
}

func TestPreimagesDistinctAcrossIndices(t *testing.T) {
	var seed [SeedSize]byte
	p := NewProducer(seed)

	seen := make(map[string]uint64)
	for n := uint64(0); n < 16; n++ {
		preimage, err := p.Preimage(n)
		if err != nil {
			t.Fatalf("Preimage(%d): %v", n, err)
		}
		key := string(preimage[:])
		if prior, ok := seen[key]; ok {
			t.Fatalf("preimage[%d] collides with preimage[%d]", n, prior)
		}
		seen[key] = n
	}
}

func TestRevocationHashMatchesPreimage(t *testing.T) {
	var seed [SeedSize]byte
	seed[0] = 0x7a
	p := NewProducer(seed)

	preimage, err := p.Preimage(3)
	if err != nil {
		t.Fatalf("Preimage: %v", err)
	}
	hash, err := p.RevocationHash(3)
	if err != nil {
		t.Fatalf("RevocationHash: %v", err)
	}

	if !VerifyPreimage(preimage, hash) {
		t.Fatal("VerifyPreimage rejected the preimage that produced the hash")
	}

	other, _ := p.Preimage(4)
	if VerifyPreimage(other, hash) {
		t.Fatal("VerifyPreimage accepted an unrelated preimage")
	}
}
