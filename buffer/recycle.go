package buffer

// RecycleSlice zeroes b in place so a pooled buffer never leaks the
// previous packet's plaintext to whatever reuses it next.
func RecycleSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
