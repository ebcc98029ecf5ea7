//go:build fuzz
// +build fuzz

package compress

import (
	"bytes"
	"testing"
)

func FuzzDecompress(f *testing.F) {
	f.Add([]byte{0x02, 'a', 'b', 'c', 'd', 'e', 0xB8, 0x00, 0x11}, 15)
	f.Add([]byte{0x11}, 0)
	f.Fuzz(func(t *testing.T, stream []byte, expected int) {
		if expected < 0 || expected > 1<<16 {
			return
		}
		out, err := Decompress(stream, expected)
		if err == nil && len(out) != expected {
			t.Fatalf("got %d bytes, want %d", len(out), expected)
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("abcdabcdabcd"))
	f.Fuzz(func(t *testing.T, in []byte) {
		packed, err := Compress(in)
		if err != nil {
			if len(in) > 0 && len(in) < 4 {
				return
			}
			t.Fatal(err)
		}
		out, err := Decompress(packed, len(in))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(in, out) {
			t.Fatal("round trip mismatch")
		}
	})
}
