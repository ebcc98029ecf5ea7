package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompressLiteralThenCopy(t *testing.T) {
	// Five literals, then a copy of ten bytes from three back.
	stream := []byte{0x02, 'a', 'b', 'c', 'd', 'e', 0xB8, 0x00, terminator}

	out, err := Decompress(stream, 15)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdecdecdecdec"), out)
}

func TestDecompressEmpty(t *testing.T) {
	out, err := Decompress([]byte{terminator}, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecompressErrors(t *testing.T) {
	tests := []struct {
		name     string
		stream   []byte
		expected int
		target   error
	}{
		{"underrun", []byte{0x02, 'a', 'b', 'c', 'd', 'e', terminator}, 6, format.ErrSizeMismatch},
		{"overrun", []byte{0x02, 'a', 'b', 'c', 'd', 'e', 0xB8, 0x00, terminator}, 10, format.ErrSizeMismatch},
		{"no terminator", []byte{0x02, 'a', 'b', 'c', 'd', 'e'}, 5, format.ErrCorrupt},
		{"empty input", nil, 0, format.ErrCorrupt},
		{"displacement too far", []byte{0x01, 'a', 'b', 'c', 'd', 0x40, 0x10, terminator}, 7, format.ErrCorrupt},
		{"truncated literal", []byte{0x05, 'a', 'b'}, 8, format.ErrCorrupt},
		{"literal opcode after literal", []byte{0x01, 'a', 'b', 'c', 'd', 0x02, terminator}, 4, format.ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress(tt.stream, tt.expected)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, format.ErrCorrupt)
		})
	}
}

func TestCompressShortInput(t *testing.T) {
	for n := 1; n <= 3; n++ {
		_, err := Compress(make([]byte, n))
		assert.ErrorIs(t, err, ErrInputTooShort)
	}
	out, err := Compress(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{terminator}, out)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	random := make([]byte, 20000)
	rng.Read(random)

	repetitive := bytes.Repeat([]byte("LINE\x00LAYER0\x00"), 3000)

	// Long-distance repeats exercise the far copy opcodes.
	far := make([]byte, 0x9000)
	rng.Read(far[:0x200])
	copy(far[0x4100:], far[:0x200])
	copy(far[0x8800:], far[:0x200])

	mixed := make([]byte, 0)
	for i := 0; i < 400; i++ {
		chunk := make([]byte, rng.Intn(40)+1)
		rng.Read(chunk)
		mixed = append(mixed, chunk...)
		mixed = append(mixed, bytes.Repeat(chunk[:1], rng.Intn(300))...)
	}

	inputs := map[string][]byte{
		"four bytes":  []byte("abcd"),
		"five equal":  []byte("aaaaa"),
		"short text":  []byte("abcdecdecdecdec"),
		"zero page":   make([]byte, 0x7400),
		"random":      random,
		"repetitive":  repetitive,
		"far repeats": far,
		"mixed":       mixed,
		"long literal": func() []byte {
			b := make([]byte, 1000)
			for i := range b {
				b[i] = byte(i*31 + i/7)
			}
			return b
		}(),
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			packed, err := Compress(in)
			require.NoError(t, err)
			out, err := Decompress(packed, len(in))
			require.NoError(t, err)
			assert.True(t, bytes.Equal(in, out))
		})
	}
}

func TestCompressShrinksZeroPage(t *testing.T) {
	packed, err := Compress(make([]byte, 0x7400))
	require.NoError(t, err)
	assert.Less(t, len(packed), 0x200)
}

func TestRoundTripRandomLengths(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := rng.Intn(600) + 4
		in := make([]byte, n)
		for k := range in {
			in[k] = byte(rng.Intn(4))
		}
		packed, err := Compress(in)
		require.NoError(t, err)
		out, err := Decompress(packed, n)
		require.NoError(t, err, "iteration %d", i)
		require.Equal(t, in, out)
	}
}

func BenchmarkCompress(b *testing.B) {
	data := bytes.Repeat([]byte("CIRCLE 10.0 20.0 5.0 LAYER 0\n"), 1000)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compress(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecompress(b *testing.B) {
	data := bytes.Repeat([]byte("CIRCLE 10.0 20.0 5.0 LAYER 0\n"), 1000)
	packed, err := Compress(data)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decompress(packed, len(data)); err != nil {
			b.Fatal(err)
		}
	}
}
