package dwg

import (
	"context"
	"testing"

	"github.com/ssargent/dwgkit/pkg/format"
)

func BenchmarkRead(b *testing.B) {
	for _, v := range []format.Version{format.AC1015, format.AC1018, format.AC1021} {
		data, err := NewWriter(WriterConfig{}).Bytes(context.Background(), sampleDocument(b, v))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(v.Tag(), func(b *testing.B) {
			r := NewReader(DefaultReaderConfig())
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := r.ReadBytes(context.Background(), data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkWrite(b *testing.B) {
	doc := sampleDocument(b, format.AC1018)
	w := NewWriter(WriterConfig{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.Bytes(context.Background(), doc); err != nil {
			b.Fatal(err)
		}
	}
}
