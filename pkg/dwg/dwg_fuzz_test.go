//go:build fuzz
// +build fuzz

package dwg

import (
	"context"
	"testing"

	"github.com/ssargent/dwgkit/pkg/format"
)

func FuzzReadBytes(f *testing.F) {
	ctx := context.Background()
	for _, v := range []format.Version{format.AC1015, format.AC1018, format.AC1021} {
		data, err := NewWriter(WriterConfig{}).Bytes(ctx, sampleDocument(f, v))
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		cfg := DefaultReaderConfig()
		cfg.VerifyChecksums = false
		doc, err := NewReader(cfg).ReadBytes(ctx, data)
		if err != nil {
			return
		}
		if _, err := NewWriter(WriterConfig{RetainUnknown: true}).Bytes(ctx, doc); err != nil {
			t.Logf("rewrite: %v", err)
		}
	})
}
