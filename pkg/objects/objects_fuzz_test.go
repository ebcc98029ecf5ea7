//go:build fuzz
// +build fuzz

package objects

import (
	"testing"

	"github.com/ssargent/dwgkit/pkg/format"
)

func FuzzDecode(f *testing.F) {
	for _, v := range []format.Version{format.AC1014, format.AC1018, format.AC1024} {
		c := NewCodec(v, nil, Options{})
		for _, tpl := range sampleTemplates() {
			rec, err := c.Encode(tpl)
			if err != nil {
				f.Fatal(err)
			}
			f.Add(rec, uint8(v))
		}
	}
	f.Add([]byte{0xC2, 0xE3, 0xF8, 0xE7, 0x84, 0x87, 0x0F, 0xD8, 0x7A, 0x36, 0xCC}, uint8(format.AC1014))

	f.Fuzz(func(t *testing.T, data []byte, version uint8) {
		v := format.Version(version)
		if !v.Valid() {
			return
		}
		c := NewCodec(v, nil, Options{RetainUnknown: true, IgnoreUnsupportedTypes: true})
		tpl, err := c.Decode(data, 0)
		if err != nil || tpl == nil {
			return
		}
		if _, err := c.Encode(tpl); err != nil {
			t.Logf("re-encode 0x%X: %v", tpl.Handle, err)
		}
	})
}
