package checksum

import (
	"fmt"

	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// Func is any seeded checksum over a byte slice.
type Func func(seed uint32, data []byte) uint32

// CRC8Func adapts CRC8 to Func.
func CRC8Func(seed uint32, data []byte) uint32 {
	return uint32(CRC8(uint16(seed), data))
}

// Verify reports whether fn(seed, data) equals expected.
func Verify(fn Func, data []byte, seed, expected uint32) bool {
	return fn(seed, data) == expected
}

// Verifier applies the checksum failure policy: a mismatch is fatal in strict
// mode and a warning notification otherwise.
type Verifier struct {
	Strict bool
	Notify notify.Handler
}

// Check compares computed against expected for the named structure.
func (v *Verifier) Check(section string, offset int64, computed, expected uint32) error {
	if computed == expected {
		return nil
	}
	err := fmt.Errorf("%w: computed 0x%X, stored 0x%X", format.ErrChecksumMismatch, computed, expected)
	if v == nil || v.Strict {
		return format.Corruption(section, offset, err)
	}
	v.Notify.Emit(notify.Notification{
		Kind:     notify.KindChecksum,
		Severity: notify.SeverityWarning,
		Message:  fmt.Sprintf("%s checksum mismatch", section),
		Err:      err,
		Offset:   offset,
	})
	return nil
}
