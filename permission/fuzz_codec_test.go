package permission

import (
	"bytes"
	"testing"
)

// FuzzDecodeMask feeds arbitrary payloads through the codec. Valid-shaped
// payloads must round-trip exactly after catalogue clamping; everything else
// must fail without panicking.
func FuzzDecodeMask(f *testing.F) {
	reg := DefaultRegistry()

	f.Add(EncodeMask(reg, SendMessages|ViewChannel))
	f.Add(EncodeMask(reg, All))
	f.Add([]byte{})
	f.Add(make([]byte, 8))
	f.Add(make([]byte, 9))

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeMask(reg, data)
		if err != nil {
			return
		}

		if m&^reg.All() != 0 {
			t.Fatalf("decoded mask carries uncatalogued bits: %#x", uint64(m))
		}

		re := EncodeMask(reg, m)
		back, err := DecodeMask(reg, re)
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if back != m {
			t.Fatalf("re-encode drifted: %#x -> %#x", uint64(m), uint64(back))
		}
		if data[0] == re[0] && m == Mask(0) && !bytes.Equal(re[1:], make([]byte, 8)) {
			t.Fatalf("zero mask encoded with non-zero payload")
		}
	})
}
