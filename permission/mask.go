package permission

import "strings"

// Mask is a 64-bit permission bitmask. Bits are combined with OR, tested with
// AND, and removed with AND-NOT. The zero Mask grants nothing.
type Mask uint64

// Named permission bits. Positions are fixed; gaps are reserved for
// permissions the engine does not gate yet. ADMINISTRATOR sits at bit 3
// (0x8) and is special-cased by the resolver, not by Mask itself.
const (
	Administrator      Mask = 1 << 3
	ManageChannels     Mask = 1 << 4
	AddReactions       Mask = 1 << 6
	Stream             Mask = 1 << 9
	ViewChannel        Mask = 1 << 10
	SendMessages       Mask = 1 << 11
	SendTTSMessages    Mask = 1 << 12
	ManageMessages     Mask = 1 << 13
	EmbedLinks         Mask = 1 << 14
	AttachFiles        Mask = 1 << 15
	ReadMessageHistory Mask = 1 << 16
	MentionEveryone    Mask = 1 << 17
	UseExternalEmojis  Mask = 1 << 18
	Connect            Mask = 1 << 20
	Speak              Mask = 1 << 21
	MuteMembers        Mask = 1 << 22
	DeafenMembers      Mask = 1 << 23
	MoveMembers        Mask = 1 << 24
	UseVAD             Mask = 1 << 25
	ManagePermissions  Mask = 1 << 28
)

// All is the union of every catalogued permission bit. The resolver returns
// it for the owner and administrator bypasses.
const All = Administrator | ManageChannels | AddReactions | Stream |
	ViewChannel | SendMessages | SendTTSMessages | ManageMessages |
	EmbedLinks | AttachFiles | ReadMessageHistory | MentionEveryone |
	UseExternalEmojis | Connect | Speak | MuteMembers | DeafenMembers |
	MoveMembers | UseVAD | ManagePermissions

// Has reports whether every bit in p is set in m.
func (m Mask) Has(p Mask) bool {
	return m&p == p
}

// HasAny reports whether at least one bit in p is set in m.
func (m Mask) HasAny(p Mask) bool {
	return m&p != 0
}

// Add sets every bit in p.
func (m *Mask) Add(p Mask) {
	*m |= p
}

// Clear removes every bit in p.
func (m *Mask) Clear(p Mask) {
	*m &^= p
}

// Apply layers one allow/deny overwrite pair onto m: denied bits are removed
// first, then allowed bits are set. This is the single overwrite step the
// resolver repeats per precedence layer.
func (m Mask) Apply(allow, deny Mask) Mask {
	m &^= deny
	m |= allow
	return m
}

// Raw returns the mask as a plain uint64 for storage boundaries.
func (m Mask) Raw() uint64 {
	return uint64(m)
}

// String renders the set bits as a |-joined list of catalogue names, using
// the default registry. Unregistered bits render as nothing.
func (m Mask) String() string {
	names := DefaultRegistry().Names(m)
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}
