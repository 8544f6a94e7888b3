package permission

import (
	"errors"
	"sync"
)

// CatalogueVersion is the version of the built-in permission catalogue.
// Bump it whenever a bit is added; stored masks encoded under an older
// version are rejected by [DecodeMask].
const CatalogueVersion uint8 = 1

// Registry maps permission names to bit positions within a [Mask].
// A registry is mutable until [Registry.Freeze] and immutable afterwards.
type Registry struct {
	version uint8

	mu        sync.RWMutex
	nameToBit map[string]Mask
	bitToName map[Mask]string
	all       Mask
	frozen    bool
}

// NewRegistry creates an empty permission [Registry] at the given catalogue
// version. Callers register names with explicit bits and then freeze it.
func NewRegistry(version uint8) *Registry {
	return &Registry{
		version:   version,
		nameToBit: make(map[string]Mask),
		bitToName: make(map[Mask]string),
	}
}

// Register assigns the given single-bit mask to the named permission.
// Must be called before [Registry.Freeze].
func (r *Registry) Register(name string, bit Mask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}

	if name == "" {
		return errors.New("permission name cannot be empty")
	}

	if bit == 0 || bit&(bit-1) != 0 {
		return errors.New("permission bit must have exactly one bit set")
	}

	if _, exists := r.nameToBit[name]; exists {
		return errors.New("permission already registered")
	}

	if _, exists := r.bitToName[bit]; exists {
		return errors.New("permission bit already assigned")
	}

	r.nameToBit[name] = bit
	r.bitToName[bit] = name
	r.all |= bit

	return nil
}

// Bit returns the mask bit for the named permission, or false if not registered.
func (r *Registry) Bit(name string) (Mask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the permission name for the given single-bit mask, or false
// if the bit is unassigned.
func (r *Registry) Name(bit Mask) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// MaskOf builds the union mask of the named permissions. Unknown names fail
// the whole call so that a typo never silently grants nothing.
func (r *Registry) MaskOf(names ...string) (Mask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var m Mask
	for _, name := range names {
		bit, ok := r.nameToBit[name]
		if !ok {
			return 0, errors.New("unknown permission: " + name)
		}
		m |= bit
	}

	return m, nil
}

// Names returns the catalogue names of the bits set in m, in ascending bit
// order. Bits without a registered name are skipped.
func (r *Registry) Names(m Mask) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for bit := Mask(1); bit != 0; bit <<= 1 {
		if m&bit == 0 {
			continue
		}
		if name, ok := r.bitToName[bit]; ok {
			names = append(names, name)
		}
	}

	return names
}

// All returns the union of every registered bit.
func (r *Registry) All() Mask {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.all
}

// Freeze prevents further registrations. Must be called before the registry
// is shared with the engine.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}

// Version returns the catalogue version the registry was built at.
func (r *Registry) Version() uint8 {
	return r.version
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// catalogue is the built-in permission set. Positions never change once
// shipped; gaps are reserved for permissions the engine does not gate yet.
var catalogue = []struct {
	name string
	bit  Mask
}{
	{"ADMINISTRATOR", Administrator},
	{"MANAGE_CHANNELS", ManageChannels},
	{"ADD_REACTIONS", AddReactions},
	{"STREAM", Stream},
	{"VIEW_CHANNEL", ViewChannel},
	{"SEND_MESSAGES", SendMessages},
	{"SEND_TTS_MESSAGES", SendTTSMessages},
	{"MANAGE_MESSAGES", ManageMessages},
	{"EMBED_LINKS", EmbedLinks},
	{"ATTACH_FILES", AttachFiles},
	{"READ_MESSAGE_HISTORY", ReadMessageHistory},
	{"MENTION_EVERYONE", MentionEveryone},
	{"USE_EXTERNAL_EMOJIS", UseExternalEmojis},
	{"CONNECT", Connect},
	{"SPEAK", Speak},
	{"MUTE_MEMBERS", MuteMembers},
	{"DEAFEN_MEMBERS", DeafenMembers},
	{"MOVE_MEMBERS", MoveMembers},
	{"USE_VAD", UseVAD},
	{"MANAGE_PERMISSIONS", ManagePermissions},
}

// DefaultRegistry returns the process-wide frozen registry for the built-in
// catalogue at [CatalogueVersion].
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r := NewRegistry(CatalogueVersion)
		for _, entry := range catalogue {
			if err := r.Register(entry.name, entry.bit); err != nil {
				panic("permission: default catalogue: " + err.Error())
			}
		}
		r.Freeze()
		defaultRegistry = r
	})
	return defaultRegistry
}
