package permission

import "testing"

func TestDefaultRegistryCatalogue(t *testing.T) {
	reg := DefaultRegistry()

	if reg.Count() != len(catalogue) {
		t.Fatalf("Count = %d, want %d", reg.Count(), len(catalogue))
	}
	if reg.Version() != CatalogueVersion {
		t.Fatalf("Version = %d, want %d", reg.Version(), CatalogueVersion)
	}

	bit, ok := reg.Bit("ADMINISTRATOR")
	if !ok || bit != Administrator {
		t.Fatalf("Bit(ADMINISTRATOR) = %#x, %v", uint64(bit), ok)
	}

	name, ok := reg.Name(SendMessages)
	if !ok || name != "SEND_MESSAGES" {
		t.Fatalf("Name(SendMessages) = %q, %v", name, ok)
	}

	if _, ok := reg.Bit("NO_SUCH_PERMISSION"); ok {
		t.Fatalf("Bit returned ok for unregistered name")
	}
}

func TestDefaultRegistryIsSingleton(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Fatalf("DefaultRegistry returned distinct instances")
	}
}

func TestRegistryRejectsAfterFreeze(t *testing.T) {
	reg := NewRegistry(7)
	if err := reg.Register("FIRST", 1<<0); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	reg.Freeze()

	if err := reg.Register("SECOND", 1<<1); err == nil {
		t.Fatalf("Register after Freeze succeeded")
	}
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	cases := []struct {
		label string
		name  string
		bit   Mask
	}{
		{"empty name", "", 1 << 0},
		{"zero bit", "ZERO", 0},
		{"multi bit", "MULTI", 0b11},
	}

	for _, tc := range cases {
		reg := NewRegistry(1)
		if err := reg.Register(tc.name, tc.bit); err == nil {
			t.Fatalf("%s: Register succeeded, want error", tc.label)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry(1)
	if err := reg.Register("A", 1<<0); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := reg.Register("A", 1<<1); err == nil {
		t.Fatalf("duplicate name accepted")
	}
	if err := reg.Register("B", 1<<0); err == nil {
		t.Fatalf("duplicate bit accepted")
	}
}

func TestMaskOf(t *testing.T) {
	reg := DefaultRegistry()

	m, err := reg.MaskOf("SEND_MESSAGES", "CONNECT")
	if err != nil {
		t.Fatalf("MaskOf failed: %v", err)
	}
	if m != SendMessages|Connect {
		t.Fatalf("MaskOf = %v, want %v", m, SendMessages|Connect)
	}

	if _, err := reg.MaskOf("SEND_MESSAGES", "TYPO"); err == nil {
		t.Fatalf("MaskOf with unknown name succeeded")
	}
}

func TestNamesAscendingBitOrder(t *testing.T) {
	reg := DefaultRegistry()
	names := reg.Names(ManagePermissions | Administrator | Connect)

	want := []string{"ADMINISTRATOR", "CONNECT", "MANAGE_PERMISSIONS"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
