package device

import (
	"strings"
	"testing"
)

func TestPropertyList_SaveReplacesByName(t *testing.T) {
	list := PropertyList{
		{Name: "valve", Type: TypeString, Value: "opened"},
		{Name: "motor", Type: TypeString, Value: "resting"},
	}

	list.Save(Property{Name: "valve", Type: TypeString, Value: "closed"})

	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 (Save must replace, not append)", len(list))
	}

	if v, _ := list.String("valve"); v != "closed" {
		t.Errorf("valve = %q, want %q", v, "closed")
	}

	// Order is preserved across replacement.
	if list[0].Name != "valve" || list[1].Name != "motor" {
		t.Errorf("order changed: %v", []string{list[0].Name, list[1].Name})
	}
}

func TestPropertyList_SaveAppendsWhenAbsent(t *testing.T) {
	var list PropertyList

	list.Save(Property{Name: "temperature", Type: TypeFloat, Value: 73.2})

	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if v, ok := list.Float("temperature"); !ok || v != 73.2 {
		t.Errorf("temperature = %v (present=%v), want 73.2", v, ok)
	}
}

func TestPropertyList_TypedAccessors(t *testing.T) {
	list := PropertyList{
		{Name: "int_value", Type: TypeUint16, Value: 5},
		{Name: "int64_value", Type: TypeUint32, Value: int64(43200)},
		{Name: "float_value", Type: TypeFloat, Value: 3600.0},
		{Name: "string_value", Type: TypeString, Value: "opened"},
		{Name: "bool_value", Type: TypeBool, Value: true},
	}

	t.Run("Int", func(t *testing.T) {
		tests := []struct {
			name   string
			key    string
			want   int64
			wantOK bool
		}{
			{name: "from int", key: "int_value", want: 5, wantOK: true},
			{name: "from int64", key: "int64_value", want: 43200, wantOK: true},
			{name: "from float64", key: "float_value", want: 3600, wantOK: true},
			{name: "from string", key: "string_value", wantOK: false},
			{name: "missing", key: "nope", wantOK: false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, ok := list.Int(tt.key)
				if ok != tt.wantOK || got != tt.want {
					t.Errorf("Int(%q) = (%d, %v), want (%d, %v)", tt.key, got, ok, tt.want, tt.wantOK)
				}
			})
		}
	})

	t.Run("Float", func(t *testing.T) {
		if got, ok := list.Float("float_value"); !ok || got != 3600.0 {
			t.Errorf("Float() = (%v, %v), want (3600, true)", got, ok)
		}
		if got, ok := list.Float("int_value"); !ok || got != 5.0 {
			t.Errorf("Float() = (%v, %v), want (5, true)", got, ok)
		}
		if _, ok := list.Float("string_value"); ok {
			t.Error("Float() on string value should report false")
		}
	})

	t.Run("String", func(t *testing.T) {
		if got, ok := list.String("string_value"); !ok || got != "opened" {
			t.Errorf("String() = (%q, %v), want (opened, true)", got, ok)
		}
		if _, ok := list.String("int_value"); ok {
			t.Error("String() on int value should report false")
		}
	})
}

func TestSnapshot_DoesNotAliasLiveState(t *testing.T) {
	v := NewValve(ValveOptions{Rand: testRand()})

	doc := v.Snapshot()
	doc.States[0].Value = "tampered"

	fresh := v.Snapshot()
	if fresh.States[0].Value == "tampered" {
		t.Error("Snapshot() must copy property lists, not alias them")
	}
}

func TestMetadata_Identity(t *testing.T) {
	rng := testRand()
	meta := NewMetadata(rng, "tiddymun", "30AEA402")

	if meta.ID == "" {
		t.Error("ID is empty")
	}
	if len(meta.SerialNumber) != 16 {
		t.Errorf("SerialNumber length = %d, want 16", len(meta.SerialNumber))
	}
	if len(meta.MACAddress) != 12 {
		t.Errorf("MACAddress length = %d, want 12", len(meta.MACAddress))
	}
	if !strings.HasPrefix(meta.MACAddress, "30AEA402") {
		t.Errorf("MACAddress = %q, want vendor prefix", meta.MACAddress)
	}
	if want := "Device-" + meta.MACAddress[8:]; meta.InstanceName != want {
		t.Errorf("InstanceName = %q, want %q", meta.InstanceName, want)
	}
	if meta.ManufacturedAt.IsZero() {
		t.Error("ManufacturedAt is zero")
	}

	// Identities are unique across mints.
	other := NewMetadata(rng, "tiddymun", "30AEA402")
	if other.ID == meta.ID || other.SerialNumber == meta.SerialNumber {
		t.Error("consecutive identities must differ")
	}
}
