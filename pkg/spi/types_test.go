package spi

import (
	"errors"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"boolean", Boolean},
		{"BIGINT", Bigint},
		{" double ", Double},
		{"Varchar", Varchar},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if err != nil {
			t.Fatalf("ParseType(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseType("timestamp"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unknown type, got %v", err)
	}
}

type stubFactory struct {
	name    string
	created []string
}

func (f *stubFactory) Name() string { return f.name }

func (f *stubFactory) Create(catalog string, properties map[string]string) (Connector, error) {
	f.created = append(f.created, catalog)
	return nil, nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	a := &stubFactory{name: "b"}
	reg.Register(a)
	reg.Register(&stubFactory{name: "a"})

	names := reg.Factories()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Unexpected factory names: %v", names)
	}

	if _, err := reg.Create("b", "cat", nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(a.created) != 1 || a.created[0] != "cat" {
		t.Errorf("Factory was not invoked with catalog: %v", a.created)
	}

	if _, err := reg.Create("missing", "cat", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	f := &stubFactory{name: "spi-default-test"}
	Register(f)

	found := false
	for _, name := range Factories() {
		if name == f.name {
			found = true
		}
	}
	if !found {
		t.Fatalf("Expected %q in default factories %v", f.name, Factories())
	}

	if _, err := Create(f.name, "cat", nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(f.created) != 1 || f.created[0] != "cat" {
		t.Errorf("Factory was not invoked with catalog: %v", f.created)
	}

	if _, err := Create("missing", "cat", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
