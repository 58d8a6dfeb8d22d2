package classes

import "testing"

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if reg.Len() != len(All()) {
		t.Errorf("Len = %d, want %d", reg.Len(), len(All()))
	}

	for _, proto := range All() {
		desc, known := reg.Resolve(proto.ClassName())
		if !known || desc.Dynamic() {
			t.Errorf("%s should resolve statically", proto.ClassName())
		}
	}
}

func TestEntityShape(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	desc, _ := reg.Resolve("entEntity")
	f, ok := desc.Shape.Field("components")
	if !ok {
		t.Fatal("components field missing")
	}
	if f.Type.Elem == nil || !f.Type.Elem.IsReference() {
		t.Errorf("components element should be a handle, got %+v", f.Type.Elem)
	}
}
