package registry

import (
	"errors"
	"sync"
	"testing"

	rerrors "github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/red"
)

type testVector struct {
	red.Base
	X float32 `red:"X,Float"`
	Y float32 `red:"Y,Float"`
}

func (*testVector) ClassName() string { return "Vector2" }

type testNode struct {
	red.Base
	Name     red.CName        `red:"name,CName"`
	Position *testVector      `red:"position,Vector2"`
	Children []*red.Handle    `red:"children,array:handle:testNode"`
	Parent   *red.WeakHandle  `red:"parent,whandle:testNode"`
	Mesh     *red.ResourceRef `red:"mesh,raRef:CMesh"`
	Any      red.Class        `red:"payload,SomethingDynamic"`
	Note     string
}

func (*testNode) ClassName() string { return "testNode" }

type noBase struct {
	X int32 `red:"x,Int32"`
}

func (*noBase) ClassName() string { return "noBase" }

type badField struct {
	red.Base
	X int64 `red:"x,Int32"`
}

func (*badField) ClassName() string { return "badField" }

type badTag struct {
	red.Base
	X int32 `red:"x"`
}

func (*badTag) ClassName() string { return "badTag" }

type unregisteredInline struct {
	red.Base
	V *testVector `red:"v,Vector2"`
}

func (*unregisteredInline) ClassName() string { return "unregisteredInline" }

func TestNewCompilesShapes(t *testing.T) {
	reg, err := New(&testVector{}, &testNode{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	desc, known := reg.Resolve("testNode")
	if !known || desc.Dynamic() {
		t.Fatalf("testNode should resolve statically")
	}
	if len(desc.Shape.Fields) != 6 {
		t.Fatalf("shape fields = %d, want 6 (untagged Note skipped)", len(desc.Shape.Fields))
	}
	f, ok := desc.Shape.Field("children")
	if !ok || f.Type.Name != "array:handle:testNode" {
		t.Errorf("children field = %+v, %v", f, ok)
	}

	inst := desc.New()
	if _, ok := inst.(*testNode); !ok {
		t.Errorf("New() = %T, want *testNode", inst)
	}
	if desc.New() == inst {
		t.Error("New must construct a fresh instance")
	}
}

func TestNewRejects(t *testing.T) {
	tests := []struct {
		name   string
		protos []red.Class
	}{
		{"missing base", []red.Class{&noBase{}}},
		{"wrong go type", []red.Class{&badField{}}},
		{"malformed tag", []red.Class{&badTag{}}},
		{"unregistered inline", []red.Class{&unregisteredInline{}}},
		{"duplicate", []red.Class{&testVector{}, &testVector{}}},
		{"non struct", []red.Class{red.NewDynamic("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.protos...)
			if err == nil {
				t.Fatal("expected error")
			}
			var re *rerrors.Error
			if !errors.As(err, &re) || re.Phase != rerrors.PhaseCompile {
				t.Errorf("expected compile-phase error, got %v", err)
			}
		})
	}
}

func TestWrongGoTypeIsTypeMismatch(t *testing.T) {
	_, err := New(&badField{})
	if !errors.Is(err, rerrors.ErrTypeMismatch) {
		t.Errorf("expected type mismatch in chain, got %v", err)
	}
}

func TestResolveDynamicFallback(t *testing.T) {
	reg := MustNew(&testVector{})

	desc, known := reg.Resolve("gameUnknownThing")
	if known {
		t.Fatal("unknown name reported as known")
	}
	if !desc.Dynamic() {
		t.Fatal("fallback descriptor should be dynamic")
	}
	inst := desc.New()
	dyn, ok := inst.(*red.Dynamic)
	if !ok || dyn.ClassName() != "gameUnknownThing" {
		t.Errorf("New() = %#v", inst)
	}

	again, _ := reg.Resolve("gameUnknownThing")
	if again == desc {
		t.Error("registry retained a dynamic descriptor")
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d after resolving unknown names", reg.Len())
	}
}

func TestNilRegistryResolvesDynamically(t *testing.T) {
	var reg *Registry
	desc, known := reg.Resolve("Vector2")
	if known || !desc.Dynamic() {
		t.Error("nil registry must resolve dynamically")
	}
	if reg.Len() != 0 || reg.Names() != nil {
		t.Error("nil registry should be empty")
	}
}

func TestResolveConcurrent(t *testing.T) {
	reg := MustNew(&testVector{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, known := reg.Resolve("Vector2"); !known {
					t.Error("Vector2 should be known")
				}
				reg.Resolve("dyn")
			}
		}()
	}
	wg.Wait()
}

func TestFields(t *testing.T) {
	reg := MustNew(&testVector{}, &testNode{})

	t.Run("no layout lists shape", func(t *testing.T) {
		v := &testVector{X: 1, Y: 2}
		fields, err := reg.Fields(v)
		if err != nil {
			t.Fatal(err)
		}
		if len(fields) != 2 || fields[0].Name != "X" || fields[0].Value != float32(1) {
			t.Errorf("fields = %+v", fields)
		}
	})

	t.Run("layout with extra", func(t *testing.T) {
		v := &testVector{X: 1, Y: 2}
		v.Extra = []red.Field{{Name: "Z", Type: "Float", Value: float32(3)}}
		v.Layout = []red.Slot{{Name: "Y", Extra: -1}, {Name: "Z", Extra: 0}}
		fields, err := reg.Fields(v)
		if err != nil {
			t.Fatal(err)
		}
		if len(fields) != 2 || fields[0].Name != "Y" || fields[1].Name != "Z" || fields[1].Value != float32(3) {
			t.Errorf("fields = %+v", fields)
		}
	})

	t.Run("dynamic", func(t *testing.T) {
		d := red.NewDynamic("x")
		d.Set("a", "Int32", int32(1))
		fields, err := reg.Fields(d)
		if err != nil || len(fields) != 1 {
			t.Errorf("fields = %+v, %v", fields, err)
		}
	})

	t.Run("unregistered static", func(t *testing.T) {
		if _, err := reg.Fields(&badField{}); err == nil {
			t.Error("expected error for unregistered class")
		}
	})
}
