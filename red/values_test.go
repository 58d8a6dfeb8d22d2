package red

import "testing"

func TestDynamicGetSet(t *testing.T) {
	d := NewDynamic("gameFutureThing")
	if d.ClassName() != "gameFutureThing" {
		t.Errorf("ClassName = %q", d.ClassName())
	}

	d.Set("count", "Uint32", uint32(1))
	d.Set("label", "CName", CName("a"))
	d.Set("count", "Uint32", uint32(2))

	if len(d.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(d.Fields))
	}
	v, ok := d.Get("count")
	if !ok || v != uint32(2) {
		t.Errorf("Get(count) = %v, %v", v, ok)
	}
	if _, ok := d.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
}

func TestHandleBound(t *testing.T) {
	var nilHandle *Handle
	if nilHandle.Bound() {
		t.Error("nil handle reports bound")
	}
	h := &Handle{Index: 3}
	if h.Bound() {
		t.Error("unbound handle reports bound")
	}
	h.Target = NewDynamic("x")
	if !h.Bound() {
		t.Error("bound handle reports unbound")
	}

	var weak *WeakHandle
	if weak.Bound() {
		t.Error("nil weak handle reports bound")
	}
}

func TestHashPathNormalizes(t *testing.T) {
	a := HashPath(`base\characters\mesh.mesh`)
	b := HashPath("Base/Characters/Mesh.mesh")
	if a != b {
		t.Errorf("HashPath not normalized: %x != %x", a, b)
	}

	imp := Import{DepotPath: "base/a.mesh"}
	if imp.ID() != HashPath("base/a.mesh") {
		t.Error("path import ID should hash its path")
	}
	imp = Import{Hash: 0xABCD}
	if imp.ID() != 0xABCD {
		t.Error("hash import ID should be its hash")
	}
}
