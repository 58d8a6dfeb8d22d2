package dump

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/wippyai/redpkg/classes"
	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/internal/serial"
	"github.com/wippyai/redpkg/red"
	"github.com/wippyai/redpkg/registry"
)

func samplePackage(t *testing.T) (*codec.Package, *registry.Registry) {
	t.Helper()
	reg, err := classes.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	ent := &classes.Entity{}
	tc := &classes.TransformComponent{
		Name:            "root",
		ParentTransform: &red.WeakHandle{Target: ent},
		LocalTransform: &classes.WorldTransform{
			Position:    &classes.Vector4{X: 2},
			Orientation: &classes.Quaternion{R: 1},
		},
	}
	mc := &classes.MeshComponent{Name: "body", Mesh: &red.ResourceRef{Index: 0}}
	ent.Components = []*red.Handle{{Target: tc}, {Target: mc}}
	odd := red.NewDynamic("gameOddity")
	odd.Set("label", "String", "x")

	built := &codec.Package{
		Chunks:  []red.Class{ent, tc, mc, odd},
		RootIDs: []red.CRUID{10, 11, 12, 13},
		Imports: []red.Import{{DepotPath: `base\body.mesh`, Sync: true}},
	}
	data, err := codec.Encode(built, reg, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := codec.Decode(data, reg, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return pkg, reg
}

func TestSnapshot(t *testing.T) {
	pkg, reg := samplePackage(t)
	doc, err := Snapshot(pkg, reg)
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Chunks) != 4 || doc.Chunks[0].Type != "entEntity" || doc.Chunks[3].Type != "gameOddity" {
		t.Fatalf("chunks = %+v", doc.Chunks)
	}
	if !doc.Chunks[3].Dynamic || doc.Chunks[0].Dynamic {
		t.Error("dynamic flags wrong")
	}
	if doc.Chunks[2].Root == nil || *doc.Chunks[2].Root != 12 {
		t.Errorf("root = %v", doc.Chunks[2].Root)
	}

	components := doc.Chunks[0].Fields[0]
	if components.Name != "components" {
		t.Fatalf("first field = %s", components.Name)
	}
	if got := Format(components.Value); got != "[#1, #2]" {
		t.Errorf("components = %s", got)
	}

	var local any
	for _, f := range doc.Chunks[1].Fields {
		if f.Name == "localTransform" {
			local = f.Value
		}
	}
	m, ok := local.(map[string]any)
	if !ok || m["$type"] != "WorldTransform" {
		t.Fatalf("localTransform = %#v", local)
	}
	if pos := m["Position"].(map[string]any); pos["X"] != float32(2) {
		t.Errorf("Position = %v", pos)
	}

	for _, f := range doc.Chunks[2].Fields {
		if f.Name == "mesh" && Format(f.Value) != `@0(base\body.mesh)` {
			t.Errorf("mesh = %s", Format(f.Value))
		}
	}
}

func TestWriteText(t *testing.T) {
	pkg, reg := samplePackage(t)
	doc, err := Snapshot(pkg, reg)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, doc); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"package v4, 7 sections",
		`[0] base\body.mesh sync`,
		"[0] entEntity root=10",
		"[3] gameOddity root=13 (dynamic)",
		"parentTransform: whandle:entITransformBinding = ~0",
		`label: String = "x"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSONAndCBOR(t *testing.T) {
	pkg, reg := samplePackage(t)
	doc, err := Snapshot(pkg, reg)
	if err != nil {
		t.Fatal(err)
	}

	var js bytes.Buffer
	if err := WriteJSON(&js, doc); err != nil {
		t.Fatal(err)
	}
	var back Document
	if err := json.Unmarshal(js.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Chunks) != 4 || back.Kind != "default" {
		t.Errorf("JSON document = %+v", back)
	}

	var a, b bytes.Buffer
	if err := WriteCBOR(&a, doc); err != nil {
		t.Fatal(err)
	}
	if err := WriteCBOR(&b, doc); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("CBOR output not deterministic")
	}
	var cb Document
	if err := serial.Unmarshal(a.Bytes(), &cb); err != nil {
		t.Fatal(err)
	}
	if len(cb.Names) != len(doc.Names) {
		t.Errorf("CBOR names = %d, want %d", len(cb.Names), len(doc.Names))
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"a", `"a"`},
		{uint32(5), "5"},
		{[]any{true, nil}, "[true, null]"},
		{map[string]any{"handle": 3, "weak": true}, "~3"},
		{map[string]any{"import": 1}, "@1"},
		{map[string]any{"$type": "V", "b": 1, "a": 2}, "V{a: 2, b: 1}"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNonFiniteFloats(t *testing.T) {
	odd := red.NewDynamic("gameOddity")
	odd.Set("nan", "Float", float32(math.NaN()))
	odd.Set("inf", "Double", math.Inf(1))
	odd.Set("neg", "Double", math.Inf(-1))
	odd.Set("one", "Float", float32(1.5))

	data, err := codec.Encode(&codec.Package{Chunks: []red.Class{odd}, RootIDs: []red.CRUID{1}}, nil, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := codec.Decode(data, nil, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Snapshot(pkg, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{"nan": "NaN", "inf": "+Inf", "neg": "-Inf", "one": float32(1.5)}
	for _, f := range doc.Chunks[0].Fields {
		if f.Value != want[f.Name] {
			t.Errorf("%s = %#v, want %#v", f.Name, f.Value, want[f.Name])
		}
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"NaN"`) {
		t.Errorf("JSON output:\n%s", buf.String())
	}
}
