package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/redpkg"
	"github.com/wippyai/redpkg/classes"
	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/collect"
	"github.com/wippyai/redpkg/red"
	"github.com/wippyai/redpkg/source"
)

func writePackage(t *testing.T, c source.Compression) string {
	t.Helper()
	reg, err := classes.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	mesh := &classes.MeshComponent{Name: "body", Mesh: &red.ResourceRef{Index: 0}, Enabled: true}
	ent := &classes.Entity{Components: []*red.Handle{{Target: mesh}}}
	odd := red.NewDynamic("gameOddity")
	odd.Set("count", "Uint32", uint32(3))
	pkg := &codec.Package{
		Chunks:  []red.Class{ent, mesh, odd},
		RootIDs: []red.CRUID{1, 2, 3},
		Imports: []red.Import{{DepotPath: `base\body.mesh`}},
	}
	path := filepath.Join(t.TempDir(), "entity.ent")
	if err := redpkg.Save(path, pkg, reg, codec.Options{}, c); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	path := writePackage(t, source.CompressionZstd)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"list", []string{"-l", path}, []string{"[0] entEntity root=1", "[2] gameOddity root=3 (dynamic)"}},
		{"text", []string{"--file", path}, []string{`[0] base\body.mesh`, "components: array:handle:entIComponent = [#1]"}},
		{"query", []string{"-l", "-q", "dynamic", path}, []string{"[2] gameOddity"}},
		{"roundtrip", []string{"--roundtrip", path}, []string{"roundtrip ok "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tt.args, &out); err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}

	t.Run("query excludes", func(t *testing.T) {
		var out bytes.Buffer
		if err := run([]string{"-l", "-q", "dynamic", path}, &out); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out.String(), "entEntity") {
			t.Errorf("unmatched chunk listed:\n%s", out.String())
		}
	})
}

func TestRunJSON(t *testing.T) {
	path := writePackage(t, source.CompressionLZ4)
	var out bytes.Buffer
	if err := run([]string{"--format", "json", "--compression", "lz4", path}, &out); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Chunks []struct {
			Type string `json:"type"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Chunks) != 3 || doc.Chunks[1].Type != "entMeshComponent" {
		t.Errorf("chunks = %+v", doc.Chunks)
	}
}

func TestRunOutputs(t *testing.T) {
	path := writePackage(t, source.CompressionNone)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "copy.ent")
	collPath := filepath.Join(dir, "pools.cbor")

	var out bytes.Buffer
	err := run([]string{"--out", outPath, "--out-compression", "zstd", "--collect", collPath, path}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output: %s", out.String())
	}

	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	copied, err := source.ReadFile(outPath, source.CompressionAuto)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(original, copied) {
		t.Error("re-encoded package differs from input")
	}

	f, err := os.Open(collPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, err := collect.ReadCBOR(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Imports) != 1 || data.Imports[0] != `base\body.mesh` {
		t.Errorf("collected imports = %v", data.Imports)
	}
}

func TestRunErrors(t *testing.T) {
	path := writePackage(t, source.CompressionNone)
	tests := []struct {
		name string
		args []string
	}{
		{"no file", nil},
		{"missing file", []string{filepath.Join(t.TempDir(), "none.ent")}},
		{"bad kind", []string{"--kind", "savegame", path}},
		{"bad format", []string{"--format", "xml", path}},
		{"bad query", []string{"-q", "class ==", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args, &bytes.Buffer{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInteractiveModel(t *testing.T) {
	pkg, reg, err := redpkg.Load(t.Context(), writePackage(t, source.CompressionNone), codec.Options{}, source.CompressionAuto)
	if err != nil {
		t.Fatal(err)
	}
	m := newInteractiveModel("entity.ent", pkg, reg)
	m.Update(m.Init()())
	if len(m.visible) != 3 {
		t.Fatalf("visible = %v", m.visible)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateFields || m.selected != 1 {
		t.Fatalf("state = %v, selected = %d", m.state, m.selected)
	}
	if view := m.View(); !strings.Contains(view, "isEnabled") {
		t.Errorf("fields view:\n%s", view)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m.input.SetValue("dynamic")
	m.Update(m.applyFilter())
	if len(m.visible) != 1 || m.visible[0] != 2 || m.selected != 0 {
		t.Errorf("filtered visible = %v, selected = %d", m.visible, m.selected)
	}

	m.input.SetValue("((")
	m.Update(m.applyFilter())
	if m.err == nil || len(m.visible) != 1 {
		t.Errorf("bad filter: err = %v, visible = %v", m.err, m.visible)
	}
}
