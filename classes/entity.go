package classes

import "github.com/wippyai/redpkg/red"

// Entity owns its components through strong handles.
type Entity struct {
	red.Base
	Components []*red.Handle `red:"components,array:handle:entIComponent"`
	Tags       []red.CName   `red:"tags,array:CName"`
}

func (*Entity) ClassName() string { return "entEntity" }

// TransformComponent points back at its parent binding with a weak handle;
// the parent is usually decoded after the child.
type TransformComponent struct {
	red.Base
	Name            red.CName       `red:"name,CName"`
	ID              red.CRUID       `red:"id,CRUID"`
	ParentTransform *red.WeakHandle `red:"parentTransform,whandle:entITransformBinding"`
	LocalTransform  *WorldTransform `red:"localTransform,WorldTransform"`
}

func (*TransformComponent) ClassName() string { return "entTransformComponent" }

type MeshComponent struct {
	red.Base
	Name            red.CName        `red:"name,CName"`
	ID              red.CRUID        `red:"id,CRUID"`
	ParentTransform *red.Handle      `red:"parentTransform,handle:entITransformBinding"`
	Mesh            *red.ResourceRef `red:"mesh,raRef:CMesh"`
	MeshAppearance  red.CName        `red:"meshAppearance,CName"`
	Enabled         bool             `red:"isEnabled,Bool"`
}

func (*MeshComponent) ClassName() string { return "entMeshComponent" }

type HardTransformBinding struct {
	red.Base
	BindName red.CName `red:"bindName,CName"`
	SlotName red.CName `red:"slotName,CName"`
	Enabled  bool      `red:"enabled,Bool"`
}

func (*HardTransformBinding) ClassName() string { return "entHardTransformBinding" }

type MeshAppearance struct {
	red.Base
	Name           red.CName   `red:"name,CName"`
	ChunkMaterials []red.CName `red:"chunkMaterials,array:CName"`
}

func (*MeshAppearance) ClassName() string { return "meshMeshAppearance" }
