package classes

import "github.com/wippyai/redpkg/red"

type Vector4 struct {
	red.Base
	X float32 `red:"X,Float"`
	Y float32 `red:"Y,Float"`
	Z float32 `red:"Z,Float"`
	W float32 `red:"W,Float"`
}

func (*Vector4) ClassName() string { return "Vector4" }

type Quaternion struct {
	red.Base
	I float32 `red:"i,Float"`
	J float32 `red:"j,Float"`
	K float32 `red:"k,Float"`
	R float32 `red:"r,Float"`
}

func (*Quaternion) ClassName() string { return "Quaternion" }

// WorldTransform is a position plus orientation, stored inline.
type WorldTransform struct {
	red.Base
	Position    *Vector4    `red:"Position,Vector4"`
	Orientation *Quaternion `red:"Orientation,Quaternion"`
}

func (*WorldTransform) ClassName() string { return "WorldTransform" }
