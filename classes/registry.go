package classes

import (
	"github.com/wippyai/redpkg/red"
	"github.com/wippyai/redpkg/registry"
)

// All returns one prototype of every static class.
func All() []red.Class {
	return []red.Class{
		&Vector4{},
		&Quaternion{},
		&WorldTransform{},
		&Entity{},
		&TransformComponent{},
		&MeshComponent{},
		&HardTransformBinding{},
		&MeshAppearance{},
		&PlaybackOptionsUpdateData{},
		&InkanimPlaybackOptions{},
	}
}

// NewRegistry builds a registry of every static class. Build it once and
// share it; registries are safe for concurrent use.
func NewRegistry() (*registry.Registry, error) {
	return registry.New(All()...)
}
