// Package registry maps class names to constructible type descriptors.
//
// A Registry is built once from prototype values of static classes and is
// immutable afterwards, so concurrent decodes may share it. Names without a
// static descriptor resolve to a dynamic descriptor that constructs
// *red.Dynamic instances tagged with the original name:
//
//	reg, err := registry.New(&Vector4{}, &WorldTransform{})
//	desc, known := reg.Resolve("worldNodeInstance") // known == false, desc.Dynamic() == true
//
// Static shapes are compiled from `red:"name,Type"` struct tags. Go field
// types are checked against the type names when the registry is built, so
// decode never meets an incompatible field.
package registry
