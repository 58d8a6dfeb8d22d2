// Package query selects chunks of a decoded package with expr-lang
// expressions.
//
// Each chunk is evaluated against an environment with these variables:
//
//	index    int            table position
//	class    string         class name
//	dynamic  bool           true for classes the registry does not know
//	root     uint64         paired root id, 0 when hasRoot is false
//	hasRoot  bool
//	fields   map[string]any field values in dump.Plain form
//
// Expressions must evaluate to a bool, for example
//
//	class == "entMeshComponent" && fields.isEnabled
package query
