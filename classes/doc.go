// Package classes holds the statically known class shapes and builds the
// default registry from them. Any class name not listed here decodes as
// *red.Dynamic.
package classes
