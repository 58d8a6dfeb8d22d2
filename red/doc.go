// Package red defines the value model of decoded packages: the Class
// interface implemented by every chunk and inline structure, the dynamic
// fallback class, handles, resource references and the textual type-name
// grammar used by field headers.
//
// # Type names
//
// Every serialized field carries its type as an interned string:
//
//	Bool Int8 Uint8 Int16 Uint16 Int32 Uint32 Int64 Uint64
//	Float Double CName String CRUID TweakDBID
//	array:<T>        u32 count followed by elements
//	handle:<Class>   strong reference to a chunk by index
//	whandle:<Class>  weak reference to a chunk by index
//	rRef:<Class>     resource reference by import index
//	raRef:<Class>    async resource reference by import index
//	<Class>          inline class body
//
// Static Go types describe their serialized fields with struct tags:
//
//	type Vector4 struct {
//		red.Base
//		X float32 `red:"X,Float"`
//	}
package red
