package red

// Class is implemented by every chunk and inline class value.
type Class interface {
	ClassName() string
}

// Serialized is implemented by static classes that embed Base.
type Serialized interface {
	Class
	RedBase() *Base
}

// Field is one serialized field: its name, its type name and its value.
type Field struct {
	Value any
	Name  string
	Type  string
}

// Slot records one serialized field position of a static class.
// Extra < 0 names a field of the static shape; otherwise it indexes Base.Extra.
type Slot struct {
	Name  string
	Extra int
}

// Base carries the serialization state of a static class: the order its
// fields appeared in and the fields its Go shape does not describe.
// Layout is nil for instances built in code, which serialize every shape
// field in declaration order.
type Base struct {
	Layout []Slot
	Extra  []Field
}

// RedBase returns b. Embedding Base makes a struct satisfy Serialized.
func (b *Base) RedBase() *Base {
	return b
}

// Dynamic is the open class variant used for type names the registry does
// not know. It keeps the original name and every field generically so the
// instance re-serializes unchanged.
type Dynamic struct {
	Name   string
	Fields []Field
}

// NewDynamic creates an empty dynamic instance of the named class.
func NewDynamic(name string) *Dynamic {
	return &Dynamic{Name: name}
}

// ClassName returns the original type name.
func (d *Dynamic) ClassName() string {
	return d.Name
}

// Get returns the value of the first field called name.
func (d *Dynamic) Get(name string) (any, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return d.Fields[i].Value, true
		}
	}
	return nil, false
}

// Set replaces the first field called name, or appends a new one.
func (d *Dynamic) Set(name, typ string, value any) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			d.Fields[i].Type = typ
			d.Fields[i].Value = value
			return
		}
	}
	d.Fields = append(d.Fields, Field{Name: name, Type: typ, Value: value})
}
