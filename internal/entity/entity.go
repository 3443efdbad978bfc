package entity

// Kind classifies a descriptor field.
type Kind int

const (
	// Scalar is a stored column value.
	Scalar Kind = iota
	// Relation points at another entity (single- or list-valued).
	Relation
	// Computed is a derived value, neither stored nor a relation.
	Computed
)

// Field describes one projectable member of an entity type.
type Field struct {
	Name string
	Kind Kind
	// List marks a relation as list-valued.
	List bool
}

// Descriptor is the projection schema for one entity type, registered
// alongside the model instead of being discovered through reflection.
// Fields are ordered; projection output follows this order.
type Descriptor struct {
	// Collection is the entity's collection (table) name. It becomes the
	// root segment of every dotted visibility path.
	Collection string
	Fields     []Field
	// Defaults lists field names shown without an explicit show entry.
	// The identifier and audit timestamps are always treated as defaults.
	Defaults []string
	// Hidden lists field names never shown for this type, regardless of
	// show entries.
	Hidden []string
}

// HasField reports whether the descriptor declares a field with the given name.
func (d *Descriptor) HasField(name string) bool {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return true
		}
	}
	return false
}

// Entity is implemented by every projectable model.
//
// Field returns the current value for a declared field name. Relations
// return Entity (or untyped nil when absent); list relations return
// []Entity. Computed fields may return an Entity to be projected
// recursively, or any JSON-serializable value.
type Entity interface {
	Descriptor() *Descriptor
	Field(name string) any
}
