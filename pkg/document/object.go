package document

import (
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/objects"
)

// Object is any persisted object of a drawing.
type Object interface {
	Common() *ObjectBase
	Type() objects.Type
}

// ExtendedData is a block of application data attached to an object.
type ExtendedData struct {
	App  *AppID
	Data []byte
}

// ObjectBase holds what every object has.
type ObjectBase struct {
	Handle uint64
	// Owner is a back-reference and does not imply ownership of the target.
	// It is nil for objects owned by the document itself.
	Owner       Object
	Reactors    []Object
	XDictionary *Dictionary
	EED         []ExtendedData
}

// Common returns the shared object fields.
func (o *ObjectBase) Common() *ObjectBase { return o }

// Dictionary maps names to objects, in insertion order.
type Dictionary struct {
	ObjectBase
	Entries      []DictionaryEntry
	CloningFlags int
	HardOwner    bool
}

// DictionaryEntry is one named member of a Dictionary.
type DictionaryEntry struct {
	Name   string
	Object Object
}

func (*Dictionary) Type() objects.Type { return objects.TypeDictionary }

// Get returns the entry named name.
func (d *Dictionary) Get(name string) (Object, bool) {
	for _, e := range d.Entries {
		if e.Name == name {
			return e.Object, true
		}
	}
	return nil, false
}

// Set adds or replaces the entry named name and makes d its owner.
func (d *Dictionary) Set(name string, obj Object) {
	obj.Common().Owner = d
	for i, e := range d.Entries {
		if e.Name == name {
			d.Entries[i].Object = obj
			return
		}
	}
	d.Entries = append(d.Entries, DictionaryEntry{Name: name, Object: obj})
}

// XRecord holds arbitrary tagged application data.
type XRecord struct {
	ObjectBase
	Items        []objects.XRecordItem
	CloningFlags int
}

func (*XRecord) Type() objects.Type { return objects.TypeXRecord }

// RawRecord is an undecoded record kept for write-back. It can only be
// written to the version it was read from.
type RawRecord struct {
	Code       objects.Type
	Class      *objects.Class
	Data       []byte
	HandleBits int
	Version    format.Version
}

// Name returns the DXF name of the record's type.
func (r *RawRecord) Name() string {
	if r.Class != nil && r.Class.DXFName != "" {
		return r.Class.DXFName
	}
	return r.Code.Name()
}

// UnknownObject is a non-graphical object of an unimplemented type.
type UnknownObject struct {
	ObjectBase
	RawRecord
}

func (u *UnknownObject) Type() objects.Type { return u.Code }

// UnknownEntity is an entity of an unimplemented type. Its common entity
// fields are decoded; the rest is kept raw.
type UnknownEntity struct {
	EntityBase
	RawRecord
}

func (u *UnknownEntity) Type() objects.Type { return u.Code }

// TypeName returns the DXF name of obj's type.
func TypeName(obj Object) string {
	switch o := obj.(type) {
	case *UnknownObject:
		return o.Name()
	case *UnknownEntity:
		return o.Name()
	}
	return obj.Type().Name()
}

// IsRaw reports whether obj is kept as an undecoded record.
func IsRaw(obj Object) bool {
	switch obj.(type) {
	case *UnknownObject, *UnknownEntity:
		return true
	}
	return false
}
