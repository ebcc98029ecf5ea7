package document

import (
	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/objects"
)

// Default is the fallback for a reference of a given kind.
type Default int

const (
	DefaultNone Default = iota
	DefaultLayer
	DefaultByLayer
	DefaultByBlock
	DefaultContinuous
	DefaultTextStyle
	DefaultModelSpace
	DefaultPaperSpace
	DefaultApp
)

// Fallback returns the default object for kind. EnsureDefaults must have run.
func (d *Document) Fallback(kind Default) Object {
	switch kind {
	case DefaultLayer:
		return d.defaultLayer()
	case DefaultByLayer:
		return d.ByLayer
	case DefaultByBlock:
		return d.ByBlock
	case DefaultContinuous:
		return d.Continuous
	case DefaultTextStyle:
		if s, ok := d.TextStyles.Get(StandardName); ok {
			return s
		}
		return d.CurrentStyle
	case DefaultModelSpace:
		return d.ModelSpace
	case DefaultPaperSpace:
		return d.PaperSpace
	case DefaultApp:
		if a, ok := d.AppIDs.Get(ACADAppName); ok {
			return a
		}
	}
	return nil
}

// EnsureDefaults adds the entries every drawing needs when they are missing:
// layer 0, the ByLayer, ByBlock and Continuous line types, the Standard text
// style, the ACAD application id, model and paper space and the named objects
// dictionary. created, if non-nil, is called for each object added.
func (d *Document) EnsureDefaults(created func(Object)) error {
	add := func(obj Object) error {
		if err := d.Add(obj); err != nil {
			return err
		}
		if created != nil {
			created(obj)
		}
		return nil
	}

	lineType := func(name string, cur **LineType, desc string) error {
		if *cur != nil {
			return nil
		}
		if lt, ok := d.LineTypes.Get(name); ok {
			*cur = lt
			return nil
		}
		lt := &LineType{Name: name, Description: desc, Alignment: 'A'}
		if err := add(lt); err != nil {
			return err
		}
		d.LineTypes.Add(lt)
		*cur = lt
		return nil
	}
	if err := lineType(ByBlockName, &d.ByBlock, ""); err != nil {
		return err
	}
	if err := lineType(ByLayerName, &d.ByLayer, ""); err != nil {
		return err
	}
	if err := lineType(ContinuousName, &d.Continuous, "Solid line"); err != nil {
		return err
	}

	if _, ok := d.Layers.Get(DefaultLayerName); !ok {
		l := &Layer{Name: DefaultLayerName, Color: bitstream.Color{Index: 7}, Plot: true, LineType: d.Continuous}
		if err := add(l); err != nil {
			return err
		}
		d.Layers.Add(l)
	}
	if _, ok := d.TextStyles.Get(StandardName); !ok {
		s := &TextStyle{Name: StandardName, WidthFactor: 1, LastHeight: 0.2, Font: "txt"}
		if err := add(s); err != nil {
			return err
		}
		d.TextStyles.Add(s)
	}
	if _, ok := d.AppIDs.Get(ACADAppName); !ok {
		a := &AppID{Name: ACADAppName}
		if err := add(a); err != nil {
			return err
		}
		d.AppIDs.Add(a)
	}

	block := func(name string, cur **BlockRecord) error {
		if *cur != nil {
			return nil
		}
		if b, ok := d.BlockRecords.Get(name); ok {
			*cur = b
			return nil
		}
		b := &BlockRecord{Name: name}
		if err := add(b); err != nil {
			return err
		}
		d.BlockRecords.Add(b)
		*cur = b
		return nil
	}
	if err := block(ModelSpaceName, &d.ModelSpace); err != nil {
		return err
	}
	if err := block(PaperSpaceName, &d.PaperSpace); err != nil {
		return err
	}

	if d.NamedObjects == nil {
		d.NamedObjects = &Dictionary{}
		if err := add(d.NamedObjects); err != nil {
			return err
		}
	}

	if d.CurrentLayer == nil {
		d.CurrentLayer = d.defaultLayer()
	}
	if d.CurrentStyle == nil {
		d.CurrentStyle, _ = d.Fallback(DefaultTextStyle).(*TextStyle)
	}
	if d.CurrentLineType == nil {
		d.CurrentLineType = d.ByLayer
	}
	return nil
}

// TableFor returns the table control holding entries of type t, or nil.
func (d *Document) TableFor(t objects.Type) Object {
	switch t {
	case objects.TypeBlockHeader:
		return d.BlockRecords
	case objects.TypeLayer:
		return d.Layers
	case objects.TypeStyle:
		return d.TextStyles
	case objects.TypeLType:
		return d.LineTypes
	case objects.TypeAppID:
		return d.AppIDs
	}
	return nil
}
