// Package snapshot serialises a document graph as deterministic CBOR. Two
// snapshots of equal documents are byte-identical, so a snapshot doubles as
// a content fingerprint of a drawing.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/ssargent/dwgkit/pkg/builder"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/notify"
)

var encOptions = cbor.EncOptions{
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloatNone,
	Time:          cbor.TimeUnix,
	TimeTag:       cbor.EncTagNone,
	IndefLength:   cbor.IndefLengthForbidden,
	BigIntConvert: cbor.BigIntConvertShortest,
}

var em, _ = encOptions.EncMode()

var decOptions = cbor.DecOptions{
	MaxArrayElements: 1 << 20,
	MaxMapPairs:      1 << 16,
	MaxNestedLevels:  32,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	BignumTag:        cbor.BignumTagForbidden,
	TimeTag:          cbor.DecTagIgnored,
}

var dm, _ = decOptions.DecMode()

// Snapshot is the serialised form of a document.
type Snapshot struct {
	Version  string            `cbor:"1,keyasint"`
	Classes  []Class           `cbor:"2,keyasint,omitempty"`
	Objects  []Object          `cbor:"3,keyasint"`
	Sections map[string][]byte `cbor:"4,keyasint,omitempty"`
}

// Class is one custom class definition.
type Class struct {
	Number  uint16 `cbor:"1,keyasint"`
	DXFName string `cbor:"2,keyasint"`
	CppName string `cbor:"3,keyasint,omitempty"`
	AppName string `cbor:"4,keyasint,omitempty"`
	Entity  bool   `cbor:"5,keyasint,omitempty"`
}

// Object is one record of the graph. References are handles.
type Object struct {
	Handle      uint64            `cbor:"1,keyasint"`
	Type        string            `cbor:"2,keyasint"`
	Owner       uint64            `cbor:"3,keyasint,omitempty"`
	Reactors    []uint64          `cbor:"4,keyasint,omitempty"`
	XDictionary uint64            `cbor:"5,keyasint,omitempty"`
	Entity      *Entity           `cbor:"6,keyasint,omitempty"`
	Fields      map[int]any       `cbor:"7,keyasint,omitempty"`
	Refs        map[int][]uint64  `cbor:"8,keyasint,omitempty"`
	Raw         []byte            `cbor:"9,keyasint,omitempty"`
	EED         map[uint64][]byte `cbor:"10,keyasint,omitempty"`
}

// Entity holds the common entity fields.
type Entity struct {
	Mode       byte    `cbor:"1,keyasint"`
	Layer      uint64  `cbor:"2,keyasint"`
	LineType   uint64  `cbor:"3,keyasint,omitempty"`
	Color      int16   `cbor:"4,keyasint"`
	RGB        uint32  `cbor:"5,keyasint,omitempty"`
	Scale      float64 `cbor:"6,keyasint"`
	Invisible  bool    `cbor:"7,keyasint,omitempty"`
	LineWeight byte    `cbor:"8,keyasint,omitempty"`
}

// Take captures doc. Objects without a handle are assigned one first.
func Take(doc *document.Document, h notify.Handler) (*Snapshot, error) {
	flat, err := builder.Flatten(doc, builder.FlattenOptions{Version: doc.Version, Notify: h})
	if err != nil {
		return nil, fmt.Errorf("failed to flatten document: %w", err)
	}

	s := &Snapshot{
		Version: doc.Version.Tag(),
		Objects: make([]Object, 0, len(flat.Templates)),
	}
	for _, c := range flat.Classes {
		s.Classes = append(s.Classes, Class{
			Number:  c.Number,
			DXFName: c.DXFName,
			CppName: c.CppName,
			AppName: c.AppName,
			Entity:  c.IsEntity(),
		})
	}
	for _, t := range flat.Templates {
		o := Object{
			Handle:      t.Handle,
			Type:        t.Name(),
			Owner:       t.Owner,
			Reactors:    t.Reactors,
			XDictionary: t.XDictionary,
			Raw:         t.Raw,
		}
		if len(t.Values) > 0 {
			o.Fields = t.Values
		}
		if len(t.Refs) > 0 {
			o.Refs = t.Refs
		}
		if len(t.EED) > 0 {
			o.EED = make(map[uint64][]byte, len(t.EED))
			for _, x := range t.EED {
				o.EED[x.AppID] = append(o.EED[x.AppID], x.Data...)
			}
		}
		if e := t.Entity; e != nil {
			o.Entity = &Entity{
				Mode:       e.Mode,
				Layer:      e.Layer,
				LineType:   e.LineType,
				Color:      e.Color.Index,
				RGB:        e.Color.RGB,
				Scale:      e.LineTypeScale,
				Invisible:  e.Invisible,
				LineWeight: e.LineWeight,
			}
		}
		s.Objects = append(s.Objects, o)
	}
	if len(doc.Sections) > 0 {
		s.Sections = doc.Sections
	}
	return s, nil
}

// Marshal encodes s.
func (s *Snapshot) Marshal() ([]byte, error) {
	data, err := em.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// WriteTo writes the encoded snapshot to w.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	data, err := s.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Digest returns the hex SHA-256 of the encoded snapshot.
func (s *Snapshot) Digest() (string, error) {
	data, err := s.Marshal()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Unmarshal decodes a snapshot. Field values come back as generic CBOR
// values.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := dm.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &s, nil
}
