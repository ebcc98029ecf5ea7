package sections

import (
	"fmt"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
)

// JulianDate is a TD value: a Julian day number and milliseconds into it.
type JulianDate struct {
	Day    int32
	Millis int32
}

const unixEpochJulianDay = 2440588

// NewJulianDate converts t to a JulianDate.
func NewJulianDate(t time.Time) JulianDate {
	t = t.UTC()
	days := t.Unix() / 86400
	rem := t.Sub(time.Unix(days*86400, 0).UTC())
	if rem < 0 {
		days--
		rem += 24 * time.Hour
	}
	return JulianDate{Day: int32(days + unixEpochJulianDay), Millis: int32(rem / time.Millisecond)}
}

// Time converts d to UTC time.
func (d JulianDate) Time() time.Time {
	secs := int64(d.Day-unixEpochJulianDay) * 86400
	return time.Unix(secs, 0).UTC().Add(time.Duration(d.Millis) * time.Millisecond)
}

// HeaderVars is the subset of drawing variables kept by the codec.
type HeaderVars struct {
	InsBase  bitstream.Vec3
	ExtMin   bitstream.Vec3
	ExtMax   bitstream.Vec3
	LimMin   bitstream.Vec2
	LimMax   bitstream.Vec2
	LTScale  float64
	TextSize float64
	Created  JulianDate
	Updated  JulianDate
	HandSeed uint64

	CurrentLayer    uint64
	TextStyle       uint64
	CurrentLineType uint64

	BlockControl    uint64
	LayerControl    uint64
	StyleControl    uint64
	LineTypeControl uint64
	ViewControl     uint64
	UCSControl      uint64
	VPortControl    uint64
	AppIDControl    uint64
	DimStyleControl uint64
	NamedObjects    uint64

	ByLayer    uint64
	ByBlock    uint64
	Continuous uint64
	ModelSpace uint64
	PaperSpace uint64
}

// DefaultHeaderVars returns the values of a new drawing.
func DefaultHeaderVars() *HeaderVars {
	return &HeaderVars{
		LimMax:   bitstream.Vec2{X: 12, Y: 9},
		LTScale:  1,
		TextSize: 0.2,
	}
}

// controls lists the table control and well-known handles in stream order.
func (h *HeaderVars) handles() []*uint64 {
	return []*uint64{
		&h.CurrentLayer, &h.TextStyle, &h.CurrentLineType,
		&h.BlockControl, &h.LayerControl, &h.StyleControl, &h.LineTypeControl,
		&h.ViewControl, &h.UCSControl, &h.VPortControl, &h.AppIDControl, &h.DimStyleControl,
		&h.NamedObjects,
		&h.ByLayer, &h.ByBlock, &h.Continuous,
		&h.ModelSpace, &h.PaperSpace,
	}
}

// EncodeHeaderVars writes the header variables section.
func EncodeHeaderVars(h *HeaderVars, v format.Version, cp *charmap.Charmap) []byte {
	w := bitstream.NewWriter(v)
	w.SetCodePage(cp)
	w.Point3Bit(h.InsBase)
	w.Point3Bit(h.ExtMin)
	w.Point3Bit(h.ExtMax)
	w.Point2Raw(h.LimMin)
	w.Point2Raw(h.LimMax)
	w.BitDouble(h.LTScale)
	w.BitDouble(h.TextSize)
	w.BitLong(h.Created.Day)
	w.BitLong(h.Created.Millis)
	w.BitLong(h.Updated.Day)
	w.BitLong(h.Updated.Millis)
	w.Handle(bitstream.HandleRef{Value: h.HandSeed})
	for _, p := range h.handles() {
		w.Handle(bitstream.HandleRef{Code: bitstream.RefHardPointer, Value: *p})
	}
	return wrap(format.HeaderVarsStart, w.Bytes())
}

// DecodeHeaderVars reads the header variables section.
func DecodeHeaderVars(data []byte, v format.Version, cp *charmap.Charmap, verifier *checksum.Verifier) (*HeaderVars, error) {
	payload, err := unwrap(format.SectionHeader, format.HeaderVarsStart, data, verifier)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(payload, v)
	r.SetCodePage(cp)
	h := &HeaderVars{
		InsBase:  r.Point3Bit(),
		ExtMin:   r.Point3Bit(),
		ExtMax:   r.Point3Bit(),
		LimMin:   r.Point2Raw(),
		LimMax:   r.Point2Raw(),
		LTScale:  r.BitDouble(),
		TextSize: r.BitDouble(),
	}
	h.Created = JulianDate{Day: r.BitLong(), Millis: r.BitLong()}
	h.Updated = JulianDate{Day: r.BitLong(), Millis: r.BitLong()}
	h.HandSeed = r.Handle().Value
	for _, p := range h.handles() {
		*p = r.Handle().Value
	}
	if err := r.Err(); err != nil {
		return nil, format.Corruption(format.SectionHeader, format.SentinelSize+4, fmt.Errorf("header variables: %w", err))
	}
	return h, nil
}
