package dwg

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/ssargent/dwgkit/pkg/objects"
	"github.com/ssargent/dwgkit/pkg/sections"
)

func sampleDocument(t testing.TB, v format.Version) *document.Document {
	d := document.New(v)
	d.Header.ExtMax = bitstream.Vec3{X: 100, Y: 50}
	d.Header.Created = sections.NewJulianDate(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	walls := &document.Layer{Name: "WALLS", Color: bitstream.Color{Index: 3}, Plot: true, LineType: d.Continuous}
	require.NoError(t, d.Add(walls))
	d.Layers.Add(walls)

	door := &document.BlockRecord{Name: "DOOR"}
	require.NoError(t, d.Add(door))
	d.BlockRecords.Add(door)
	require.NoError(t, d.AddEntity(door, &document.Arc{Radius: 0.9, EndAngle: 1.57, Extrusion: bitstream.ZAxis}))
	require.NoError(t, d.AddEntity(door, &document.Line{End: bitstream.Vec3{X: 0.9}, Extrusion: bitstream.ZAxis}))

	for i := 0; i < 20; i++ {
		require.NoError(t, d.AddEntity(d.ModelSpace, &document.Line{
			EntityBase: document.EntityBase{Layer: walls, LineTypeScale: 1, Color: bitstream.Color{Index: bitstream.ByLayer}},
			Start:      bitstream.Vec3{X: float64(i), Y: 2},
			End:        bitstream.Vec3{X: float64(i) + 10, Y: 2},
			Extrusion:  bitstream.ZAxis,
		}))
	}
	require.NoError(t, d.AddEntity(d.ModelSpace, &document.Circle{Center: bitstream.Vec3{X: 5, Y: 5}, Radius: 2, Extrusion: bitstream.ZAxis}))
	require.NoError(t, d.AddEntity(d.ModelSpace, &document.Insert{
		Block:     door,
		Insertion: bitstream.Vec3{X: 3},
		Scale:     bitstream.Vec3{X: 1, Y: 1, Z: 1},
		Extrusion: bitstream.ZAxis,
	}))
	require.NoError(t, d.AddEntity(d.PaperSpace, &document.Text{
		Style:       d.CurrentStyle,
		Value:       "TITLE",
		Height:      2.5,
		WidthFactor: 1,
		Extrusion:   bitstream.ZAxis,
	}))
	require.NoError(t, d.AddEntity(d.ModelSpace, &document.LWPolyline{
		Flags:     document.LWPolylineClosed,
		Vertices:  []bitstream.Vec2{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}},
		Bulges:    []float64{0, 0.5, 0},
		Extrusion: bitstream.ZAxis,
	}))

	x := &document.XRecord{Items: []objects.XRecordItem{{Code: 1, Value: "note"}, {Code: 40, Value: 2.5}}}
	require.NoError(t, d.Add(x))
	d.NamedObjects.Set("NOTES", x)

	d.Sections[format.SectionPreview] = []byte("PNGDATA")
	return d
}

// shape describes a document by handle for structural comparison.
func shape(d *document.Document) map[uint64]string {
	out := make(map[uint64]string)
	for _, o := range d.Objects() {
		c := o.Common()
		s := fmt.Sprintf("%s owner=%x", document.TypeName(o), handleOf(c.Owner))
		if e, ok := o.(document.Entity); ok {
			eb := e.EntityCommon()
			s += fmt.Sprintf(" layer=%x ltype=%x color=%d", eb.Layer.Handle, eb.LineType.Handle, eb.Color.Index)
		}
		switch v := o.(type) {
		case *document.Line:
			s += fmt.Sprintf(" %v %v", v.Start, v.End)
		case *document.Arc:
			s += fmt.Sprintf(" %v %g %g", v.Center, v.Radius, v.EndAngle)
		case *document.Circle:
			s += fmt.Sprintf(" %v %g", v.Center, v.Radius)
		case *document.Text:
			s += fmt.Sprintf(" %q %g", v.Value, v.Height)
			if v.Style != nil {
				s += fmt.Sprintf(" style=%x", v.Style.Handle)
			}
		case *document.Insert:
			s += fmt.Sprintf(" block=%x %v", v.Block.Handle, v.Insertion)
		case *document.LWPolyline:
			s += fmt.Sprintf(" %d %v %v", v.Flags, v.Vertices, v.Bulges)
		case *document.BlockRecord:
			s += fmt.Sprintf(" %s", v.Name)
			for _, e := range v.Entities {
				s += fmt.Sprintf(" %x", e.Common().Handle)
			}
		case *document.Layer:
			s += fmt.Sprintf(" %s lt=%x", v.Name, v.LineType.Handle)
		case *document.Dictionary:
			for _, e := range v.Entries {
				s += fmt.Sprintf(" %s=%x", e.Name, e.Object.Common().Handle)
			}
		case *document.XRecord:
			s += fmt.Sprintf(" %v", v.Items)
		}
		out[c.Handle] = s
	}
	return out
}

func handleOf(o document.Object) uint64 {
	if o == nil {
		return 0
	}
	return o.Common().Handle
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, v := range format.Versions() {
		t.Run(v.Tag(), func(t *testing.T) {
			doc := sampleDocument(t, v)
			c := notify.NewCollector()
			data, err := NewWriter(WriterConfig{RetainUnknown: true, Notify: c.Handler()}).Bytes(ctx, doc)
			require.NoError(t, err)
			assert.Equal(t, v.Tag(), string(data[:6]))

			got, err := NewReader(ReaderConfig{VerifyChecksums: true, RetainUnknown: true, Notify: c.Handler()}).ReadBytes(ctx, data)
			require.NoError(t, err)

			assert.Zero(t, c.Count(notify.KindMissingReference))
			assert.Zero(t, c.Count(notify.KindTypeMismatch))
			assert.Zero(t, c.Count(notify.KindChecksum))
			assert.Equal(t, v, got.Version)
			assert.Equal(t, doc.Len(), got.Len())
			assert.Equal(t, shape(doc), shape(got))

			assert.Equal(t, doc.Header.ExtMax, got.Header.ExtMax)
			assert.Equal(t, doc.Header.Created, got.Header.Created)
			assert.Equal(t, []byte("PNGDATA"), got.Sections[format.SectionPreview])
			assert.Len(t, got.ModelSpace.Entities, 23)
		})
	}
}

func TestConvertAcrossVersions(t *testing.T) {
	ctx := context.Background()
	doc := sampleDocument(t, format.AC1015)
	for _, v := range []format.Version{format.AC1018, format.AC1021, format.AC1032, format.AC1012} {
		data, err := NewWriter(WriterConfig{Version: v}).Bytes(ctx, doc)
		require.NoError(t, err, v)

		got, err := NewReader(DefaultReaderConfig()).ReadBytes(ctx, data)
		require.NoError(t, err, v)
		assert.Equal(t, v, got.Version)
		assert.Equal(t, shape(doc), shape(got), v)
		doc = got
	}
}

func TestRawRecordsDroppedAcrossVersions(t *testing.T) {
	ctx := context.Background()
	doc := sampleDocument(t, format.AC1018)
	raw := &document.UnknownEntity{RawRecord: document.RawRecord{Code: objects.TypeSpline, Data: []byte{0x01}, Version: format.AC1018}}
	require.NoError(t, doc.AddEntity(doc.ModelSpace, raw))

	c := notify.NewCollector()
	data, err := NewWriter(WriterConfig{Version: format.AC1015, RetainUnknown: true, Notify: c.Handler()}).Bytes(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count(notify.KindNotSupported))

	got, err := NewReader(DefaultReaderConfig()).ReadBytes(ctx, data)
	require.NoError(t, err)
	_, ok := got.Lookup(raw.Handle)
	assert.False(t, ok)
	assert.Len(t, got.ModelSpace.Entities, 23)
}

func TestOpaqueSections(t *testing.T) {
	ctx := context.Background()
	summary := bytes.Repeat([]byte{0x5A}, 300)

	tests := []struct {
		version format.Version
		kept    bool
	}{
		{format.AC1015, false},
		{format.AC1018, true},
		{format.AC1021, true},
		{format.AC1027, true},
	}
	for _, tt := range tests {
		t.Run(tt.version.Tag(), func(t *testing.T) {
			doc := sampleDocument(t, tt.version)
			doc.Sections[format.SectionSummaryInfo] = summary

			c := notify.NewCollector()
			data, err := NewWriter(WriterConfig{Notify: c.Handler()}).Bytes(ctx, doc)
			require.NoError(t, err)
			got, err := NewReader(DefaultReaderConfig()).ReadBytes(ctx, data)
			require.NoError(t, err)

			if tt.kept {
				assert.Equal(t, summary, got.Sections[format.SectionSummaryInfo])
				assert.Zero(t, c.Count(notify.KindNotSupported))
			} else {
				assert.NotContains(t, got.Sections, format.SectionSummaryInfo)
				assert.Equal(t, 1, c.Count(notify.KindNotSupported))
			}
			assert.Equal(t, []byte("PNGDATA"), got.Sections[format.SectionPreview])
		})
	}
}

// recordCRC returns the file offset of the CRC of the first indexed record
// of a flat file.
func recordCRC(t *testing.T, data []byte) int {
	c, err := NewReader(DefaultReaderConfig()).Open(data)
	require.NoError(t, err)
	entries := c.Handles.Entries()
	require.NotEmpty(t, entries)
	off := int(entries[0].Offset)
	r := bitstream.NewReader(data[off:], c.Header.Version)
	size := int(r.ModularShort())
	return off + r.Position()/8 + size
}

func TestRecordChecksum(t *testing.T) {
	ctx := context.Background()
	data, err := NewWriter(WriterConfig{}).Bytes(ctx, sampleDocument(t, format.AC1015))
	require.NoError(t, err)
	data[recordCRC(t, data)] ^= 0xFF

	t.Run("strict", func(t *testing.T) {
		_, err := NewReader(ReaderConfig{VerifyChecksums: true}).ReadBytes(ctx, data)
		require.Error(t, err)
		assert.ErrorIs(t, err, format.ErrChecksumMismatch)
		assert.ErrorIs(t, err, format.ErrCorrupt)
		assert.True(t, format.IsFatal(err))
	})

	t.Run("lenient", func(t *testing.T) {
		c := notify.NewCollector()
		doc, err := NewReader(ReaderConfig{RetainUnknown: true, Notify: c.Handler()}).ReadBytes(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Count(notify.KindChecksum))
		assert.Len(t, doc.ModelSpace.Entities, 23)
	})
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()
	valid, err := NewWriter(WriterConfig{}).Bytes(ctx, sampleDocument(t, format.AC1018))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, format.ErrTruncated},
		{"short tag", []byte("AC10"), format.ErrTruncated},
		{"old version", append([]byte("AC1009"), make([]byte, 0x100)...), format.ErrUnsupportedVersion},
		{"unknown tag", append([]byte("XX1234"), make([]byte, 0x100)...), format.ErrUnsupportedVersion},
		{"truncated body", valid[:0x200], format.ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewReader(DefaultReaderConfig()).ReadBytes(ctx, tt.data)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadHonoursContext(t *testing.T) {
	data, err := NewWriter(WriterConfig{}).Bytes(context.Background(), sampleDocument(t, format.AC1024))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReader(DefaultReaderConfig()).ReadBytes(ctx, data)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewWriter(WriterConfig{}).Bytes(ctx, sampleDocument(t, format.AC1024))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteUnsupportedVersion(t *testing.T) {
	_, err := NewWriter(WriterConfig{Version: format.Version(999)}).Bytes(context.Background(), document.New(format.AC1018))
	assert.ErrorIs(t, err, format.ErrUnsupportedVersion)
}

func TestConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	data, err := NewWriter(WriterConfig{}).Bytes(ctx, sampleDocument(t, format.AC1032))
	require.NoError(t, err)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			doc, err := NewReader(DefaultReaderConfig()).ReadBytes(ctx, data)
			if err != nil {
				return err
			}
			if n := len(doc.ModelSpace.Entities); n != 23 {
				return fmt.Errorf("session %d: %d entities", i, n)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestFiles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sample.dwg")
	doc := sampleDocument(t, format.AC1027)
	require.NoError(t, WriteFile(ctx, path, doc, WriterConfig{}))

	got, err := ReadFile(ctx, path, DefaultReaderConfig())
	require.NoError(t, err)
	assert.Equal(t, shape(doc), shape(got))

	_, err = ReadFile(ctx, filepath.Join(t.TempDir(), "missing.dwg"), DefaultReaderConfig())
	assert.Error(t, err)
}

func TestOpenContainer(t *testing.T) {
	doc := sampleDocument(t, format.AC1021)
	data, err := NewWriter(WriterConfig{}).Bytes(context.Background(), doc)
	require.NoError(t, err)

	c, err := NewReader(DefaultReaderConfig()).Open(data)
	require.NoError(t, err)
	assert.Equal(t, format.AC1021, c.Header.Version)
	assert.Equal(t, doc.Len(), c.Handles.Len())
	assert.Equal(t, doc.ModelSpace.Handle, c.Vars.ModelSpace)
	assert.Contains(t, c.Sections, format.SectionObjects)
	assert.Equal(t, []byte("PNGDATA"), c.Opaque(nil)[format.SectionPreview])
}

func TestHandleBoundsSurviveRewrite(t *testing.T) {
	ctx := context.Background()
	doc := sampleDocument(t, format.AC1018)
	doc.HandleBounds = []int{5, 7}

	data, err := NewWriter(WriterConfig{}).Bytes(ctx, doc)
	require.NoError(t, err)
	c, err := NewReader(DefaultReaderConfig()).Open(data)
	require.NoError(t, err)
	bounds := c.Handles.Bounds()
	require.Equal(t, []int{5, 7, doc.Len() - 12}, bounds)

	got, err := NewReader(DefaultReaderConfig()).ReadBytes(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, bounds, got.HandleBounds)

	again, err := NewWriter(WriterConfig{}).Bytes(ctx, got)
	require.NoError(t, err)
	c, err = NewReader(DefaultReaderConfig()).Open(again)
	require.NoError(t, err)
	assert.Equal(t, bounds, c.Handles.Bounds())

	converted, err := NewWriter(WriterConfig{Version: format.AC1015}).Bytes(ctx, got)
	require.NoError(t, err)
	c, err = NewReader(DefaultReaderConfig()).Open(converted)
	require.NoError(t, err)
	assert.Equal(t, []int{doc.Len()}, c.Handles.Bounds())
}

func TestReadMutatedFiles(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	cfg := DefaultReaderConfig()
	cfg.VerifyChecksums = false

	for _, v := range []format.Version{format.AC1015, format.AC1018, format.AC1021} {
		t.Run(v.Tag(), func(t *testing.T) {
			data, err := NewWriter(WriterConfig{}).Bytes(ctx, sampleDocument(t, v))
			require.NoError(t, err)

			for i := 0; i < 300; i++ {
				bad := bytes.Clone(data)
				for n := 1 + rng.Intn(4); n > 0; n-- {
					bad[rng.Intn(len(bad))] ^= byte(1 + rng.Intn(255))
				}
				require.NotPanics(t, func() {
					_, _ = NewReader(cfg).ReadBytes(ctx, bad)
				}, "mutation %d", i)
			}
		})
	}
}
