package dwg_test

import (
	"context"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

func Example() {
	ctx := context.Background()

	doc := document.New(format.AC1018)
	line := &document.Line{End: bitstream.Vec3{X: 10}, Extrusion: bitstream.ZAxis}
	if err := doc.AddEntity(doc.ModelSpace, line); err != nil {
		panic(err)
	}

	data, err := dwg.NewWriter(dwg.WriterConfig{Version: format.AC1015}).Bytes(ctx, doc)
	if err != nil {
		panic(err)
	}

	got, err := dwg.NewReader(dwg.DefaultReaderConfig()).ReadBytes(ctx, data)
	if err != nil {
		panic(err)
	}
	read := got.ModelSpace.Entities[0].(*document.Line)
	fmt.Println(got.Version, read.End.X, read.Layer.Name)
	// Output: AC1015 10 0
}

func ExampleReaderConfig() {
	c := notify.NewCollector()
	cfg := dwg.DefaultReaderConfig()
	cfg.VerifyChecksums = false
	cfg.Notify = c.Handler()

	_, err := dwg.NewReader(cfg).ReadBytes(context.Background(), []byte("AC1009"))
	fmt.Println(err != nil, format.IsFatal(err))
	// Output: true true
}
