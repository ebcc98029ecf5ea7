// Package dwg reads and writes complete drawing files.
//
// A Reader decodes one file per call: the file header and section directory,
// every section eagerly, the header variables, classes and handle index, and
// then each object record in handle order into a builder that resolves the
// object graph. A Writer does the reverse for any supported version.
//
// Readers and Writers hold no state between calls, so distinct sessions may
// run on separate goroutines. Cancellation is observed between object
// records.
//
//	doc, err := dwg.NewReader(dwg.DefaultReaderConfig()).Read(ctx, f)
//	if err != nil {
//		return err
//	}
//	err = dwg.NewWriter(dwg.WriterConfig{Version: format.AC1018}).Write(ctx, out, doc)
package dwg
