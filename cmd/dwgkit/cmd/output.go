package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ssargent/dwgkit/pkg/notify"
)

// outputJSON writes v as indented JSON
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a tabwriter for table output. Callers must Flush it.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// countsTable writes name/count pairs sorted by name
func countsTable(w io.Writer, title string, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := newTable(w)
	defer tw.Flush()
	fmt.Fprintf(tw, "%s\tCOUNT\n", title)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
	}
}

// notificationCounts groups notifications by kind
func notificationCounts(c *notify.Collector) map[string]int {
	out := make(map[string]int)
	for _, n := range c.All() {
		out[n.Kind.String()]++
	}
	return out
}
