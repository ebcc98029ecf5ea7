package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/query"
)

type queryRow struct {
	Handle string `json:"handle"`
	Type   string `json:"type"`
	Layer  string `json:"layer,omitempty"`
	Owner  string `json:"owner,omitempty"`
}

func rowOf(res query.QueryResult) queryRow {
	row := queryRow{Handle: fmt.Sprintf("%X", res.Handle), Type: document.TypeName(res.Object)}
	if owner := res.Object.Common().Owner; owner != nil {
		row.Owner = fmt.Sprintf("%X", owner.Common().Handle)
	}
	if e, ok := res.Object.(document.Entity); ok && e.EntityCommon().Layer != nil {
		row.Layer = e.EntityCommon().Layer.Name
	}
	return row
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <file> <condition> [<condition>]",
	Short: "Find objects by indexed field",
	Long: `Index a drawing by type, layer, owner, block, handle and color and list
the objects matching a condition. Two conditions on the same field form a
range. Handles are hexadecimal.

Examples:
  dwgkit query plan.dwg layer=WALLS
  dwgkit query plan.dwg type=LINE
  dwgkit query plan.dwg "handle>=0x40" "handle<0x80"`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := dwg.ReadFile(cmd.Context(), args[0], readerConfig(cmd, nil))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		engine, err := query.NewDocumentEngine(cmd.Context(), doc)
		if err != nil {
			return err
		}

		first, err := query.ParseQuery(args[1])
		if err != nil {
			return err
		}
		var it query.QueryIterator
		if len(args) == 3 {
			second, err := query.ParseQuery(args[2])
			if err != nil {
				return err
			}
			it, err = engine.ExecuteRangeQuery(cmd.Context(), first, second)
			if err != nil {
				return err
			}
		} else if it, err = engine.ExecuteQuery(cmd.Context(), first); err != nil {
			return err
		}

		var rows []queryRow
		for _, res := range query.Collect(it) {
			rows = append(rows, rowOf(res))
		}

		out := cmd.OutOrStdout()
		if outputFormat(cmd) == "json" {
			return outputJSON(out, rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No objects found")
			return nil
		}
		tw := newTable(out)
		defer tw.Flush()
		fmt.Fprintln(tw, "HANDLE\tTYPE\tLAYER\tOWNER")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Handle, r.Type, r.Layer, r.Owner)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
