package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/dwg"
)

type handleRow struct {
	Handle string `json:"handle"`
	Offset int64  `json:"offset"`
}

// handlesCmd represents the handles command
var handlesCmd = &cobra.Command{
	Use:   "handles <file>",
	Short: "List the handle map of a drawing",
	Long: `List every handle of a drawing with the offset of its object record.

Example:
  dwgkit handles plan.dwg --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		c, err := dwg.NewReader(readerConfig(cmd, nil)).Open(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		entries := c.Handles.Entries()
		if limit > 0 && limit < len(entries) {
			entries = entries[:limit]
		}
		rows := make([]handleRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, handleRow{Handle: fmt.Sprintf("%X", e.Handle), Offset: e.Offset})
		}

		out := cmd.OutOrStdout()
		if outputFormat(cmd) == "json" {
			return outputJSON(out, rows)
		}
		tw := newTable(out)
		defer tw.Flush()
		fmt.Fprintln(tw, "HANDLE\tOFFSET")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t0x%X\n", r.Handle, r.Offset)
		}
		return nil
	},
}

func init() {
	handlesCmd.Flags().Int("limit", 0, "Show at most this many handles (0 for all)")
	rootCmd.AddCommand(handlesCmd)
}
