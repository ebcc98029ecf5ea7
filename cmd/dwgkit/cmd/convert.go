package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Re-encode a drawing, optionally for another version",
	Long: `Read a drawing and write it again. With --version the output targets
another version; objects of unimplemented types cannot cross versions and
are dropped with a warning.

Example:
  dwgkit convert plan.dwg plan-r2000.dwg --version R2000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := notify.NewCollector()
		doc, err := dwg.ReadFile(cmd.Context(), args[0], readerConfig(cmd, c))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		wc, err := container.WriterConfig()
		if err != nil {
			return err
		}
		wc.Notify = notify.Multi(wc.Notify, c.Handler())
		if v, _ := cmd.Flags().GetString("version"); v != "" {
			var target format.Version
			if err := target.UnmarshalText([]byte(v)); err != nil {
				return err
			}
			wc.Version = target
		}
		if drop, _ := cmd.Flags().GetBool("drop-unknown"); drop {
			wc.RetainUnknown = false
		}

		if err := dwg.WriteFile(cmd.Context(), args[1], doc, wc); err != nil {
			return fmt.Errorf("%s: %w", args[1], err)
		}

		target := wc.Version
		if target == format.VersionUnknown {
			target = doc.Version
		}
		cmd.Printf("Wrote %s (%s, %d objects, %d notifications)\n", args[1], target.Tag(), doc.Len(), c.Len())
		return nil
	},
}

func init() {
	convertCmd.Flags().String("version", "", "Target version tag or release (e.g. AC1015 or R2000)")
	convertCmd.Flags().Bool("drop-unknown", false, "Drop objects of unimplemented types")
	rootCmd.AddCommand(convertCmd)
}
