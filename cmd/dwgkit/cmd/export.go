package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/snapshot"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the document graph as CBOR",
	Long: `Decode a drawing and write a deterministic CBOR snapshot of its object
graph. Equal documents produce byte-identical snapshots; the SHA-256 digest
of the snapshot is printed.

Example:
  dwgkit export plan.dwg --out plan.cbor`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".cbor"
		}

		rc := readerConfig(cmd, nil)
		doc, err := dwg.ReadFile(cmd.Context(), args[0], rc)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		snap, err := snapshot.Take(doc, rc.Notify)
		if err != nil {
			return err
		}
		data, err := snap.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		digest, err := snap.Digest()
		if err != nil {
			return err
		}
		cmd.Printf("Wrote %s (%d objects, %d bytes)\nsha256:%s\n", out, len(snap.Objects), len(data), digest)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "Snapshot path (default: input with .cbor extension)")
	rootCmd.AddCommand(exportCmd)
}
