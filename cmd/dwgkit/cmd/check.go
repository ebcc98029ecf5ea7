package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/notify"
	"golang.org/x/sync/errgroup"
)

// CheckResult is the outcome of checking one file
type CheckResult struct {
	File          string `json:"file"`
	Version       string `json:"version,omitempty"`
	Objects       int    `json:"objects"`
	Notifications int    `json:"notifications"`
	Error         string `json:"error,omitempty"`
}

// checkFiles reads every file in its own session, at most jobs at a time.
func checkFiles(cmd *cobra.Command, files []string, jobs int) ([]CheckResult, error) {
	results := make([]CheckResult, len(files))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			c := notify.NewCollector()
			res := CheckResult{File: file}
			doc, err := dwg.ReadFile(ctx, file, readerConfig(cmd, c))
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Version = doc.Version.Tag()
				res.Objects = doc.Len()
			}
			res.Notifications = c.Len()
			results[i] = res
			// Per-file failures stay in results.
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Verify that drawings decode cleanly",
	Long: `Decode every file concurrently and report failures and notification
counts. The command fails if any file cannot be read.

Example:
  dwgkit check *.dwg --jobs 8`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, _ := cmd.Flags().GetInt("jobs")
		if jobs < 1 {
			jobs = runtime.NumCPU()
		}

		results, err := checkFiles(cmd, args, jobs)
		if err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			if r.Error != "" {
				failed++
			}
		}

		out := cmd.OutOrStdout()
		if outputFormat(cmd) == "json" {
			if err := outputJSON(out, results); err != nil {
				return err
			}
		} else {
			tw := newTable(out)
			fmt.Fprintln(tw, "FILE\tSTATUS\tVERSION\tOBJECTS\tNOTIFICATIONS")
			for _, r := range results {
				status := "ok"
				if r.Error != "" {
					status = "FAIL: " + r.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.File, status, r.Version, r.Objects, r.Notifications)
			}
			tw.Flush()
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().IntP("jobs", "j", 0, "Files to check concurrently (default: number of CPUs)")
	rootCmd.AddCommand(checkCmd)
}
