package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// Info summarises a drawing file
type Info struct {
	File          string         `json:"file"`
	Version       string         `json:"version"`
	Release       string         `json:"release"`
	Layout        string         `json:"layout"`
	CodePage      uint16         `json:"code_page"`
	Sections      map[string]int `json:"sections"`
	Classes       int            `json:"classes"`
	Handles       int            `json:"handles"`
	Objects       int            `json:"objects"`
	Types         map[string]int `json:"types"`
	Layers        []string       `json:"layers"`
	Notifications map[string]int `json:"notifications,omitempty"`
}

func inspect(cmd *cobra.Command, path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	c := notify.NewCollector()
	r := dwg.NewReader(readerConfig(cmd, c))
	ct, err := r.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err := r.Build(cmd.Context(), ct)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	v := ct.Header.Version
	info := &Info{
		File:          path,
		Version:       v.Tag(),
		Release:       v.Release(),
		Layout:        v.Layout().String(),
		CodePage:      ct.Header.CodePage,
		Sections:      make(map[string]int),
		Classes:       len(ct.Classes),
		Handles:       ct.Handles.Len(),
		Objects:       doc.Len(),
		Types:         make(map[string]int),
		Notifications: notificationCounts(c),
	}
	for name, data := range ct.Sections {
		info.Sections[name] = len(data)
	}
	doc.Walk(func(obj document.Object) bool {
		info.Types[document.TypeName(obj)]++
		return true
	})
	for _, l := range doc.Layers.Entries {
		info.Layers = append(info.Layers, l.Name)
	}
	sort.Strings(info.Layers)
	return info, nil
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show the structure of a drawing",
	Long: `Decode a drawing and print its version, sections, handle count and a
histogram of its object types.

Example:
  dwgkit info plan.dwg
  dwgkit info plan.dwg -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := inspect(cmd, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if outputFormat(cmd) == "json" {
			return outputJSON(out, info)
		}

		tw := newTable(out)
		fmt.Fprintf(tw, "File:\t%s\n", info.File)
		fmt.Fprintf(tw, "Version:\t%s (%s)\n", info.Version, info.Release)
		fmt.Fprintf(tw, "Layout:\t%s\n", info.Layout)
		fmt.Fprintf(tw, "Code page:\t%d\n", info.CodePage)
		fmt.Fprintf(tw, "Classes:\t%d\n", info.Classes)
		fmt.Fprintf(tw, "Handles:\t%d\n", info.Handles)
		fmt.Fprintf(tw, "Objects:\t%d\n", info.Objects)
		fmt.Fprintf(tw, "Layers:\t%v\n", info.Layers)
		tw.Flush()

		fmt.Fprintln(out)
		countsTable(out, "SECTION", info.Sections)
		fmt.Fprintln(out)
		countsTable(out, "TYPE", info.Types)
		if len(info.Notifications) > 0 {
			fmt.Fprintln(out)
			countsTable(out, "NOTIFICATION", info.Notifications)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
