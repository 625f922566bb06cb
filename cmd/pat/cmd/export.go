package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ACascarino/pat/pkg/report"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Decode a meter download to long-format CSV",
	Long: `Decode a meter download and write one CSV line per decoded field,
suitable for pivoting in a spreadsheet. Pass "-" to read from stdin.

Example:
  pat export download.sss -o results.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openStream(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		outPath, _ := cmd.Flags().GetString("output")
		var out io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		return report.WriteCSV(out, newParser(in).Iterator())
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
