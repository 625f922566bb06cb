package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ACascarino/pat/pkg/report"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Decode a meter download and print each row",
	Long: `Decode a meter download and print one line per decoded sub-record.
Pass "-" to read the stream from stdin.

Example:
  pat dump download.sss`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openStream(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		return report.WriteText(os.Stdout, newParser(in).Iterator())
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
