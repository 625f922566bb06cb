package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ACascarino/pat/pkg/archive"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <file>",
	Short: "Decode a meter download and store it as a session",
	Long: `Decode a meter download and store the rows in the local session
archive, so they can be listed and re-read later.

Example:
  pat archive download.sss`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openStream(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer arc.Close()

		source := args[0]
		if source != "-" {
			source = filepath.Base(source)
		}
		session, err := arc.StoreSession(source, newParser(in))
		if err != nil {
			return err
		}

		fmt.Printf("stored session %s: %d rows from %s\n", session.ID, session.Rows, session.Source)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
