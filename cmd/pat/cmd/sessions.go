package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ACascarino/pat/pkg/archive"
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Work with archived decode sessions",
}

// sessionsListCmd represents the sessions list command
var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer arc.Close()

		sessions, err := arc.Sessions()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions stored")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s  %d rows  v%d  %s\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Rows, s.Version, s.Source)
		}
		return nil
	},
}

// sessionsRowsCmd represents the sessions rows command
var sessionsRowsCmd = &cobra.Command{
	Use:   "rows <id>",
	Short: "Print an archived session's decoded rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer arc.Close()

		rows, err := arc.SessionRows(args[0])
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.HasTest() {
				fmt.Printf("record %d test %d  %s  %s\n", row.Record, row.Test, row.Label, row.Fields)
			} else {
				fmt.Printf("record %d  %s  %s\n", row.Record, row.Label, row.Fields)
			}
		}
		return nil
	},
}

// sessionsDeleteCmd represents the sessions delete command
var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer arc.Close()

		if err := arc.DeleteSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRowsCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
