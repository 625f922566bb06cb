package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ACascarino/pat/pkg/api"
	"github.com/ACascarino/pat/pkg/archive"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the decoder and session archive over HTTP",
	Long: `Start the HTTP decode service. Streams posted to /api/v1/decode are
decoded in place; /api/v1/sessions stores and lists archived sessions.
Prometheus metrics are exposed on /metrics.

Example:
  pat serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
		}

		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer arc.Close()

		return api.StartServer(arc, api.ServerConfig{
			Port:    cfg.Server.Port,
			Bind:    cfg.Server.Bind,
			APIKey:  cfg.Server.APIKey,
			Options: decodeOptions(),
		}, logger)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	rootCmd.AddCommand(serveCmd)
}
