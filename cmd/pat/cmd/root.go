package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ACascarino/pat/pkg/config"
	"github.com/ACascarino/pat/pkg/observability"
	"github.com/ACascarino/pat/pkg/sss"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pat",
	Short: "pat - Seaward SSS test result decoder",
	Long: `pat decodes the binary download format produced by Seaward and
Clare portable appliance testers, and can archive decoded sessions
or serve the decoder over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		var err error
		logger, err = observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ~/.config/pat/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Float64("current-scale", 0, "Amps-per-unit factor for current and leakage values (0 leaves raw units)")
	rootCmd.PersistentFlags().Float64("insulation-cap", 0, "Display cap for insulation resistance in megaohms (0 disables)")
}

// loadConfig layers the config file under any command-line overrides.
func loadConfig(cmd *cobra.Command) error {
	path := cfgFile
	if path == "" {
		path = config.GetDefaultConfigPath()
		if !config.ConfigExists(path) {
			cfg = config.DefaultConfig()
			applyFlagOverrides(cmd)
			return nil
		}
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	cfg = loaded
	applyFlagOverrides(cmd)
	return nil
}

func applyFlagOverrides(cmd *cobra.Command) {
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("current-scale") {
		cfg.Decode.CurrentScale, _ = cmd.Flags().GetFloat64("current-scale")
	}
	if cmd.Flags().Changed("insulation-cap") {
		cfg.Decode.InsulationCapMohm, _ = cmd.Flags().GetFloat64("insulation-cap")
	}
}

func decodeOptions() sss.DecodeOptions {
	return sss.DecodeOptions{
		CurrentScale:      cfg.Decode.CurrentScale,
		InsulationCapMohm: cfg.Decode.InsulationCapMohm,
	}
}

// openStream opens a meter download for reading. "-" means stdin.
func openStream(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	return f, nil
}

func newParser(r io.Reader) *sss.Parser {
	return sss.NewParser(r, sss.ParserConfig{
		Logger:  logger,
		Options: decodeOptions(),
	})
}
