// Package cli provides the command-line interface for gel-analyzer.
package cli

import (
	"fmt"
	"log/slog"
	"sync"

	"gel-analyzer/internal/config"
	"gel-analyzer/internal/image"
	"gel-analyzer/internal/version"

	"github.com/spf13/cobra"
)

// LoaderFunc reads an image file into an intensity grid.
type LoaderFunc func(path string) (*image.Grid, error)

var (
	// Global flags
	configPath string
	logLevel   string
	logFile    string

	// Loaded in PersistentPreRunE
	cfg     config.Config
	logger  *slog.Logger
	cleanup func() error

	loadersMu sync.RWMutex
	loaders   = map[string]LoaderFunc{"go": image.Load}
)

// RegisterLoader makes an image loader selectable by name.
func RegisterLoader(name string, fn LoaderFunc) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	loaders[name] = fn
}

func loader(name string) (LoaderFunc, error) {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	fn, ok := loaders[name]
	if !ok {
		return nil, fmt.Errorf("image loader %q is not available in this build", name)
	}
	return fn, nil
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gelanalyzer",
	Short: "Electrophoresis gel image analysis",
	Long: `gelanalyzer detects lanes and bands in electrophoresis gel images,
matches homologous bands across lanes, estimates molecular weights from a
reference ladder and builds a similarity tree over the lanes.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if logFile != "" {
			cfg.Logging.File = logFile
		}

		logger, cleanup = config.SetupLogger(cmd.ErrOrStderr(), cfg.Logging.File, config.ParseLogLevel(cfg.Logging.Level))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cleanup != nil {
			_ = cleanup()
			cleanup = nil
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(lanesCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(standardsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "gelanalyzer", version.String())
	},
}
