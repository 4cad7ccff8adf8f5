package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mrz-reader/internal/app"
	"mrz-reader/internal/config"
	apperrors "mrz-reader/internal/errors"
)

var (
	cfgFile  string
	logLevel string
	devLog   bool

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mrzscan",
	Short: "Read machine-readable zones from passports, ID cards and visas",
	Long: `mrzscan locates the machine-readable zone of a travel document image,
recognizes it with Tesseract, and validates every ICAO 9303 check digit.
TD1, TD2 and TD3 documents and MRV-A/MRV-B visas are supported.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if cmd.Flags().Changed("dev") {
			loaded.Log.Development = devLog
		}
		l, err := app.NewLogger(loaded.Log)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "invalid log settings")
		}
		cfg, logger = loaded, l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev", false, "human-readable console logs")
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
