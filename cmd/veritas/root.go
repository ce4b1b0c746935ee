package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/veritas/internal/config"
	"github.com/bryanwahyu/veritas/internal/logger"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "veritas",
	Short: "Product trustworthiness analyzer",
	Long: `veritas reads a product page or a screenshot, asks a language model how trustworthy
the product is, and reports a 0-100 score with red flags and review highlights.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

// loadConfig resolves the config file and applies the logging flags over it.
func loadConfig() (*config.Config, error) {
	path, err := config.ResolvePath(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	if err := logger.SetFormat(cfg.Log.Format); err != nil {
		return nil, err
	}
	logger.Log.WithField("config", path).Debug("[config] loaded")
	return cfg, nil
}
