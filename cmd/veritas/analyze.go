package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/veritas/internal/application/session"
	domain "github.com/bryanwahyu/veritas/internal/domain/analysis"
	"github.com/bryanwahyu/veritas/internal/middleware"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single product and print the report as JSON",
}

var analyzeURLCmd = &cobra.Command{
	Use:   "url <product-url>",
	Short: "Analyze a product page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := middleware.ValidateURL(args[0]); err != nil {
			return err
		}
		return runAnalysis(cmd, domain.URLRequest{URL: args[0]})
	},
}

var analyzeImageCmd = &cobra.Command{
	Use:   "image <screenshot-file>",
	Short: "Analyze a screenshot of a product listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return runAnalysis(cmd, domain.ImageRequest{
			Data: data,
			MIME: mime.TypeByExtension(filepath.Ext(args[0])),
		})
	},
}

func runAnalysis(cmd *cobra.Command, req domain.Request) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.service.Analyze(ctx, session.New(""), req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func init() {
	analyzeCmd.AddCommand(analyzeURLCmd, analyzeImageCmd)
	rootCmd.AddCommand(analyzeCmd)
}
