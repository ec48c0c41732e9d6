// Command server serves fraud risk decisions over HTTP.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	--port   HTTP port to listen on (default from config, 8080)
//	--model  Path to the model package (default from config, data/model.yaml)
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/config"
)

var cfg *config.Config

var (
	flagPort  int
	flagModel string
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve fraud risk decisions over HTTP",
	Long:  "Loads a model package, then evaluates transactions into ALLOW / CHALLENGE / BLOCK with an explanation and records threshold calibrations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		// PaaS platforms inject PORT; an explicit --port still wins.
		if envPort := os.Getenv("PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				cfg.Server.Port = p
			}
		}
		if flagPort != 0 {
			cfg.Server.Port = flagPort
		}
		if flagModel != "" {
			cfg.Model.Path = flagModel
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: runServer,
}

func init() {
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP port (default from config)")
	rootCmd.Flags().StringVar(&flagModel, "model", "", "model package path (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
