package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "menu-scout",
	Short: "Resolve restaurants to catalog pages and extract their offers",
	Long:  "Finds a restaurant's Swiggy page by name and location, renders it in headless Chrome, and extracts ratings, promo codes and offer items. Runs single lookups, bulk files, or an HTTP API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
