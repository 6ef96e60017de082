package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	extractURL    string
	extractFormat string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract ratings, promo codes and offers from a catalog page",
	RunE: func(cmd *cobra.Command, args []string) error {
		if extractURL == "" {
			return eris.New("--url is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngines(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		facts := env.Extractor.Extract(ctx, extractURL)
		if err := printResult(cmd.OutOrStdout(), extractFormat, facts); err != nil {
			return err
		}
		if facts.Error != "" {
			return eris.New(facts.Error)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "restaurant page URL (required)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(extractCmd)
}
