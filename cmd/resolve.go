package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	resolveName     string
	resolveLocation string
	resolveFormat   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Find the catalog page for one restaurant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveName == "" || resolveLocation == "" {
			return eris.New("--name and --location are required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngines(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		res := env.Resolver.Resolve(ctx, resolveName, resolveLocation)
		return printResult(cmd.OutOrStdout(), resolveFormat, res)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "restaurant name (required)")
	resolveCmd.Flags().StringVar(&resolveLocation, "location", "", "restaurant location (required)")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(resolveCmd)
}
