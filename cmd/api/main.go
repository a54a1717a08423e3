package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// @title Coffee Shop API
// @version 1.0
// @description API for placing and managing coffee orders
// @host localhost:8080
// @BasePath /
func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "coffeeshop",
		Short:         "Coffee shop order manager",
		Long:          "coffeeshop serves the order pages and JSON API, and manages the order database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "coffeeshop.yaml", "path to the YAML config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newMenuCmd(&configPath))
	cmd.AddCommand(newOrdersCmd(&configPath))
	return cmd
}
