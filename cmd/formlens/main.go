package main

import (
	"os"

	"github.com/spf13/cobra"

	"formlens/internal/interfaces/cli/migrate"
	"formlens/internal/interfaces/cli/server"
	"formlens/internal/interfaces/cli/testemail"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "formlens",
		Short: "Formlens - usage metering and subscription entitlement service",
		Long:  `Formlens meters team usage against plan limits and keeps subscription state in sync with the billing provider.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		testemail.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
