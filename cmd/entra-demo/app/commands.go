// Package app provides the commands of the entra-demo CLI.
package app

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vmdemo/entra-jwt-middleware/entraid"
)

// NewRootCmd creates the root command with its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "entra-demo",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Demo API protected by Microsoft Entra ID bearer tokens",
		Long: `entra-demo runs a small JSON API whose endpoints require a valid Entra ID
access token, and a client that obtains such a token with the client-credentials
flow and calls the API.

Configuration is read from the environment and from .env files:
AZURE_TENANT_ID and AZURE_CLIENT_ID enable authentication; without them the
server lets every request through.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Log as JSON")
	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files to load before reading the environment")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCallCmd())

	return rootCmd
}

func newLogger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if jsonLogs, _ := cmd.Flags().GetBool("json-logs"); jsonLogs {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func loadConfig(cmd *cobra.Command) (entraid.Config, error) {
	files, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return entraid.Config{}, err
	}
	return entraid.LoadConfig(files...)
}
