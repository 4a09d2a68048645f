package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/sensei-partner/cmd/sensei/commands"
	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sensei",
	Short: "Sensei partner API CLI",
	Long: `A command-line interface for the Sensei partner API.

Credentials are read from flags, SENSEI_* environment variables or
$HOME/.sensei/config.yml, in that order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.sensei/config.yml)")
	flags.String("api-url", "", "partner API base URL")
	flags.String("api-key", "", "partner API key")
	flags.String("token", "", "user bearer token")
	flags.String("tenant", "", "tenant slug for tenant-scoped resources")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "log requests and responses")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.Bool("no-retry", false, "do not retry rate limited requests")
	flags.Int("max-retries", constants.LowRetryMax, "maximum retries of a rate limited request")
	flags.Duration("timeout", constants.DefaultHTTPTimeout, "request timeout")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"config":       "config",
		"api_url":      "api-url",
		"api_key":      "api-key",
		"bearer_token": "token",
		"tenant":       "tenant",
		"output":       "output",
		"verbose":      "verbose",
		"insecure":     "insecure",
		"no_retry":     "no-retry",
		"max_retries":  "max-retries",
		"timeout":      "timeout",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewWhoamiCommand())
	rootCmd.AddCommand(commands.NewAPICommand())
	rootCmd.AddCommand(commands.NewProductsCommand())
	rootCmd.AddCommand(commands.NewUsersCommand())
	rootCmd.AddCommand(commands.NewPaymentsCommand())
	rootCmd.AddCommand(commands.NewWebhooksCommand())
	rootCmd.AddCommand(commands.NewMediaCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.sensei/config.yml
		viper.AddConfigPath(filepath.Join(home, ".sensei"))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// SENSEI_API_KEY, SENSEI_BEARER_TOKEN, SENSEI_API_URL, SENSEI_TENANT, ...
	viper.SetEnvPrefix("SENSEI")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
