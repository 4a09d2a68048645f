package commands

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/pkg/partner"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// clientSettings collects the SDK settings from flags, environment and the config file.
func clientSettings() map[string]any {
	settings := map[string]any{
		"api_key":             viper.GetString("api_key"),
		"bearer_token":        viper.GetString("bearer_token"),
		"base_url":            viper.GetString("api_url"),
		"tenant":              viper.GetString("tenant"),
		"verify_ssl":          !viper.GetBool("insecure"),
		"retry_on_rate_limit": !viper.GetBool("no_retry"),
	}

	if viper.IsSet("max_retries") {
		settings["max_retries"] = viper.GetInt("max_retries")
	}

	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		settings["timeout"] = timeout
	}

	if options := viper.GetStringMap("http_options"); len(options) > 0 {
		settings["http_options"] = options
	}

	return settings
}

// loadConfig builds an SDK configuration without requiring credentials.
func loadConfig() (*sensei.Config, error) {
	settings := clientSettings()
	if settings["api_key"] == "" && settings["bearer_token"] == "" {
		return nil, constants.ErrNoCredentials
	}

	cfg, err := sensei.ConfigFromMap(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// createClient builds a partner client from the current settings.
func createClient() (sensei.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var opts []partner.Option

	if viper.GetBool("verbose") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}

		opts = append(opts, partner.WithLogger(sensei.NewZapLogger(logger)), partner.WithDebug(true))
	}

	return partner.New(cfg, opts...) //nolint:wrapcheck
}
