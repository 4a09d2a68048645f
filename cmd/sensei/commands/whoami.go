package commands

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/sensei-partner/internal/auth"
	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

// IdentityInfo describes the configured credentials without contacting the API.
type IdentityInfo struct {
	BaseURL          string `json:"base_url"            yaml:"base_url"`
	Tenant           string `json:"tenant"              yaml:"tenant"`
	APIKey           string `json:"api_key"             yaml:"api_key"`
	KeyKind          string `json:"key_kind"            yaml:"key_kind"`
	KeyMode          string `json:"key_mode"            yaml:"key_mode"`
	BearerToken      string `json:"bearer_token"        yaml:"bearer_token"`
	RetryOnRateLimit bool   `json:"retry_on_rate_limit" yaml:"retry_on_rate_limit"`
	MaxRetries       int    `json:"max_retries"         yaml:"max_retries"`
	Timeout          string `json:"timeout"             yaml:"timeout"`
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active credentials",
		Long:  "Show which endpoint, tenant and credentials the CLI would use. No request is sent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tenant := cfg.Tenant()
			if tenant == "" {
				tenant = constants.None
			}

			info := IdentityInfo{
				BaseURL:          cfg.BaseURL(),
				Tenant:           tenant,
				APIKey:           auth.Mask(cfg.APIKey()),
				KeyKind:          auth.KeyKind(cfg),
				KeyMode:          auth.KeyMode(cfg),
				BearerToken:      auth.Mask(cfg.BearerToken()),
				RetryOnRateLimit: cfg.RetryOnRateLimit(),
				MaxRetries:       cfg.MaxRetries(),
				Timeout:          cfg.Timeout().String(),
			}

			handled, err := writeStructured(cmd.OutOrStdout(), info)
			if handled {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Property", "Value")
			_ = table.Append("Base URL", info.BaseURL)
			_ = table.Append("Tenant", info.Tenant)
			_ = table.Append("API Key", info.APIKey)
			_ = table.Append("Key Kind", info.KeyKind)
			_ = table.Append("Key Mode", info.KeyMode)
			_ = table.Append("Bearer Token", info.BearerToken)
			_ = table.Append("Retry On 429", strconv.FormatBool(info.RetryOnRateLimit))
			_ = table.Append("Max Retries", strconv.Itoa(info.MaxRetries))
			_ = table.Append("Timeout", info.Timeout)

			err = table.Render()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
