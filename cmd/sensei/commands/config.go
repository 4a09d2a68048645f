package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/sensei-partner/internal/auth"
	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

const (
	configDirName  = ".sensei"
	configFileName = "config.yml"
)

// Config represents the CLI configuration file.
type Config struct {
	APIURL      string         `json:"api_url,omitempty"      yaml:"api_url,omitempty"`
	APIKey      string         `json:"api_key,omitempty"      yaml:"api_key,omitempty"`
	BearerToken string         `json:"bearer_token,omitempty" yaml:"bearer_token,omitempty"`
	Tenant      string         `json:"tenant,omitempty"       yaml:"tenant,omitempty"`
	Output      string         `json:"output,omitempty"       yaml:"output,omitempty"`
	Timeout     string         `json:"timeout,omitempty"      yaml:"timeout,omitempty"`
	MaxRetries  *int           `json:"max_retries,omitempty"  yaml:"max_retries,omitempty"`
	Insecure    bool           `json:"insecure,omitempty"     yaml:"insecure,omitempty"`
	NoRetry     bool           `json:"no_retry,omitempty"     yaml:"no_retry,omitempty"`
	HTTPOptions map[string]any `json:"http_options,omitempty" yaml:"http_options,omitempty"`
}

// configKeys lists the keys accepted by config set and unset, in display order.
var configKeys = []string{
	"api_url", "api_key", "bearer_token", "tenant", "output", "timeout", "max_retries", "insecure", "no_retry",
}

var secretKeys = []string{"api_key", "bearer_token"}

func isSecretKey(key string) bool {
	return slices.Contains(secretKeys, key)
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage Sensei CLI configuration including credentials, tenant and transport settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the saved CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfigFile(configFilePath())
			if err != nil {
				return err
			}

			masked := *config
			masked.APIKey = maskIfSet(config.APIKey)
			masked.BearerToken = maskIfSet(config.BearerToken)

			handled, err := writeStructured(cmd.OutOrStdout(), masked)
			if handled {
				return err
			}

			return displayConfigTable(cmd.OutOrStdout(), &masked)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY [VALUE]",
		Short: "Set a configuration value",
		Long: fmt.Sprintf("Set a configuration value. Valid keys: %s.\n\n"+
			"When VALUE is omitted for api_key or bearer_token it is read from the terminal without echo.",
			strings.Join(configKeys, ", ")),
		Args: cobra.RangeArgs(1, 2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			var value string

			switch {
			case len(args) > 1:
				value = args[1]
			case isSecretKey(key):
				secret, err := readSecret(cmd, strings.ReplaceAll(key, "_", " "))
				if err != nil {
					return err
				}

				value = secret
			default:
				return fmt.Errorf("%w for %s", constants.ErrMissingConfigValue, key)
			}

			path := configFilePath()

			config, err := loadConfigFile(path)
			if err != nil {
				return err
			}

			err = setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfigFile(path, config)
			if err != nil {
				return err
			}

			if isSecretKey(key) {
				value = auth.Mask(value)
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Set", key, value)
		},
	}

	// Values such as "-1" are positional, not shorthand flags.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			path := configFilePath()

			config, err := loadConfigFile(path)
			if err != nil {
				return err
			}

			err = unsetConfigValue(config, key)
			if err != nil {
				return err
			}

			err = saveConfigFile(path, config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Unset", key, "")
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file and all saved settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := os.Remove(configFilePath())
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Cleared", "all configuration", "")
		},
	}
}

// configFilePath resolves --config, the file viper loaded, or $HOME/.sensei/config.yml.
func configFilePath() string {
	if path := viper.GetString("config"); path != "" {
		return path
	}

	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return configFileName
	}

	return filepath.Join(home, configDirName, configFileName)
}

// loadConfigFile reads path. A missing file is an empty configuration.
func loadConfigFile(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

func saveConfigFile(path string, config *Config) error {
	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "api_url":
		config.APIURL = value
	case "api_key":
		config.APIKey = value
	case "bearer_token":
		config.BearerToken = value
	case "tenant":
		config.Tenant = value
	case "output":
		if !slices.Contains([]string{constants.FormatTable, constants.FormatJSON, constants.FormatYAML}, value) {
			return fmt.Errorf("%w: %q", constants.ErrInvalidOutput, value)
		}

		config.Output = value
	case "timeout":
		timeout, err := parseTimeout(value)
		if err != nil {
			return err
		}

		config.Timeout = timeout.String()
	case "max_retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("%w: max_retries must be a non-negative integer, got %q", constants.ErrInvalidConfigValue, value)
		}

		config.MaxRetries = &retries
	case "insecure", "no_retry":
		flag, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %w", constants.ErrInvalidConfigValue, key, value, err)
		}

		if key == "insecure" {
			config.Insecure = flag
		} else {
			config.NoRetry = flag
		}
	default:
		return fmt.Errorf("%w: %s (valid keys: %s)", constants.ErrUnknownConfigKey, key, strings.Join(configKeys, ", "))
	}

	return nil
}

func unsetConfigValue(config *Config, key string) error {
	switch key {
	case "api_url":
		config.APIURL = ""
	case "api_key":
		config.APIKey = ""
	case "bearer_token":
		config.BearerToken = ""
	case "tenant":
		config.Tenant = ""
	case "output":
		config.Output = ""
	case "timeout":
		config.Timeout = ""
	case "max_retries":
		config.MaxRetries = nil
	case "insecure":
		config.Insecure = false
	case "no_retry":
		config.NoRetry = false
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

// parseTimeout accepts a duration string or whole seconds.
func parseTimeout(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout %q: %w", constants.ErrInvalidConfigValue, value, err)
	}

	return timeout, nil
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(cmd *cobra.Command, label string) (string, error) {
	var secret string

	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(syscall.Stdin)) { //nolint:unconvert
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Enter %s: ", label)

		data, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", label, err)
		}

		secret = string(data)
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read %s: %w", label, err)
		}

		secret = line
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", constants.ErrEmptySecretInput
	}

	return secret, nil
}

func maskIfSet(secret string) string {
	if secret == "" {
		return ""
	}

	return auth.Mask(secret)
}

func displayConfigTable(w io.Writer, config *Config) error {
	retries := ""
	if config.MaxRetries != nil {
		retries = strconv.Itoa(*config.MaxRetries)
	}

	rows := [][]string{
		{"api_url", config.APIURL},
		{"api_key", config.APIKey},
		{"bearer_token", config.BearerToken},
		{"tenant", config.Tenant},
		{"output", config.Output},
		{"timeout", config.Timeout},
		{"max_retries", retries},
		{"insecure", strconv.FormatBool(config.Insecure)},
		{"no_retry", strconv.FormatBool(config.NoRetry)},
	}

	table := tablewriter.NewWriter(w)
	table.Header("Key", "Value")

	for _, row := range rows {
		_ = table.Append(row[0], formatValue(row[1]))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func outputConfigUpdateResult(w io.Writer, action, key, value string) error {
	result := map[string]string{
		"action": strings.ToLower(action),
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	handled, err := writeStructured(w, result)
	if handled {
		return err
	}

	if value != "" {
		_, _ = fmt.Fprintf(w, "%s %s = %s\n", action, key, value)
	} else {
		_, _ = fmt.Fprintf(w, "%s %s\n", action, key)
	}

	return nil
}
