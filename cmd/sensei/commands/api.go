package commands

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// NewAPICommand creates the raw request command group.
func NewAPICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Send raw requests to the partner API",
		Long: `Send a request to any partner API path and print the decoded response.

Rate limited responses are retried with backoff unless --no-retry is set.`,
	}

	for _, method := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
	} {
		cmd.AddCommand(newAPIMethodCommand(method))
	}

	return cmd
}

func newAPIMethodCommand(method string) *cobra.Command {
	var (
		queryPairs  []string
		headerPairs []string
		data        string
	)

	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   name + " PATH",
		Short: fmt.Sprintf("Send a %s request", method),
		Long: fmt.Sprintf(`Send a %s request to PATH, relative to the configured API URL.

--data takes inline JSON or YAML, or @FILE to read the body from a file.`, method),
		Example: fmt.Sprintf("  sensei api %s /products --query status=published", name),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseKeyValues(queryPairs)
			if err != nil {
				return err
			}

			headers, err := parseKeyValues(headerPairs)
			if err != nil {
				return err
			}

			body, err := parseBody(data)
			if err != nil {
				return err
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			opts := sensei.RequestOptions{Query: query, Body: body}

			if len(headers) > 0 {
				opts.Headers = make(map[string]string, len(headers))
				for key := range headers {
					opts.Headers[key] = headers.Get(key)
				}
			}

			result, err := client.Request(cmd.Context(), method, args[0], opts)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return renderRecord(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringArrayVarP(&queryPairs, "query", "q", nil, "query parameter in key=value form (repeatable)")
	cmd.Flags().StringArrayVarP(&headerPairs, "header", "H", nil, "extra header in key=value form (repeatable)")

	if method != http.MethodGet {
		cmd.Flags().StringVarP(&data, "data", "d", "", "request body as JSON or YAML, or @FILE")
	}

	return cmd
}

// parseBody decodes an inline or @file body. JSON is accepted as a subset of YAML.
func parseBody(data string) (any, error) {
	if data == "" {
		return nil, nil //nolint:nilnil
	}

	raw := []byte(data)

	if path, ok := strings.CutPrefix(data, "@"); ok {
		content, err := readBodyFile(path)
		if err != nil {
			return nil, err
		}

		raw = content
	}

	var body any

	err := yaml.Unmarshal(raw, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request body: %w", err)
	}

	return body, nil
}

func readBodyFile(path string) ([]byte, error) {
	if strings.Contains(path, "..") {
		return nil, fmt.Errorf("%w: %s", constants.ErrDirectoryTraversalDetected, path)
	}

	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read body file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", constants.ErrNotRegularFile, path)
	}

	content, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read body file: %w", err)
	}

	return content, nil
}
