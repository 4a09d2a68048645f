package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := strings.ToLower(viper.GetString("output"))

	switch format {
	case "", constants.FormatTable:
		return constants.FormatTable, nil
	case constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", constants.ErrInvalidOutput, format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}

	return encoder.Close() //nolint:wrapcheck
}

// writeStructured handles the json and yaml formats. It reports false for table output.
func writeStructured(w io.Writer, v any) (bool, error) {
	format, err := outputFormat()
	if err != nil {
		return true, err
	}

	switch format {
	case constants.FormatJSON:
		return true, writeJSON(w, v)
	case constants.FormatYAML:
		return true, writeYAML(w, v)
	default:
		return false, nil
	}
}

// renderRecord prints a single object as a property table.
func renderRecord(w io.Writer, record sensei.Record) error {
	handled, err := writeStructured(w, record)
	if handled {
		return err
	}

	if data := record.GetRecord("data"); len(data) > 0 {
		record = data
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	for _, key := range keys {
		_ = table.Append(key, formatValue(record[key]))
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderPage prints list items with the given columns plus a page summary.
func renderPage(w io.Writer, items []sensei.Record, meta sensei.Meta, columns []string) error {
	handled, err := writeStructured(w, map[string]any{"data": items, "meta": meta})
	if handled {
		return err
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "No results found.")

		return nil
	}

	header := make([]any, 0, len(columns))
	for _, column := range columns {
		header = append(header, strings.ToUpper(strings.ReplaceAll(column, "_", " ")))
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, item := range items {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			row = append(row, formatValue(item[column]))
		}

		_ = table.Append(row)
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Page %d of %d (%d total)\n", meta.CurrentPage, meta.LastPage, meta.Total)

	return nil
}

// formatValue renders a decoded JSON value for a table cell.
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		if value == "" {
			return constants.NotAvailable
		}

		return truncate(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}

		return truncate(string(data))
	default:
		return fmt.Sprint(value)
	}
}

func truncate(s string) string {
	if len(s) <= constants.StringTruncationLength {
		return s
	}

	return s[:constants.StringTruncationLength-3] + "..."
}

// parseKeyValues turns repeated key=value flags into query values.
func parseKeyValues(pairs []string) (url.Values, error) {
	values := url.Values{}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidQueryFormat, pair)
		}

		values.Add(strings.TrimSpace(key), value)
	}

	return values, nil
}

// parseFields turns repeated key=value flags into multipart fields.
func parseFields(pairs []string) (map[string]any, error) {
	values, err := parseKeyValues(pairs)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(values))
	for key := range values {
		fields[key] = values.Get(key)
	}

	return fields, nil
}
