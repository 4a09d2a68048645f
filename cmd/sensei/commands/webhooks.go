package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// NewWebhooksCommand creates the webhooks command group.
func NewWebhooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webhooks",
		Aliases: []string{"webhook"},
		Short:   "Manage webhook endpoints",
		Long:    "List webhook endpoints, send test events and verify delivery signatures",
	}

	cmd.AddCommand(newListCommand("webhooks", []string{"id", "url", "events", "is_active"},
		func(ctx context.Context, client sensei.Client, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
			return client.Webhooks().List(ctx, params) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("get", "Get webhook details",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Webhooks().Get(ctx, id) //nolint:wrapcheck
		}))
	cmd.AddCommand(newWebhooksTestCommand())
	cmd.AddCommand(newWebhooksEventTypesCommand())
	cmd.AddCommand(newWebhooksVerifyCommand())

	return cmd
}

func newWebhooksTestCommand() *cobra.Command {
	var event string

	cmd := &cobra.Command{
		Use:   "test ID",
		Short: "Send a test event to a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			result, err := client.Webhooks().Test(cmd.Context(), id, event)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return renderRecord(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&event, "event", "", "event type to send (server default when empty)")

	return cmd
}

func newWebhooksEventTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "event-types",
		Short: "List the event types a webhook can subscribe to",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			result, err := client.Webhooks().EventTypes(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck
			}

			return renderRecord(cmd.OutOrStdout(), result)
		},
	}
}

func newWebhooksVerifyCommand() *cobra.Command {
	var (
		secret    string
		signature string
	)

	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Verify a webhook payload signature",
		Long: `Check that SIGNATURE is the HMAC-SHA256 of the payload in FILE under SECRET.
Use - to read the payload from standard input. No request is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				payload []byte
				err     error
			)

			if args[0] == "-" {
				payload, err = io.ReadAll(cmd.InOrStdin())
			} else {
				payload, err = readBodyFile(args[0])
			}

			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}

			err = sensei.ValidateWebhook(payload, signature, secret)
			if err != nil {
				return err //nolint:wrapcheck
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signature is valid")

			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("SENSEI_WEBHOOK_SECRET"), "webhook signing secret (default $SENSEI_WEBHOOK_SECRET)")
	cmd.Flags().StringVar(&signature, "signature", "", "signature header value")
	_ = cmd.MarkFlagRequired("signature")

	return cmd
}
