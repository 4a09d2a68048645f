package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// NewPaymentsCommand creates the payments command group.
func NewPaymentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payments",
		Aliases: []string{"payment"},
		Short:   "Inspect payments",
		Long:    "List payments and refunds and show the account balance",
	}

	columns := []string{"id", "amount", "currency", "status", "created_at"}

	cmd.AddCommand(newListCommand("payments", columns,
		func(ctx context.Context, client sensei.Client, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
			return client.Payments().List(ctx, params) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("get", "Get payment details",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Payments().Get(ctx, id) //nolint:wrapcheck
		}))

	refunds := newListCommand("refunds", columns,
		func(ctx context.Context, client sensei.Client, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
			return client.Payments().Refunds(ctx, params) //nolint:wrapcheck
		})
	refunds.Use = "refunds"
	refunds.Aliases = nil
	cmd.AddCommand(refunds)

	cmd.AddCommand(&cobra.Command{
		Use:   "balance",
		Short: "Show the account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			result, err := client.Payments().Balance(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck
			}

			return renderRecord(cmd.OutOrStdout(), result)
		},
	})

	return cmd
}
