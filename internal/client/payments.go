package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// PaymentsClient implements sensei.PaymentsClient.
type PaymentsClient struct {
	resource
}

// NewPaymentsClient creates a new payments client.
func NewPaymentsClient(client *Client) *PaymentsClient {
	return &PaymentsClient{resource{client: client, basePath: "partner/payments"}}
}

// List implements sensei.PaymentsClient.List.
func (c *PaymentsClient) List(ctx context.Context, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "", params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}

	return page, nil
}

// Get implements sensei.PaymentsClient.Get.
func (c *PaymentsClient) Get(ctx context.Context, id int) (sensei.Record, error) {
	payment, err := c.get(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting payment %d: %w", id, err)
	}

	return payment, nil
}

// FindByTransaction implements sensei.PaymentsClient.FindByTransaction.
func (c *PaymentsClient) FindByTransaction(ctx context.Context, transactionID string) (sensei.Record, error) {
	payment, err := c.get(ctx, "by-transaction", url.Values{"transaction_id": []string{transactionID}})
	if err != nil {
		return nil, fmt.Errorf("finding payment by transaction: %w", err)
	}

	return payment, nil
}

// CreateIntent implements sensei.PaymentsClient.CreateIntent.
func (c *PaymentsClient) CreateIntent(ctx context.Context, data any) (sensei.Record, error) {
	intent, err := c.post(ctx, "intent", data)
	if err != nil {
		return nil, fmt.Errorf("creating payment intent: %w", err)
	}

	return intent, nil
}

// Confirm implements sensei.PaymentsClient.Confirm.
func (c *PaymentsClient) Confirm(ctx context.Context, intentID string) (sensei.Record, error) {
	return c.intentAction(ctx, intentID, "confirm", nil)
}

// Cancel implements sensei.PaymentsClient.Cancel.
func (c *PaymentsClient) Cancel(ctx context.Context, intentID string) (sensei.Record, error) {
	return c.intentAction(ctx, intentID, "cancel", nil)
}

// Capture implements sensei.PaymentsClient.Capture. A nil amount captures the
// full authorized amount.
func (c *PaymentsClient) Capture(ctx context.Context, intentID string, amount *int) (sensei.Record, error) {
	body := map[string]int{}
	if amount != nil {
		body["amount"] = *amount
	}

	return c.intentAction(ctx, intentID, "capture", body)
}

func (c *PaymentsClient) intentAction(ctx context.Context, intentID, action string, body any) (sensei.Record, error) {
	result, err := c.post(ctx, "intent/"+url.PathEscape(intentID)+"/"+action, body)
	if err != nil {
		return nil, fmt.Errorf("%s payment intent %s: %w", action, intentID, err)
	}

	return result, nil
}

// Refund implements sensei.PaymentsClient.Refund.
func (c *PaymentsClient) Refund(ctx context.Context, id int, data any) (sensei.Record, error) {
	if data == nil {
		data = map[string]any{}
	}

	refund, err := c.post(ctx, fmt.Sprintf("%d/refund", id), data)
	if err != nil {
		return nil, fmt.Errorf("refunding payment %d: %w", id, err)
	}

	return refund, nil
}

// Refunds implements sensei.PaymentsClient.Refunds.
func (c *PaymentsClient) Refunds(ctx context.Context, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "refunds", params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing refunds: %w", err)
	}

	return page, nil
}

// Balance implements sensei.PaymentsClient.Balance.
func (c *PaymentsClient) Balance(ctx context.Context) (sensei.Record, error) {
	balance, err := c.get(ctx, "balance", nil)
	if err != nil {
		return nil, fmt.Errorf("getting balance: %w", err)
	}

	return balance, nil
}
