package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// WebhooksClient implements sensei.WebhooksClient.
type WebhooksClient struct {
	resource
}

// NewWebhooksClient creates a new webhooks client.
func NewWebhooksClient(client *Client) *WebhooksClient {
	return &WebhooksClient{resource{client: client, basePath: "partner/webhooks"}}
}

// List implements sensei.WebhooksClient.List.
func (c *WebhooksClient) List(ctx context.Context, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "", params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}

	return page, nil
}

// Get implements sensei.WebhooksClient.Get.
func (c *WebhooksClient) Get(ctx context.Context, id int) (sensei.Record, error) {
	webhook, err := c.get(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting webhook %d: %w", id, err)
	}

	return webhook, nil
}

// Create implements sensei.WebhooksClient.Create.
func (c *WebhooksClient) Create(ctx context.Context, data any) (sensei.Record, error) {
	webhook, err := c.post(ctx, "", data)
	if err != nil {
		return nil, fmt.Errorf("creating webhook: %w", err)
	}

	return webhook, nil
}

// Update implements sensei.WebhooksClient.Update.
func (c *WebhooksClient) Update(ctx context.Context, id int, data any) (sensei.Record, error) {
	webhook, err := c.put(ctx, strconv.Itoa(id), data)
	if err != nil {
		return nil, fmt.Errorf("updating webhook %d: %w", id, err)
	}

	return webhook, nil
}

// Delete implements sensei.WebhooksClient.Delete.
func (c *WebhooksClient) Delete(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.delete(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("deleting webhook %d: %w", id, err)
	}

	return result, nil
}

// Enable implements sensei.WebhooksClient.Enable.
func (c *WebhooksClient) Enable(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.post(ctx, fmt.Sprintf("%d/enable", id), nil)
	if err != nil {
		return nil, fmt.Errorf("enabling webhook %d: %w", id, err)
	}

	return result, nil
}

// Disable implements sensei.WebhooksClient.Disable.
func (c *WebhooksClient) Disable(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.post(ctx, fmt.Sprintf("%d/disable", id), nil)
	if err != nil {
		return nil, fmt.Errorf("disabling webhook %d: %w", id, err)
	}

	return result, nil
}

// Test implements sensei.WebhooksClient.Test.
func (c *WebhooksClient) Test(ctx context.Context, id int, eventType string) (sensei.Record, error) {
	result, err := c.post(ctx, fmt.Sprintf("%d/test", id), map[string]string{"event_type": eventType})
	if err != nil {
		return nil, fmt.Errorf("testing webhook %d: %w", id, err)
	}

	return result, nil
}

// EventTypes implements sensei.WebhooksClient.EventTypes.
func (c *WebhooksClient) EventTypes(ctx context.Context) (sensei.Record, error) {
	types, err := c.get(ctx, "event-types", nil)
	if err != nil {
		return nil, fmt.Errorf("listing webhook event types: %w", err)
	}

	return types, nil
}

// Deliveries implements sensei.WebhooksClient.Deliveries.
func (c *WebhooksClient) Deliveries(ctx context.Context, id int, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, fmt.Sprintf("%d/deliveries", id), params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries of webhook %d: %w", id, err)
	}

	return page, nil
}

// RetryDelivery implements sensei.WebhooksClient.RetryDelivery.
func (c *WebhooksClient) RetryDelivery(ctx context.Context, webhookID, deliveryID int) (sensei.Record, error) {
	result, err := c.post(ctx, fmt.Sprintf("%d/deliveries/%d/retry", webhookID, deliveryID), nil)
	if err != nil {
		return nil, fmt.Errorf("retrying delivery %d of webhook %d: %w", deliveryID, webhookID, err)
	}

	return result, nil
}
