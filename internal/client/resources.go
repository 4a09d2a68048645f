package client

import (
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// registry maps resource names to accessors. It is fixed at compile time.
var registry = map[sensei.ResourceName]func(*Client) any{
	sensei.ResourceProducts: func(c *Client) any { return c.products },
	sensei.ResourceUsers:    func(c *Client) any { return c.users },
	sensei.ResourcePayments: func(c *Client) any { return c.payments },
	sensei.ResourceWebhooks: func(c *Client) any { return c.webhooks },
	sensei.ResourceMedia:    func(c *Client) any { return c.media },
	sensei.ResourceGuilds:   func(c *Client) any { return c.guilds },
}

// Resource looks up a resource client by name.
func (c *Client) Resource(name sensei.ResourceName) (any, bool) {
	accessor, ok := registry[name]
	if !ok {
		return nil, false
	}

	return accessor(c), true
}

// Products implements sensei.Client.Products.
func (c *Client) Products() sensei.ProductsClient {
	return c.products
}

// Users implements sensei.Client.Users.
func (c *Client) Users() sensei.UsersClient {
	return c.users
}

// Payments implements sensei.Client.Payments.
func (c *Client) Payments() sensei.PaymentsClient {
	return c.payments
}

// Webhooks implements sensei.Client.Webhooks.
func (c *Client) Webhooks() sensei.WebhooksClient {
	return c.webhooks
}

// Media implements sensei.Client.Media.
func (c *Client) Media() sensei.MediaClient {
	return c.media
}

// Guilds implements sensei.Client.Guilds.
func (c *Client) Guilds() sensei.GuildsClient {
	return c.guilds
}

var (
	_ sensei.ProductsClient = (*ProductsClient)(nil)
	_ sensei.UsersClient    = (*UsersClient)(nil)
	_ sensei.PaymentsClient = (*PaymentsClient)(nil)
	_ sensei.WebhooksClient = (*WebhooksClient)(nil)
	_ sensei.MediaClient    = (*MediaClient)(nil)
	_ sensei.GuildsClient   = (*GuildsClient)(nil)
)
