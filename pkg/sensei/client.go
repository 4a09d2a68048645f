package sensei

import (
	"context"
	"net/url"
)

// RequestOptions carries the optional parts of a raw request.
type RequestOptions struct {
	Query   url.Values
	Body    any
	Headers map[string]string
}

// CoreClient exposes the verb methods every resource is built on. Each method
// performs one logical request: transport, classification and, for 429,
// bounded retry.
type CoreClient interface {
	Getter

	Request(ctx context.Context, method, path string, opts RequestOptions) (Record, error)
	Post(ctx context.Context, path string, body any) (Record, error)
	Put(ctx context.Context, path string, body any) (Record, error)
	Patch(ctx context.Context, path string, body any) (Record, error)
	Delete(ctx context.Context, path string, body any) (Record, error)
	Upload(ctx context.Context, path, filePath, fieldName string, fields map[string]any) (Record, error)
}

// ResourceClients provides access to the typed resource wrappers.
type ResourceClients interface {
	Products() ProductsClient
	Users() UsersClient
	Payments() PaymentsClient
	Webhooks() WebhooksClient
	Media() MediaClient
	Guilds() GuildsClient

	// Resource looks up a wrapper by name in the static registry.
	Resource(name ResourceName) (any, bool)
}

// Client is the partner API client.
type Client interface {
	CoreClient
	ResourceClients

	Config() *Config
	IsAuthenticated() bool

	WithAPIKey(key string) (Client, error)
	WithBearerToken(token string) (Client, error)
	WithTenant(tenant string) (Client, error)
	WithBaseURL(baseURL string) (Client, error)
}

// ProductsClient manages formations, services and digital products.
type ProductsClient interface {
	List(ctx context.Context, params *QueryParams) (*Paginator[Record], error)
	Get(ctx context.Context, id int) (Record, error)
	Create(ctx context.Context, data any) (Record, error)
	Update(ctx context.Context, id int, data any) (Record, error)
	Delete(ctx context.Context, id int) (Record, error)
	Publish(ctx context.Context, id int) (Record, error)
	Unpublish(ctx context.Context, id int) (Record, error)
	Duplicate(ctx context.Context, id int) (Record, error)
	Stats(ctx context.Context, id int) (Record, error)
}

// UsersClient manages partner users.
type UsersClient interface {
	List(ctx context.Context, params *QueryParams) (*Paginator[Record], error)
	Get(ctx context.Context, id int) (Record, error)
	Search(ctx context.Context, term string, params *QueryParams) (*Paginator[Record], error)
	FindByEmail(ctx context.Context, email string) (Record, error)
	Create(ctx context.Context, data any) (Record, error)
	Update(ctx context.Context, id int, data any) (Record, error)
	Delete(ctx context.Context, id int) (Record, error)
	Suspend(ctx context.Context, id int, reason string) (Record, error)
	Unsuspend(ctx context.Context, id int) (Record, error)
	Subscriptions(ctx context.Context, id int, params *QueryParams) (*Paginator[Record], error)
}

// PaymentsClient manages payments, intents and refunds.
type PaymentsClient interface {
	List(ctx context.Context, params *QueryParams) (*Paginator[Record], error)
	Get(ctx context.Context, id int) (Record, error)
	FindByTransaction(ctx context.Context, transactionID string) (Record, error)
	CreateIntent(ctx context.Context, data any) (Record, error)
	Confirm(ctx context.Context, intentID string) (Record, error)
	Cancel(ctx context.Context, intentID string) (Record, error)
	Capture(ctx context.Context, intentID string, amount *int) (Record, error)
	Refund(ctx context.Context, id int, data any) (Record, error)
	Refunds(ctx context.Context, params *QueryParams) (*Paginator[Record], error)
	Balance(ctx context.Context) (Record, error)
}

// WebhooksClient manages webhook endpoints and their deliveries.
type WebhooksClient interface {
	List(ctx context.Context, params *QueryParams) (*Paginator[Record], error)
	Get(ctx context.Context, id int) (Record, error)
	Create(ctx context.Context, data any) (Record, error)
	Update(ctx context.Context, id int, data any) (Record, error)
	Delete(ctx context.Context, id int) (Record, error)
	Enable(ctx context.Context, id int) (Record, error)
	Disable(ctx context.Context, id int) (Record, error)
	Test(ctx context.Context, id int, eventType string) (Record, error)
	EventTypes(ctx context.Context) (Record, error)
	Deliveries(ctx context.Context, id int, params *QueryParams) (*Paginator[Record], error)
	RetryDelivery(ctx context.Context, webhookID, deliveryID int) (Record, error)
}

// MediaClient manages uploaded files.
type MediaClient interface {
	List(ctx context.Context, params *QueryParams) (*Paginator[Record], error)
	Get(ctx context.Context, id int) (Record, error)
	Upload(ctx context.Context, filePath string, fields map[string]any) (Record, error)
	UploadFromURL(ctx context.Context, fileURL string, fields map[string]any) (Record, error)
	Update(ctx context.Context, id int, data any) (Record, error)
	Delete(ctx context.Context, id int) (Record, error)
	DeleteMultiple(ctx context.Context, ids []int) (Record, error)
}

// GuildsClient manages tenant communities. It requires a tenant and is meant
// to be used with a user bearer token.
type GuildsClient interface {
	List(ctx context.Context, params *QueryParams) (*Paginator[Record], error)
	Get(ctx context.Context, id int) (Record, error)
	Create(ctx context.Context, data any) (Record, error)
	Update(ctx context.Context, id int, data any) (Record, error)
	Delete(ctx context.Context, id int) (Record, error)
	Stats(ctx context.Context, id int) (Record, error)
	Members(ctx context.Context, guildID int, params *QueryParams) (*Paginator[Record], error)
	AddMember(ctx context.Context, guildID, userID int, data any) (Record, error)
	RemoveMember(ctx context.Context, guildID, userID int) (Record, error)
}
