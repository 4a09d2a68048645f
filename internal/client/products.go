package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// ProductsClient implements sensei.ProductsClient.
type ProductsClient struct {
	resource
}

// NewProductsClient creates a new products client.
func NewProductsClient(client *Client) *ProductsClient {
	return &ProductsClient{resource{client: client, basePath: "v1/partners/products"}}
}

// List implements sensei.ProductsClient.List.
func (c *ProductsClient) List(ctx context.Context, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "", params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	return page, nil
}

// Get implements sensei.ProductsClient.Get.
func (c *ProductsClient) Get(ctx context.Context, id int) (sensei.Record, error) {
	product, err := c.get(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	return product, nil
}

// Create implements sensei.ProductsClient.Create.
func (c *ProductsClient) Create(ctx context.Context, data any) (sensei.Record, error) {
	product, err := c.post(ctx, "", data)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	return product, nil
}

// Update implements sensei.ProductsClient.Update.
func (c *ProductsClient) Update(ctx context.Context, id int, data any) (sensei.Record, error) {
	product, err := c.put(ctx, strconv.Itoa(id), data)
	if err != nil {
		return nil, fmt.Errorf("updating product %d: %w", id, err)
	}

	return product, nil
}

// Delete implements sensei.ProductsClient.Delete.
func (c *ProductsClient) Delete(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.delete(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("deleting product %d: %w", id, err)
	}

	return result, nil
}

// Publish implements sensei.ProductsClient.Publish.
func (c *ProductsClient) Publish(ctx context.Context, id int) (sensei.Record, error) {
	return c.action(ctx, id, "publish")
}

// Unpublish implements sensei.ProductsClient.Unpublish.
func (c *ProductsClient) Unpublish(ctx context.Context, id int) (sensei.Record, error) {
	return c.action(ctx, id, "unpublish")
}

// Duplicate implements sensei.ProductsClient.Duplicate.
func (c *ProductsClient) Duplicate(ctx context.Context, id int) (sensei.Record, error) {
	return c.action(ctx, id, "duplicate")
}

// Stats implements sensei.ProductsClient.Stats.
func (c *ProductsClient) Stats(ctx context.Context, id int) (sensei.Record, error) {
	stats, err := c.get(ctx, fmt.Sprintf("%d/stats", id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting product %d stats: %w", id, err)
	}

	return stats, nil
}

func (c *ProductsClient) action(ctx context.Context, id int, name string) (sensei.Record, error) {
	result, err := c.post(ctx, fmt.Sprintf("%d/%s", id, name), nil)
	if err != nil {
		return nil, fmt.Errorf("%s product %d: %w", name, id, err)
	}

	return result, nil
}
