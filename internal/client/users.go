package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// UsersClient implements sensei.UsersClient.
type UsersClient struct {
	resource
}

// NewUsersClient creates a new users client.
func NewUsersClient(client *Client) *UsersClient {
	return &UsersClient{resource{client: client, basePath: "v1/partners/users"}}
}

// List implements sensei.UsersClient.List.
func (c *UsersClient) List(ctx context.Context, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "", params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return page, nil
}

// Get implements sensei.UsersClient.Get.
func (c *UsersClient) Get(ctx context.Context, id int) (sensei.Record, error) {
	user, err := c.get(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}

	return user, nil
}

// Search implements sensei.UsersClient.Search. term is sent as q.
func (c *UsersClient) Search(ctx context.Context, term string, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "search", params, url.Values{"q": []string{term}})
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}

	return page, nil
}

// FindByEmail implements sensei.UsersClient.FindByEmail.
func (c *UsersClient) FindByEmail(ctx context.Context, email string) (sensei.Record, error) {
	user, err := c.get(ctx, "by-email", url.Values{"email": []string{email}})
	if err != nil {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}

	return user, nil
}

// Create implements sensei.UsersClient.Create.
func (c *UsersClient) Create(ctx context.Context, data any) (sensei.Record, error) {
	user, err := c.post(ctx, "", data)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// Update implements sensei.UsersClient.Update.
func (c *UsersClient) Update(ctx context.Context, id int, data any) (sensei.Record, error) {
	user, err := c.put(ctx, strconv.Itoa(id), data)
	if err != nil {
		return nil, fmt.Errorf("updating user %d: %w", id, err)
	}

	return user, nil
}

// Delete implements sensei.UsersClient.Delete.
func (c *UsersClient) Delete(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.delete(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("deleting user %d: %w", id, err)
	}

	return result, nil
}

// Suspend implements sensei.UsersClient.Suspend.
func (c *UsersClient) Suspend(ctx context.Context, id int, reason string) (sensei.Record, error) {
	result, err := c.post(ctx, fmt.Sprintf("%d/suspend", id), map[string]string{"reason": reason})
	if err != nil {
		return nil, fmt.Errorf("suspending user %d: %w", id, err)
	}

	return result, nil
}

// Unsuspend implements sensei.UsersClient.Unsuspend.
func (c *UsersClient) Unsuspend(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.post(ctx, fmt.Sprintf("%d/unsuspend", id), nil)
	if err != nil {
		return nil, fmt.Errorf("unsuspending user %d: %w", id, err)
	}

	return result, nil
}

// Subscriptions implements sensei.UsersClient.Subscriptions.
func (c *UsersClient) Subscriptions(ctx context.Context, id int, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, fmt.Sprintf("%d/subscriptions", id), params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions of user %d: %w", id, err)
	}

	return page, nil
}
