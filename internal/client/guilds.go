package client

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// GuildsClient implements sensei.GuildsClient. Paths are scoped to the
// configured tenant.
type GuildsClient struct {
	resource
}

// NewGuildsClient creates a new guilds client.
func NewGuildsClient(client *Client) *GuildsClient {
	return &GuildsClient{resource{client: client, basePath: "v1/" + tenantPlaceholder + "/guilds"}}
}

// List implements sensei.GuildsClient.List.
func (c *GuildsClient) List(ctx context.Context, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "", params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing guilds: %w", err)
	}

	return page, nil
}

// Get implements sensei.GuildsClient.Get.
func (c *GuildsClient) Get(ctx context.Context, id int) (sensei.Record, error) {
	guild, err := c.get(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting guild %d: %w", id, err)
	}

	return guild, nil
}

// Create implements sensei.GuildsClient.Create.
func (c *GuildsClient) Create(ctx context.Context, data any) (sensei.Record, error) {
	guild, err := c.post(ctx, "", data)
	if err != nil {
		return nil, fmt.Errorf("creating guild: %w", err)
	}

	return guild, nil
}

// Update implements sensei.GuildsClient.Update.
func (c *GuildsClient) Update(ctx context.Context, id int, data any) (sensei.Record, error) {
	guild, err := c.put(ctx, strconv.Itoa(id), data)
	if err != nil {
		return nil, fmt.Errorf("updating guild %d: %w", id, err)
	}

	return guild, nil
}

// Delete implements sensei.GuildsClient.Delete.
func (c *GuildsClient) Delete(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.delete(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("deleting guild %d: %w", id, err)
	}

	return result, nil
}

// Stats implements sensei.GuildsClient.Stats.
func (c *GuildsClient) Stats(ctx context.Context, id int) (sensei.Record, error) {
	stats, err := c.get(ctx, fmt.Sprintf("%d/stats", id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting guild %d stats: %w", id, err)
	}

	return stats, nil
}

// Members implements sensei.GuildsClient.Members.
func (c *GuildsClient) Members(ctx context.Context, guildID int, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, fmt.Sprintf("%d/members", guildID), params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing members of guild %d: %w", guildID, err)
	}

	return page, nil
}

// AddMember implements sensei.GuildsClient.AddMember. data may carry a role
// or other membership attributes; user_id is always set.
func (c *GuildsClient) AddMember(ctx context.Context, guildID, userID int, data any) (sensei.Record, error) {
	body := map[string]any{}

	if extra, ok := data.(map[string]any); ok {
		body = maps.Clone(extra)
	}

	body["user_id"] = userID

	member, err := c.post(ctx, fmt.Sprintf("%d/members", guildID), body)
	if err != nil {
		return nil, fmt.Errorf("adding user %d to guild %d: %w", userID, guildID, err)
	}

	return member, nil
}

// RemoveMember implements sensei.GuildsClient.RemoveMember.
func (c *GuildsClient) RemoveMember(ctx context.Context, guildID, userID int) (sensei.Record, error) {
	result, err := c.delete(ctx, fmt.Sprintf("%d/members/%d", guildID, userID), nil)
	if err != nil {
		return nil, fmt.Errorf("removing user %d from guild %d: %w", userID, guildID, err)
	}

	return result, nil
}
