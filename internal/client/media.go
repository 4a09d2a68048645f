package client

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// MediaClient implements sensei.MediaClient.
type MediaClient struct {
	resource
}

// NewMediaClient creates a new media client.
func NewMediaClient(client *Client) *MediaClient {
	return &MediaClient{resource{client: client, basePath: "v1/partners/media"}}
}

// List implements sensei.MediaClient.List.
func (c *MediaClient) List(ctx context.Context, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
	page, err := c.paginate(ctx, "", params, nil)
	if err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}

	return page, nil
}

// Get implements sensei.MediaClient.Get.
func (c *MediaClient) Get(ctx context.Context, id int) (sensei.Record, error) {
	file, err := c.get(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting media %d: %w", id, err)
	}

	return file, nil
}

// Upload implements sensei.MediaClient.Upload.
func (c *MediaClient) Upload(ctx context.Context, filePath string, fields map[string]any) (sensei.Record, error) {
	file, err := c.upload(ctx, "upload", filePath, constants.DefaultUploadField, fields)
	if err != nil {
		return nil, fmt.Errorf("uploading media: %w", err)
	}

	return file, nil
}

// UploadFromURL implements sensei.MediaClient.UploadFromURL.
func (c *MediaClient) UploadFromURL(ctx context.Context, fileURL string, fields map[string]any) (sensei.Record, error) {
	body := maps.Clone(fields)
	if body == nil {
		body = map[string]any{}
	}

	body["url"] = fileURL

	file, err := c.post(ctx, "upload-url", body)
	if err != nil {
		return nil, fmt.Errorf("uploading media from URL: %w", err)
	}

	return file, nil
}

// Update implements sensei.MediaClient.Update.
func (c *MediaClient) Update(ctx context.Context, id int, data any) (sensei.Record, error) {
	file, err := c.put(ctx, strconv.Itoa(id), data)
	if err != nil {
		return nil, fmt.Errorf("updating media %d: %w", id, err)
	}

	return file, nil
}

// Delete implements sensei.MediaClient.Delete.
func (c *MediaClient) Delete(ctx context.Context, id int) (sensei.Record, error) {
	result, err := c.delete(ctx, strconv.Itoa(id), nil)
	if err != nil {
		return nil, fmt.Errorf("deleting media %d: %w", id, err)
	}

	return result, nil
}

// DeleteMultiple implements sensei.MediaClient.DeleteMultiple.
func (c *MediaClient) DeleteMultiple(ctx context.Context, ids []int) (sensei.Record, error) {
	result, err := c.delete(ctx, "bulk", map[string][]int{"file_ids": ids})
	if err != nil {
		return nil, fmt.Errorf("deleting %d media files: %w", len(ids), err)
	}

	return result, nil
}
