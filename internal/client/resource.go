package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

const tenantPlaceholder = "{tenant}"

// resource holds what every wrapper shares: the core client and a base path.
type resource struct {
	client   *Client
	basePath string
}

// path joins endpoint under the base path and substitutes {tenant}.
func (r resource) path(endpoint string) (string, error) {
	joined := strings.TrimRight(r.basePath+"/"+strings.TrimLeft(endpoint, "/"), "/")

	if !strings.Contains(joined, tenantPlaceholder) {
		return joined, nil
	}

	tenant := r.client.config.Tenant()
	if tenant == "" {
		return "", fmt.Errorf("resolving %s: %w", r.basePath, sensei.ErrTenantRequired)
	}

	return strings.ReplaceAll(joined, tenantPlaceholder, url.PathEscape(tenant)), nil
}

func (r resource) get(ctx context.Context, endpoint string, query url.Values) (sensei.Record, error) {
	p, err := r.path(endpoint)
	if err != nil {
		return nil, err
	}

	return r.client.Get(ctx, p, query)
}

func (r resource) post(ctx context.Context, endpoint string, body any) (sensei.Record, error) {
	p, err := r.path(endpoint)
	if err != nil {
		return nil, err
	}

	return r.client.Post(ctx, p, body)
}

func (r resource) put(ctx context.Context, endpoint string, body any) (sensei.Record, error) {
	p, err := r.path(endpoint)
	if err != nil {
		return nil, err
	}

	return r.client.Put(ctx, p, body)
}

func (r resource) delete(ctx context.Context, endpoint string, body any) (sensei.Record, error) {
	p, err := r.path(endpoint)
	if err != nil {
		return nil, err
	}

	return r.client.Delete(ctx, p, body)
}

func (r resource) upload(ctx context.Context, endpoint, filePath, fieldName string, fields map[string]any) (sensei.Record, error) {
	p, err := r.path(endpoint)
	if err != nil {
		return nil, err
	}

	return r.client.Upload(ctx, p, filePath, fieldName, fields)
}

// paginate fetches the first page of endpoint with params plus extra query values.
func (r resource) paginate(ctx context.Context, endpoint string, params *sensei.QueryParams, extra url.Values) (*sensei.Paginator[sensei.Record], error) {
	p, err := r.path(endpoint)
	if err != nil {
		return nil, err
	}

	query := params.ToValues()
	for key, values := range extra {
		query[key] = values
	}

	return sensei.Paginate[sensei.Record](ctx, r.client, p, query)
}
