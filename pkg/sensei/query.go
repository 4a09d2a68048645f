package sensei

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

// QueryParams expresses the common list options accepted by partner endpoints.
type QueryParams struct {
	Page    int
	PerPage int
	Search  string
	Sort    string
	Include []string
	Filters map[string]string
}

// NewQueryParams returns empty query parameters.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Filters: make(map[string]string),
	}
}

// WithPage sets the page number.
func (q *QueryParams) WithPage(page int) *QueryParams {
	q.Page = page

	return q
}

// WithPerPage sets the page size.
func (q *QueryParams) WithPerPage(perPage int) *QueryParams {
	q.PerPage = perPage

	return q
}

// WithSearch sets the free-text search term (sent as q).
func (q *QueryParams) WithSearch(term string) *QueryParams {
	q.Search = term

	return q
}

// WithSort sets the sort expression, e.g. "-created_at".
func (q *QueryParams) WithSort(sort string) *QueryParams {
	q.Sort = sort

	return q
}

// WithInclude adds related resources to embed.
func (q *QueryParams) WithInclude(include ...string) *QueryParams {
	q.Include = append(q.Include, include...)

	return q
}

// WithFilter sets a single filter.
func (q *QueryParams) WithFilter(key, value string) *QueryParams {
	if q.Filters == nil {
		q.Filters = make(map[string]string)
	}

	q.Filters[key] = value

	return q
}

// ToValues converts the params into URL values. Zero fields are omitted.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.Page > 0 {
		values.Set(constants.PageParam, strconv.Itoa(q.Page))
	}

	if q.PerPage > 0 {
		values.Set(constants.PerPageParam, strconv.Itoa(q.PerPage))
	}

	if q.Search != "" {
		values.Set("q", q.Search)
	}

	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}

	if len(q.Include) > 0 {
		values.Set("include", strings.Join(q.Include, ","))
	}

	for key, value := range q.Filters {
		values.Set(key, value)
	}

	return values
}
