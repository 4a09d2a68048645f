package sensei

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"net/url"
	"slices"
	"strconv"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

// Getter issues a GET and returns the decoded body. The core client satisfies it.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (Record, error)
}

// Paginator is one page of a list endpoint plus what is needed to fetch its
// siblings. A Paginator is never mutated after construction; navigation
// returns new values.
type Paginator[T any] struct {
	getter Getter
	path   string
	query  url.Values
	items  []T
	meta   Record
	links  Record
}

// NewPaginator wraps an already fetched page. response may be an envelope
// {data, meta, links} or a bare array decoded under "data". A response without
// a data key yields an empty page.
func NewPaginator[T any](getter Getter, path string, query url.Values, response Record) (*Paginator[T], error) {
	items, err := decodeItems[T](response["data"])
	if err != nil {
		return nil, err
	}

	return &Paginator[T]{
		getter: getter,
		path:   path,
		query:  cloneValues(query),
		items:  items,
		meta:   response.GetRecord("meta"),
		links:  response.GetRecord("links"),
	}, nil
}

// Paginate fetches the first page of path and wraps it.
func Paginate[T any](ctx context.Context, getter Getter, path string, query url.Values) (*Paginator[T], error) {
	response, err := getter.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	return NewPaginator[T](getter, path, query, response)
}

func decodeItems[T any](data any) ([]T, error) {
	if data == nil {
		return []T{}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding page data: %w", ErrUnexpectedShape, err)
	}

	var items []T

	err = json.Unmarshal(raw, &items)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding page data: %w", ErrUnexpectedShape, err)
	}

	if items == nil {
		items = []T{}
	}

	return items, nil
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}

	return out
}

// Items returns a copy of the current page's items.
func (p *Paginator[T]) Items() []T {
	return slices.Clone(p.items)
}

// First returns the first item of the current page.
func (p *Paginator[T]) First() (T, bool) {
	return p.At(0)
}

// Last returns the last item of the current page.
func (p *Paginator[T]) Last() (T, bool) {
	return p.At(len(p.items) - 1)
}

// At returns the item at index i of the current page.
func (p *Paginator[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(p.items) {
		var zero T

		return zero, false
	}

	return p.items[i], true
}

// Has reports whether index i exists on the current page.
func (p *Paginator[T]) Has(i int) bool {
	return i >= 0 && i < len(p.items)
}

// Len returns the number of items on the current page.
func (p *Paginator[T]) Len() int {
	return len(p.items)
}

// IsEmpty reports whether the current page has no items.
func (p *Paginator[T]) IsEmpty() bool {
	return len(p.items) == 0
}

// IsNotEmpty reports whether the current page has items.
func (p *Paginator[T]) IsNotEmpty() bool {
	return len(p.items) > 0
}

// Each iterates the current page only.
func (p *Paginator[T]) Each() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range p.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Filter returns the current page's items for which keep returns true.
func (p *Paginator[T]) Filter(keep func(T) bool) []T {
	out := make([]T, 0, len(p.items))

	for _, item := range p.items {
		if keep(item) {
			out = append(out, item)
		}
	}

	return out
}

// MapPage applies fn to every item of the current page.
func MapPage[T, U any](p *Paginator[T], fn func(T) U) []U {
	out := make([]U, 0, len(p.items))
	for _, item := range p.items {
		out = append(out, fn(item))
	}

	return out
}

// Meta returns a copy of the raw meta block.
func (p *Paginator[T]) Meta() Record {
	return maps.Clone(p.meta)
}

// Links returns a copy of the raw links block.
func (p *Paginator[T]) Links() Record {
	return maps.Clone(p.links)
}

// PageMeta returns the meta block with defaults applied.
func (p *Paginator[T]) PageMeta() Meta {
	return Meta{
		CurrentPage: p.CurrentPage(),
		LastPage:    p.TotalPages(),
		Total:       p.Total(),
		PerPage:     p.PerPage(),
	}
}

func (p *Paginator[T]) metaInt(key string, fallback int) int {
	if n, ok := p.meta.GetInt(key); ok {
		return n
	}

	return fallback
}

// CurrentPage returns meta.current_page, defaulting to 1.
func (p *Paginator[T]) CurrentPage() int {
	return p.metaInt("current_page", constants.DefaultPage)
}

// TotalPages returns meta.last_page, defaulting to 1.
func (p *Paginator[T]) TotalPages() int {
	return p.metaInt("last_page", 1)
}

// Total returns meta.total, defaulting to the current page size.
func (p *Paginator[T]) Total() int {
	return p.metaInt("total", len(p.items))
}

// PerPage returns meta.per_page, defaulting to the current page size.
func (p *Paginator[T]) PerPage() int {
	return p.metaInt("per_page", len(p.items))
}

// HasMorePages reports whether pages follow the current one.
func (p *Paginator[T]) HasMorePages() bool {
	return p.CurrentPage() < p.TotalPages()
}

// OnFirstPage reports whether this is page 1.
func (p *Paginator[T]) OnFirstPage() bool {
	return p.CurrentPage() == 1
}

// OnLastPage reports whether no pages follow.
func (p *Paginator[T]) OnLastPage() bool {
	return p.CurrentPage() >= p.TotalPages()
}

// NextPage fetches the following page. It returns nil, nil on the last page.
func (p *Paginator[T]) NextPage(ctx context.Context) (*Paginator[T], error) {
	if !p.HasMorePages() {
		return nil, nil //nolint:nilnil
	}

	return p.GetPage(ctx, p.CurrentPage()+1)
}

// PreviousPage fetches the preceding page. It returns nil, nil on page 1.
func (p *Paginator[T]) PreviousPage(ctx context.Context) (*Paginator[T], error) {
	if p.CurrentPage() <= 1 {
		return nil, nil //nolint:nilnil
	}

	return p.GetPage(ctx, p.CurrentPage()-1)
}

// GetPage fetches page n using the first page query with page replaced.
func (p *Paginator[T]) GetPage(ctx context.Context, page int) (*Paginator[T], error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}

	query := cloneValues(p.query)
	query.Set(constants.PageParam, strconv.Itoa(page))

	response, err := p.getter.Get(ctx, p.path, query)
	if err != nil {
		return nil, fmt.Errorf("fetching page %d of %s: %w", page, p.path, err)
	}

	return NewPaginator[T](p.getter, p.path, p.query, response)
}

// All yields every item from the current page through the last. The next page
// is requested only once the previous one is exhausted; the current page is
// never re-fetched. A fetch error is yielded once and ends the sequence.
// Each call starts again from the current page.
func (p *Paginator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		page := p

		for {
			for _, item := range page.items {
				if !yield(item, nil) {
					return
				}
			}

			if !page.HasMorePages() {
				return
			}

			next, err := page.NextPage(ctx)
			if err != nil {
				var zero T

				yield(zero, err)

				return
			}

			if next == nil || next.CurrentPage() <= page.CurrentPage() {
				return
			}

			page = next
		}
	}
}

// Collect drains All into a slice.
func (p *Paginator[T]) Collect(ctx context.Context) ([]T, error) {
	out := make([]T, 0, max(p.Total(), len(p.items)))

	for item, err := range p.All(ctx) {
		if err != nil {
			return out, err
		}

		out = append(out, item)
	}

	return out, nil
}

// ForEach calls fn for every item across pages, stopping at the first error.
func (p *Paginator[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for item, err := range p.All(ctx) {
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// ToRecord returns the current page as an envelope.
func (p *Paginator[T]) ToRecord() Record {
	items := make([]any, 0, len(p.items))
	for _, item := range p.items {
		items = append(items, item)
	}

	return Record{
		"data":  items,
		"meta":  p.Meta(),
		"links": p.Links(),
	}
}
