package sensei_test

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

var errPageFailed = errors.New("page failed")

// fakeGetter serves pages of two items each from an in-memory list.
type fakeGetter struct {
	mu       sync.Mutex
	lastPage int
	failPage int
	queries  []url.Values
}

func (g *fakeGetter) Get(_ context.Context, _ string, query url.Values) (sensei.Record, error) {
	g.mu.Lock()
	g.queries = append(g.queries, query)
	g.mu.Unlock()

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil {
		page = 1
	}

	if page == g.failPage {
		return nil, errPageFailed
	}

	return sensei.Record{
		"data": []any{
			map[string]any{"id": page*10 + 1},
			map[string]any{"id": page*10 + 2},
		},
		"meta": map[string]any{
			"current_page": page,
			"last_page":    g.lastPage,
			"per_page":     2,
			"total":        g.lastPage * 2,
		},
		"links": map[string]any{"next": "https://api.test/next"},
	}, nil
}

func (g *fakeGetter) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.queries)
}

type item struct {
	ID int `json:"id"`
}

func TestPaginator_Accessors(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{lastPage: 3}

	page, err := sensei.Paginate[item](context.Background(), getter, "v1/items", url.Values{"per_page": {"2"}})
	require.NoError(t, err)

	assert.Equal(t, []item{{ID: 11}, {ID: 12}}, page.Items())
	assert.Equal(t, 2, page.Len())
	assert.True(t, page.IsNotEmpty())
	assert.False(t, page.IsEmpty())
	assert.True(t, page.Has(1))
	assert.False(t, page.Has(2))
	assert.False(t, page.Has(-1))

	first, ok := page.First()
	assert.True(t, ok)
	assert.Equal(t, 11, first.ID)

	last, ok := page.Last()
	assert.True(t, ok)
	assert.Equal(t, 12, last.ID)

	_, ok = page.At(5)
	assert.False(t, ok)

	assert.Equal(t, 1, page.CurrentPage())
	assert.Equal(t, 3, page.TotalPages())
	assert.Equal(t, 6, page.Total())
	assert.Equal(t, 2, page.PerPage())
	assert.Equal(t, sensei.Meta{CurrentPage: 1, LastPage: 3, Total: 6, PerPage: 2}, page.PageMeta())
	assert.True(t, page.HasMorePages())
	assert.True(t, page.OnFirstPage())
	assert.False(t, page.OnLastPage())
	assert.Equal(t, "https://api.test/next", page.Links().GetString("next"))

	ids := sensei.MapPage(page, func(it item) int { return it.ID })
	assert.Equal(t, []int{11, 12}, ids)

	even := page.Filter(func(it item) bool { return it.ID%2 == 0 })
	assert.Equal(t, []item{{ID: 12}}, even)

	visited := 0
	for i, it := range page.Each() {
		assert.Equal(t, 11+i, it.ID)

		visited++
	}

	assert.Equal(t, 2, visited)

	envelope := page.ToRecord()
	assert.Len(t, envelope["data"], 2)
	assert.Equal(t, 1, envelope.GetRecord("meta")["current_page"])
}

func TestPaginator_ItemsIsACopy(t *testing.T) {
	t.Parallel()

	page, err := sensei.Paginate[item](context.Background(), &fakeGetter{lastPage: 1}, "v1/items", nil)
	require.NoError(t, err)

	items := page.Items()
	items[0].ID = 999

	first, _ := page.First()
	assert.Equal(t, 11, first.ID)
}

func TestPaginator_Navigation(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{lastPage: 3}
	ctx := context.Background()

	page, err := sensei.Paginate[item](ctx, getter, "v1/items", url.Values{"per_page": {"2"}, "q": {"kata"}})
	require.NoError(t, err)

	prev, err := page.PreviousPage(ctx)
	require.NoError(t, err)
	assert.Nil(t, prev)

	second, err := page.NextPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, 2, second.CurrentPage())

	lastQuery := getter.queries[len(getter.queries)-1]
	assert.Equal(t, "2", lastQuery.Get("page"))
	assert.Equal(t, "2", lastQuery.Get("per_page"))
	assert.Equal(t, "kata", lastQuery.Get("q"))

	back, err := second.PreviousPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, back.CurrentPage())

	third, err := page.GetPage(ctx, 3)
	require.NoError(t, err)
	assert.True(t, third.OnLastPage())

	none, err := third.NextPage(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = page.GetPage(ctx, 0)
	require.ErrorIs(t, err, sensei.ErrInvalidPage)
}

func TestPaginator_AllIsLazy(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{lastPage: 3}
	ctx := context.Background()

	page, err := sensei.Paginate[item](ctx, getter, "v1/items", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, getter.calls())

	var got []int

	for it, err := range page.All(ctx) {
		require.NoError(t, err)

		got = append(got, it.ID)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []int{11, 12}, got)
	assert.Equal(t, 1, getter.calls(), "breaking on the first page fetches nothing")

	all, err := page.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []item{{11}, {12}, {21}, {22}, {31}, {32}}, all)
	assert.Equal(t, 3, getter.calls())
}

func TestPaginator_AllError(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{lastPage: 3, failPage: 2}
	ctx := context.Background()

	page, err := sensei.Paginate[item](ctx, getter, "v1/items", nil)
	require.NoError(t, err)

	var (
		ids  []int
		errs []error
	)

	for it, err := range page.All(ctx) {
		if err != nil {
			errs = append(errs, err)

			continue
		}

		ids = append(ids, it.ID)
	}

	assert.Equal(t, []int{11, 12}, ids)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errPageFailed)

	items, err := page.Collect(ctx)
	require.ErrorIs(t, err, errPageFailed)
	assert.Len(t, items, 2)

	seen := 0
	err = page.ForEach(ctx, func(item) error {
		seen++

		return nil
	})
	require.ErrorIs(t, err, errPageFailed)
	assert.Equal(t, 2, seen)
}

func TestPaginator_ForEachStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	page, err := sensei.Paginate[item](context.Background(), &fakeGetter{lastPage: 2}, "v1/items", nil)
	require.NoError(t, err)

	stop := errors.New("stop")
	seen := 0

	err = page.ForEach(context.Background(), func(it item) error {
		seen++
		if it.ID == 12 {
			return stop
		}

		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}

func TestPaginator_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		response  sensei.Record
		wantLen   int
		wantTotal int
		wantErr   bool
	}{
		{"no data key", sensei.Record{"message": "ok"}, 0, 0, false},
		{"bare array", sensei.DecodeRecord([]byte(`[{"id":1},{"id":2},{"id":3}]`)), 3, 3, false},
		{"no meta", sensei.Record{"data": []any{map[string]any{"id": 1}}}, 1, 1, false},
		{"object data", sensei.Record{"data": map[string]any{"id": 1}}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, err := sensei.NewPaginator[item](&fakeGetter{}, "v1/items", nil, tt.response)
			if tt.wantErr {
				require.ErrorIs(t, err, sensei.ErrUnexpectedShape)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, page.Len())
			assert.Equal(t, tt.wantTotal, page.Total())
			assert.Equal(t, 1, page.CurrentPage())
			assert.Equal(t, 1, page.TotalPages())
			assert.False(t, page.HasMorePages())
		})
	}
}

func TestPaginator_AllStopsWhenPageDoesNotAdvance(t *testing.T) {
	t.Parallel()

	getter := &stuckGetter{}

	page, err := sensei.Paginate[item](context.Background(), getter, "v1/items", nil)
	require.NoError(t, err)

	items, err := page.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, getter.calls)
}

// stuckGetter always answers with page 1 of 5.
type stuckGetter struct {
	calls int
}

func (g *stuckGetter) Get(context.Context, string, url.Values) (sensei.Record, error) {
	g.calls++

	return sensei.Record{
		"data": []any{map[string]any{"id": 1}},
		"meta": map[string]any{"current_page": 1, "last_page": 5},
	}, nil
}
