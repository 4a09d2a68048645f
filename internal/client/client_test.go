package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sensei-partner/internal/client"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, sensei.ErrConfiguration)
	})

	t.Run("creates authenticated client", func(t *testing.T) {
		t.Parallel()

		cfg, err := sensei.NewConfig("https://api.example.com/api", sensei.WithAPIKey("sk_live_x"))
		require.NoError(t, err)

		c, err := client.New(cfg)
		require.NoError(t, err)
		assert.True(t, c.IsAuthenticated())
		assert.Same(t, cfg, c.Config())
	})

	t.Run("rejects invalid transport options", func(t *testing.T) {
		t.Parallel()

		cfg, err := sensei.NewConfig("https://api.example.com/api",
			sensei.WithAPIKey("sk_live_x"),
			sensei.WithTransportOptions(map[string]any{"max_idle_conns": "many"}),
		)
		require.NoError(t, err)

		_, err = client.New(cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, sensei.ErrConfiguration)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantKind   sensei.ErrorKind
		wantMsg    string
		wantRecord sensei.Record
	}{
		{
			name:       "success envelope",
			status:     http.StatusOK,
			body:       `{"data":{"id":1}}`,
			wantRecord: sensei.Record{"data": map[string]any{"id": float64(1)}},
		},
		{
			name:       "empty body",
			status:     http.StatusNoContent,
			wantRecord: sensei.Record{},
		},
		{
			name:       "bare array",
			status:     http.StatusOK,
			body:       `[1,2]`,
			wantRecord: sensei.Record{"data": []any{float64(1), float64(2)}},
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"message":"Invalid API key"}`,
			wantErr:  sensei.ErrAuthentication,
			wantKind: sensei.KindAuthentication,
			wantMsg:  "Invalid API key",
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			body:     `{"error":"Forbidden"}`,
			wantErr:  sensei.ErrAuthentication,
			wantKind: sensei.KindAuthentication,
			wantMsg:  "Forbidden",
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     `{"message":"Missing"}`,
			wantErr:  sensei.ErrNotFound,
			wantKind: sensei.KindNotFound,
			wantMsg:  "Missing",
		},
		{
			name:     "validation",
			status:   http.StatusUnprocessableEntity,
			body:     `{"message":"Invalid","errors":{"email":["required"]}}`,
			wantErr:  sensei.ErrValidation,
			wantKind: sensei.KindValidation,
			wantMsg:  "Invalid",
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     `not json`,
			wantErr:  sensei.ErrServer,
			wantKind: sensei.KindServer,
			wantMsg:  "Unknown error",
		},
		{
			name:     "other status",
			status:   http.StatusTeapot,
			body:     `{"message":"I'm a teapot"}`,
			wantErr:  sensei.ErrAPI,
			wantKind: sensei.KindGeneric,
			wantMsg:  "I'm a teapot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(tt.status)
				_, _ = writer.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := client.NewTestClient(t, server.URL)

			result, err := c.Get(context.Background(), "partner/anything", nil)

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRecord, result)

				return
			}

			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)

			apiErr, ok := sensei.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RateLimit(t *testing.T) {
	t.Parallel()

	t.Run("exhausted retries surface RetryAfter", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			writer.Header().Set("Retry-After", "5")
			writer.WriteHeader(http.StatusTooManyRequests)
			_, _ = writer.Write([]byte(`{"message":"Slow down"}`))
		}))
		defer server.Close()

		c := client.NewTestClient(t, server.URL)

		_, err := c.Get(context.Background(), "partner/products", nil)
		require.Error(t, err)
		assert.True(t, sensei.IsRateLimited(err))

		apiErr, ok := sensei.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, 5, apiErr.RetryAfter)
		assert.Equal(t, "Slow down", apiErr.Message)
		assert.Equal(t, int32(4), calls.Load())
	})

	t.Run("success after retries is transparent", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= 2 {
				writer.Header().Set("Retry-After", "1")
				writer.WriteHeader(http.StatusTooManyRequests)

				return
			}

			_, _ = writer.Write([]byte(`{"data":[]}`))
		}))
		defer server.Close()

		c := client.NewTestClient(t, server.URL)

		result, err := c.Get(context.Background(), "partner/products", nil)
		require.NoError(t, err)
		assert.Equal(t, sensei.Record{"data": []any{}}, result)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("disabled retry fails on first 429", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			writer.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		cfg, err := sensei.NewConfig(server.URL, sensei.WithAPIKey("sk_test_x"), sensei.WithRetryOnRateLimit(false))
		require.NoError(t, err)

		c, err := client.New(cfg)
		require.NoError(t, err)

		_, err = c.Get(context.Background(), "partner/products", nil)
		require.Error(t, err)

		apiErr, ok := sensei.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, sensei.KindRateLimit, apiErr.Kind)
		assert.Equal(t, 60, apiErr.RetryAfter)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestClient_ConnectionError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	c := client.NewTestClient(t, baseURL)

	_, err := c.Post(context.Background(), "partner/products", map[string]string{"title": "x"})
	require.Error(t, err)
	assert.True(t, sensei.IsConnectionError(err))

	_, ok := sensei.AsAPIError(err)
	assert.False(t, ok)
}

func TestClient_Verbs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"method": request.Method,
			"path":   request.URL.Path,
			"query":  request.URL.RawQuery,
			"body":   string(body),
			"custom": request.Header.Get("X-Custom"),
		})
	}))
	defer server.Close()

	c := client.NewTestClient(t, server.URL)
	ctx := context.Background()

	result, err := c.Request(ctx, "patch", "/partner/items/1/", sensei.RequestOptions{
		Query:   map[string][]string{"expand": {"owner"}},
		Body:    map[string]int{"qty": 2},
		Headers: map[string]string{"X-Custom": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PATCH", result.GetString("method"))
	assert.Equal(t, "/partner/items/1", result.GetString("path"))
	assert.Equal(t, "expand=owner", result.GetString("query"))
	assert.JSONEq(t, `{"qty":2}`, result.GetString("body"))
	assert.Equal(t, "yes", result.GetString("custom"))

	result, err = c.Put(ctx, "partner/items/1", map[string]int{"qty": 3})
	require.NoError(t, err)
	assert.Equal(t, "PUT", result.GetString("method"))

	result, err = c.Patch(ctx, "partner/items/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "PATCH", result.GetString("method"))
	assert.Empty(t, result.GetString("body"))

	result, err = c.Delete(ctx, "partner/items/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "DELETE", result.GetString("method"))
	assert.Empty(t, result.GetString("body"))

	result, err = c.Delete(ctx, "partner/items", map[string][]int{"ids": {1, 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids":[1,2]}`, result.GetString("body"))
}

func TestClient_Upload(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "avatar.jpg")
	require.NoError(t, os.WriteFile(filePath, []byte("jpeg"), 0o600))

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/v1/partners/media/upload", request.URL.Path)

		if !assert.NoError(t, request.ParseMultipartForm(1<<20)) {
			return
		}

		_, header, err := request.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}

		assert.Equal(t, "avatar.jpg", header.Filename)
		assert.Equal(t, `{"alt":"me"}`, request.FormValue("meta"))
		assert.Equal(t, "true", request.FormValue("public"))

		_, _ = writer.Write([]byte(`{"data":{"id":12}}`))
	}))
	defer server.Close()

	c := client.NewTestClient(t, server.URL)

	result, err := c.Media().Upload(context.Background(), filePath, map[string]any{
		"meta":   map[string]string{"alt": "me"},
		"public": true,
	})
	require.NoError(t, err)

	data := result.GetRecord("data")
	id, ok := data.GetInt("id")
	require.True(t, ok)
	assert.Equal(t, 12, id)
}

func TestClient_Cache(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodGet {
			n := gets.Add(1)
			_, _ = fmt.Fprintf(writer, `{"data":[{"id":%d}]}`, n)

			return
		}

		writer.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := client.NewTestClient(t, server.URL, client.WithCache(sensei.NewMemoryCache(10), time.Minute))
	ctx := context.Background()

	first, err := c.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)

	second, err := c.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), gets.Load())

	_, err = c.Products().Create(ctx, map[string]string{"title": "new"})
	require.NoError(t, err)

	_, err = c.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets.Load())

	_, err = c.Get(ctx, "partner/payments", nil)
	require.NoError(t, err)
	_, err = c.Get(ctx, "partner/payments", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(4), gets.Load(), "payments are never cached")

	stats, ok := c.CacheStats()
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Invalidations)
}

func TestClient_CacheScopedToIdentity(t *testing.T) {
	t.Parallel()

	newServer := func(owner string, hits *atomic.Int32) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = fmt.Fprintf(writer, `{"owner":%q}`, owner)
		}))
	}

	var hitsA, hitsB atomic.Int32

	serverA := newServer("partner-A", &hitsA)
	defer serverA.Close()

	serverB := newServer("partner-B", &hitsB)
	defer serverB.Close()

	shared := sensei.NewMemoryCache(100)
	ctx := context.Background()

	newClient := func(baseURL, key string) *client.Client {
		cfg, err := sensei.NewConfig(baseURL, sensei.WithAPIKey(key))
		require.NoError(t, err)

		c, err := client.New(cfg, client.WithCache(shared, time.Minute))
		require.NoError(t, err)

		return c
	}

	clientA := newClient(serverA.URL, "sk_test_A")
	clientB := newClient(serverB.URL, "sk_test_B")

	result, err := clientA.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, "partner-A", result.GetString("owner"))

	result, err = clientB.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, "partner-B", result.GetString("owner"))
	assert.Equal(t, int32(1), hitsB.Load())

	// Same server, different key: still a separate entry.
	clientA2 := newClient(serverA.URL, "sk_test_A2")

	_, err = clientA2.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hitsA.Load())

	// Each client still hits its own entry.
	_, err = clientA.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hitsA.Load())

	// A mutation through B leaves A's entry alone.
	_, err = clientB.Post(ctx, "v1/partners/products", map[string]string{"title": "new"})
	require.NoError(t, err)

	_, err = clientA.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hitsA.Load())

	_, err = clientB.Get(ctx, "v1/partners/products", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hitsB.Load())
}

func TestClient_CacheRevalidatesETag(t *testing.T) {
	t.Parallel()

	var (
		requests    atomic.Int32
		notModified atomic.Int32
		version     atomic.Int32
	)

	version.Store(1)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requests.Add(1)

		etag := fmt.Sprintf(`"v%d"`, version.Load())
		if request.Header.Get("If-None-Match") == etag {
			notModified.Add(1)
			writer.WriteHeader(http.StatusNotModified)

			return
		}

		writer.Header().Set("ETag", etag)
		_, _ = fmt.Fprintf(writer, `{"data":{"version":%d}}`, version.Load())
	}))
	defer server.Close()

	c := client.NewTestClient(t, server.URL,
		client.WithCache(sensei.NewMemoryCache(10), 0),
		client.WithCachingPolicy(&sensei.CachingPolicy{
			CacheGET:   true,
			TTL:        time.Nanosecond,
			Revalidate: time.Minute,
		}),
	)
	ctx := context.Background()

	first, err := c.Get(ctx, "v1/partners/products/7", nil)
	require.NoError(t, err)

	second, err := c.Get(ctx, "v1/partners/products/7", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, int32(1), notModified.Load())

	version.Store(2)

	third, err := c.Get(ctx, "v1/partners/products/7", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, int32(1), notModified.Load())

	stats, ok := c.CacheStats()
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.Revalidations)
}

func TestClient_Derived(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"key":   request.Header.Get("X-API-Key"),
			"token": request.Header.Get("Authorization"),
			"path":  request.URL.Path,
		})
	}))
	defer server.Close()

	original := client.NewTestClient(t, server.URL)
	ctx := context.Background()

	withKey, err := original.WithAPIKey("sk_live_other")
	require.NoError(t, err)

	result, err := withKey.Get(ctx, "partner/me", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_other", result.GetString("key"))

	result, err = original.Get(ctx, "partner/me", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk_test_client", result.GetString("key"))

	withToken, err := original.WithBearerToken("user-jwt")
	require.NoError(t, err)

	result, err = withToken.Get(ctx, "partner/me", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-jwt", result.GetString("token"))
	assert.Equal(t, "sk_test_client", result.GetString("key"))

	withTenant, err := original.WithTenant("zen")
	require.NoError(t, err)
	assert.Equal(t, "zen", withTenant.Config().Tenant())
	assert.Equal(t, "acme", original.Config().Tenant())

	page, err := withTenant.Guilds().List(ctx, nil)
	require.NoError(t, err)
	assert.True(t, page.IsEmpty())

	_, err = original.WithBaseURL("")
	assert.ErrorIs(t, err, sensei.ErrConfiguration)
}

func TestClient_Registry(t *testing.T) {
	t.Parallel()

	c := client.NewTestClient(t, "https://api.example.test/api")

	for _, name := range sensei.ResourceNames() {
		res, ok := c.Resource(name)
		assert.True(t, ok, string(name))
		assert.NotNil(t, res, string(name))
	}

	products, ok := c.Resource(sensei.ResourceProducts)
	require.True(t, ok)
	_, isProducts := products.(sensei.ProductsClient)
	assert.True(t, isProducts)

	_, ok = c.Resource("unknown")
	assert.False(t, ok)
}

func TestClient_PaginateAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		pageNum, _ := strconv.Atoi(request.URL.Query().Get("page"))
		if pageNum == 0 {
			pageNum = 1
		}

		assert.Equal(t, "2", request.URL.Query().Get("per_page"))

		_ = json.NewEncoder(writer).Encode(map[string]any{
			"data": []map[string]int{{"id": pageNum*10 + 1}, {"id": pageNum*10 + 2}},
			"meta": map[string]int{"current_page": pageNum, "last_page": 3, "per_page": 2, "total": 6},
		})
	}))
	defer server.Close()

	c := client.NewTestClient(t, server.URL)

	first, err := c.Products().List(context.Background(), sensei.NewQueryParams().WithPerPage(2))
	require.NoError(t, err)

	items, err := first.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 6)

	ids := make([]int, 0, len(items))
	for _, item := range items {
		id, _ := item.GetInt("id")
		ids = append(ids, id)
	}

	assert.Equal(t, []int{11, 12, 21, 22, 31, 32}, ids)
}

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	chain := sensei.NewInterceptorChain()
	chain.AddRequestInterceptor(func(context.Context, *sensei.Request) error {
		return client.ErrTestSomeError
	})

	c := client.NewTestClient(t, server.URL, client.WithInterceptors(chain))

	_, err := c.Get(context.Background(), "partner/products", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrTestSomeError))
	assert.Equal(t, int32(0), hits.Load())
}
