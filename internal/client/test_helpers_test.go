package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// Test static errors.
var (
	ErrTestSomeError = errors.New("some error")
)

const testTenant = "acme"

// NewTestClient creates a client for baseURL with a test key and tenant.
func NewTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()

	cfg, err := sensei.NewConfig(baseURL,
		sensei.WithAPIKey("sk_test_client"),
		sensei.WithTenant(testTenant),
	)
	require.NoError(t, err)

	opts = append([]Option{WithBackoffUnit(time.Millisecond)}, opts...)

	client, err := New(cfg, opts...)
	require.NoError(t, err)

	return client
}

// TestRouteOperation describes one resource call and the request it must produce.
type TestRouteOperation struct {
	Name          string
	Method        string
	ExpectedPath  string
	ExpectedQuery map[string]string
	ExpectedBody  string
	StatusCode    int
	Response      interface{}
	Call          func(context.Context, *Client) (interface{}, error)
	WantErr       bool
	ErrIs         error
}

// RunRouteTests runs a series of route tests against a fake server.
func RunRouteTests(t *testing.T, tests []TestRouteOperation) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedPath, request.URL.Path)
				assert.Equal(t, testCase.Method, request.Method)

				for key, value := range testCase.ExpectedQuery {
					assert.Equal(t, value, request.URL.Query().Get(key), "query %s", key)
				}

				if testCase.ExpectedBody != "" {
					body, _ := io.ReadAll(request.Body)
					assert.JSONEq(t, testCase.ExpectedBody, string(body))
				}

				status := testCase.StatusCode
				if status == 0 {
					status = http.StatusOK
				}

				writer.Header().Set("Content-Type", "application/json")
				writer.WriteHeader(status)

				if testCase.Response != nil {
					_ = json.NewEncoder(writer).Encode(testCase.Response)
				}
			}))
			defer server.Close()

			client := NewTestClient(t, server.URL)

			result, err := testCase.Call(context.Background(), client)

			if testCase.WantErr {
				require.Error(t, err)

				if testCase.ErrIs != nil {
					assert.ErrorIs(t, err, testCase.ErrIs)
				}

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, result)
		})
	}
}

func record(fields map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"data": fields}
}

func page(items []map[string]interface{}, current, last int) map[string]interface{} {
	return map[string]interface{}{
		"data": items,
		"meta": map[string]interface{}{
			"current_page": current,
			"last_page":    last,
			"per_page":     len(items),
			"total":        len(items) * last,
		},
	}
}
