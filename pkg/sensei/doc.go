// Package sensei provides types, interfaces, and helpers for working with the
// Sensei partner API.
//
// # Overview
//
// The sensei package defines the configuration (Config), the error taxonomy
// (APIError, ConnectionError, TransportError), response classification
// (Classify), pagination (Paginator) and the resource client interfaces. A
// concrete implementation is provided by the partner package, which wires
// configuration, transport, authentication headers and rate limit retries.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/sensei-partner/pkg/partner"
//	  "github.com/fivetwenty-io/sensei-partner/pkg/sensei"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cfg, err := sensei.NewConfig("https://api.senseitemple.com/api", sensei.WithAPIKey("sk_live_..."))
//	  if err != nil { log.Fatal(err) }
//
//	  cli, err := partner.New(cfg)
//	  if err != nil { log.Fatal(err) }
//
//	  products, err := cli.Products().List(ctx, sensei.NewQueryParams().WithPerPage(50))
//	  if err != nil { log.Fatal(err) }
//	  _ = products
//	}
//
// # Pagination
//
// List endpoints return a Paginator over the first page. Use NextPage and
// PreviousPage to move one page at a time, or All to range over every item
// across pages; later pages are fetched only when needed:
//
//	for product, err := range products.All(ctx) {
//	  if err != nil { break }
//	  _ = product
//	}
//
// # Errors
//
// Non-2xx responses are returned as *APIError. Use errors.Is with
// ErrAuthentication, ErrNotFound, ErrValidation, ErrRateLimited or ErrServer,
// or the IsNotFound style helpers. Validation errors expose field messages via
// Errors, FieldErrors and FirstMessage. A 429 is retried up to
// Config.MaxRetries times, waiting min(Retry-After, 2^n) seconds; when retries
// are exhausted or disabled the *APIError carries RetryAfter.
//
// # Interceptors and caching
//
// Interceptors observe or modify every HTTP attempt (logging, headers,
// client-side rate limiting, metrics, circuit breaking). An optional Cache
// stores successful GET responses in memory or in a NATS KV bucket.
package sensei
