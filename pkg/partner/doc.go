// Package partner provides the primary entry point for constructing a Sensei
// partner API client that implements the sensei.Client interface.
//
// It layers the HTTP transport, rate limit retry and response classification
// on top of the resource interfaces and types defined in the sensei package.
// Most applications import partner to build a client, then use the returned
// sensei.Client to reach the resource wrappers, for example Products(),
// Users() or Guilds().
//
// Quick start
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
//
//	  cfg, err := sensei.NewConfig(sensei.DefaultBaseURL,
//	    sensei.WithAPIKey("sk_live_..."),
//	    sensei.WithTenant("my-dojo"),
//	  )
//	  if err != nil { log.Fatal(err) }
//
//	  cli, err := partner.New(cfg)
//	  if err != nil { log.Fatal(err) }
//
//	  products, err := cli.Products().List(ctx, sensei.NewQueryParams().WithPerPage(25))
//	  if err != nil { log.Fatal(err) }
//
//	  for product, err := range products.All(ctx) {
//	    if err != nil { log.Fatal(err) }
//	    log.Println(product.GetString("title"))
//	  }
//	}
//
// # Rate limits
//
// A 429 response is retried up to Config.MaxRetries times, waiting
// min(Retry-After, 2^attempt) seconds between attempts. When retries are
// exhausted or disabled the call fails with a *sensei.APIError of kind
// KindRateLimit whose RetryAfter carries the server advice.
//
// # Helpers
//
// The package also provides convenience constructors NewWithAPIKey,
// NewWithBearerToken and NewFromMap. A base URL without a scheme defaults to
// https.
package partner
