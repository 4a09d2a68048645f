package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

type (
	listFunc   func(ctx context.Context, client sensei.Client, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error)
	recordFunc func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error)
)

type listFlags struct {
	page    int
	perPage int
	search  string
	sort    string
	filters []string
	all     bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 0, "page number to fetch")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "number of items per page")
	cmd.Flags().StringVar(&f.search, "search", "", "free-text search term")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort field, prefix with - for descending")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "filter in key=value form (repeatable)")
	cmd.Flags().BoolVar(&f.all, "all", false, "fetch every page")
}

func (f *listFlags) params() (*sensei.QueryParams, error) {
	params := sensei.NewQueryParams()

	if f.page > 0 {
		params.WithPage(f.page)
	}

	switch {
	case f.perPage > 0:
		params.WithPerPage(f.perPage)
	case f.all:
		params.WithPerPage(constants.StandardPageSize)
	}

	if f.search != "" {
		params.WithSearch(f.search)
	}

	if f.sort != "" {
		params.WithSort(f.sort)
	}

	filters, err := parseKeyValues(f.filters)
	if err != nil {
		return nil, err
	}

	for key := range filters {
		params.WithFilter(key, filters.Get(key))
	}

	return params, nil
}

// newListCommand builds a "list" subcommand printing columns of each item.
func newListCommand(resource string, columns []string, list listFunc) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List " + resource,
		Long:    fmt.Sprintf("List %s one page at a time, or every page with --all", resource),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			page, err := list(cmd.Context(), client, params)
			if err != nil {
				return err
			}

			if !flags.all {
				return renderPage(cmd.OutOrStdout(), page.Items(), page.PageMeta(), columns)
			}

			items, err := page.Collect(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch all %s: %w", resource, err)
			}

			meta := sensei.Meta{CurrentPage: 1, LastPage: 1, Total: len(items), PerPage: len(items)}

			return renderPage(cmd.OutOrStdout(), items, meta, columns)
		},
	}

	flags.register(cmd)

	return cmd
}

// newRecordCommand builds a subcommand taking a numeric ID and printing one record.
func newRecordCommand(use, short string, fetch recordFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			result, err := fetch(cmd.Context(), client, id)
			if err != nil {
				return err
			}

			return renderRecord(cmd.OutOrStdout(), result)
		},
	}
}

func parseID(value string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", constants.ErrInvalidID, value)
	}

	return id, nil
}

// NewProductsCommand creates the products command group.
func NewProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Manage products",
		Long:    "List and manage formations, services and digital products",
	}

	cmd.AddCommand(newListCommand("products", []string{"id", "title", "type", "status", "price"},
		func(ctx context.Context, client sensei.Client, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
			return client.Products().List(ctx, params) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("get", "Get product details",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Products().Get(ctx, id) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("publish", "Publish a product",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Products().Publish(ctx, id) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("unpublish", "Unpublish a product",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Products().Unpublish(ctx, id) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("stats", "Show product statistics",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Products().Stats(ctx, id) //nolint:wrapcheck
		}))

	return cmd
}

// NewUsersCommand creates the users command group.
func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage users",
		Long:    "List, search and inspect partner users",
	}

	columns := []string{"id", "name", "email", "status"}

	cmd.AddCommand(newListCommand("users", columns,
		func(ctx context.Context, client sensei.Client, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
			return client.Users().List(ctx, params) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("get", "Get user details",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Users().Get(ctx, id) //nolint:wrapcheck
		}))
	cmd.AddCommand(newUsersSearchCommand(columns))
	cmd.AddCommand(newUsersSubscriptionsCommand())

	return cmd
}

func newUsersSearchCommand(columns []string) *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Search users by name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			page, err := client.Users().Search(cmd.Context(), args[0], nil)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return renderPage(cmd.OutOrStdout(), page.Items(), page.PageMeta(), columns)
		},
	}
}

func newUsersSubscriptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions ID",
		Short: "List a user's subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			page, err := client.Users().Subscriptions(cmd.Context(), id, nil)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return renderPage(cmd.OutOrStdout(), page.Items(), page.PageMeta(),
				[]string{"id", "product_id", "status", "expires_at"})
		},
	}
}

// NewMediaCommand creates the media command group.
func NewMediaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage media files",
		Long:  "List, inspect and upload media files",
	}

	cmd.AddCommand(newListCommand("media", []string{"id", "name", "mime_type", "size", "url"},
		func(ctx context.Context, client sensei.Client, params *sensei.QueryParams) (*sensei.Paginator[sensei.Record], error) {
			return client.Media().List(ctx, params) //nolint:wrapcheck
		}))
	cmd.AddCommand(newRecordCommand("get", "Get media details",
		func(ctx context.Context, client sensei.Client, id int) (sensei.Record, error) {
			return client.Media().Get(ctx, id) //nolint:wrapcheck
		}))
	cmd.AddCommand(newMediaUploadCommand())

	return cmd
}

func newMediaUploadCommand() *cobra.Command {
	var fieldPairs []string

	cmd := &cobra.Command{
		Use:     "upload FILE",
		Short:   "Upload a file",
		Long:    "Upload a local file as multipart form data. Extra form fields are set with --field.",
		Example: "  sensei media upload ./cover.png --field folder=covers",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(fieldPairs)
			if err != nil {
				return err
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			result, err := client.Media().Upload(cmd.Context(), args[0], fields)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return renderRecord(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringArrayVar(&fieldPairs, "field", nil, "extra form field in key=value form (repeatable)")

	return cmd
}
