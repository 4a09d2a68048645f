package sensei_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

func TestQueryParams_ToValues(t *testing.T) {
	t.Parallel()

	params := sensei.NewQueryParams().
		WithPage(2).
		WithPerPage(50).
		WithSearch("kata").
		WithSort("-created_at").
		WithInclude("owner", "tags").
		WithFilter("status", "published")

	values := params.ToValues()

	assert.Equal(t, "2", values.Get("page"))
	assert.Equal(t, "50", values.Get("per_page"))
	assert.Equal(t, "kata", values.Get("q"))
	assert.Equal(t, "-created_at", values.Get("sort"))
	assert.Equal(t, "owner,tags", values.Get("include"))
	assert.Equal(t, "published", values.Get("status"))
}

func TestQueryParams_ZeroValuesOmitted(t *testing.T) {
	t.Parallel()

	assert.Empty(t, sensei.NewQueryParams().ToValues())

	var params *sensei.QueryParams
	assert.Empty(t, params.ToValues())

	bare := &sensei.QueryParams{}
	bare.WithFilter("type", "video")
	assert.Equal(t, "type=video", bare.ToValues().Encode())
}
