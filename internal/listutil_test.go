package internal

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := parseListParams(httptest.NewRequest("GET", "/assets", nil))
		assert.Equal(t, 50, p.limit)
		assert.Equal(t, 0, p.offset)
		assert.Equal(t, "", p.q)
		assert.Equal(t, "", p.sort)
	})

	t.Run("explicit values", func(t *testing.T) {
		p := parseListParams(httptest.NewRequest("GET", "/assets?limit=10&offset=30&q=%20laptop%20&sort=-name", nil))
		assert.Equal(t, 10, p.limit)
		assert.Equal(t, 30, p.offset)
		assert.Equal(t, "laptop", p.q)
		assert.Equal(t, "-name", p.sort)
	})

	t.Run("limit capped at 200", func(t *testing.T) {
		p := parseListParams(httptest.NewRequest("GET", "/assets?limit=9999", nil))
		assert.Equal(t, 200, p.limit)
	})

	t.Run("garbage ignored", func(t *testing.T) {
		p := parseListParams(httptest.NewRequest("GET", "/assets?limit=abc&offset=-5", nil))
		assert.Equal(t, 50, p.limit)
		assert.Equal(t, 0, p.offset)
	})
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{
		"id":        "asset_id",
		"asset_tag": "asset_tag",
		"name":      "name",
	}

	t.Run("empty falls back to id", func(t *testing.T) {
		assert.Equal(t, " ORDER BY asset_id ASC", buildOrderBy("", allowed))
	})

	t.Run("single key", func(t *testing.T) {
		assert.Equal(t, " ORDER BY name ASC", buildOrderBy("name", allowed))
	})

	t.Run("descending prefix", func(t *testing.T) {
		assert.Equal(t, " ORDER BY name DESC", buildOrderBy("-name", allowed))
	})

	t.Run("multiple keys", func(t *testing.T) {
		assert.Equal(t, " ORDER BY name ASC, asset_tag DESC", buildOrderBy("name,-asset_tag", allowed))
	})

	t.Run("unknown keys dropped", func(t *testing.T) {
		assert.Equal(t, " ORDER BY name ASC", buildOrderBy("drop table;,name", allowed))
	})

	t.Run("all unknown falls back to default", func(t *testing.T) {
		assert.Equal(t, " ORDER BY asset_id ASC", buildOrderBy("nope", allowed))
	})
}
