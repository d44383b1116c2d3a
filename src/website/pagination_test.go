package website

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageParam(t *testing.T) {
	items := []struct {
		name      string
		pageParam string
		page      int
		ok        bool
	}{
		{"no param", "", 1, true},
		{"good", "2", 2, true},
		{"zero", "0", 0, false},
		{"negative", "-3", 0, false},
		{"pizza", "pizza", 0, false},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			page, ok := parsePageParam(item.pageParam)
			assert.Equal(t, item.page, page)
			assert.Equal(t, item.ok, ok)
		})
	}
}

func TestGetPagination(t *testing.T) {
	build := func(page int) string { return fmt.Sprintf("/blog?page=%d", page) }

	t.Run("middle page", func(t *testing.T) {
		p := getPagination(2, 85, 10, build)
		assert.Equal(t, 2, p.Current)
		assert.Equal(t, 9, p.Total)
		assert.Equal(t, "/blog?page=1", p.PreviousUrl)
		assert.Equal(t, "/blog?page=3", p.NextUrl)
		assert.Equal(t, "/blog?page=9", p.LastUrl)
	})
	t.Run("first page", func(t *testing.T) {
		p := getPagination(1, 85, 10, build)
		assert.Empty(t, p.PreviousUrl)
		assert.Equal(t, "/blog?page=2", p.NextUrl)
	})
	t.Run("zero items", func(t *testing.T) {
		p := getPagination(1, 0, 10, build)
		assert.Equal(t, 1, p.Total)
		assert.Empty(t, p.PreviousUrl)
		assert.Empty(t, p.NextUrl)
	})
	t.Run("past the end is clamped", func(t *testing.T) {
		p := getPagination(12, 85, 10, build)
		assert.Equal(t, 9, p.Current)
		assert.Empty(t, p.NextUrl)
	})
}
