package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreg/internal/citizen/models"
)

func intPtr(n int) *int { return &n }

func TestBuildCriteria(t *testing.T) {
	t.Run("force paging applies defaults", func(t *testing.T) {
		crit := BuildCriteria(models.SearchRequest{}, true)
		require.NotNil(t, crit.Page)
		assert.Equal(t, 0, crit.Page.Number)
		assert.Equal(t, 10, crit.Page.Size)
	})

	t.Run("no force and no explicit paging returns full set", func(t *testing.T) {
		crit := BuildCriteria(models.SearchRequest{}, false)
		assert.Nil(t, crit.Page)
	})

	t.Run("no force but both params supplied applies paging", func(t *testing.T) {
		crit := BuildCriteria(models.SearchRequest{
			PageNumber: intPtr(2),
			PageSize:   intPtr(25),
		}, false)
		require.NotNil(t, crit.Page)
		assert.Equal(t, 2, crit.Page.Number)
		assert.Equal(t, 25, crit.Page.Size)
	})

	t.Run("one paging param alone does not trigger paging", func(t *testing.T) {
		crit := BuildCriteria(models.SearchRequest{PageSize: intPtr(5)}, false)
		assert.Nil(t, crit.Page)
	})

	t.Run("force paging keeps supplied values", func(t *testing.T) {
		crit := BuildCriteria(models.SearchRequest{PageNumber: intPtr(3)}, true)
		require.NotNil(t, crit.Page)
		assert.Equal(t, 3, crit.Page.Number)
		assert.Equal(t, 10, crit.Page.Size)
	})

	t.Run("negative values clamp to zero", func(t *testing.T) {
		crit := BuildCriteria(models.SearchRequest{
			PageNumber: intPtr(-1),
			PageSize:   intPtr(-5),
		}, false)
		require.NotNil(t, crit.Page)
		assert.Equal(t, 0, crit.Page.Number)
		assert.Equal(t, 0, crit.Page.Size)
	})

	t.Run("full name prefix is trimmed", func(t *testing.T) {
		crit := BuildCriteria(models.SearchRequest{FullName: "  Ivanov "}, true)
		assert.Equal(t, "Ivanov", crit.FullNamePrefix)
	})
}
