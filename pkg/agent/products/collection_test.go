package products

import (
	"context"
	"testing"

	"github.com/entrhq/scout/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComparer struct {
	got   []types.Product
	calls int
}

func (f *fakeComparer) CompareProducts(_ context.Context, products []types.Product) (string, error) {
	f.calls++
	f.got = products
	return "| Title |\n|---|\n| Blue Mug |", nil
}

func TestCompareEmptySkipsModel(t *testing.T) {
	cmp := &fakeComparer{}
	c := NewCollection(cmp)

	out, err := c.Compare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, EmptyComparison, out)
	assert.Equal(t, 0, cmp.calls)
}

func TestCompareDelegates(t *testing.T) {
	cmp := &fakeComparer{}
	c := NewCollection(cmp)
	c.Add(types.Product{Title: "Blue Mug", Price: "$12"})

	out, err := c.Compare(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out, "Blue Mug")
	assert.Equal(t, 1, cmp.calls)
	require.Len(t, cmp.got, 1)
}

func TestProductsAreImmutable(t *testing.T) {
	c := NewCollection(nil)
	shot := []byte{1, 2, 3}
	c.Add(types.Product{Title: "Blue Mug", Price: "$12", Screenshot: shot})

	shot[0] = 9
	snap := c.Snapshot()
	snap[0].Title = "Red Mug"
	snap[0].Screenshot[1] = 9

	again := c.Snapshot()
	assert.Equal(t, "Blue Mug", again[0].Title)
	assert.Equal(t, []byte{1, 2, 3}, again[0].Screenshot)
}

func TestCollectionOnlyGrows(t *testing.T) {
	c := NewCollection(nil)
	c.Add(types.Product{Title: "A"})
	c.Add(types.Product{Title: "B"})

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains(types.Product{Title: " a "}))
	assert.False(t, c.Contains(types.Product{Title: "C"}))
	assert.Equal(t, "A", c.Snapshot()[0].Title)
}
