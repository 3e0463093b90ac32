// Package products accumulates the items a user accepted during a session.
package products

import (
	"context"
	"sync"

	"github.com/entrhq/scout/pkg/types"
)

// EmptyComparison is returned by Compare when nothing has been collected.
const EmptyComparison = "No products have been collected yet, so there is nothing to compare."

// Comparer writes a markdown comparison of products.
type Comparer interface {
	CompareProducts(ctx context.Context, products []types.Product) (string, error)
}

// Collection is an append-only list of accepted products. Products are
// copied on the way in and out, so callers can never change a stored one.
type Collection struct {
	comparer Comparer
	items    []types.Product
	keys     map[string]bool
	mu       sync.RWMutex
}

// NewCollection creates an empty collection that compares with c.
func NewCollection(c Comparer) *Collection {
	return &Collection{comparer: c, keys: make(map[string]bool)}
}

// Add appends p.
func (c *Collection) Add(p types.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, p.Clone())
	c.keys[p.Key()] = true
}

// Contains reports whether a product with the same normalized identity was added.
func (c *Collection) Contains(p types.Product) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[p.Key()]
}

// Len returns the number of products.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot returns copies of all products in acceptance order.
func (c *Collection) Snapshot() []types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Product, len(c.items))
	for i, p := range c.items {
		out[i] = p.Clone()
	}
	return out
}

// Compare returns a markdown comparison of the collected products. With no
// products it returns EmptyComparison without calling the model.
func (c *Collection) Compare(ctx context.Context) (string, error) {
	items := c.Snapshot()
	if len(items) == 0 || c.comparer == nil {
		return EmptyComparison, nil
	}
	return c.comparer.CompareProducts(ctx, items)
}
