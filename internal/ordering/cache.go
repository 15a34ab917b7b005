package ordering

import (
	"sort"
	"strings"

	"github.com/funvibe/weaver/internal/transform"
)

type cached struct {
	order []transform.Layer
	err   error
}

// Cache memoizes Order by layer set. Declarations that share the same layers
// share one computation. A Cache is not safe for concurrent use; the
// planning stage fills it before declarations are woven in parallel.
type Cache struct {
	orderer *Orderer
	entries map[string]cached
}

func NewCache(o *Orderer) *Cache {
	return &Cache{orderer: o, entries: make(map[string]cached)}
}

func (c *Cache) Order(layers []transform.Layer) ([]transform.Layer, error) {
	key := setKey(layers)
	if e, ok := c.entries[key]; ok {
		return append([]transform.Layer(nil), e.order...), e.err
	}
	order, err := c.orderer.Order(layers)
	c.entries[key] = cached{order: order, err: err}
	return append([]transform.Layer(nil), order...), err
}

// Len returns the number of distinct layer sets computed so far.
func (c *Cache) Len() int { return len(c.entries) }

func setKey(layers []transform.Layer) string {
	ids := make([]string, len(layers))
	for i, l := range layers {
		ids[i] = string(l.ID())
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
