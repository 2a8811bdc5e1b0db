// Package property caches KMS property descriptors by id, so planes and
// connectors that expose the same property share one descriptor and the
// kernel is asked about each id only once.
package property

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/mode"
)

// Fetcher reads a property descriptor from the kernel.
type Fetcher interface {
	Property(id uint32) (*mode.Property, error)
}

// Cache owns the descriptors it holds. Callers keep plain pointers and
// must stop using them once Destroy has run.
type Cache struct {
	dev   Fetcher
	props map[uint32]*mode.Property
	order []uint32
}

func NewCache(dev Fetcher) *Cache {
	return &Cache{
		dev:   dev,
		props: make(map[uint32]*mode.Property),
	}
}

// Get returns the descriptor for id, fetching it on first use.
// Nothing is cached when the fetch fails.
func (c *Cache) Get(id uint32) (*mode.Property, error) {
	if p, ok := c.props[id]; ok {
		return p, nil
	}

	p, err := c.dev.Property(id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get property %d", id)
	}
	if p == nil {
		return nil, errors.Errorf("no property %d", id)
	}

	c.props[id] = p
	c.order = append(c.order, id)
	drm.Logger().Debug("cached property", "id", id, "name", p.Name, "flags", p.Flags)
	return p, nil
}

// Lookup returns an already cached descriptor without asking the kernel.
func (c *Cache) Lookup(id uint32) (*mode.Property, bool) {
	p, ok := c.props[id]
	return p, ok
}

// FindByName returns the first cached descriptor called name, in the
// order they were fetched, or nil when no cached property has that name.
// A nil result means the hardware does not offer the feature.
func (c *Cache) FindByName(name string) *mode.Property {
	for _, id := range c.order {
		if p := c.props[id]; p.Name == name {
			return p
		}
	}
	return nil
}

func (c *Cache) Len() int { return len(c.props) }

// Snapshot returns a copy of the id to descriptor map.
func (c *Cache) Snapshot() map[uint32]*mode.Property {
	return maps.Clone(c.props)
}

// Destroy drops every descriptor. Planes and connectors that refer to
// cached descriptors must be torn down first.
func (c *Cache) Destroy() {
	clear(c.props)
	c.order = nil
}
