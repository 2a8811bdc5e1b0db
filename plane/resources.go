package plane

import (
	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/mode"
	"github.com/NeowayLabs/drmkms/property"
)

// Options tune Init.
type Options struct {
	// DisableUniversalPlanes keeps the legacy plane list, where every
	// plane is an overlay and primaries stay hidden.
	DisableUniversalPlanes bool
}

// Resources is the plane state of one screen.
type Resources struct {
	cache     *property.Cache
	crtcs     []*Crtc
	overlays  []*Plane
	universal bool
}

// Init enumerates the planes of dev and classifies them against crtcs.
// On failure everything acquired is released and the CRTCs are left
// without primary planes.
func Init(dev Device, crtcs []*Crtc, opts Options) (*Resources, error) {
	r := &Resources{
		cache: property.NewCache(dev),
		crtcs: crtcs,
	}

	if !opts.DisableUniversalPlanes {
		if err := dev.SetClientCap(drm.ClientCapUniversalPlanes, 1); err != nil {
			drm.Logger().Warn("universal planes unavailable", "err", err)
		} else {
			r.universal = true
		}
	}

	planes, err := EnumerateAll(dev, r.cache)
	if err != nil {
		r.Cleanup()
		return nil, err
	}

	if r.universal {
		planes = Partition(planes, r.cache, crtcs)
	}

	r.overlays = planes
	drm.Logger().Debug("plane resources ready", "overlays", len(planes),
		"universal_planes", r.universal, "properties", r.cache.Len())
	return r, nil
}

// Overlays returns the overlay planes available for video and sprites.
func (r *Resources) Overlays() []*Plane { return r.overlays }

func (r *Resources) UniversalPlanes() bool { return r.universal }

func (r *Resources) Cache() *property.Cache { return r.cache }

// Property returns the descriptor for a plane property id, fetching
// and caching it when enumeration did not see it.
func (r *Resources) Property(id uint32) (*mode.Property, error) {
	return r.cache.Get(id)
}

// Cleanup forgets the primary planes, drops the overlays and then the
// property cache they refer to.
func (r *Resources) Cleanup() {
	for _, c := range r.crtcs {
		c.PrimaryPlaneID = 0
	}
	r.overlays = nil
	r.cache.Destroy()
	r.universal = false
}
