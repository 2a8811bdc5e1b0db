// Package plane discovers the hardware planes of a KMS device and sorts
// them into the primary plane of each CRTC and a pool of overlay planes.
package plane

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/mode"
	"github.com/NeowayLabs/drmkms/property"
)

// Device is the part of a KMS device the plane code needs.
type Device interface {
	property.Fetcher
	PlaneResources() ([]uint32, error)
	Plane(id uint32) (*mode.Plane, error)
	ObjectProperties(id, objType uint32) (*mode.ObjectProperties, error)
	SetClientCap(capid, val uint64) error
}

// Plane is an enumerated plane and its property values.
type Plane struct {
	*mode.Plane
	Props *mode.ObjectProperties
}

// Crtc is the per-CRTC state the classifier fills in.
type Crtc struct {
	ID uint32

	// Index is the CRTC's position in the device resource list, which
	// is the bit that stands for it in possible-CRTC masks.
	Index int

	PrimaryPlaneID uint32
}

// Plane type enum names of the "type" property.
const (
	TypeProperty = "type"
	TypePrimary  = "Primary"
	TypeOverlay  = "Overlay"
	TypeCursor   = "Cursor"
)

// EnumerateAll reads every plane and its properties, and makes sure each
// property id it references is in the cache. Any failure discards the
// planes read so far.
func EnumerateAll(dev Device, cache *property.Cache) ([]*Plane, error) {
	ids, err := dev.PlaneResources()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get plane resources")
	}

	planes := make([]*Plane, 0, len(ids))
	for _, id := range ids {
		mp, err := dev.Plane(id)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get plane %d", id)
		}

		props, err := dev.ObjectProperties(id, mode.ObjectPlane)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get properties of plane %d", id)
		}

		for _, pid := range props.Props {
			if _, err := cache.Get(pid); err != nil {
				return nil, errors.Wrapf(err, "plane %d", id)
			}
		}

		drm.Logger().Debug("found plane", "id", mp.ID,
			"possible_crtcs", mp.PossibleCrtcs, "properties", len(props.Props))
		planes = append(planes, &Plane{Plane: mp, Props: props})
	}

	return planes, nil
}

// CrtcForMask returns the CRTC a primary plane belongs to. Primary
// planes serve exactly one CRTC, so a mask without exactly one bit set
// matches nothing.
func CrtcForMask(mask uint32, crtcs []*Crtc) *Crtc {
	if bits.OnesCount32(mask) != 1 {
		return nil
	}
	for _, c := range crtcs {
		if c.Index >= 0 && c.Index < 32 && mask&(1<<uint(c.Index)) != 0 {
			return c
		}
	}
	return nil
}

// Partition splits planes by their "type" property. Overlay planes are
// returned in their original order; each primary plane's id is stored
// on the CRTC it serves. Everything else, including primaries whose
// CRTC cannot be resolved, is dropped.
//
// When the device has no "type" property, or it lacks the Primary and
// Overlay entries, planes is returned as is: without universal planes
// every listed plane is an overlay.
//
// planes itself is never modified.
func Partition(planes []*Plane, cache *property.Cache, crtcs []*Crtc) []*Plane {
	typ := cache.FindByName(TypeProperty)
	if typ == nil {
		return planes
	}

	primary, ok1 := typ.EnumValue(TypePrimary)
	overlay, ok2 := typ.EnumValue(TypeOverlay)
	if !ok1 || !ok2 {
		return planes
	}

	var overlays []*Plane
	for _, p := range planes {
		val, ok := p.Props.Value(typ.ID)
		if !ok {
			continue
		}

		switch val {
		case overlay:
			overlays = append(overlays, p)
		case primary:
			crtc := CrtcForMask(p.PossibleCrtcs, crtcs)
			if crtc == nil {
				drm.Logger().Debug("dropping primary plane with ambiguous crtc mask",
					"id", p.ID, "possible_crtcs", p.PossibleCrtcs)
				continue
			}
			crtc.PrimaryPlaneID = p.ID
		}
	}

	return overlays
}
