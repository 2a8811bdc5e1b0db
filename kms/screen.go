package kms

import (
	"github.com/pkg/errors"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/fence"
	"github.com/NeowayLabs/drmkms/mode"
	"github.com/NeowayLabs/drmkms/output"
	"github.com/NeowayLabs/drmkms/plane"
)

// Device is everything a Screen needs from a KMS device; *Card is one.
type Device interface {
	plane.Device
	output.Device
	Resources() (*mode.Resources, error)
}

// Screen holds the display state of one device: its CRTCs, plane
// resources, outputs and the ledger of outstanding GPU work.
type Screen struct {
	Crtcs   []*plane.Crtc
	Planes  *plane.Resources
	Outputs *output.Manager
	Fences  *fence.Ledger
}

// NewScreen sets up planes and outputs. Outputs share the plane
// property cache.
func NewScreen(dev Device, host output.Host, opts plane.Options) (*Screen, error) {
	res, err := dev.Resources()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get resources")
	}

	s := &Screen{
		Crtcs:  newCrtcs(res.Crtcs),
		Fences: fence.NewLedger(),
	}

	s.Planes, err = plane.Init(dev, s.Crtcs, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set up planes")
	}

	s.Outputs = output.NewManager(dev, host, s.Planes.Cache())
	n := s.Outputs.Init(res.Connectors)
	drm.Logger().Info("screen ready", "crtcs", len(s.Crtcs), "outputs", n,
		"overlays", len(s.Planes.Overlays()))
	return s, nil
}

// Crtc returns the CRTC with the given id, or nil.
func (s *Screen) Crtc(id uint32) *plane.Crtc {
	for _, c := range s.Crtcs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Close retires outstanding GPU work and tears down outputs before the
// plane resources that own the shared property cache.
func (s *Screen) Close() {
	s.Fences.RetireAll()
	s.Outputs.Close()
	s.Planes.Cleanup()
}
