// Package kms binds the plane and output packages to a real DRM device.
package kms

import (
	"os"

	"github.com/pkg/errors"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/mode"
	"github.com/NeowayLabs/drmkms/output"
	"github.com/NeowayLabs/drmkms/plane"
)

// Card is an open /dev/dri/cardN device.
type Card struct {
	file *os.File
}

var (
	_ plane.Device  = (*Card)(nil)
	_ output.Device = (*Card)(nil)
)

// Open opens card n.
func Open(n int) (*Card, error) {
	f, err := drm.OpenCard(n)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open card %d", n)
	}
	return &Card{file: f}, nil
}

// NewCard wraps an already open device file.
func NewCard(f *os.File) *Card {
	return &Card{file: f}
}

func (c *Card) File() *os.File { return c.file }

func (c *Card) Close() error { return c.file.Close() }

func (c *Card) Version() (drm.Version, error) {
	return drm.GetVersion(c.file)
}

func (c *Card) Resources() (*mode.Resources, error) {
	return mode.GetResources(c.file)
}

// Crtcs returns one plane.Crtc per CRTC, indexed by resource position.
func (c *Card) Crtcs() ([]*plane.Crtc, error) {
	res, err := c.Resources()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get resources")
	}
	return newCrtcs(res.Crtcs), nil
}

func newCrtcs(ids []uint32) []*plane.Crtc {
	crtcs := make([]*plane.Crtc, len(ids))
	for i, id := range ids {
		crtcs[i] = &plane.Crtc{ID: id, Index: i}
	}
	return crtcs
}

func (c *Card) Crtc(id uint32) (*mode.Crtc, error) {
	return mode.GetCrtc(c.file, id)
}

func (c *Card) SetClientCap(capid, val uint64) error {
	return drm.SetClientCap(c.file, capid, val)
}

func (c *Card) PlaneResources() ([]uint32, error) {
	return mode.GetPlaneResources(c.file)
}

func (c *Card) Plane(id uint32) (*mode.Plane, error) {
	return mode.GetPlane(c.file, id)
}

func (c *Card) ObjectProperties(id, objType uint32) (*mode.ObjectProperties, error) {
	return mode.GetObjectProperties(c.file, id, objType)
}

func (c *Card) Property(id uint32) (*mode.Property, error) {
	return mode.GetProperty(c.file, id)
}

func (c *Card) PropertyBlob(id uint32) ([]byte, error) {
	return mode.GetPropertyBlob(c.file, id)
}

func (c *Card) Connector(id uint32) (*mode.Connector, error) {
	return mode.GetConnector(c.file, id)
}

func (c *Card) Encoder(id uint32) (*mode.Encoder, error) {
	return mode.GetEncoder(c.file, id)
}

func (c *Card) SetConnectorProperty(connID, propID uint32, value uint64) error {
	return mode.ConnectorSetProperty(c.file, connID, propID, value)
}
