// Package output turns KMS connectors into display-server outputs. It
// advertises the connector's range and enum properties, forwards
// property changes and DPMS to the kernel, and hands the monitor's
// EDID and mode list to the display server.
package output

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/mode"
	"github.com/NeowayLabs/drmkms/property"
)

// Device is the part of a KMS device the outputs need.
type Device interface {
	property.Fetcher
	Connector(id uint32) (*mode.Connector, error)
	Encoder(id uint32) (*mode.Encoder, error)
	PropertyBlob(id uint32) ([]byte, error)
	SetConnectorProperty(connID, propID uint32, value uint64) error
}

// Well-known connector property names.
const (
	PropDPMS = "DPMS"
	PropEDID = "EDID"
)

// DPMS modes.
const (
	DPMSOn = iota
	DPMSStandby
	DPMSSuspend
	DPMSOff
)

type advertised struct {
	prop *mode.Property

	// atoms[0] names the property; enum properties follow it with one
	// atom per enum entry.
	atoms []Atom
}

// Output is the display-server output of one connector.
type Output struct {
	ID   uint32 // connector id
	Name string

	MmWidth, MmHeight uint32
	Subpixel          SubpixelOrder

	PossibleCrtcs  uint32
	PossibleClones uint32

	InterlaceAllowed  bool
	DoubleScanAllowed bool

	// Crtc is the id of the CRTC driving the output, 0 when off. It
	// follows the kernel's connector to encoder to CRTC link and is
	// refreshed by Detect.
	Crtc uint32

	dev      Device
	pub      Publisher
	conn     *mode.Connector
	encoder  *mode.Encoder
	dpms     *mode.Property
	edid     *mode.Property
	dpmsMode int
	props    []*advertised
}

func newOutput(dev Device, cache *property.Cache, pub Publisher, name string,
	conn *mode.Connector, enc *mode.Encoder) *Output {
	o := &Output{
		ID:             conn.ID,
		Name:           name,
		MmWidth:        conn.Width,
		MmHeight:       conn.Height,
		Subpixel:       subpixel(conn.Subpixel),
		PossibleCrtcs:  enc.PossibleCrtcs,
		PossibleClones: enc.PossibleClones,

		// wish there was a way to read that
		InterlaceAllowed: true,

		dev:     dev,
		pub:     pub,
		conn:    conn,
		encoder: enc,
	}
	if conn.EncoderID == enc.ID {
		o.Crtc = enc.CrtcID
	} else {
		o.Crtc = boundCrtc(dev, conn)
	}

	for _, id := range conn.Props {
		p, err := cache.Get(id)
		if err != nil {
			drm.Logger().Debug("skipping connector property", "output", name, "err", err)
			continue
		}

		switch {
		case p.Name == PropDPMS:
			if p.Has(mode.PropEnum) {
				o.dpms = p
			}
		case p.Name == PropEDID:
			if p.Has(mode.PropBlob) {
				o.edid = p
			}
		case p.Flags&(mode.PropRange|mode.PropEnum) != 0:
			o.props = append(o.props, &advertised{prop: p})
		}
	}

	return o
}

// CreateResources declares every range and enum property on the
// display-server output and publishes its current value. Errors from
// the display server are logged and the property skipped.
func (o *Output) CreateResources() {
	log := drm.Logger().With("output", o.Name)

	for _, ap := range o.props {
		p := ap.prop
		value, ok := o.conn.PropValue(p.ID)
		if !ok {
			continue
		}
		immutable := p.Has(mode.PropImmutable)

		name, err := o.pub.Atom(p.Name)
		if err != nil {
			log.Error("failed to create property atom", "property", p.Name, "err", err)
			continue
		}

		if p.Has(mode.PropRange) {
			if len(p.Values) < 2 {
				continue
			}
			ap.atoms = []Atom{name}

			rng := []int32{int32(p.Values[0]), int32(p.Values[1])}
			if err := o.pub.ConfigureProperty(name, true, immutable, rng); err != nil {
				log.Error("failed to configure output property", "property", p.Name, "err", err)
			}
			err = o.pub.ChangeProperty(name, PropertyValue{
				Type:   AtomInteger,
				Format: 32,
				Data:   []uint32{uint32(value)},
			})
			if err != nil {
				log.Error("failed to change output property", "property", p.Name, "err", err)
			}
			continue
		}

		atoms := []Atom{name}
		current := -1
		for _, e := range p.Enums {
			a, err := o.pub.Atom(e.Name)
			if err != nil {
				log.Error("failed to create enum atom", "property", p.Name, "enum", e.Name, "err", err)
				atoms = nil
				break
			}
			if value == e.Value {
				current = len(atoms)
			}
			atoms = append(atoms, a)
		}
		if atoms == nil {
			continue
		}
		ap.atoms = atoms

		allowed := make([]int32, 0, len(atoms)-1)
		for _, a := range atoms[1:] {
			allowed = append(allowed, int32(a))
		}
		if err := o.pub.ConfigureProperty(name, false, immutable, allowed); err != nil {
			log.Error("failed to configure output property", "property", p.Name, "err", err)
		}
		if current < 0 {
			continue
		}
		err = o.pub.ChangeProperty(name, PropertyValue{
			Type:   AtomAtom,
			Format: 32,
			Data:   []uint32{uint32(atoms[current])},
		})
		if err != nil {
			log.Error("failed to change output property", "property", p.Name, "err", err)
		}
	}
}

// DPMS sets the power state of the connector when it has a DPMS property.
func (o *Output) DPMS(level int) {
	if o.dpms == nil {
		return
	}
	err := o.dev.SetConnectorProperty(o.ID, o.dpms.ID, uint64(level))
	if err != nil {
		drm.Logger().Warn("failed to set DPMS", "output", o.Name, "mode", level, "err", err)
		return
	}
	o.dpmsMode = level
}

// DPMSMode returns the last mode the kernel accepted through DPMS.
func (o *Output) DPMSMode() int { return o.dpmsMode }

// Detect re-reads the connector and reports whether a monitor is attached.
func (o *Output) Detect() Status {
	conn, err := o.dev.Connector(o.ID)
	if err != nil {
		drm.Logger().Debug("failed to probe connector", "output", o.Name, "err", err)
		return StatusUnknown
	}
	o.conn = conn
	o.Crtc = boundCrtc(o.dev, conn)

	switch conn.Connection {
	case mode.Connected:
		return StatusConnected
	case mode.Disconnected:
		return StatusDisconnected
	}
	return StatusUnknown
}

// boundCrtc returns the CRTC the connector's current encoder feeds, 0
// when the connector is not driven.
func boundCrtc(dev Device, conn *mode.Connector) uint32 {
	if conn.EncoderID == 0 {
		return 0
	}
	enc, err := dev.Encoder(conn.EncoderID)
	if err != nil {
		drm.Logger().Debug("failed to read current encoder", "connector", conn.ID,
			"encoder", conn.EncoderID, "err", err)
		return 0
	}
	return enc.CrtcID
}

// EDID reads the monitor's EDID blob. A connector without an EDID
// property, or without a blob, yields nil.
func (o *Output) EDID() ([]byte, error) {
	if o.edid == nil {
		return nil, nil
	}
	id, ok := o.conn.PropValue(o.edid.ID)
	if !ok || id == 0 {
		return nil, nil
	}
	blob, err := o.dev.PropertyBlob(uint32(id))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read EDID blob %d", id)
	}
	return blob, nil
}

// Modes attaches the EDID to the display-server output and returns the
// modes the kernel reported at the last Detect.
func (o *Output) Modes() []mode.Info {
	edid, err := o.EDID()
	if err != nil {
		drm.Logger().Warn("no EDID", "output", o.Name, "err", err)
	}
	if err := o.pub.SetEDID(edid); err != nil {
		drm.Logger().Error("failed to attach EDID", "output", o.Name, "err", err)
	}
	return slices.Clone(o.conn.Modes)
}

// SetProperty applies a display-server property change to the connector.
// Properties this output did not advertise are accepted untouched so
// that generic properties such as EDID keep working.
func (o *Output) SetProperty(a Atom, v PropertyValue) bool {
	ap := o.findProp(a)
	if ap == nil {
		return true
	}

	p := ap.prop
	var val uint64
	switch {
	case p.Has(mode.PropRange):
		if v.Type != AtomInteger || v.Format != 32 || len(v.Data) != 1 {
			return false
		}
		val = uint64(v.Data[0])
	case p.Has(mode.PropEnum):
		if v.Type != AtomAtom || v.Format != 32 || len(v.Data) != 1 {
			return false
		}
		name, err := o.pub.AtomName(Atom(v.Data[0]))
		if err != nil {
			return false
		}
		var ok bool
		if val, ok = p.EnumValue(name); !ok {
			return false
		}
	default:
		return true
	}

	if err := o.dev.SetConnectorProperty(o.ID, p.ID, val); err != nil {
		drm.Logger().Warn("failed to set connector property",
			"output", o.Name, "property", p.Name, "value", val, "err", err)
		return false
	}
	return true
}

// GetProperty refreshes a property value on request. Values are
// published up front, so there is never anything to refresh.
func (o *Output) GetProperty(a Atom) bool {
	return false
}

func (o *Output) findProp(a Atom) *advertised {
	for _, ap := range o.props {
		if len(ap.atoms) > 0 && ap.atoms[0] == a {
			return ap
		}
	}
	return nil
}

// Destroy drops the output's references to connector state and cached
// descriptors.
func (o *Output) Destroy() {
	o.props = nil
	o.dpms = nil
	o.edid = nil
	o.conn = nil
	o.encoder = nil
	o.pub = nil
}
