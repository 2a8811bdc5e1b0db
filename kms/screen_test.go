package kms

import (
	"errors"
	"testing"

	"github.com/NeowayLabs/drmkms/fence"
	"github.com/NeowayLabs/drmkms/mode"
	"github.com/NeowayLabs/drmkms/output"
	"github.com/NeowayLabs/drmkms/plane"
)

var errIO = errors.New("ioctl failed")

// fakeDevice is a two-CRTC device with one primary plane per CRTC, one
// overlay and one HDMI connector.
type fakeDevice struct {
	failResources bool
	props         map[uint32]*mode.Property

	// current encoder of connector 30 and the CRTC each encoder feeds
	encoderID uint32
	bound     map[uint32]uint32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{props: map[uint32]*mode.Property{
		1: {ID: 1, Name: plane.TypeProperty, Flags: mode.PropEnum | mode.PropImmutable, Enums: []mode.PropertyEnum{
			{Name: plane.TypeOverlay, Value: 0}, {Name: plane.TypePrimary, Value: 1},
		}},
		2: {ID: 2, Name: output.PropDPMS, Flags: mode.PropEnum, Enums: []mode.PropertyEnum{{Name: "On"}, {Name: "Off", Value: 3}}},
	}}
}

func (d *fakeDevice) Resources() (*mode.Resources, error) {
	if d.failResources {
		return nil, errIO
	}
	return &mode.Resources{Crtcs: []uint32{40, 41}, Connectors: []uint32{30}}, nil
}

func (d *fakeDevice) SetClientCap(capid, val uint64) error { return nil }

func (d *fakeDevice) PlaneResources() ([]uint32, error) { return []uint32{10, 11, 12}, nil }

func (d *fakeDevice) Plane(id uint32) (*mode.Plane, error) {
	crtcs := map[uint32]uint32{10: 1, 11: 2, 12: 3}
	return &mode.Plane{ID: id, PossibleCrtcs: crtcs[id]}, nil
}

func (d *fakeDevice) ObjectProperties(id, objType uint32) (*mode.ObjectProperties, error) {
	typ := map[uint32]uint64{10: 1, 11: 1, 12: 0}
	return &mode.ObjectProperties{ObjID: id, ObjType: objType, Props: []uint32{1}, Values: []uint64{typ[id]}}, nil
}

func (d *fakeDevice) Property(id uint32) (*mode.Property, error) {
	p, ok := d.props[id]
	if !ok {
		return nil, errIO
	}
	return p, nil
}

func (d *fakeDevice) Connector(id uint32) (*mode.Connector, error) {
	return &mode.Connector{
		ID: id, Type: mode.ConnectorHDMIA, TypeID: 1, Encoders: []uint32{50},
		EncoderID: d.encoderID, Props: []uint32{2}, PropValues: []uint64{0},
	}, nil
}

func (d *fakeDevice) Encoder(id uint32) (*mode.Encoder, error) {
	return &mode.Encoder{ID: id, CrtcID: d.bound[id], PossibleCrtcs: 3}, nil
}

func (d *fakeDevice) PropertyBlob(id uint32) ([]byte, error) { return nil, errIO }

func (d *fakeDevice) SetConnectorProperty(connID, propID uint32, value uint64) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Atom(name string) (output.Atom, error)  { return 1, nil }
func (nopPublisher) AtomName(a output.Atom) (string, error) { return "", errIO }
func (nopPublisher) ConfigureProperty(output.Atom, bool, bool, []int32) error {
	return nil
}
func (nopPublisher) ChangeProperty(output.Atom, output.PropertyValue) error { return nil }
func (nopPublisher) SetEDID([]byte) error                                   { return nil }

type nopHost struct{}

func (nopHost) CreateOutput(name string) (output.Publisher, error) { return nopPublisher{}, nil }

func TestNewScreen(t *testing.T) {
	s, err := NewScreen(newFakeDevice(), nopHost{}, plane.Options{})
	if err != nil {
		t.Fatal(err)
	}

	if len(s.Crtcs) != 2 || s.Crtc(41).Index != 1 || s.Crtc(99) != nil {
		t.Fatalf("crtcs %+v", s.Crtcs)
	}
	if s.Crtc(40).PrimaryPlaneID != 10 || s.Crtc(41).PrimaryPlaneID != 11 {
		t.Errorf("primaries %d %d", s.Crtc(40).PrimaryPlaneID, s.Crtc(41).PrimaryPlaneID)
	}
	if ov := s.Planes.Overlays(); len(ov) != 1 || ov[0].ID != 12 {
		t.Errorf("overlays %v", ov)
	}
	if o := s.Outputs.Output("HDMI1"); o == nil {
		t.Fatal("no HDMI1 output")
	}
	if s.Planes.Cache().FindByName(output.PropDPMS) == nil {
		t.Error("connector properties not in the shared cache")
	}

	retired := 0
	f := fence.New(func(*fence.Ledger, *fence.Fence) { retired++ })
	s.Fences.Add(f)
	s.Fences.AssignID(1)

	s.Close()
	if retired != 1 {
		t.Errorf("Close retired %d fences, want 1", retired)
	}
	if len(s.Outputs.Outputs()) != 0 || s.Planes.Cache().Len() != 0 {
		t.Error("Close left outputs or cached properties")
	}
	if s.Crtc(40).PrimaryPlaneID != 0 {
		t.Error("Close kept primary planes")
	}
}

func TestScreenOutputIDs(t *testing.T) {
	dev := newFakeDevice()
	dev.encoderID = 50
	dev.bound = map[uint32]uint32{50: 40}
	s, err := NewScreen(dev, nopHost{}, plane.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if ids := s.Outputs.OutputIDs(40); len(ids) != 1 || ids[0] != 30 {
		t.Errorf("OutputIDs(40) = %v, want [30]", ids)
	}
	if ids := s.Outputs.OutputIDs(41); len(ids) != 0 {
		t.Errorf("OutputIDs(41) = %v, want none", ids)
	}

	// The kernel moves the encoder to the other CRTC.
	dev.bound[50] = 41
	o := s.Outputs.Output("HDMI1")
	o.Detect()
	if o.Crtc != 41 {
		t.Errorf("Crtc = %d after Detect, want 41", o.Crtc)
	}
	if ids := s.Outputs.OutputIDs(41); len(ids) != 1 || ids[0] != 30 {
		t.Errorf("OutputIDs(41) = %v, want [30]", ids)
	}
}

func TestNewScreenResourcesFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failResources = true
	if _, err := NewScreen(dev, nopHost{}, plane.Options{}); !errors.Is(err, errIO) {
		t.Errorf("NewScreen error = %v, want errIO", err)
	}
}
