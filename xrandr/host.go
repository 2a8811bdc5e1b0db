// Package xrandr publishes outputs through the X11 RandR extension.
package xrandr

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/NeowayLabs/drmkms/output"
)

// Host is an output.Host backed by an X server connection.
type Host struct {
	conn *xgb.Conn
	root xproto.Window
}

var _ output.Host = (*Host)(nil)

// Dial connects to display, or to $DISPLAY when display is empty.
func Dial(display string) (*Host, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect X")
	}
	h, err := NewHost(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return h, nil
}

// NewHost uses an existing connection.
func NewHost(conn *xgb.Conn) (*Host, error) {
	if err := randr.Init(conn); err != nil {
		return nil, errors.Wrap(err, "RandR extension unavailable")
	}
	return &Host{
		conn: conn,
		root: xproto.Setup(conn).DefaultScreen(conn).Root,
	}, nil
}

func (h *Host) Close() {
	h.conn.Close()
}

// CreateOutput binds to the RandR output called name.
func (h *Host) CreateOutput(name string) (output.Publisher, error) {
	res, err := randr.GetScreenResourcesCurrent(h.conn, h.root).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get screen resources")
	}

	for _, o := range res.Outputs {
		info, err := randr.GetOutputInfo(h.conn, o, res.ConfigTimestamp).Reply()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get info of output %d", o)
		}
		if string(info.Name) == name {
			return &Output{conn: h.conn, id: o}, nil
		}
	}
	return nil, errors.Errorf("no RandR output named %q", name)
}

// Output is the RandR side of one output.
type Output struct {
	conn *xgb.Conn
	id   randr.Output
}

var _ output.Publisher = (*Output)(nil)

func (o *Output) Atom(name string) (output.Atom, error) {
	r, err := xproto.InternAtom(o.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to intern atom %q", name)
	}
	return output.Atom(r.Atom), nil
}

func (o *Output) AtomName(a output.Atom) (string, error) {
	r, err := xproto.GetAtomName(o.conn, xproto.Atom(a)).Reply()
	if err != nil {
		return "", errors.Wrapf(err, "failed to get name of atom %d", a)
	}
	return r.Name, nil
}

// ConfigureProperty declares the property. RandR clients cannot mark
// a property immutable, so immutable is only honoured by the server.
func (o *Output) ConfigureProperty(a output.Atom, rangeValued, immutable bool, values []int32) error {
	err := randr.ConfigureOutputPropertyChecked(o.conn, o.id, xproto.Atom(a),
		false, rangeValued, values).Check()
	return errors.Wrapf(err, "failed to configure property %d", a)
}

func (o *Output) ChangeProperty(a output.Atom, v output.PropertyValue) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	err = randr.ChangeOutputPropertyChecked(o.conn, o.id, xproto.Atom(a),
		xproto.Atom(v.Type), v.Format, xproto.PropModeReplace,
		uint32(len(v.Data)), data).Check()
	return errors.Wrapf(err, "failed to change property %d", a)
}

// SetEDID stores the raw EDID in the output's EDID property, as 8-bit
// integers, or deletes the property when edid is nil.
func (o *Output) SetEDID(edid []byte) error {
	a, err := o.Atom(output.PropEDID)
	if err != nil {
		return err
	}
	if edid == nil {
		err = randr.DeleteOutputPropertyChecked(o.conn, o.id, xproto.Atom(a)).Check()
		return errors.Wrap(err, "failed to delete EDID")
	}
	err = randr.ChangeOutputPropertyChecked(o.conn, o.id, xproto.Atom(a),
		xproto.AtomInteger, 8, xproto.PropModeReplace, uint32(len(edid)), edid).Check()
	return errors.Wrap(err, "failed to set EDID")
}

// encode packs v in X wire format.
func encode(v output.PropertyValue) ([]byte, error) {
	size := int(v.Format) / 8
	switch v.Format {
	case 8, 16, 32:
	default:
		return nil, errors.Errorf("invalid property format %d", v.Format)
	}

	buf := make([]byte, len(v.Data)*size)
	for i, d := range v.Data {
		switch v.Format {
		case 8:
			buf[i] = byte(d)
		case 16:
			xgb.Put16(buf[i*2:], uint16(d))
		case 32:
			xgb.Put32(buf[i*4:], d)
		}
	}
	return buf, nil
}
