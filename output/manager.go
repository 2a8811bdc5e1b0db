package output

import (
	"github.com/pkg/errors"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/property"
)

// Manager owns the outputs of one screen.
type Manager struct {
	dev     Device
	host    Host
	cache   *property.Cache
	outputs []*Output
}

// NewManager returns a manager that looks connector properties up in
// cache. The cache must outlive the manager.
func NewManager(dev Device, host Host, cache *property.Cache) *Manager {
	return &Manager{dev: dev, host: host, cache: cache}
}

// Init adds an output for every connector id. Connectors that cannot be
// read are skipped; the number of outputs created is returned.
func (m *Manager) Init(ids []uint32) int {
	n := 0
	for _, id := range ids {
		if _, err := m.AddConnector(id); err != nil {
			drm.Logger().Warn("skipping connector", "id", id, "err", err)
			continue
		}
		n++
	}
	return n
}

// AddConnector creates the output of connector id.
func (m *Manager) AddConnector(id uint32) (*Output, error) {
	conn, err := m.dev.Connector(id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get connector %d", id)
	}
	if len(conn.Encoders) == 0 {
		return nil, errors.Errorf("connector %d has no encoder", id)
	}

	enc, err := m.dev.Encoder(conn.Encoders[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get encoder %d", conn.Encoders[0])
	}

	name := Name(conn.Type, conn.TypeID)
	pub, err := m.host.CreateOutput(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create output %s", name)
	}

	o := newOutput(m.dev, m.cache, pub, name, conn, enc)
	m.outputs = append(m.outputs, o)
	drm.Logger().Debug("created output", "name", name, "connector", id,
		"properties", len(o.props), "dpms", o.dpms != nil, "edid", o.edid != nil)
	return o, nil
}

func (m *Manager) Outputs() []*Output { return m.outputs }

// Output returns the output called name, or nil.
func (m *Manager) Output(name string) *Output {
	for _, o := range m.outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// OutputIDs returns the connector ids of the outputs driven by crtc.
func (m *Manager) OutputIDs(crtc uint32) []uint32 {
	var ids []uint32
	for _, o := range m.outputs {
		if o.Crtc == crtc {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Close destroys every output. The property cache is left to its owner.
func (m *Manager) Close() {
	for _, o := range m.outputs {
		o.Destroy()
	}
	m.outputs = nil
}
