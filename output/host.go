package output

// Atom names a display-server property or property value.
type Atom uint32

// Predefined atoms of the X protocol used as property types.
const (
	AtomAtom    Atom = 4
	AtomInteger Atom = 19
)

// PropertyValue is a display-server property value: Format-bit items of
// type Type. Only 32-bit items are produced or accepted here.
type PropertyValue struct {
	Type   Atom
	Format uint8
	Data   []uint32
}

// Host creates display-server outputs.
type Host interface {
	CreateOutput(name string) (Publisher, error)
}

// Publisher is the display-server side of one output.
type Publisher interface {
	Atom(name string) (Atom, error)
	AtomName(a Atom) (string, error)

	// ConfigureProperty declares property a. For a range property
	// values holds [min, max]; otherwise it lists the allowed atoms.
	ConfigureProperty(a Atom, rangeValued, immutable bool, values []int32) error
	ChangeProperty(a Atom, v PropertyValue) error

	// SetEDID attaches the monitor's EDID; nil clears it.
	SetEDID(edid []byte) error
}
