package mode

import (
	"bytes"
	"os"
	"unsafe"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/ioctl"
)

// Property flags.
const (
	PropPending   = 1 << 0
	PropRange     = 1 << 1
	PropImmutable = 1 << 2
	PropEnum      = 1 << 3
	PropBlob      = 1 << 4
	PropBitmask   = 1 << 5

	PropExtendedType = 0x0000ffc0
	PropObject       = 1 << 6
	PropSignedRange  = 2 << 6
)

// Mode object types, used to select the object of a property query.
const (
	ObjectCrtc      = 0xcccccccc
	ObjectConnector = 0xc0c0c0c0
	ObjectEncoder   = 0xe0e0e0e0
	ObjectMode      = 0xdededede
	ObjectProperty  = 0xb0b0b0b0
	ObjectFB        = 0xfbfbfbfb
	ObjectBlob      = 0xbbbbbbbb
	ObjectPlane     = 0xeeeeeeee
	ObjectAny       = 0
)

type (
	sysGetProperty struct {
		valuesPtr   uintptr
		enumBlobPtr uintptr

		propID uint32
		flags  uint32
		name   [PropNameLen]byte

		countValues    uint32
		countEnumBlobs uint32
	}

	sysPropertyEnum struct {
		value uint64
		name  [PropNameLen]byte
	}

	sysObjGetProperties struct {
		propsPtr      uintptr
		propValuesPtr uintptr
		countProps    uint32
		objID         uint32
		objType       uint32
		pad           uint32
	}

	sysGetBlob struct {
		blobID uint32
		length uint32
		data   uintptr
	}

	sysConnectorSetProperty struct {
		value       uint64
		propID      uint32
		connectorID uint32
	}

	// PropertyEnum is one named value of an enum or bitmask property.
	PropertyEnum struct {
		Name  string
		Value uint64
	}

	// Property describes a KMS property. It is not modified after
	// GetProperty returns.
	Property struct {
		ID    uint32
		Name  string
		Flags uint32

		// Values holds [min, max] for range properties.
		Values []uint64
		Enums  []PropertyEnum
	}

	// ObjectProperties are the property ids attached to a mode object
	// and their current values.
	ObjectProperties struct {
		ObjID   uint32
		ObjType uint32

		Props  []uint32
		Values []uint64
	}
)

var (
	// DRM_IOWR(0xAA, struct drm_mode_get_property)
	IOCTLModeGetProperty = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetProperty{})), drm.IOCTLBase, 0xAA)

	// DRM_IOWR(0xAB, struct drm_mode_connector_set_property)
	IOCTLModeSetProperty = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysConnectorSetProperty{})), drm.IOCTLBase, 0xAB)

	// DRM_IOWR(0xAC, struct drm_mode_get_blob)
	IOCTLModeGetPropBlob = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetBlob{})), drm.IOCTLBase, 0xAC)

	// DRM_IOWR(0xB9, struct drm_mode_obj_get_properties)
	IOCTLModeObjGetProperties = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysObjGetProperties{})), drm.IOCTLBase, 0xB9)
)

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Has reports whether all of flags are set on the property.
func (p *Property) Has(flags uint32) bool {
	return p.Flags&flags == flags
}

// IsRange reports a range property, signed or unsigned.
func (p *Property) IsRange() bool {
	return p.Has(PropRange) || p.Flags&PropExtendedType == PropSignedRange
}

// EnumValue returns the value of the enum entry called name.
func (p *Property) EnumValue(name string) (uint64, bool) {
	for _, e := range p.Enums {
		if e.Name == name {
			return e.Value, true
		}
	}
	return ^uint64(0), false
}

// Value returns the current value of property id on the object.
func (o *ObjectProperties) Value(id uint32) (uint64, bool) {
	for i, p := range o.Props {
		if p == id && i < len(o.Values) {
			return o.Values[i], true
		}
	}
	return ^uint64(0), false
}

func GetProperty(file *os.File, id uint32) (*Property, error) {
	prop := &sysGetProperty{propID: id}
	if err := do(file, IOCTLModeGetProperty, prop); err != nil {
		return nil, err
	}

	// Blob properties report their blob ids as enum blobs; only enum
	// and bitmask entries carry names.
	if prop.flags&(PropEnum|PropBitmask) == 0 {
		prop.countEnumBlobs = 0
	}
	values := array[uint64](prop.countValues, &prop.valuesPtr)
	enums := array[sysPropertyEnum](prop.countEnumBlobs, &prop.enumBlobPtr)

	if err := do(file, IOCTLModeGetProperty, prop); err != nil {
		return nil, err
	}

	ret := &Property{
		ID:     prop.propID,
		Name:   cstring(prop.name[:]),
		Flags:  prop.flags,
		Values: clip(values, prop.countValues),
	}
	for _, e := range clip(enums, prop.countEnumBlobs) {
		ret.Enums = append(ret.Enums, PropertyEnum{
			Name:  cstring(e.name[:]),
			Value: e.value,
		})
	}
	return ret, nil
}

// GetObjectProperties returns the properties attached to a mode object.
func GetObjectProperties(file *os.File, id, objType uint32) (*ObjectProperties, error) {
	ret := &ObjectProperties{ObjID: id, ObjType: objType}
	err := refill(func() (bool, error) {
		props := &sysObjGetProperties{objID: id, objType: objType}
		if err := do(file, IOCTLModeObjGetProperties, props); err != nil {
			return false, err
		}
		n := props.countProps
		if n == 0 {
			ret.Props, ret.Values = nil, nil
			return false, nil
		}

		ids := array[uint32](n, &props.propsPtr)
		values := array[uint64](n, &props.propValuesPtr)
		if err := do(file, IOCTLModeObjGetProperties, props); err != nil {
			return false, err
		}
		ret.Props = clip(ids, props.countProps)
		ret.Values = clip(values, props.countProps)
		return grew([2]uint32{n, props.countProps}), nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetPropertyBlob reads the contents of a blob, such as a connector's EDID.
func GetPropertyBlob(file *os.File, id uint32) ([]byte, error) {
	blob := &sysGetBlob{blobID: id}
	if err := do(file, IOCTLModeGetPropBlob, blob); err != nil {
		return nil, err
	}

	data := array[byte](blob.length, &blob.data)
	if data == nil {
		return nil, nil
	}
	if err := do(file, IOCTLModeGetPropBlob, blob); err != nil {
		return nil, err
	}
	return clip(data, blob.length), nil
}

func ConnectorSetProperty(file *os.File, connid, propid uint32, value uint64) error {
	return do(file, IOCTLModeSetProperty, &sysConnectorSetProperty{
		value:       value,
		propID:      propid,
		connectorID: connid,
	})
}
