package mode

import (
	"bytes"
	"os"
	"unsafe"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/ioctl"
)

const (
	DisplayInfoLen   = 32
	ConnectorNameLen = 32
	DisplayModeLen   = 32
	PropNameLen      = 32

	Connected         = 1
	Disconnected      = 2
	UnknownConnection = 3
)

// Connector types as reported in Connector.Type.
const (
	ConnectorUnknown = iota
	ConnectorVGA
	ConnectorDVII
	ConnectorDVID
	ConnectorDVIA
	ConnectorComposite
	ConnectorSVIDEO
	ConnectorLVDS
	ConnectorComponent
	Connector9PinDIN
	ConnectorDisplayPort
	ConnectorHDMIA
	ConnectorHDMIB
	ConnectorTV
	ConnectorEDP
	ConnectorVirtual
	ConnectorDSI
	ConnectorDPI
	ConnectorWriteback
)

// Subpixel orders, already shifted to the userspace numbering.
const (
	SubpixelUnknown = iota + 1
	SubpixelHorizontalRGB
	SubpixelHorizontalBGR
	SubpixelVerticalRGB
	SubpixelVerticalBGR
	SubpixelNone
)

// Mode type bits in Info.Type.
const (
	TypeBuiltin   = 1 << 0
	TypePreferred = 1 << 3
	TypeDefault   = 1 << 4
	TypeUserdef   = 1 << 5
	TypeDriver    = 1 << 6
)

type (
	sysResources struct {
		fbIdPtr              uintptr
		crtcIdPtr            uintptr
		connectorIdPtr       uintptr
		encoderIdPtr         uintptr
		CountFbs             uint32
		CountCrtcs           uint32
		CountConnectors      uint32
		CountEncoders        uint32
		MinWidth, MaxWidth   uint32
		MinHeight, MaxHeight uint32
	}

	sysGetConnector struct {
		encodersPtr   uintptr
		modesPtr      uintptr
		propsPtr      uintptr
		propValuesPtr uintptr

		countModes    uint32
		countProps    uint32
		countEncoders uint32

		encoderID       uint32 // current encoder
		ID              uint32
		connectorType   uint32
		connectorTypeID uint32

		connection        uint32
		mmWidth, mmHeight uint32 // HxW in millimeters
		subpixel          uint32
		pad               uint32
	}

	sysGetEncoder struct {
		id  uint32
		typ uint32

		crtcID uint32

		possibleCrtcs  uint32
		possibleClones uint32
	}

	Info struct {
		Clock                                         uint32
		Hdisplay, HsyncStart, HsyncEnd, Htotal, Hskew uint16
		Vdisplay, VsyncStart, VsyncEnd, Vtotal, Vscan uint16

		Vrefresh uint32

		Flags uint32
		Type  uint32
		Name  [DisplayModeLen]uint8
	}

	Resources struct {
		sysResources

		Fbs        []uint32
		Crtcs      []uint32
		Connectors []uint32
		Encoders   []uint32
	}

	Connector struct {
		sysGetConnector

		ID            uint32
		EncoderID     uint32
		Type          uint32
		TypeID        uint32
		Connection    uint8
		Width, Height uint32
		Subpixel      uint8

		Modes []Info

		Props      []uint32
		PropValues []uint64

		Encoders []uint32
	}

	Encoder struct {
		ID   uint32
		Type uint32

		CrtcID uint32

		PossibleCrtcs  uint32
		PossibleClones uint32
	}

	sysCrtc struct {
		setConnectorsPtr uintptr
		countConnectors  uint32

		id   uint32
		fbID uint32 // Id of framebuffer

		x, y uint32 // Position on the frameuffer

		gammaSize uint32
		modeValid uint32
		mode      Info
	}

	Crtc struct {
		ID       uint32
		BufferID uint32 // FB id to connect to 0 = disconnect

		X, Y          uint32 // Position on the framebuffer
		Width, Height uint32
		ModeValid     int
		Mode          Info

		GammaSize int // Number of gamma stops
	}
)

var (
	// DRM_IOWR(0xA0, struct drm_mode_card_res)
	IOCTLModeResources = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysResources{})), drm.IOCTLBase, 0xA0)

	// DRM_IOWR(0xA1, struct drm_mode_crtc)
	IOCTLModeGetCrtc = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysCrtc{})), drm.IOCTLBase, 0xA1)

	// DRM_IOWR(0xA6, struct drm_mode_get_encoder)
	IOCTLModeGetEncoder = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetEncoder{})), drm.IOCTLBase, 0xA6)

	// DRM_IOWR(0xA7, struct drm_mode_get_connector)
	IOCTLModeGetConnector = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetConnector{})), drm.IOCTLBase, 0xA7)
)

// String returns the mode name, e.g. "1920x1080".
func (i *Info) String() string {
	return string(bytes.TrimRight(i.Name[:], "\x00"))
}

func GetResources(file *os.File) (*Resources, error) {
	var ret *Resources
	err := refill(func() (bool, error) {
		mres := &sysResources{}
		if err := do(file, IOCTLModeResources, mres); err != nil {
			return false, err
		}
		counts := *mres

		fbids := array[uint32](mres.CountFbs, &mres.fbIdPtr)
		crtcids := array[uint32](mres.CountCrtcs, &mres.crtcIdPtr)
		connectorids := array[uint32](mres.CountConnectors, &mres.connectorIdPtr)
		encoderids := array[uint32](mres.CountEncoders, &mres.encoderIdPtr)

		if err := do(file, IOCTLModeResources, mres); err != nil {
			return false, err
		}

		mres.fbIdPtr, mres.crtcIdPtr, mres.connectorIdPtr, mres.encoderIdPtr = 0, 0, 0, 0
		ret = &Resources{
			sysResources: *mres,
			Fbs:          clip(fbids, mres.CountFbs),
			Crtcs:        clip(crtcids, mres.CountCrtcs),
			Encoders:     clip(encoderids, mres.CountEncoders),
			Connectors:   clip(connectorids, mres.CountConnectors),
		}
		return grew(
			[2]uint32{counts.CountFbs, mres.CountFbs},
			[2]uint32{counts.CountCrtcs, mres.CountCrtcs},
			[2]uint32{counts.CountConnectors, mres.CountConnectors},
			[2]uint32{counts.CountEncoders, mres.CountEncoders},
		), nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetConnector reads a connector without forcing a probe: the mode
// list is whatever the kernel found at the last detection.
func GetConnector(file *os.File, connid uint32) (*Connector, error) {
	var ret *Connector
	err := refill(func() (bool, error) {
		conn := &sysGetConnector{ID: connid}
		if err := do(file, IOCTLModeGetConnector, conn); err != nil {
			return false, err
		}
		counts := *conn

		// A zero mode count would make the kernel reprobe the connector.
		if conn.countModes == 0 {
			conn.countModes = 1
		}
		props := array[uint32](conn.countProps, &conn.propsPtr)
		propValues := array[uint64](conn.countProps, &conn.propValuesPtr)
		modes := array[Info](conn.countModes, &conn.modesPtr)
		encoders := array[uint32](conn.countEncoders, &conn.encodersPtr)

		if err := do(file, IOCTLModeGetConnector, conn); err != nil {
			return false, err
		}

		conn.encodersPtr, conn.modesPtr, conn.propsPtr, conn.propValuesPtr = 0, 0, 0, 0
		ret = &Connector{
			sysGetConnector: *conn,
			ID:              conn.ID,
			EncoderID:       conn.encoderID,
			Connection:      uint8(conn.connection),
			Width:           conn.mmWidth,
			Height:          conn.mmHeight,

			// kernel subpixel values start at 0, userspace ones at 1
			Subpixel: uint8(conn.subpixel + 1),
			Type:     conn.connectorType,
			TypeID:   conn.connectorTypeID,

			Props:      clip(props, conn.countProps),
			PropValues: clip(propValues, conn.countProps),
			Modes:      clip(modes, conn.countModes),
			Encoders:   clip(encoders, conn.countEncoders),
		}
		return grew(
			[2]uint32{counts.countProps, conn.countProps},
			[2]uint32{max(counts.countModes, 1), conn.countModes},
			[2]uint32{counts.countEncoders, conn.countEncoders},
		), nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// PropValue returns the connector's current value for property id.
func (c *Connector) PropValue(id uint32) (uint64, bool) {
	for i, p := range c.Props {
		if p == id && i < len(c.PropValues) {
			return c.PropValues[i], true
		}
	}
	return 0, false
}

func GetEncoder(file *os.File, id uint32) (*Encoder, error) {
	encoder := &sysGetEncoder{id: id}
	if err := do(file, IOCTLModeGetEncoder, encoder); err != nil {
		return nil, err
	}

	return &Encoder{
		ID:             encoder.id,
		CrtcID:         encoder.crtcID,
		Type:           encoder.typ,
		PossibleCrtcs:  encoder.possibleCrtcs,
		PossibleClones: encoder.possibleClones,
	}, nil
}

func GetCrtc(file *os.File, id uint32) (*Crtc, error) {
	crtc := &sysCrtc{id: id}
	if err := do(file, IOCTLModeGetCrtc, crtc); err != nil {
		return nil, err
	}
	return &Crtc{
		ID:        crtc.id,
		BufferID:  crtc.fbID,
		X:         crtc.x,
		Y:         crtc.y,
		Width:     uint32(crtc.mode.Hdisplay),
		Height:    uint32(crtc.mode.Vdisplay),
		ModeValid: int(crtc.modeValid),
		Mode:      crtc.mode,
		GammaSize: int(crtc.gammaSize),
	}, nil
}
