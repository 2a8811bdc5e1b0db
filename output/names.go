package output

import (
	"fmt"

	"github.com/NeowayLabs/drmkms/mode"
)

var connectorNames = map[uint32]string{
	mode.ConnectorUnknown:     "None",
	mode.ConnectorVGA:         "VGA",
	mode.ConnectorDVII:        "DVI",
	mode.ConnectorDVID:        "DVI",
	mode.ConnectorDVIA:        "DVI",
	mode.ConnectorComposite:   "Composite",
	mode.ConnectorSVIDEO:      "TV",
	mode.ConnectorLVDS:        "LVDS",
	mode.ConnectorComponent:   "CTV",
	mode.Connector9PinDIN:     "DIN",
	mode.ConnectorDisplayPort: "DP",
	mode.ConnectorHDMIA:       "HDMI",
	mode.ConnectorHDMIB:       "HDMI",
	mode.ConnectorTV:          "TV",
	mode.ConnectorEDP:         "eDP",
	mode.ConnectorVirtual:     "Virtual",
	mode.ConnectorDSI:         "DSI",
	mode.ConnectorDPI:         "DPI",
}

// Name returns the display-server name of a connector, e.g. "HDMI1".
func Name(connType, typeID uint32) string {
	name, ok := connectorNames[connType]
	if !ok {
		name = connectorNames[mode.ConnectorUnknown]
	}
	return fmt.Sprintf("%s%d", name, typeID)
}

// SubpixelOrder uses the display server's numbering.
type SubpixelOrder int

const (
	SubpixelUnknown SubpixelOrder = iota
	SubpixelHorizontalRGB
	SubpixelHorizontalBGR
	SubpixelVerticalRGB
	SubpixelVerticalBGR
	SubpixelNone
)

var subpixelOrders = map[uint8]SubpixelOrder{
	mode.SubpixelUnknown:       SubpixelUnknown,
	mode.SubpixelHorizontalRGB: SubpixelHorizontalRGB,
	mode.SubpixelHorizontalBGR: SubpixelHorizontalBGR,
	mode.SubpixelVerticalRGB:   SubpixelVerticalRGB,
	mode.SubpixelVerticalBGR:   SubpixelVerticalBGR,
	mode.SubpixelNone:          SubpixelNone,
}

func subpixel(k uint8) SubpixelOrder {
	return subpixelOrders[k] // SubpixelUnknown when absent
}

// Status is the result of probing an output.
type Status int

const (
	StatusConnected Status = iota
	StatusDisconnected
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	}
	return "unknown"
}
