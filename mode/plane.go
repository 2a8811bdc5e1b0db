package mode

import (
	"os"
	"unsafe"

	"github.com/NeowayLabs/drmkms"
	"github.com/NeowayLabs/drmkms/ioctl"
)

type (
	sysGetPlaneRes struct {
		planeIdPtr  uintptr
		countPlanes uint32
		pad         uint32
	}

	sysGetPlane struct {
		planeID       uint32
		crtcID        uint32
		fbID          uint32
		possibleCrtcs uint32
		gammaSize     uint32

		countFormatTypes uint32
		formatTypePtr    uintptr
	}

	// Plane is a hardware scanout surface.
	Plane struct {
		ID     uint32
		CrtcID uint32 // CRTC currently scanning this plane, 0 if none
		FbID   uint32

		// PossibleCrtcs has bit N set when the plane can be attached
		// to the CRTC at index N of the resource list.
		PossibleCrtcs uint32
		GammaSize     uint32

		Formats []uint32 // fourcc codes
	}
)

var (
	// DRM_IOWR(0xB5, struct drm_mode_get_plane_res)
	IOCTLModeGetPlaneResources = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetPlaneRes{})), drm.IOCTLBase, 0xB5)

	// DRM_IOWR(0xB6, struct drm_mode_get_plane)
	IOCTLModeGetPlane = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetPlane{})), drm.IOCTLBase, 0xB6)
)

// GetPlaneResources lists the ids of every plane the file may see.
// Primary and cursor planes are only listed once the universal planes
// client capability is enabled.
func GetPlaneResources(file *os.File) ([]uint32, error) {
	var ids []uint32
	err := refill(func() (bool, error) {
		res := &sysGetPlaneRes{}
		if err := do(file, IOCTLModeGetPlaneResources, res); err != nil {
			return false, err
		}
		n := res.countPlanes
		if n == 0 {
			ids = nil
			return false, nil
		}

		buf := array[uint32](n, &res.planeIdPtr)
		if err := do(file, IOCTLModeGetPlaneResources, res); err != nil {
			return false, err
		}
		ids = clip(buf, res.countPlanes)
		return grew([2]uint32{n, res.countPlanes}), nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func GetPlane(file *os.File, id uint32) (*Plane, error) {
	p := &sysGetPlane{planeID: id}
	if err := do(file, IOCTLModeGetPlane, p); err != nil {
		return nil, err
	}

	formats := array[uint32](p.countFormatTypes, &p.formatTypePtr)
	if formats != nil {
		if err := do(file, IOCTLModeGetPlane, p); err != nil {
			return nil, err
		}
	}

	return &Plane{
		ID:            p.planeID,
		CrtcID:        p.crtcID,
		FbID:          p.fbID,
		PossibleCrtcs: p.possibleCrtcs,
		GammaSize:     p.gammaSize,
		Formats:       clip(formats, p.countFormatTypes),
	}, nil
}
