package drm

import (
	"os"
	"unsafe"

	"github.com/NeowayLabs/drmkms/ioctl"
)

type (
	capability struct {
		cap uint64
		val uint64
	}

	clientCap struct {
		cap uint64
		val uint64
	}
)

const (
	CapDumbBuffer = iota + 1
	CapVBlankHighCRTC
	CapDumbPreferredDepth
	CapDumbPreferShadow
	CapPrime
	CapTimestampMonotonic
	CapAsyncPageFlip
	CapCursorWidth
	CapCursorHeight

	CapAddFB2Modifiers = 0x10
)

// Client capabilities, enabled per open file with SetClientCap.
const (
	ClientCapStereo3D = iota + 1

	// ClientCapUniversalPlanes exposes primary and cursor planes
	// alongside overlays, and adds the "type" plane property.
	ClientCapUniversalPlanes
	ClientCapAtomic
)

// GetCap queries a device capability.
func GetCap(file *os.File, capid uint64) (uint64, error) {
	cap := &capability{cap: capid}
	err := ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLGetCap), uintptr(unsafe.Pointer(cap)))
	if err != nil {
		return 0, err
	}
	return cap.val, nil
}

func HasDumbBuffer(file *os.File) bool {
	val, err := GetCap(file, CapDumbBuffer)
	if err != nil {
		return false
	}
	return val != 0
}

// SetClientCap turns a client capability on (val != 0) or off for file.
func SetClientCap(file *os.File, capid, val uint64) error {
	cap := &clientCap{cap: capid, val: val}
	return ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLSetClientCap),
		uintptr(unsafe.Pointer(cap)))
}
