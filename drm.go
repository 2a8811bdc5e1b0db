package drm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unsafe"

	"github.com/NeowayLabs/drmkms/ioctl"
)

type (
	// struct drm_version
	sysVersion struct {
		major, minor, patch int32

		nameLen int64
		name    uintptr
		dateLen int64
		date    uintptr
		descLen int64
		desc    uintptr
	}

	// Version of DRM driver
	Version struct {
		Major, Minor, Patch int32
		Name                string // Name of the driver (eg.: i915)
		Date                string
		Desc                string
	}
)

const (
	driPath = "/dev/dri"
)

func (v Version) String() string {
	return fmt.Sprintf("%s %d.%d.%d", v.Name, v.Major, v.Minor, v.Patch)
}

// Available reports the driver version of the first card.
func Available() (Version, error) {
	f, err := OpenCard(0)
	if err != nil {
		return Version{}, err
	}
	defer f.Close()
	return GetVersion(f)
}

// Cards lists the numbers of the primary nodes under /dev/dri, lowest
// first.
func Cards() ([]int, error) {
	paths, err := filepath.Glob(filepath.Join(driPath, "card*"))
	if err != nil {
		return nil, err
	}
	var cards []int
	for _, p := range paths {
		n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(p), "card"))
		if err != nil {
			continue
		}
		cards = append(cards, n)
	}
	slices.Sort(cards)
	return cards, nil
}

// OpenCard opens the primary node /dev/dri/cardN. Mode setting needs
// the primary node; render nodes cannot issue KMS ioctls.
func OpenCard(n int) (*os.File, error) {
	return os.OpenFile(fmt.Sprintf("%s/card%d", driPath, n), os.O_RDWR, 0)
}

// GetVersion queries the driver name, date and description. The
// kernel is asked twice: once for the string lengths and once to fill
// the buffers.
func GetVersion(file *os.File) (Version, error) {
	v := &sysVersion{}
	if err := ioctl.Do(file.Fd(), uintptr(IOCTLVersion), uintptr(unsafe.Pointer(v))); err != nil {
		return Version{}, err
	}

	name, date, desc := alloc(v.nameLen, &v.name), alloc(v.dateLen, &v.date), alloc(v.descLen, &v.desc)
	if err := ioctl.Do(file.Fd(), uintptr(IOCTLVersion), uintptr(unsafe.Pointer(v))); err != nil {
		return Version{}, err
	}

	return Version{
		Major: v.major,
		Minor: v.minor,
		Patch: v.patch,
		Name:  cstr(name, v.nameLen),
		Date:  cstr(date, v.dateLen),
		Desc:  cstr(desc, v.descLen),
	}, nil
}

// alloc backs a kernel string field with a buffer one byte longer than
// n and points ptr at it.
func alloc(n int64, ptr *uintptr) []byte {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n+1)
	*ptr = uintptr(unsafe.Pointer(&buf[0]))
	return buf
}

func cstr(buf []byte, n int64) string {
	if n < int64(len(buf)) {
		buf = buf[:n]
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}
