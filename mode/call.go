package mode

import (
	"os"
	"unsafe"

	"github.com/NeowayLabs/drmkms/ioctl"
)

// maxRetries bounds how often a query is repeated when a hotplug grows
// one of its arrays between the count and the fill call.
const maxRetries = 4

// do issues one mode-setting ioctl with arg as its argument struct.
func do[T any](file *os.File, code uint32, arg *T) error {
	return ioctl.Do(file.Fd(), uintptr(code), uintptr(unsafe.Pointer(arg)))
}

// array allocates n entries for the kernel to fill and stores their
// address in ptr. A zero count leaves ptr alone.
func array[T any](n uint32, ptr *uintptr) []T {
	if n == 0 {
		return nil
	}
	s := make([]T, n)
	*ptr = uintptr(unsafe.Pointer(&s[0]))
	return s
}

// clip shortens s when the kernel reported fewer entries on the
// second call than it did on the first.
func clip[T any](s []T, n uint32) []T {
	if uint32(len(s)) > n {
		return s[:n]
	}
	return s
}

// refill runs a count-then-fill query and repeats it while the query
// reports that an array grew in between, at most maxRetries times. The
// result of the last pass stands, clipped to what was allocated.
func refill(query func() (grown bool, err error)) error {
	for try := 0; ; try++ {
		grown, err := query()
		if err != nil || !grown || try >= maxRetries {
			return err
		}
	}
}

// grew reports whether the kernel now has more entries than were
// allocated.
func grew(counts ...[2]uint32) bool {
	for _, c := range counts {
		if c[1] > c[0] {
			return true
		}
	}
	return false
}
