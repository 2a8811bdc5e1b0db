package ioctl

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// To decode a hex IOCTL code:
//
// Most architectures use this generic format, but check
// include/ARCH/ioctl.h for specifics, e.g. powerpc
// uses 3 bits to encode read/write and 13 bits for size.
//
//  bits    meaning
//  31-30	00 - no parameters: uses _IO macro
// 	10 - read: _IOR
// 	01 - write: _IOW
// 	11 - read/write: _IOWR
//
//  29-16	size of arguments
//
//  15-8	ascii character supposedly
// 	unique to each driver
//
//  7-0	function #
//
// source: https://www.kernel.org/doc/Documentation/ioctl/ioctl-decoding.txt

const (
	None  = uint8(0x0)
	Write = uint8(0x1)
	Read  = uint8(0x2)

	maxSize = 1<<14 - 1
)

// NewCode builds the request number for an ioctl with the given
// direction, argument size, driver character and function number.
func NewCode(typ uint8, sz uint16, uniq, fn uint8) uint32 {
	var code uint32
	if typ > Write|Read {
		panic(fmt.Errorf("invalid ioctl code value: %d", typ))
	}

	if sz > maxSize {
		panic(fmt.Errorf("invalid ioctl size value: %d", sz))
	}

	code = code | (uint32(typ) << 30)
	code = code | (uint32(sz) << 16) // sz has 14bits
	code = code | (uint32(uniq) << 8)
	code = code | uint32(fn)
	return code
}

// Do issues the ioctl, retrying while the kernel reports EINTR or
// EAGAIN the way libdrm's drmIoctl does.
func Do(fd, cmd, ptr uintptr) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, ptr)
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		}
		return errno
	}
}
