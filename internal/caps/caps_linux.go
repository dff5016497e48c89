//go:build linux

// Package caps implements a minimal Linux capability check, adapted from
// gravwell's ingesters/utils/caps: kored only ever needs to know whether
// it can bind the privileged ports (70, 80, 300) it listens on.
package caps

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const linuxCapV3 = 0x20080522

// NET_BIND_SERVICE is capability index 10 in the Linux capability ABI.
const NET_BIND_SERVICE = 10

type capHeader struct {
	version uint32
	pid     int32
}

type capData struct {
	effective   uint32
	permitted   uint32
	inheritable uint32
}

// HasNetBindService reports whether the process can bind ports below 1024.
func HasNetBindService() bool {
	if os.Getuid() == 0 || os.Geteuid() == 0 {
		return true
	}
	hdr := capHeader{version: linuxCapV3}
	var data [2]capData
	_, _, errno := unix.RawSyscall(unix.SYS_CAPGET, uintptr(unsafe.Pointer(&hdr)), uintptr(unsafe.Pointer(&data)), 0)
	if errno != 0 {
		return false
	}
	eff := uint64(data[0].effective) | (uint64(data[1].effective) << 32)
	return eff&(1<<uint(NET_BIND_SERVICE)) != 0
}
