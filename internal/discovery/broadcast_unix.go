//go:build !windows

package discovery

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// enableBroadcast sets SO_BROADCAST on sock's underlying file descriptor.
// Without it, sendto(2) to 255.255.255.255 fails with EACCES on Linux —
// the Go stdlib net package has no portable way to set this option, so
// this drops to the raw syscall conn, the same way the Python reference
// calls setsockopt(SOL_SOCKET, SO_BROADCAST, True) before its first send
// (original_source/mrpippy/discovery.py).
func enableBroadcast(sock syscallConn) error {
	raw, err := sock.SyscallConn()
	if err != nil {
		return fmt.Errorf("discovery: get raw conn: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return fmt.Errorf("discovery: control: %w", err)
	}
	if sockErr != nil {
		return fmt.Errorf("discovery: setsockopt SO_BROADCAST: %w", sockErr)
	}
	return nil
}
