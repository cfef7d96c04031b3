//go:build windows

package discovery

import "github.com/ianremillard/vaultlink/internal/vlog"

// enableBroadcast is a no-op on windows: x/sys/windows exposes the same
// SO_BROADCAST option, but vaultlink doesn't carry a windows-specific
// socket path today. A companion-app host discovered over the wire
// still works fine; only the local broadcast send may require running
// as an account with the right firewall exception.
func enableBroadcast(sock syscallConn) error {
	vlog.Warningf("discovery: SO_BROADCAST not set on windows; broadcast probes may be dropped")
	return nil
}
