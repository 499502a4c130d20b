package osc

import (
	"fmt"
	"net"
)

// portScanWindow bounds how many consecutive ports FreePort tries
// before giving up.
const portScanWindow = 100

// FreePort scans UDP ports [start, start+portScanWindow) and returns the
// first one that binds. The scan socket is closed before returning, so
// the caller must bind the port promptly; a lost race surfaces as a bind
// error on the caller's side.
func FreePort(start int) (int, error) {
	for port := start; port < start+portScanWindow; port++ {
		conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		if cerr := conn.Close(); cerr != nil {
			continue
		}
		return port, nil
	}
	return 0, fmt.Errorf("%w: %d-%d", ErrNoFreePort, start, start+portScanWindow-1)
}
