// Package dblock serializes database-backed tests across packages. go test
// runs packages in parallel processes that share one DATABASE_URL, so each
// test binary holds a loopback TCP port for as long as it touches the database.
package dblock

import (
	"net"
	"os"
	"time"
)

const defaultLockAddr = "127.0.0.1:45432"

// Acquire blocks until the lock is held and returns its release function.
// WALLET_TEST_DB_LOCK overrides the lock address.
func Acquire() func() {
	addr := os.Getenv("WALLET_TEST_DB_LOCK")
	if addr == "" {
		addr = defaultLockAddr
	}
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { _ = ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
