package tracker

import "sync/atomic"

// loadFlag reads the shutdown flag the Supervisor shares with every
// Tracker, polled between reconnection iterations and at stream
// boundaries so a shutdown is observed promptly without an extra channel.
func loadFlag(flag *int32) bool {
	return atomic.LoadInt32(flag) != 0
}
