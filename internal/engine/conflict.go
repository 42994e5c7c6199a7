package engine

import "time"

// Resolution is the outcome of a conflict between a local and a server
// copy of the same entity
type Resolution string

const (
	KeepLocal  Resolution = "keep_local"
	KeepServer Resolution = "keep_server"
)

// Resolve applies last-writer-wins to a pair of modification
// timestamps. The server copy wins ties, so a device whose clock
// matches the server never silently clobbers remote edits.
func Resolve(localUpdatedAt, serverUpdatedAt time.Time) Resolution {
	if localUpdatedAt.After(serverUpdatedAt) {
		return KeepLocal
	}
	return KeepServer
}
