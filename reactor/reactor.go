// Package reactor wraps the platform-native readiness-notification
// mechanism (epoll on Linux, kqueue on BSD/Darwin) behind one interface:
// register a file descriptor for read readiness, remove it, and run one
// batch of the event loop. The broker's scheduling model is single-
// threaded and cooperative — Run is the only suspension point; nothing
// else the core does may block indefinitely.
package reactor

// Kind tags what a ready file descriptor represents, so the callback can
// dispatch without a second lookup.
type Kind uint8

const (
	KindMQTTListener Kind = iota
	KindMQTTClient
	KindAdminListener
	KindAdminClient
)

// UserData packs a Kind and a connection-table slot index into one
// machine word, the opaque handle the reactor hands back on every
// readiness event.
type UserData uint64

// Pack builds a UserData from a kind and a non-negative slot index.
func Pack(kind Kind, slot int) UserData {
	return UserData(uint64(kind)<<32 | uint64(uint32(slot)))
}

// Kind reports the event kind packed into u.
func (u UserData) Kind() Kind {
	return Kind(u >> 32)
}

// Slot reports the connection-table slot index packed into u.
func (u UserData) Slot() int {
	return int(uint32(u))
}

// Callback is invoked once per ready file descriptor in a Run batch. A
// stale event for an fd removed earlier in the same batch may still be
// delivered; callers must tolerate that (check the connection-table slot
// is non-empty before acting).
type Callback func(data UserData)

// Reactor is the uniform interface over the platform reactor.
type Reactor interface {
	// RegisterRead arms fd for read-readiness notifications, tagged
	// with data.
	RegisterRead(fd int, data UserData) error

	// Remove disarms fd. Observed from the next Run batch onward; a
	// already-queued event for fd in the current batch may still fire.
	Remove(fd int) error

	// Run blocks for up to timeoutMs milliseconds waiting for ready
	// file descriptors, then invokes cb once per ready fd in the
	// reactor's native delivery order, and returns. A timeoutMs of -1
	// blocks indefinitely; 0 polls without blocking.
	Run(timeoutMs int, cb Callback) error

	// Close releases the underlying kernel object.
	Close() error
}
