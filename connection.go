package mqtt

import (
	"time"

	"github.com/kestrelmq/broker/connbuf"
)

// connection holds everything the broker tracks about one TCP client:
// its raw socket, its framing buffer, and its session state. Its slot
// index in Server.conns is the stable identity the topic broker and the
// reactor's UserData both key on.
type connection struct {
	fd     int
	sock   *rawSocket
	readuf *connbuf.Buffer

	clientID     string
	cleanSession bool
	connected    bool // true only after a valid CONNECT has been accepted
	keepAlive    uint16
	lastActivity time.Time
}

// connTable is a sparse array of connections indexed by reactor slot, with
// a free list so closed slots are reused instead of the table growing
// without bound under churn.
type connTable struct {
	slots []*connection
	free  []int
}

func newConnTable() *connTable {
	return &connTable{}
}

// Insert places c in a free slot (reusing a closed one if available) and
// returns the slot index.
func (t *connTable) Insert(c *connection) int {
	if n := len(t.free); n > 0 {
		slot := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[slot] = c
		return slot
	}
	t.slots = append(t.slots, c)
	return len(t.slots) - 1
}

// Get returns the connection at slot, or nil if the slot is empty.
func (t *connTable) Get(slot int) *connection {
	if slot < 0 || slot >= len(t.slots) {
		return nil
	}
	return t.slots[slot]
}

// Remove clears slot and returns it to the free list.
func (t *connTable) Remove(slot int) {
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil {
		return
	}
	t.slots[slot] = nil
	t.free = append(t.free, slot)
}

// Len reports the number of occupied slots.
func (t *connTable) Len() int {
	return len(t.slots) - len(t.free)
}

// Each calls fn once per occupied slot, in slot order.
func (t *connTable) Each(fn func(slot int, c *connection)) {
	for slot, c := range t.slots {
		if c != nil {
			fn(slot, c)
		}
	}
}
