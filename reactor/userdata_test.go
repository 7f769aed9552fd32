package reactor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserDataPackRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		slot int
	}{
		{KindMQTTListener, 0},
		{KindMQTTClient, 1},
		{KindMQTTClient, 4096},
		{KindAdminListener, 0},
		{KindAdminClient, 1<<20 - 1},
	}
	for _, c := range cases {
		u := Pack(c.kind, c.slot)
		require.Equal(t, c.kind, u.Kind())
		require.Equal(t, c.slot, u.Slot())
	}
}

func TestUserDataKindAndSlotAreIndependentFields(t *testing.T) {
	a := Pack(KindMQTTListener, 7)
	b := Pack(KindMQTTClient, 7)
	require.NotEqual(t, a, b)
	require.Equal(t, a.Slot(), b.Slot())
	require.NotEqual(t, a.Kind(), b.Kind())
}
