package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchesWildcards(t *testing.T) {
	cases := []struct {
		pattern, topic string
		want           bool
	}{
		{"#", "anything", true},
		{"#", "a/b/c", true},
		{"sport/#", "sport", true},
		{"sport/#", "sport/tennis", true},
		{"sport/#", "sportx", false},
		{"+", "foo", true},
		{"+", "foo/bar", false},
		{"sport/+", "sport/tennis", true},
		{"sport/+", "sport/", false},
		{"sport/+", "sport", false},
		{"a/+/c", "a/b/c", true},
		{"a/+/c", "a/b/d", false},
		{"a/b", "a/b", true},
		{"a/b", "a/b/c", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Matches(c.pattern, c.topic), "pattern=%s topic=%s", c.pattern, c.topic)
	}
}

func TestMatchingSubscribersDedupesPerClient(t *testing.T) {
	b := NewBroker()
	b.Subscribe("a/#", 1)
	b.Subscribe("a/b", 1)
	b.Subscribe("a/b", 2)

	got := b.MatchingSubscribers("a/b")
	require.ElementsMatch(t, []int{1, 2}, got)
}

func TestWildcardFanOutScenario(t *testing.T) {
	b := NewBroker()
	b.Subscribe("a/#", 1) // A
	b.Subscribe("a/#", 2) // B
	b.Subscribe("a/b", 3) // C

	got := b.MatchingSubscribers("a/b/c")
	require.ElementsMatch(t, []int{1, 2}, got)
}

func TestRemoveClientPurgesAllPatterns(t *testing.T) {
	b := NewBroker()
	b.Subscribe("a/b", 1)
	b.Subscribe("a/#", 1)
	b.RemoveClient(1)

	require.Empty(t, b.MatchingSubscribers("a/b"))
}
