package topic

import "sync/atomic"

// Broker holds subscription patterns and their subscriber sets, and
// resolves a published topic to the set of subscriber indices whose
// pattern matches it. The core runs single-threaded (the reactor owns the
// only goroutine that touches a Broker), so the subscription map is not
// locked.
type Broker struct {
	subs map[string]map[int]struct{}

	// totalRouted counts every successful fan-out write, across all
	// patterns. It is atomic, so any goroutine may read it; in this
	// repository only the discovery reply reads it, and the metrics
	// endpoint exports its own MessagesRouted counter instead.
	totalRouted atomic.Uint64
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]struct{})}
}

// Subscribe adds client to pattern's subscriber set. Duplicate inserts are
// no-ops.
func (b *Broker) Subscribe(pattern string, client int) {
	set, ok := b.subs[pattern]
	if !ok {
		set = make(map[int]struct{})
		b.subs[pattern] = set
	}
	set[client] = struct{}{}
}

// Unsubscribe removes client from pattern's subscriber set, if present.
func (b *Broker) Unsubscribe(pattern string, client int) {
	if set, ok := b.subs[pattern]; ok {
		delete(set, client)
	}
}

// RemoveClient purges client from every subscription pattern.
func (b *Broker) RemoveClient(client int) {
	for _, set := range b.subs {
		delete(set, client)
	}
}

// MatchingSubscribers returns every subscriber index whose subscription
// pattern matches publishedTopic, each index appearing at most once even
// if more than one of the client's patterns match.
func (b *Broker) MatchingSubscribers(publishedTopic string) []int {
	seen := make(map[int]struct{})
	var out []int
	for pattern, set := range b.subs {
		if !Matches(pattern, publishedTopic) {
			continue
		}
		for client := range set {
			if _, ok := seen[client]; ok {
				continue
			}
			seen[client] = struct{}{}
			out = append(out, client)
		}
	}
	return out
}

// RecordRouted increments the total-messages-routed counter. Called once
// per successfully written fan-out delivery.
func (b *Broker) RecordRouted() {
	b.totalRouted.Add(1)
}

// TotalRouted returns the monotonic count of successful fan-out
// deliveries, visible to the admin collaborator.
func (b *Broker) TotalRouted() uint64 {
	return b.totalRouted.Load()
}
