package state

// Change describes one committed mutation delivered to subscribers.
type Change struct {
	Path     string
	Value    any
	Previous any
}

// Subscriber receives changes whose path matches its subscription pattern.
type Subscriber func(Change)

type subscription struct {
	id      uint64
	pattern string
	fn      Subscriber
}

// subscriptions is an ordered registry of pattern subscribers. Ids are
// monotonically increasing and unique for the life of the process.
type subscriptions struct {
	nextID  uint64
	entries []subscription
}

func (s *subscriptions) add(pattern string, fn Subscriber) uint64 {
	s.nextID++
	s.entries = append(s.entries, subscription{id: s.nextID, pattern: pattern, fn: fn})
	return s.nextID
}

func (s *subscriptions) remove(id uint64) {
	for i, entry := range s.entries {
		if entry.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// matching returns the subscribers covering path in registration order.
func (s *subscriptions) matching(path string) []subscription {
	var matched []subscription
	for _, entry := range s.entries {
		if entry.fn == nil {
			continue
		}
		if MatchPattern(entry.pattern, path) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func (s *subscriptions) clear() {
	s.entries = nil
}
