package server

import (
	"sort"
	"sync"
)

// ResourceUpdatedNotification is sent when a subscribed resource changes.
type ResourceUpdatedNotification struct {
	URI string `json:"uri"`
}

// SubscriptionSet tracks the resource URIs the peer subscribed to.
// There is exactly one peer per server, so no client identity is kept.
type SubscriptionSet struct {
	mu   sync.RWMutex
	uris map[string]struct{}
}

// NewSubscriptionSet creates an empty subscription set.
func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{
		uris: make(map[string]struct{}),
	}
}

// Subscribe adds a subscription for a resource URI.
func (s *SubscriptionSet) Subscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uris[uri] = struct{}{}
}

// Unsubscribe removes a subscription. Unknown URIs are ignored.
func (s *SubscriptionSet) Unsubscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uris, uri)
}

// IsSubscribed returns true if the peer is subscribed to the resource URI.
func (s *SubscriptionSet) IsSubscribed(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.uris[uri]
	return ok
}

// URIs returns the subscribed URIs, sorted.
func (s *SubscriptionSet) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.uris))
	for uri := range s.uris {
		result = append(result, uri)
	}
	sort.Strings(result)
	return result
}
