package server

import (
	"sort"
	"sync"
)

// CapabilitySet is the negotiated state of the optional protocol packages.
// Only mcp.negotiate enables packages; nothing disables them.
type CapabilitySet struct {
	mu        sync.RWMutex
	supported map[string]string // package -> version
	enabled   map[string]bool
}

// NewCapabilitySet creates a set supporting the given packages (name -> version).
func NewCapabilitySet(supported map[string]string) *CapabilitySet {
	s := &CapabilitySet{
		supported: make(map[string]string, len(supported)),
		enabled:   make(map[string]bool, len(supported)),
	}
	for name, version := range supported {
		s.supported[name] = version
		s.enabled[name] = false
	}
	return s
}

// Supported returns a copy of the supported package versions.
func (s *CapabilitySet) Supported() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.supported))
	for k, v := range s.supported {
		out[k] = v
	}
	return out
}

// Packages returns the supported package names, sorted.
func (s *CapabilitySet) Packages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.supported))
	for name := range s.supported {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enable marks every supported name as enabled and returns the names that
// were not supported. The result is independent of input order.
func (s *CapabilitySet) Enable(names []string) (ignored []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if _, ok := s.supported[name]; !ok {
			ignored = append(ignored, name)
			continue
		}
		s.enabled[name] = true
	}
	return ignored
}

// Enabled reports whether a package has been negotiated.
func (s *CapabilitySet) Enabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[name]
}

// State returns a copy of the package -> enabled map.
func (s *CapabilitySet) State() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.enabled))
	for k, v := range s.enabled {
		out[k] = v
	}
	return out
}
