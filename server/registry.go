package server

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds resources keyed by URI, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byURI map[string]Resource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byURI: make(map[string]Resource),
	}
}

// Register adds a resource. A URI that is already present is rejected with
// ErrDuplicateResource and the existing entry is left untouched.
func (r *Registry) Register(res Resource) error {
	if res == nil {
		return fmt.Errorf("register: nil resource")
	}
	uri := res.Describe().URI
	if uri == "" {
		return fmt.Errorf("register: empty uri")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byURI[uri]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, uri)
	}
	r.byURI[uri] = res
	r.order = append(r.order, uri)
	return nil
}

// List returns the metadata of every resource in registration order.
func (r *Registry) List() []ResourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ResourceInfo, 0, len(r.order))
	for _, uri := range r.order {
		result = append(result, r.byURI[uri].Describe())
	}
	return result
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Get returns the resource registered under uri without producing content.
func (r *Registry) Get(uri string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.byURI[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}
	return res, nil
}

// Read resolves uri and produces its current content.
// ErrResourceNotFound is propagated; producer failures, panics included, are
// returned as *ReadError.
func (r *Registry) Read(ctx context.Context, uri string) (content *ResourceContent, err error) {
	res, err := r.Get(uri)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			content = nil
			err = &ReadError{URI: uri, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	text, mimeType, err := res.Produce(ctx)
	if err != nil {
		return nil, &ReadError{URI: uri, Err: err}
	}
	if mimeType == "" {
		mimeType = res.Describe().MimeType
	}
	return &ResourceContent{
		URI:      uri,
		MimeType: mimeType,
		Text:     text,
	}, nil
}
