package server

import (
	"context"
	"errors"
	"fmt"
)

// ResourceInfo is the public metadata of a registered resource.
// It never includes the content-producing operation.
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// ResourceContent represents the content returned by a resource read.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// Resource is a named, typed source of content computed on demand.
//
// Produce may read external state (files, OS counters, randomness) but must
// not mutate the registry. An empty mimeType falls back to the one declared
// by Describe.
type Resource interface {
	Describe() ResourceInfo
	Produce(ctx context.Context) (text string, mimeType string, err error)
}

// Errors returned by the registry.
var (
	ErrResourceNotFound  = errors.New("resource not found")
	ErrDuplicateResource = errors.New("duplicate resource")
)

// ReadError wraps a failure raised while producing resource content.
type ReadError struct {
	URI string
	Err error
}

func (e *ReadError) Error() string {
	return e.Err.Error()
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ProduceFunc is the function signature for builder-registered resources.
type ProduceFunc func(ctx context.Context) (string, error)

// funcResource adapts a ProduceFunc to the Resource interface.
type funcResource struct {
	info    ResourceInfo
	produce ProduceFunc
}

func (r *funcResource) Describe() ResourceInfo { return r.info }

func (r *funcResource) Produce(ctx context.Context) (string, string, error) {
	text, err := r.produce(ctx)
	return text, r.info.MimeType, err
}

// ResourceBuilder provides a fluent API for building resources.
type ResourceBuilder struct {
	resource *funcResource
	server   *Server
	err      error
}

// Name sets the human-readable name for the resource.
func (b *ResourceBuilder) Name(name string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.info.Name = name
	return b
}

// Description sets the resource description.
func (b *ResourceBuilder) Description(desc string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.info.Description = desc
	return b
}

// MimeType sets the MIME type of the resource content.
func (b *ResourceBuilder) MimeType(mimeType string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.info.MimeType = mimeType
	return b
}

// Handler sets the content function and registers the resource.
func (b *ResourceBuilder) Handler(fn ProduceFunc) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("resource %q: nil handler", b.resource.info.URI)
		return b
	}
	b.resource.produce = fn
	b.err = b.server.Register(b.resource)
	return b
}

// Err returns the first error encountered while building, such as a
// duplicate URI.
func (b *ResourceBuilder) Err() error {
	return b.err
}
