package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/protocol"
	"github.com/felixgeelhaar/mcp-resources/status"
)

// Info contains server metadata exposed to clients.
type Info struct {
	Name         string
	Version      string
	Capabilities Capabilities
}

// Capabilities declares what features the server supports.
type Capabilities struct {
	Resources bool `json:"resources"`
	Subscribe bool `json:"subscribe"`
}

// Manifest represents the server manifest returned to clients.
type Manifest struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
}

// DefaultPackages are the negotiable packages supported out of the box.
func DefaultPackages() map[string]string {
	return map[string]string{
		protocol.PackageResourceStatus: "1.0.0",
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPackages replaces the negotiable packages (name -> version).
func WithPackages(packages map[string]string) Option {
	return func(s *Server) {
		s.packages = packages
	}
}

// WithInitialStatus sets the snapshot served before the first update.
func WithInitialStatus(snap status.Snapshot) Option {
	return func(s *Server) {
		s.snapshot = snap
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// Server is the MCP server instance.
//
// The registry is filled during startup; after that the only mutable state is
// the capability set, the subscription set and the status snapshot.
type Server struct {
	info     Info
	logger   logging.Logger
	packages map[string]string
	now      func() time.Time

	registry   *Registry
	caps       *CapabilitySet
	subs       *SubscriptionSet
	dispatcher *Dispatcher

	statusMu sync.RWMutex
	snapshot status.Snapshot

	startedAt time.Time
}

// New creates a new MCP server with the given info and options.
func New(info Info, opts ...Option) *Server {
	s := &Server{
		info:     info,
		logger:   logging.Nop{},
		packages: DefaultPackages(),
		now:      time.Now,
		registry: NewRegistry(),
		subs:     NewSubscriptionSet(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.startedAt = s.now()
	if s.snapshot.UpdatedAt.IsZero() {
		s.snapshot = status.Initial(rand.New(rand.NewSource(s.startedAt.UnixNano())), s.startedAt)
	}
	s.caps = NewCapabilitySet(s.packages)
	s.dispatcher = NewDispatcher(s.logger)
	s.registerHandlers()

	return s
}

// Info returns the server info.
func (s *Server) Info() Info {
	return s.info
}

// Manifest returns the server manifest for MCP initialization.
func (s *Server) Manifest() Manifest {
	return Manifest{
		Name:            s.info.Name,
		Version:         s.info.Version,
		ProtocolVersion: protocol.MCPVersion,
		Capabilities:    s.info.Capabilities,
	}
}

// StartedAt returns the time the server was created.
func (s *Server) StartedAt() time.Time {
	return s.startedAt
}

// Registry returns the resource registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Capabilities returns the negotiated capability set.
func (s *Server) Capabilities() *CapabilitySet {
	return s.caps
}

// Subscriptions returns the resource subscription set.
func (s *Server) Subscriptions() *SubscriptionSet {
	return s.subs
}

// Register adds a resource to the registry.
func (s *Server) Register(res Resource) error {
	if err := s.registry.Register(res); err != nil {
		return err
	}
	s.logger.Debug("resource registered", logging.F("uri", res.Describe().URI))
	return nil
}

// Resource starts building a new resource with the given URI.
func (s *Server) Resource(uri string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: &funcResource{
			info: ResourceInfo{URI: uri},
		},
		server: s,
	}
}

// Resources returns info about all registered resources in registration order.
func (s *Server) Resources() []ResourceInfo {
	return s.registry.List()
}

// HandleRequest dispatches a decoded request.
func (s *Server) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return s.dispatcher.HandleRequest(ctx, req)
}

// Dispatcher returns the method dispatch table.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Status returns the current status snapshot.
func (s *Server) Status() status.Snapshot {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.snapshot
}

// ApplyStatus stores a new snapshot and, when the peer negotiated
// mcp-resource-status, pushes it as a notification.
func (s *Server) ApplyStatus(snap status.Snapshot, sender NotificationSender) {
	s.statusMu.Lock()
	s.snapshot = snap
	s.statusMu.Unlock()

	if sender == nil || !s.caps.Enabled(protocol.PackageResourceStatus) {
		return
	}
	if err := sender.SendNotification(protocol.MethodResourceStatusChanged, snap); err != nil {
		s.logger.Warn("status notification failed", logging.Err(err))
	}
}

// ResourceChanged notifies the peer that a subscribed resource changed.
func (s *Server) ResourceChanged(uri string, sender NotificationSender) {
	if sender == nil || !s.subs.IsSubscribed(uri) {
		return
	}
	err := sender.SendNotification(protocol.MethodResourceUpdated, ResourceUpdatedNotification{URI: uri})
	if err != nil {
		s.logger.Warn("resource update notification failed",
			logging.F("uri", uri),
			logging.Err(err),
		)
	}
}

func (s *Server) registerHandlers() {
	d := s.dispatcher

	d.Handle(protocol.MethodInitialize, s.handleInitialize)
	d.Handle(protocol.MethodInitialized, s.handleInitialized)
	d.Handle(protocol.MethodPing, s.handlePing)
	d.Handle(protocol.MethodResourcesList, s.handleResourcesList)
	d.Handle(protocol.MethodResourcesRead, s.handleResourcesRead)
	d.Handle(protocol.MethodResourcesSubscribe, s.handleResourcesSubscribe)
	d.Handle(protocol.MethodResourcesUnsubscribe, s.handleResourcesUnsubscribe)

	d.Handle(protocol.MethodVersion, s.handleVersion)
	d.Handle(protocol.MethodNegotiate, s.handleNegotiate)
	d.Handle(protocol.MethodResourceStatus, s.handleResourceStatus)
}
