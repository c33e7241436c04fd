// Package providers implements the built-in resources served by the
// resource server: the working directory, go.mod metadata, host metrics, a
// filtered environment, generated text and records, and the server's own
// configuration.
package providers

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/felixgeelhaar/mcp-resources/server"
)

// Built-in resource URIs.
const (
	URICurrentDirectory = "file://current-directory"
	URIPackageInfo      = "file://package-info"
	URISystemInfo       = "system://info"
	URIEnvironment      = "system://env"
	URILorem            = "generated://lorem"
	URIData             = "generated://data"
	URIServerConfig     = "config://mcp-server"
)

// Content types produced by the providers.
const (
	MimeJSON = "application/json"
	MimeText = "text/plain"
)

// Options configures the built-in providers.
type Options struct {
	// Root is the directory listed by file://current-directory.
	Root string
	// ModFile is the go.mod read by file://package-info.
	ModFile string
	// EnvDenyWords extends the words that hide an environment variable.
	EnvDenyWords []string
	// Rand seeds the generated resources. Defaults to a time-seeded source.
	Rand *rand.Rand
	// Now overrides time.Now.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.Root == "" {
		o.Root = "."
	}
	if o.ModFile == "" {
		o.ModFile = "go.mod"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(o.Now().UnixNano()))
	}
}

// Register adds every built-in resource to srv in a fixed order.
func Register(srv *server.Server, opts Options) error {
	opts.defaults()
	rng := &lockedRand{r: opts.Rand}

	resources := []server.Resource{
		NewDirectory(opts.Root),
		NewPackageInfo(opts.ModFile),
		NewSystemInfo(),
		NewEnvironment(opts.EnvDenyWords...),
		NewLorem(rng),
		NewData(rng, opts.Now),
		NewServerConfig(srv),
	}
	for _, res := range resources {
		if err := srv.Register(res); err != nil {
			return fmt.Errorf("registering %s: %w", res.Describe().URI, err)
		}
	}
	return nil
}

// marshal renders a JSON payload the way every provider returns it.
func marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding content: %w", err)
	}
	return string(data), nil
}

// lockedRand serializes access to a shared *rand.Rand.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}

// Source is the randomness used by the generated resources.
type Source interface {
	Intn(n int) int
	Read(p []byte) (int, error)
}

// NewSource returns a goroutine-safe Source seeded with seed.
func NewSource(seed int64) Source {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}
