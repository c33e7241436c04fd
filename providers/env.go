package providers

import (
	"context"
	"os"
	"strings"

	"github.com/felixgeelhaar/mcp-resources/server"
)

// DefaultDenyWords hide any environment variable whose name contains one of
// them, case-insensitively. They cannot be removed by configuration.
var DefaultDenyWords = []string{"password", "secret", "key", "token"}

// Environment exposes the process environment with sensitive names removed.
type Environment struct {
	deny    []string
	environ func() []string
}

// NewEnvironment creates the system://env provider. extra adds to
// DefaultDenyWords.
func NewEnvironment(extra ...string) *Environment {
	deny := make([]string, 0, len(DefaultDenyWords)+len(extra))
	deny = append(deny, DefaultDenyWords...)
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			deny = append(deny, w)
		}
	}
	return &Environment{deny: deny, environ: os.Environ}
}

// Describe returns the metadata of the environment resource.
func (e *Environment) Describe() server.ResourceInfo {
	return server.ResourceInfo{
		URI:         URIEnvironment,
		Name:        "Environment Variables",
		Description: "Process environment with passwords, secrets, keys and tokens removed",
		MimeType:    MimeJSON,
	}
}

// Produce returns the filtered environment as JSON.
func (e *Environment) Produce(context.Context) (string, string, error) {
	text, err := marshal(e.Filter(e.environ()))
	return text, MimeJSON, err
}

// Filter turns KEY=VALUE pairs into a map, dropping denied names.
func (e *Environment) Filter(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" || e.Denied(name) {
			continue
		}
		out[name] = value
	}
	return out
}

// Denied reports whether name must be hidden.
func (e *Environment) Denied(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range e.deny {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
