package providers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/mod/modfile"

	"github.com/felixgeelhaar/mcp-resources/server"
)

// Requirement is one require directive of go.mod.
type Requirement struct {
	Path     string `json:"path"`
	Version  string `json:"version"`
	Indirect bool   `json:"indirect"`
}

// ModuleInfo is the content of file://package-info.
type ModuleInfo struct {
	Module    string        `json:"module"`
	GoVersion string        `json:"goVersion,omitempty"`
	Toolchain string        `json:"toolchain,omitempty"`
	Requires  []Requirement `json:"requires"`
}

// missingModule is returned in place of ModuleInfo when go.mod is absent.
type missingModule struct {
	Error string `json:"error"`
	Path  string `json:"path"`
}

// PackageInfo reports the module declared by a go.mod file.
type PackageInfo struct {
	path string
}

// NewPackageInfo creates a provider reading the go.mod at path.
func NewPackageInfo(path string) *PackageInfo {
	return &PackageInfo{path: path}
}

// Describe returns the metadata of the package information resource.
func (p *PackageInfo) Describe() server.ResourceInfo {
	return server.ResourceInfo{
		URI:         URIPackageInfo,
		Name:        "Package Information",
		Description: "Module path, Go version and dependencies from go.mod",
		MimeType:    MimeJSON,
	}
}

// Produce returns the parsed go.mod as JSON.
func (p *PackageInfo) Produce(context.Context) (string, string, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		text, err := marshal(missingModule{Error: "go.mod not found", Path: p.path})
		return text, MimeJSON, err
	}
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", p.path, err)
	}

	f, err := modfile.ParseLax(p.path, data, nil)
	if err != nil {
		return "", "", fmt.Errorf("parsing %s: %w", p.path, err)
	}

	info := ModuleInfo{Requires: make([]Requirement, 0, len(f.Require))}
	if f.Module != nil {
		info.Module = f.Module.Mod.Path
	}
	if f.Go != nil {
		info.GoVersion = f.Go.Version
	}
	if f.Toolchain != nil {
		info.Toolchain = f.Toolchain.Name
	}
	for _, r := range f.Require {
		info.Requires = append(info.Requires, Requirement{
			Path:     r.Mod.Path,
			Version:  r.Mod.Version,
			Indirect: r.Indirect,
		})
	}

	text, err := marshal(info)
	return text, MimeJSON, err
}
