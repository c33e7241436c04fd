package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/mcp-resources/server"
)

// DirectoryEntry describes one child of the listed directory.
type DirectoryEntry struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// DirectoryListing is the content of file://current-directory.
type DirectoryListing struct {
	Path    string           `json:"path"`
	Entries []DirectoryEntry `json:"entries"`
}

// Directory lists the entries of a directory.
type Directory struct {
	root string
}

// NewDirectory creates a provider listing root.
func NewDirectory(root string) *Directory {
	return &Directory{root: root}
}

// Describe returns the metadata of the directory listing resource.
func (d *Directory) Describe() server.ResourceInfo {
	return server.ResourceInfo{
		URI:         URICurrentDirectory,
		Name:        "Current Directory",
		Description: "Files and folders in the server's working directory",
		MimeType:    MimeJSON,
	}
}

// Produce returns one entry per child of the root directory.
func (d *Directory) Produce(context.Context) (string, string, error) {
	abs, err := filepath.Abs(d.root)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", d.root, err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", "", fmt.Errorf("reading directory: %w", err)
	}

	listing := DirectoryListing{Path: abs, Entries: make([]DirectoryEntry, 0, len(entries))}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		entry := DirectoryEntry{
			Name:     e.Name(),
			Type:     "file",
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format(time.RFC3339),
		}
		if e.IsDir() {
			entry.Type = "directory"
			entry.Size = 0
		}
		listing.Entries = append(listing.Entries, entry)
	}

	text, err := marshal(listing)
	return text, MimeJSON, err
}
