// Package image resolves browser variants to local disk images. A missing
// image is a normal outcome, not an error: the session falls back to
// simulated mode.
package image

import (
	"os"
	"path/filepath"
)

// extensions probed under the image directory, in preference order.
var extensions = []string{"qcow2", "img", "vdi"}

type Provider struct {
	dir       string
	overrides map[string]string // browser -> explicit path
}

func NewProvider(dir string, overrides map[string]string) *Provider {
	return &Provider{dir: dir, overrides: overrides}
}

// Lookup returns the disk image path for a browser variant, or "" when no
// usable image exists.
func (p *Provider) Lookup(browser string) string {
	if path, ok := p.overrides[browser]; ok {
		if usable(path) {
			return path
		}
		return ""
	}
	for _, ext := range extensions {
		path := filepath.Join(p.dir, browser+"."+ext)
		if usable(path) {
			return path
		}
	}
	return ""
}

func usable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
