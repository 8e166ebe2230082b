// Package project reads the optional cellmap.toml manifest that records
// the libraries and defines a design is normally mapped with.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the CLI looks for next to a design.
const ManifestName = "cellmap.toml"

// Manifest mirrors the [mapping] section of cellmap.toml.
type Manifest struct {
	Libraries []string `toml:"libraries"`
	Defines   []string `toml:"defines"`
}

type manifestFile struct {
	Mapping Manifest `toml:"mapping"`
}

// LoadManifest parses a cellmap.toml. Library paths are resolved
// relative to the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	var cfg manifestFile
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, lib := range cfg.Mapping.Libraries {
		if !filepath.IsAbs(lib) {
			cfg.Mapping.Libraries[i] = filepath.Join(dir, lib)
		}
	}
	return &cfg.Mapping, nil
}

// FindManifest looks for a manifest in dir.
func FindManifest(dir string) (string, bool) {
	p := filepath.Join(dir, ManifestName)
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p, true
	}
	return "", false
}
