package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"cellmap/internal/memlib"
)

// Current schema version - increment when LibPayload format changes.
const libCacheSchemaVersion uint16 = 1

// Digest keys cache entries: sha256 over library contents and defines.
type Digest = [32]byte

// LibCache stores parsed libraries on disk, keyed by content digest.
// A miss or schema mismatch silently falls back to parsing.
type LibCache struct {
	dir string
}

// LibPayload is the serialized form of a parsed library.
type LibPayload struct {
	Schema  uint16
	Defines []string
	RamDefs []memlib.RamDef
}

// OpenLibCache initializes a cache at the standard location.
func OpenLibCache(app string) (*LibCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LibCache{dir: dir}, nil
}

func (c *LibCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// A subdirectory keeps the cache root listable.
	return filepath.Join(c.dir, "libs", hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache. The write is
// atomic: a temp file renamed into place.
func (c *LibCache) Put(key Digest, payload *LibPayload) error {
	if c == nil {
		return nil
	}
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload. Returns (false, nil) on a miss
// or schema mismatch.
func (c *LibCache) Get(key Digest, out *LibPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	if out.Schema != libCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *LibCache) DropAll() error {
	if c == nil {
		return nil
	}
	return os.RemoveAll(filepath.Join(c.dir, "libs"))
}
