package driver

import (
	"crypto/sha256"
	"sort"

	"cellmap/internal/diag"
	"cellmap/internal/memlib"
	"cellmap/internal/source"
)

// LoadLibraries parses the given library files into one Library under
// the given defines. Later files append RAM definitions; the
// unused-define warning is evaluated once over all files.
func LoadLibraries(fs *source.FileSet, paths []string, defines []string, reporter diag.Reporter) (*memlib.Library, error) {
	lib := memlib.NewLibrary(defines)
	for _, path := range paths {
		if err := memlib.ParsePath(fs, path, lib, reporter); err != nil {
			return nil, err
		}
	}
	memlib.FinalizeLibrary(lib, reporter)
	return lib, nil
}

// LoadLibrariesCached is LoadLibraries behind the msgpack disk cache.
// The cache key covers the file contents and the define set, so a hit
// reproduces the exact parse; unused-define warnings are lost on a hit.
// cache may be nil.
func LoadLibrariesCached(cache *LibCache, fs *source.FileSet, paths []string, defines []string, reporter diag.Reporter) (*memlib.Library, error) {
	if cache == nil {
		return LoadLibraries(fs, paths, defines, reporter)
	}

	var fileIDs []source.FileID
	for _, path := range paths {
		id, err := fs.Load(path)
		if err != nil {
			return nil, err
		}
		fileIDs = append(fileIDs, id)
	}

	key := libDigest(fs, fileIDs, defines)
	var payload LibPayload
	if hit, err := cache.Get(key, &payload); err == nil && hit {
		lib := memlib.NewLibrary(payload.Defines)
		lib.RamDefs = payload.RamDefs
		return lib, nil
	}

	lib := memlib.NewLibrary(defines)
	for _, id := range fileIDs {
		if err := memlib.ParseFile(fs, id, lib, reporter); err != nil {
			return nil, err
		}
	}
	memlib.FinalizeLibrary(lib, reporter)

	_ = cache.Put(key, &LibPayload{
		Schema:  libCacheSchemaVersion,
		Defines: defines,
		RamDefs: lib.RamDefs,
	})
	return lib, nil
}

func libDigest(fs *source.FileSet, fileIDs []source.FileID, defines []string) Digest {
	h := sha256.New()
	for _, id := range fileIDs {
		f := fs.Get(id)
		h.Write(f.Hash[:])
	}
	sorted := append([]string(nil), defines...)
	sort.Strings(sorted)
	for _, d := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(d))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
