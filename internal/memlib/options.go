package memlib

import (
	"sort"

	"cellmap/internal/netlist"
)

// Options is a set of scoped option bindings: option name to constant.
type Options map[string]netlist.Const

// Apply merges src into dst. Missing keys are inserted; present-and-equal
// keys are kept; a present-and-unequal key fails the merge. dst may be
// left partially updated on failure — callers merge into clones.
func (dst Options) Apply(src Options) bool {
	for k, v := range src {
		old, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		if !old.Equal(v) {
			return false
		}
	}
	return true
}

// Applied reports whether every binding in src is already present and
// equal in dst. No mutation.
func (dst Options) Applied(src Options) bool {
	for k, v := range src {
		old, ok := dst[k]
		if !ok {
			return false
		}
		if !old.Equal(v) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (dst Options) Clone() Options {
	out := make(Options, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	return out
}

// Keys returns the option names in sorted order, for deterministic output.
func (dst Options) Keys() []string {
	keys := make([]string, 0, len(dst))
	for k := range dst {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
