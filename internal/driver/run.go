package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"cellmap/internal/memlib"
	"cellmap/internal/memmap"
	"cellmap/internal/netlist"
)

// MapOptions controls a design mapping run.
type MapOptions struct {
	// Jobs caps concurrent memory mappings; <= 0 means GOMAXPROCS.
	Jobs int
	// Trace collects the per-candidate debug listing.
	Trace bool
}

// MemResult is the mapping outcome for one memory.
type MemResult struct {
	Module  string
	MemID   string
	Kind    memlib.RamKind
	Style   string
	LogicOK bool
	Cfgs    []memmap.MemConfig
	// TraceLines holds the candidate listing when MapOptions.Trace is
	// set, buffered so concurrent mappings don't interleave.
	TraceLines []string
}

// MapDesign maps every memory of every module against the library.
// Memories are independent — each mapping owns its SAT instance and the
// per-module worker is immutable — so they run concurrently. Results
// come back in (module, memory) declaration order regardless of
// scheduling, and a fatal mapping error aborts the whole run.
func MapDesign(ctx context.Context, design *netlist.Design, lib *memlib.Library, opts MapOptions) ([]MemResult, error) {
	type job struct {
		worker *memmap.Worker
		mem    *netlist.Mem
	}
	var jobs []job
	for _, mod := range design.Modules {
		worker := memmap.NewWorker(mod)
		for _, mem := range mod.Memories {
			jobs = append(jobs, job{worker: worker, mem: mem})
		}
	}

	results := make([]MemResult, len(jobs))

	limit := opts.Jobs
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, max(len(jobs), 1)))

	for i, j := range jobs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			var trace memmap.TraceFunc
			if opts.Trace {
				trace = func(format string, args ...any) {
					results[i].TraceLines = append(results[i].TraceLines, fmt.Sprintf(format, args...))
				}
			}
			mapping, err := memmap.Run(j.worker, j.mem, lib, trace)
			if err != nil {
				return err
			}
			results[i] = MemResult{
				Module:     j.worker.Module.Name,
				MemID:      j.mem.ID,
				Kind:       mapping.Kind,
				Style:      mapping.Style,
				LogicOK:    mapping.LogicOK,
				Cfgs:       mapping.Cfgs,
				TraceLines: results[i].TraceLines,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
