package sat

import (
	"github.com/crillab/gophersat/bf"

	"cellmap/internal/netlist"
)

// MemQueries answers the two write/read enable questions for one
// memory's mapping. Results are cached per (write port, read port) pair
// and the OR over a write port's enable bits is materialized once per
// write port. The instance is scoped to one memory and is not safe for
// concurrent use.
type MemQueries struct {
	cone *Cone
	mem  *netlist.Mem

	wrEn     map[int]bf.Formula
	implies  map[[2]int]bool
	excludes map[[2]int]bool
}

func NewMemQueries(mod *netlist.Module, mem *netlist.Mem) *MemQueries {
	return &MemQueries{
		cone:     NewCone(mod),
		mem:      mem,
		wrEn:     make(map[int]bf.Formula),
		implies:  make(map[[2]int]bool),
		excludes: make(map[[2]int]bool),
	}
}

func (q *MemQueries) wrEnOr(wpidx int) bf.Formula {
	if f, ok := q.wrEn[wpidx]; ok {
		return f
	}
	f := q.cone.OrSig(q.mem.WrPorts[wpidx].En)
	q.wrEn[wpidx] = f
	return f
}

// WrImpliesRd reports whether no assignment makes any bit of write port
// wpidx's enable true while read port rpidx's enable is false.
func (q *MemQueries) WrImpliesRd(wpidx, rpidx int) bool {
	key := [2]int{wpidx, rpidx}
	if res, ok := q.implies[key]; ok {
		return res
	}
	wrEn := q.wrEnOr(wpidx)
	rdEn := q.cone.Bit(q.mem.RdPorts[rpidx].En)
	res := !Satisfiable(bf.And(wrEn, bf.Not(rdEn)))
	q.implies[key] = res
	return res
}

// WrExcludesRd reports whether no assignment makes any bit of write port
// wpidx's enable true while read port rpidx's enable is also true.
func (q *MemQueries) WrExcludesRd(wpidx, rpidx int) bool {
	key := [2]int{wpidx, rpidx}
	if res, ok := q.excludes[key]; ok {
		return res
	}
	wrEn := q.wrEnOr(wpidx)
	rdEn := q.cone.Bit(q.mem.RdPorts[rpidx].En)
	res := !Satisfiable(bf.And(wrEn, rdEn))
	q.excludes[key] = res
	return res
}
