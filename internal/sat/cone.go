// Package sat answers satisfiability questions about the boolean cone
// feeding a memory's enable signals. The formula building and solving is
// delegated to gophersat; this package only knows how to import netlist
// bits into formulas.
package sat

import (
	"fmt"
	"strconv"

	"github.com/crillab/gophersat/bf"

	"cellmap/internal/netlist"
)

type driverRef struct {
	cell *netlist.Cell
	bit  int
}

// Cone imports bits of one module into boolean formulas. Bits without a
// driving cell become free variables; imported bits are memoized.
type Cone struct {
	drivers map[netlist.SigBit]driverRef
	memo    map[netlist.SigBit]bf.Formula
	nextX   int
}

// NewCone indexes the module's cells by their output bits.
func NewCone(mod *netlist.Module) *Cone {
	c := &Cone{
		drivers: make(map[netlist.SigBit]driverRef),
		memo:    make(map[netlist.SigBit]bf.Formula),
	}
	for _, cell := range mod.Cells {
		for i, y := range cell.Y {
			if y.Wire != nil {
				c.drivers[y] = driverRef{cell: cell, bit: i}
			}
		}
	}
	return c
}

// Constant formulas built from a reserved variable, so only the
// Var/And/Or/Not surface of the solver is relied on.
var constVar = bf.Var("$const")

func formulaTrue() bf.Formula  { return bf.Or(constVar, bf.Not(constVar)) }
func formulaFalse() bf.Formula { return bf.And(constVar, bf.Not(constVar)) }

// Bit returns the formula for a single bit. Constant x bits are free:
// each occurrence gets a fresh variable.
func (c *Cone) Bit(b netlist.SigBit) bf.Formula {
	if b.Wire == nil {
		switch b.Val {
		case netlist.S1:
			return formulaTrue()
		case netlist.S0:
			return formulaFalse()
		default:
			c.nextX++
			return bf.Var("$x" + strconv.Itoa(c.nextX))
		}
	}
	if f, ok := c.memo[b]; ok {
		return f
	}
	// Break cycles defensively: a combinational loop in the cone turns
	// into a free variable rather than infinite recursion.
	c.memo[b] = c.freeVar(b)

	f := c.build(b)
	c.memo[b] = f
	return f
}

func (c *Cone) build(b netlist.SigBit) bf.Formula {
	d, ok := c.drivers[b]
	if !ok {
		return c.freeVar(b)
	}
	cell, i := d.cell, d.bit
	switch cell.Type {
	case netlist.CellAnd:
		return bf.And(c.Bit(cell.A[i]), c.Bit(cell.B[i]))
	case netlist.CellOr:
		return bf.Or(c.Bit(cell.A[i]), c.Bit(cell.B[i]))
	case netlist.CellXor:
		a, bb := c.Bit(cell.A[i]), c.Bit(cell.B[i])
		return bf.Or(bf.And(a, bf.Not(bb)), bf.And(bf.Not(a), bb))
	case netlist.CellNot:
		return bf.Not(c.Bit(cell.A[i]))
	case netlist.CellMux:
		s := c.Bit(cell.S)
		return bf.Or(bf.And(s, c.Bit(cell.B[i])), bf.And(bf.Not(s), c.Bit(cell.A[i])))
	}
	return c.freeVar(b)
}

func (c *Cone) freeVar(b netlist.SigBit) bf.Formula {
	return bf.Var(fmt.Sprintf("%s[%d]", b.Wire.Name, b.Offset))
}

// OrSig returns the disjunction over all bits of a signal.
func (c *Cone) OrSig(sig netlist.SigSpec) bf.Formula {
	if len(sig) == 0 {
		return formulaFalse()
	}
	subs := make([]bf.Formula, len(sig))
	for i, b := range sig {
		subs[i] = c.Bit(b)
	}
	return bf.Or(subs...)
}

// Satisfiable reports whether the formula has a model.
func Satisfiable(f bf.Formula) bool {
	return bf.Solve(f) != nil
}
