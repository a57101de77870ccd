// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

import "fmt"

// A LocalEntry records a substitution or lift that reached a
// metavariable before the metavariable was assigned. Rather than
// traversing into the unknown hole, the substitution algebra records
// the pending operation on the metavariable node itself; when the
// hole is later assigned, the recorded entries are replayed in order
// against the assigned value.
//
// There are two entry forms:
//
//	Lift(start, offset)  shift free variables >= start up by offset
//	Inst(start, repl)    substitute repl for Var(start), shifting
//	                     greater indices down by one
type LocalEntry struct {
	start  int
	offset int   // lift entry
	repl   *Expr // inst entry; nil for lift entries
}

// MkLift returns a lift entry shifting free variables at or above
// start by offset.
func MkLift(start, offset int) LocalEntry {
	return LocalEntry{start: start, offset: offset}
}

// MkInst returns an instantiation entry substituting repl for the
// variable at index start.
func MkInst(start int, repl *Expr) LocalEntry {
	return LocalEntry{start: start, repl: repl}
}

// IsInst tells whether the entry is an instantiation.
func (l LocalEntry) IsInst() bool { return l.repl != nil }

// Start returns the de Bruijn index at which the entry applies.
func (l LocalEntry) Start() int { return l.start }

// Offset returns the shift amount of a lift entry.
func (l LocalEntry) Offset() int { return l.offset }

// Repl returns the replacement expression of an instantiation entry.
func (l LocalEntry) Repl() *Expr { return l.repl }

// String renders the entry for debugging.
func (l LocalEntry) String() string {
	if l.IsInst() {
		return fmt.Sprintf("inst(%d, %s)", l.start, l.repl)
	}
	return fmt.Sprintf("lift(%d, %d)", l.start, l.offset)
}

func (l LocalEntry) fp() uint64 {
	if l.IsInst() {
		return mix64(mix64(0x11f0, uint64(l.start)), l.repl.fp)
	}
	return mix64(mix64(0x22f1, uint64(l.start)), uint64(l.offset))
}

// equalCanonical compares entries whose replacement expressions are
// already canonical.
func (l LocalEntry) equalCanonical(m LocalEntry) bool {
	return l.start == m.start && l.offset == m.offset && l.repl == m.repl
}
