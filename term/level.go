// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

import (
	"fmt"
	"sort"
	"strings"
)

// LevelKind is the kind of a universe level expression.
type LevelKind int

const (
	// LevelZero is the bottom universe.
	LevelZero LevelKind = iota
	// LevelSucc is the successor of a level.
	LevelSucc
	// LevelMax is the maximum of two levels.
	LevelMax
	// LevelUvar is a reference to a declared universe variable.
	LevelUvar
)

// A Level is a universe level expression: an expression over
// universe variables and successor offsets, combined with max.
// Levels are immutable. Equality and hashing are modulo normal
// form, so Succ(Max(u, v)) and Max(Succ(u), Succ(v)) are equal.
type Level struct {
	kind     LevelKind
	of       *Level // LevelSucc
	lhs, rhs *Level // LevelMax
	name     string // LevelUvar

	hash  uint32
	atoms []LevelAtom
}

// A LevelAtom is a single summand of a level in normal form: a
// universe variable (or zero, when Name is empty) plus a constant
// offset. Every level normalizes to the maximum of its atoms.
type LevelAtom struct {
	Name   string
	Offset int
}

// Zero is the bottom universe level.
var Zero = newLevel(&Level{kind: LevelZero, atoms: []LevelAtom{{}}})

func newLevel(l *Level) *Level {
	h := uint64(0x243f6a8885a308d3)
	for _, a := range l.atoms {
		h = mix64(mix64(h, hashString(a.Name)), uint64(a.Offset))
	}
	l.hash = uint32(h ^ h>>32)
	return l
}

// Succ returns the successor of level l.
func Succ(l *Level) *Level {
	atoms := make([]LevelAtom, len(l.atoms))
	for i, a := range l.atoms {
		atoms[i] = LevelAtom{a.Name, a.Offset + 1}
	}
	return newLevel(&Level{kind: LevelSucc, of: l, atoms: atoms})
}

// Offset returns level l raised by k successors.
func Offset(l *Level, k int) *Level {
	for ; k > 0; k-- {
		l = Succ(l)
	}
	return l
}

// Max returns the maximum of levels a and b.
func Max(a, b *Level) *Level {
	return newLevel(&Level{
		kind:  LevelMax,
		lhs:   a,
		rhs:   b,
		atoms: mergeAtoms(a.atoms, b.atoms),
	})
}

// Uvar returns a reference to the universe variable named name.
func Uvar(name string) *Level {
	return newLevel(&Level{kind: LevelUvar, name: name, atoms: []LevelAtom{{Name: name}}})
}

// mergeAtoms combines two normalized atom lists, dropping summands
// subsumed by a larger offset of the same variable.
func mergeAtoms(a, b []LevelAtom) []LevelAtom {
	merged := make([]LevelAtom, 0, len(a)+len(b))
	merged = append(merged, a...)
Outer:
	for _, x := range b {
		for i, y := range merged {
			if x.Name == y.Name {
				if x.Offset > y.Offset {
					merged[i] = x
				}
				continue Outer
			}
		}
		merged = append(merged, x)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Name < merged[j].Name
	})
	// A variable summand subsumes a plain zero.
	if len(merged) > 1 && merged[0].Name == "" && merged[0].Offset == 0 {
		merged = merged[1:]
	}
	return merged
}

// Kind returns the level's kind.
func (l *Level) Kind() LevelKind { return l.kind }

// Of returns the argument of a successor level.
func (l *Level) Of() *Level { return l.of }

// MaxArgs returns the operands of a max level.
func (l *Level) MaxArgs() (*Level, *Level) { return l.lhs, l.rhs }

// Name returns the variable name of a universe variable reference.
func (l *Level) Name() string { return l.name }

// Hash returns a hash consistent with Equal.
func (l *Level) Hash() uint32 { return l.hash }

// Atoms returns the level's normal form: the variable+offset
// summands whose maximum the level denotes, ordered by name. The
// returned slice is shared and must not be modified.
func (l *Level) Atoms() []LevelAtom { return l.atoms }

// IsZero tells whether the level is definitionally the bottom
// universe.
func (l *Level) IsZero() bool {
	return len(l.atoms) == 1 && l.atoms[0] == LevelAtom{}
}

// Equal tells whether levels l and m have the same normal form.
func (l *Level) Equal(m *Level) bool {
	if l == m {
		return true
	}
	if l.hash != m.hash || len(l.atoms) != len(m.atoms) {
		return false
	}
	for i := range l.atoms {
		if l.atoms[i] != m.atoms[i] {
			return false
		}
	}
	return true
}

// String renders the level for debugging.
func (l *Level) String() string {
	parts := make([]string, len(l.atoms))
	for i, a := range l.atoms {
		switch {
		case a.Name == "":
			parts[i] = fmt.Sprint(a.Offset)
		case a.Offset == 0:
			parts[i] = a.Name
		default:
			parts[i] = fmt.Sprintf("%s+%d", a.Name, a.Offset)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "max(" + strings.Join(parts, ", ") + ")"
}
