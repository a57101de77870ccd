// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

// Equal tells whether expressions a and b are alpha-equivalent:
// structurally equal ignoring binder name hints. The comparison
// short-circuits on identity and on hash inequality, and maintains a
// visited set of node pairs so that shared sub-DAGs are compared at
// most once.
//
// Because the constructors hash-cons every node, canonical
// expressions are alpha-equivalent exactly when they are identical;
// the structural walk is kept for expressions from before a Reset
// and as the ground truth the interning table is measured against.
func Equal(a, b *Expr) bool {
	var eq equalFn
	return eq.apply(a, b)
}

type exprPair struct {
	a, b *Expr
}

type equalFn struct {
	visited map[exprPair]bool
}

func (f *equalFn) apply(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.hash != b.hash && a.maxShared && b.maxShared {
		return false
	}
	if a.kind != b.kind {
		return false
	}
	if a.kind == ExprVar {
		return a.index == b.index
	}
	if a.maxShared && b.maxShared {
		p := exprPair{a, b}
		if f.visited[p] {
			return true
		}
		if f.visited == nil {
			f.visited = make(map[exprPair]bool)
		}
		f.visited[p] = true
	}
	switch a.kind {
	case ExprConst:
		if a.name != b.name || len(a.levels) != len(b.levels) {
			return false
		}
		for i := range a.levels {
			if !a.levels[i].Equal(b.levels[i]) {
				return false
			}
		}
		return true
	case ExprSort:
		return a.level.Equal(b.level)
	case ExprApp:
		if len(a.args) != len(b.args) {
			return false
		}
		for i := range a.args {
			if !f.apply(a.args[i], b.args[i]) {
				return false
			}
		}
		return true
	case ExprLambda, ExprPi, ExprSigma:
		// Name hints are skipped: this is what makes Equal
		// alpha-equivalence.
		return f.apply(a.left, b.left) && f.apply(a.right, b.right)
	case ExprPair:
		return f.apply(a.left, b.left) && f.apply(a.right, b.right) && f.apply(a.third, b.third)
	case ExprProj:
		return a.second == b.second && f.apply(a.left, b.left)
	case ExprLet:
		return f.apply(a.third, b.third) && f.apply(a.left, b.left) && f.apply(a.right, b.right)
	case ExprHEq:
		return f.apply(a.left, b.left) && f.apply(a.right, b.right)
	case ExprMetavar:
		if a.meta != b.meta || len(a.locals) != len(b.locals) {
			return false
		}
		for i := range a.locals {
			la, lb := a.locals[i], b.locals[i]
			if la.IsInst() != lb.IsInst() || la.Start() != lb.Start() {
				return false
			}
			if la.IsInst() {
				if !f.apply(la.Repl(), lb.Repl()) {
					return false
				}
			} else if la.Offset() != lb.Offset() {
				return false
			}
		}
		return true
	case ExprValue:
		return a.value.Equal(b.value)
	}
	return false
}
