// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

// MaxSharing canonicalizes e against the current interning table:
// the result is the unique representative of e's alpha-equivalence
// class, and identical subterms of e are collapsed to a single node.
// Expressions built through the package constructors are already
// canonical and are returned unchanged; MaxSharing is needed only
// for expressions that survived a Reset. MaxSharing is idempotent.
func MaxSharing(e *Expr) *Expr {
	if isCanonical(e) {
		return e
	}
	f := sharingFn{cache: make(map[*Expr]*Expr)}
	return f.apply(e)
}

// isCanonical tells whether e is the node the current interning
// table holds for its structure. Nodes created before a Reset keep
// their maxShared bit but are no longer in the table.
func isCanonical(e *Expr) bool {
	return e.maxShared && exprs.lookup(e) == e
}

type sharingFn struct {
	cache map[*Expr]*Expr
}

func (f *sharingFn) apply(e *Expr) *Expr {
	if isCanonical(e) {
		return e
	}
	if c, ok := f.cache[e]; ok {
		return c
	}
	var c *Expr
	switch e.kind {
	case ExprVar:
		c = Var(e.index)
	case ExprConst:
		c = Const(e.name, e.levels...)
	case ExprSort:
		c = Sort(e.level)
	case ExprApp:
		args := make([]*Expr, len(e.args))
		for i, a := range e.args {
			args[i] = f.apply(a)
		}
		c = App(args...)
	case ExprLambda, ExprPi, ExprSigma:
		c = abst(e.kind, e.nameHint, f.apply(e.left), f.apply(e.right))
	case ExprPair:
		c = Pair(f.apply(e.left), f.apply(e.right), f.apply(e.third))
	case ExprProj:
		c = Proj(e.second, f.apply(e.left))
	case ExprLet:
		var typ *Expr
		if e.third != nil {
			typ = f.apply(e.third)
		}
		c = Let(e.nameHint, typ, f.apply(e.left), f.apply(e.right))
	case ExprHEq:
		c = HEq(f.apply(e.left), f.apply(e.right))
	case ExprMetavar:
		locals := make([]LocalEntry, len(e.locals))
		for i, l := range e.locals {
			if l.IsInst() {
				locals[i] = MkInst(l.Start(), f.apply(l.Repl()))
			} else {
				locals[i] = l
			}
		}
		c = Metavar(e.meta, locals...)
	case ExprValue:
		c = Val(e.value)
	default:
		c = e
	}
	f.cache[e] = c
	return c
}
