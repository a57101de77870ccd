// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

// The substitution algebra is free-variable-range aware: closed
// sub-DAGs are returned unchanged, so substitution over a mostly
// closed term shares almost all of its structure with the input.
// Metavariables are never traversed; pending lifts and substitutions
// are recorded as local entries on the metavariable node and
// replayed when the hole is assigned.

// Lift adds offset to every free variable of e whose de Bruijn index
// is at least cutoff. Lift with a zero offset is the identity.
func Lift(e *Expr, cutoff, offset int) *Expr {
	if offset == 0 {
		return e
	}
	return lift(e, cutoff, offset)
}

func lift(e *Expr, cutoff, offset int) *Expr {
	if !e.hasMeta && e.hiFree <= cutoff {
		return e
	}
	switch e.kind {
	case ExprVar:
		if e.index < cutoff {
			return e
		}
		return Var(e.index + offset)
	case ExprConst, ExprSort, ExprValue:
		return e
	case ExprMetavar:
		locals := make([]LocalEntry, len(e.locals), len(e.locals)+1)
		copy(locals, e.locals)
		locals = append(locals, MkLift(cutoff, offset))
		return Metavar(e.meta, locals...)
	case ExprApp:
		args := make([]*Expr, len(e.args))
		changed := false
		for i, a := range e.args {
			args[i] = lift(a, cutoff, offset)
			changed = changed || args[i] != a
		}
		if !changed {
			return e
		}
		return App(args...)
	case ExprLambda, ExprPi, ExprSigma:
		domain := lift(e.left, cutoff, offset)
		body := lift(e.right, cutoff+1, offset)
		if domain == e.left && body == e.right {
			return e
		}
		return abst(e.kind, e.nameHint, domain, body)
	case ExprPair:
		first := lift(e.left, cutoff, offset)
		second := lift(e.right, cutoff, offset)
		typ := lift(e.third, cutoff, offset)
		if first == e.left && second == e.right && typ == e.third {
			return e
		}
		return Pair(first, second, typ)
	case ExprProj:
		arg := lift(e.left, cutoff, offset)
		if arg == e.left {
			return e
		}
		return Proj(e.second, arg)
	case ExprLet:
		var typ *Expr
		if e.third != nil {
			typ = lift(e.third, cutoff, offset)
		}
		value := lift(e.left, cutoff, offset)
		body := lift(e.right, cutoff+1, offset)
		if typ == e.third && value == e.left && body == e.right {
			return e
		}
		return Let(e.nameHint, typ, value, body)
	case ExprHEq:
		lhs := lift(e.left, cutoff, offset)
		rhs := lift(e.right, cutoff, offset)
		if lhs == e.left && rhs == e.right {
			return e
		}
		return HEq(lhs, rhs)
	}
	return e
}

// Instantiate substitutes the block of variables [start, start+n)
// in e, where n = len(subst): Var(start+i) is replaced by
// subst[n-1-i], and every free variable at or above start+n is
// shifted down by n. Substituted expressions are lifted by the
// binder depth at each occurrence, so they may mention free
// variables. Instantiate with an empty substitution is the identity.
func Instantiate(e *Expr, start int, subst ...*Expr) *Expr {
	if len(subst) == 0 {
		return e
	}
	return instantiate(e, start, subst, 0, false)
}

// InstantiateClosed is Instantiate for closed substitutions: no
// per-occurrence lifting is performed. Each element of subst must
// have no free variables.
func InstantiateClosed(e *Expr, start int, subst ...*Expr) *Expr {
	if len(subst) == 0 {
		return e
	}
	return instantiate(e, start, subst, 0, true)
}

func instantiate(e *Expr, s int, subst []*Expr, depth int, closed bool) *Expr {
	n := len(subst)
	if !e.hasMeta && e.hiFree <= s+depth {
		return e
	}
	switch e.kind {
	case ExprVar:
		idx := e.index
		switch {
		case idx < depth+s:
			return e
		case idx < depth+s+n:
			v := subst[n-(idx-s-depth)-1]
			if closed {
				return v
			}
			return Lift(v, 0, depth)
		default:
			return Var(idx - n)
		}
	case ExprConst, ExprSort, ExprValue:
		return e
	case ExprMetavar:
		locals := make([]LocalEntry, len(e.locals), len(e.locals)+n)
		copy(locals, e.locals)
		for i := 0; i < n; i++ {
			v := subst[i]
			if !closed {
				v = Lift(v, 0, depth+n-i-1)
			}
			locals = append(locals, MkInst(depth+s+n-i-1, v))
		}
		return Metavar(e.meta, locals...)
	case ExprApp:
		args := make([]*Expr, len(e.args))
		changed := false
		for i, a := range e.args {
			args[i] = instantiate(a, s, subst, depth, closed)
			changed = changed || args[i] != a
		}
		if !changed {
			return e
		}
		return App(args...)
	case ExprLambda, ExprPi, ExprSigma:
		domain := instantiate(e.left, s, subst, depth, closed)
		body := instantiate(e.right, s, subst, depth+1, closed)
		if domain == e.left && body == e.right {
			return e
		}
		return abst(e.kind, e.nameHint, domain, body)
	case ExprPair:
		first := instantiate(e.left, s, subst, depth, closed)
		second := instantiate(e.right, s, subst, depth, closed)
		typ := instantiate(e.third, s, subst, depth, closed)
		if first == e.left && second == e.right && typ == e.third {
			return e
		}
		return Pair(first, second, typ)
	case ExprProj:
		arg := instantiate(e.left, s, subst, depth, closed)
		if arg == e.left {
			return e
		}
		return Proj(e.second, arg)
	case ExprLet:
		var typ *Expr
		if e.third != nil {
			typ = instantiate(e.third, s, subst, depth, closed)
		}
		value := instantiate(e.left, s, subst, depth, closed)
		body := instantiate(e.right, s, subst, depth+1, closed)
		if typ == e.third && value == e.left && body == e.right {
			return e
		}
		return Let(e.nameHint, typ, value, body)
	case ExprHEq:
		lhs := instantiate(e.left, s, subst, depth, closed)
		rhs := instantiate(e.right, s, subst, depth, closed)
		if lhs == e.left && rhs == e.right {
			return e
		}
		return HEq(lhs, rhs)
	}
	return e
}

// ExpandLocals replays the local entries recorded on a metavariable
// occurrence against v, the value assigned to the hole.
func ExpandLocals(v *Expr, locals []LocalEntry) *Expr {
	for _, l := range locals {
		if l.IsInst() {
			v = Instantiate(v, l.Start(), l.Repl())
		} else {
			v = Lift(v, l.Start(), l.Offset())
		}
	}
	return v
}

// IsHeadBeta tells whether e is a beta redex at its head.
func IsHeadBeta(e *Expr) bool {
	return e.kind == ExprApp && e.args[0].kind == ExprLambda
}

// ApplyBeta applies f to args by beta reduction: as many leading
// lambdas of f as there are arguments are instantiated. Excess
// arguments become a residual application; with fewer arguments than
// lambdas the result is the partially instantiated abstraction.
func ApplyBeta(f *Expr, args ...*Expr) *Expr {
	if len(args) == 0 {
		return f
	}
	if f.kind != ExprLambda {
		all := make([]*Expr, 0, len(args)+1)
		all = append(all, f)
		all = append(all, args...)
		return App(all...)
	}
	m := 1
	for f.right.kind == ExprLambda && m < len(args) {
		f = f.right
		m++
	}
	r := Instantiate(f.right, 0, args[:m]...)
	if m == len(args) {
		return r
	}
	rest := make([]*Expr, 0, len(args)-m+1)
	rest = append(rest, r)
	rest = append(rest, args[m:]...)
	return App(rest...)
}

// HeadBetaReduce performs one beta step at the head of e, if e is a
// head redex; otherwise it returns e unchanged.
func HeadBetaReduce(e *Expr) *Expr {
	if !IsHeadBeta(e) {
		return e
	}
	return ApplyBeta(e.args[0], e.args[1:]...)
}

// BetaReduce reduces all beta redexes in e to fixpoint. It
// terminates on strongly normalizing input; termination is the
// caller's obligation.
func BetaReduce(e *Expr) *Expr {
	for {
		r := betaReduce(e)
		if r == e {
			return r
		}
		e = r
	}
}

func betaReduce(e *Expr) *Expr {
	if IsHeadBeta(e) {
		return betaReduce(HeadBetaReduce(e))
	}
	switch e.kind {
	case ExprApp:
		args := make([]*Expr, len(e.args))
		changed := false
		for i, a := range e.args {
			args[i] = betaReduce(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return e
		}
		return App(args...)
	case ExprLambda, ExprPi, ExprSigma:
		domain := betaReduce(e.left)
		body := betaReduce(e.right)
		if domain == e.left && body == e.right {
			return e
		}
		return abst(e.kind, e.nameHint, domain, body)
	case ExprPair:
		first := betaReduce(e.left)
		second := betaReduce(e.right)
		typ := betaReduce(e.third)
		if first == e.left && second == e.right && typ == e.third {
			return e
		}
		return Pair(first, second, typ)
	case ExprProj:
		arg := betaReduce(e.left)
		if arg == e.left {
			return e
		}
		return Proj(e.second, arg)
	case ExprLet:
		var typ *Expr
		if e.third != nil {
			typ = betaReduce(e.third)
		}
		value := betaReduce(e.left)
		body := betaReduce(e.right)
		if typ == e.third && value == e.left && body == e.right {
			return e
		}
		return Let(e.nameHint, typ, value, body)
	case ExprHEq:
		lhs := betaReduce(e.left)
		rhs := betaReduce(e.right)
		if lhs == e.left && rhs == e.right {
			return e
		}
		return HEq(lhs, rhs)
	default:
		return e
	}
}
