// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/term"
)

// Unify makes a and b equal in context ctx by assigning
// metavariables, solving the pattern fragment of higher-order
// unification. Recursion depth is bounded by the environment's
// maximum depth; assignments made before a failure are not rolled
// back (use Snapshot for transactional unification).
func (m *MEnv) Unify(a, b *term.Expr, ctx Context) error {
	return m.unify(a, b, ctx, 0)
}

func (m *MEnv) unify(a, b *term.Expr, ctx Context, depth int) error {
	if depth > m.maxDepth {
		return errors.E("unify", errors.MaxDepthExceeded)
	}
	if err := m.checkInterrupt("unify"); err != nil {
		return err
	}
	a = m.InstantiateMetavars(a)
	b = m.InstantiateMetavars(b)
	if term.Equal(a, b) {
		return nil
	}
	if handled, err := m.unifyFlex(a, b, ctx); handled {
		return err
	}
	if handled, err := m.unifyFlex(b, a, ctx); handled {
		return err
	}
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case term.ExprVar, term.ExprValue:
			// Equal would have accepted matching leaves.
			return errors.E("unify", a, b, errors.FailedToUnify)
		case term.ExprSort:
			if a.Level().Equal(b.Level()) {
				return nil
			}
			return errors.E("unify", a, b, errors.FailedToUnify)
		case term.ExprLambda, term.ExprPi, term.ExprSigma:
			if err := m.unify(a.AbstDomain(), b.AbstDomain(), ctx, depth+1); err != nil {
				return err
			}
			ext := ctx.Extend(a.AbstName(), a.AbstDomain())
			return m.unify(a.AbstBody(), b.AbstBody(), ext, depth+1)
		case term.ExprPair:
			if err := m.unify(a.PairFirst(), b.PairFirst(), ctx, depth+1); err != nil {
				return err
			}
			if err := m.unify(a.PairSecond(), b.PairSecond(), ctx, depth+1); err != nil {
				return err
			}
			return m.unify(a.PairType(), b.PairType(), ctx, depth+1)
		case term.ExprHEq:
			if err := m.unify(a.HEqLeft(), b.HEqLeft(), ctx, depth+1); err != nil {
				return err
			}
			return m.unify(a.HEqRight(), b.HEqRight(), ctx, depth+1)
		case term.ExprApp:
			if a.NumArgs() == b.NumArgs() {
				err := m.unifyApp(a, b, ctx, depth)
				if err == nil || !errors.Match(errors.FailedToUnify, err) {
					return err
				}
			}
		}
	}
	wa, err := m.Whnf(a)
	if err != nil {
		return err
	}
	wb, err := m.Whnf(b)
	if err != nil {
		return err
	}
	if wa != a || wb != b {
		return m.unify(wa, wb, ctx, depth+1)
	}
	return errors.E("unify", a, b, errors.FailedToUnify)
}

func (m *MEnv) unifyApp(a, b *term.Expr, ctx Context, depth int) error {
	for i := 0; i < a.NumArgs(); i++ {
		if err := m.unify(a.Arg(i), b.Arg(i), ctx, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// unifyFlex handles the cases where a is flexible: an unassigned
// metavariable, or an application headed by one. handled is false
// when a offers no metavariable flexibility and the caller should
// continue with the structural cases.
func (m *MEnv) unifyFlex(a, b *term.Expr, ctx Context) (handled bool, err error) {
	switch {
	case m.bareMetavar(a):
		if m.bareMetavar(b) {
			ca, cb := m.cellOf(a), m.cellOf(b)
			if ca != nil && cb != nil {
				return true, m.union(ca, cb)
			}
		}
		return true, m.assignChecked(a, b)
	case a.IsApp() && m.bareMetavar(a.Arg(0)):
		return m.patternAssign(a, b, ctx)
	}
	return false, nil
}

// bareMetavar tells whether e is an unassigned metavariable known
// to m with no pending local entries.
func (m *MEnv) bareMetavar(e *term.Expr) bool {
	if !e.IsMetavar() || len(e.MetaLocals()) != 0 {
		return false
	}
	c := m.cellOf(e)
	return c != nil && c.expr == nil
}

func (m *MEnv) assignChecked(mv, s *term.Expr) error {
	err := m.Assign(mv, s)
	if err == nil || errors.Match(errors.OccursCheck, err) {
		return err
	}
	return errors.E("unify", mv, s, errors.FailedToUnify, err)
}

// patternAssign solves ?m a1 ... an ≡ t for the pattern fragment.
// Three solvable shapes, in order: projection, when t equals some
// ai; abstraction, when the ai are distinct bound variables and t
// is metavariable-free; imitation, when t is closed. Binder domains
// come from the argument types. handled is false when the shape is
// not solvable and the caller should fall back to reduction.
func (m *MEnv) patternAssign(app, t *term.Expr, ctx Context) (handled bool, err error) {
	mv := app.Arg(0)
	n := app.NumArgs() - 1
	var body *term.Expr
	switch {
	case projIndex(app, t) >= 0:
		body = term.Var(n - 1 - projIndex(app, t))
	case !t.HasMeta() && distinctVarArgs(app):
		idxs := make([]int, n)
		for i := 1; i <= n; i++ {
			idxs[i-1] = app.Arg(i).Index()
		}
		body = abstractVars(t, idxs, 0)
	case t.Closed() && !t.HasMeta():
		body = t
	default:
		return false, nil
	}
	lam := body
	for j := n; j >= 1; j-- {
		dom, err := m.Infer(app.Arg(j), ctx)
		if err != nil {
			return false, nil
		}
		lam = term.Lambda("", dom, lam)
	}
	return true, m.assignChecked(mv, lam)
}

// projIndex returns the zero-based argument position whose argument
// equals t, or -1.
func projIndex(app, t *term.Expr) int {
	for i := 1; i < app.NumArgs(); i++ {
		if term.Equal(app.Arg(i), t) {
			return i - 1
		}
	}
	return -1
}

// distinctVarArgs tells whether every argument of app is a bound
// variable and no variable repeats.
func distinctVarArgs(app *term.Expr) bool {
	seen := make(map[int]bool, app.NumArgs()-1)
	for i := 1; i < app.NumArgs(); i++ {
		if !app.Arg(i).IsVar() {
			return false
		}
		idx := app.Arg(i).Index()
		if seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

// abstractVars rewrites t for placement under len(idxs) new
// lambdas: occurrences of the pattern variables become the
// corresponding binders, and every other free variable is shifted
// past the new binders.
func abstractVars(t *term.Expr, idxs []int, depth int) *term.Expr {
	n := len(idxs)
	switch t.Kind() {
	case term.ExprVar:
		v := t.Index()
		if v < depth {
			return t
		}
		outer := v - depth
		for j, i := range idxs {
			if i == outer {
				return term.Var(depth + n - 1 - j)
			}
		}
		return term.Var(v + n)
	case term.ExprConst, term.ExprSort, term.ExprValue:
		return t
	case term.ExprApp:
		args := make([]*term.Expr, t.NumArgs())
		for i := range args {
			args[i] = abstractVars(t.Arg(i), idxs, depth)
		}
		return term.App(args...)
	case term.ExprLambda, term.ExprPi, term.ExprSigma:
		domain := abstractVars(t.AbstDomain(), idxs, depth)
		body := abstractVars(t.AbstBody(), idxs, depth+1)
		switch t.Kind() {
		case term.ExprLambda:
			return term.Lambda(t.AbstName(), domain, body)
		case term.ExprPi:
			return term.Pi(t.AbstName(), domain, body)
		default:
			return term.Sigma(t.AbstName(), domain, body)
		}
	case term.ExprPair:
		return term.Pair(
			abstractVars(t.PairFirst(), idxs, depth),
			abstractVars(t.PairSecond(), idxs, depth),
			abstractVars(t.PairType(), idxs, depth))
	case term.ExprProj:
		return term.Proj(t.ProjSecond(), abstractVars(t.ProjArg(), idxs, depth))
	case term.ExprLet:
		var typ *term.Expr
		if t.LetType() != nil {
			typ = abstractVars(t.LetType(), idxs, depth)
		}
		return term.Let(t.LetName(),
			typ,
			abstractVars(t.LetValue(), idxs, depth),
			abstractVars(t.LetBody(), idxs, depth+1))
	case term.ExprHEq:
		return term.HEq(
			abstractVars(t.HEqLeft(), idxs, depth),
			abstractVars(t.HEqRight(), idxs, depth))
	}
	return t
}
