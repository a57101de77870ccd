// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/term"
)

// Convertible tells whether a is definitionally convertible to b in
// context ctx, modulo beta, delta, iota, zeta, eta for functions and
// pairs, and universe cumulativity: Sort(u) converts to Sort(v)
// whenever v >= u is derivable. Cumulativity flows only through Pi
// codomains and the right operand of the top-level query; everywhere
// else conversion is symmetric. When a structural mismatch involves
// metavariables, Convertible falls back to unification, so a true
// result may assign metavariables.
func (m *MEnv) Convertible(a, b *term.Expr, ctx Context) (bool, error) {
	return m.conv(a, b, ctx, true)
}

func (m *MEnv) conv(a, b *term.Expr, ctx Context, cumul bool) (bool, error) {
	if err := m.step("convertible"); err != nil {
		return false, err
	}
	if a == b {
		return true, nil
	}
	a, err := m.Whnf(a)
	if err != nil {
		return false, err
	}
	b, err = m.Whnf(b)
	if err != nil {
		return false, err
	}
	if a == b {
		return true, nil
	}
	if a.Kind() == b.Kind() {
		ok, decided, err := m.convSameKind(a, b, ctx, cumul)
		if err != nil {
			return false, err
		}
		if decided {
			return ok, nil
		}
	}
	ok, decided, err := m.convEta(a, b, ctx)
	if err != nil {
		return false, err
	}
	if decided {
		return ok, nil
	}
	if a.HasMeta() || b.HasMeta() {
		err := m.Unify(a, b, ctx)
		switch {
		case err == nil:
			return true, nil
		case errors.Budget(err):
			return false, err
		default:
			return false, nil
		}
	}
	return false, nil
}

// convSameKind compares two weak-head normal terms of the same
// kind. decided is false when the comparison should fall through to
// eta and the metavariable fallback.
func (m *MEnv) convSameKind(a, b *term.Expr, ctx Context, cumul bool) (ok, decided bool, err error) {
	switch a.Kind() {
	case term.ExprVar:
		return a.Index() == b.Index(), true, nil
	case term.ExprSort:
		return m.levelConv(a.Level(), b.Level(), cumul), true, nil
	case term.ExprConst:
		if a.Name() != b.Name() || len(a.Levels()) != len(b.Levels()) {
			return false, true, nil
		}
		for i, l := range a.Levels() {
			if !l.Equal(b.Levels()[i]) {
				return false, true, nil
			}
		}
		return true, true, nil
	case term.ExprValue:
		return a.Value().Equal(b.Value()), true, nil
	case term.ExprPi:
		ok, err = m.conv(a.AbstDomain(), b.AbstDomain(), ctx, false)
		if err != nil || !ok {
			return ok, true, err
		}
		ext := ctx.Extend(a.AbstName(), a.AbstDomain())
		ok, err = m.conv(a.AbstBody(), b.AbstBody(), ext, cumul)
		return ok, true, err
	case term.ExprLambda, term.ExprSigma:
		ok, err = m.conv(a.AbstDomain(), b.AbstDomain(), ctx, false)
		if err != nil || !ok {
			return ok, true, err
		}
		ext := ctx.Extend(a.AbstName(), a.AbstDomain())
		ok, err = m.conv(a.AbstBody(), b.AbstBody(), ext, false)
		return ok, true, err
	case term.ExprApp:
		if a.NumArgs() != b.NumArgs() {
			return false, false, nil
		}
		for i := 0; i < a.NumArgs(); i++ {
			ok, err = m.conv(a.Arg(i), b.Arg(i), ctx, false)
			if err != nil {
				return false, true, err
			}
			if !ok {
				// A pointwise mismatch may still unify when
				// metavariables are present.
				return false, false, nil
			}
		}
		return true, true, nil
	case term.ExprPair:
		ok, err = m.conv(a.PairFirst(), b.PairFirst(), ctx, false)
		if err != nil || !ok {
			return ok, true, err
		}
		ok, err = m.conv(a.PairSecond(), b.PairSecond(), ctx, false)
		if err != nil || !ok {
			return ok, true, err
		}
		ok, err = m.conv(a.PairType(), b.PairType(), ctx, false)
		return ok, true, err
	case term.ExprProj:
		if a.ProjSecond() != b.ProjSecond() {
			return false, false, nil
		}
		ok, err = m.conv(a.ProjArg(), b.ProjArg(), ctx, false)
		if err != nil || ok {
			return ok, true, err
		}
		return false, false, nil
	case term.ExprHEq:
		ok, err = m.conv(a.HEqLeft(), b.HEqLeft(), ctx, false)
		if err != nil || !ok {
			return ok, true, err
		}
		ok, err = m.conv(a.HEqRight(), b.HEqRight(), ctx, false)
		return ok, true, err
	case term.ExprMetavar:
		if m.EqModulo(a, b) {
			return true, true, nil
		}
		return false, false, nil
	}
	return false, false, nil
}

func (m *MEnv) levelConv(u, v *term.Level, cumul bool) bool {
	if u.Equal(v) {
		return true
	}
	if cumul {
		return m.env.IsGe(v, u)
	}
	return m.env.IsGe(v, u) && m.env.IsGe(u, v)
}

// convEta applies the eta laws for functions and pairs when exactly
// one side is a literal abstraction or pair.
func (m *MEnv) convEta(a, b *term.Expr, ctx Context) (ok, decided bool, err error) {
	switch {
	case a.IsLambda() && !b.IsLambda():
		return m.etaFunc(a, b, ctx)
	case b.IsLambda() && !a.IsLambda():
		return m.etaFunc(b, a, ctx)
	case a.IsPair() && !b.IsPair():
		return m.etaPair(a, b, ctx)
	case b.IsPair() && !a.IsPair():
		return m.etaPair(b, a, ctx)
	}
	return false, false, nil
}

// etaFunc compares lambda lam against non-lambda f by comparing
// lam's body with (f x) under lam's binder.
func (m *MEnv) etaFunc(lam, f *term.Expr, ctx Context) (ok, decided bool, err error) {
	expanded := term.App(term.Lift(f, 0, 1), term.Var(0))
	ext := ctx.Extend(lam.AbstName(), lam.AbstDomain())
	ok, err = m.conv(lam.AbstBody(), expanded, ext, false)
	return ok, true, err
}

// etaPair compares pair p against non-pair e by comparing
// components with e's projections.
func (m *MEnv) etaPair(p, e *term.Expr, ctx Context) (ok, decided bool, err error) {
	ok, err = m.conv(p.PairFirst(), term.Proj(false, e), ctx, false)
	if err != nil || !ok {
		return ok, true, err
	}
	ok, err = m.conv(p.PairSecond(), term.Proj(true, e), ctx, false)
	return ok, true, err
}
