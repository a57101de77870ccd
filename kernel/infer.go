// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/grailbio/karn/env"
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/term"
)

// Infer returns the type of e in context ctx.
func (m *MEnv) Infer(e *term.Expr, ctx Context) (*term.Expr, error) {
	if err := m.step("infer"); err != nil {
		return nil, err
	}
	switch e.Kind() {
	case term.ExprVar:
		b, ok := ctx.Lookup(e.Index())
		if !ok {
			return nil, errors.E("infer", e, errors.Invalid,
				errors.New("unbound variable"))
		}
		return term.Lift(b.Type, 0, e.Index()+1), nil
	case term.ExprConst:
		obj, ok := m.env.FindObject(e.Name())
		if !ok {
			return nil, errors.E("infer", e.Name(), errors.UnknownName)
		}
		if obj.Type == nil {
			return nil, errors.E("infer", e.Name(), errors.Invalid,
				errors.New("object has no type"))
		}
		return obj.Type, nil
	case term.ExprSort:
		return term.Sort(term.Succ(e.Level())), nil
	case term.ExprValue:
		return e.Value().Type(), nil
	case term.ExprApp:
		t, err := m.Infer(e.Arg(0), ctx)
		if err != nil {
			return nil, err
		}
		for i := 1; i < e.NumArgs(); i++ {
			t, err = m.Whnf(t)
			if err != nil {
				return nil, err
			}
			if !t.IsPi() {
				return nil, errors.E("infer", e, i, errors.FunctionExpected)
			}
			arg := e.Arg(i)
			at, err := m.Infer(arg, ctx)
			if err != nil {
				return nil, err
			}
			ok, err := m.Convertible(at, t.AbstDomain(), ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.E("infer", e, i, at, t.AbstDomain(), errors.AppTypeMismatch)
			}
			t = term.Instantiate(t.AbstBody(), 0, arg)
		}
		return t, nil
	case term.ExprLambda:
		if err := m.ensureType(e.AbstDomain(), ctx); err != nil {
			return nil, err
		}
		bt, err := m.Infer(e.AbstBody(), ctx.Extend(e.AbstName(), e.AbstDomain()))
		if err != nil {
			return nil, err
		}
		return term.Pi(e.AbstName(), e.AbstDomain(), bt), nil
	case term.ExprPi:
		u, err := m.inferSort(e.AbstDomain(), ctx)
		if err != nil {
			return nil, err
		}
		v, err := m.inferSort(e.AbstBody(), ctx.Extend(e.AbstName(), e.AbstDomain()))
		if err != nil {
			return nil, err
		}
		// Prop is impredicative: a Pi into Sort(Zero) lives in
		// Sort(Zero) regardless of its domain's universe.
		if v.IsZero() {
			return term.Sort(term.Zero), nil
		}
		return term.Sort(term.Max(u, v)), nil
	case term.ExprSigma:
		u, err := m.inferSort(e.AbstDomain(), ctx)
		if err != nil {
			return nil, err
		}
		v, err := m.inferSort(e.AbstBody(), ctx.Extend(e.AbstName(), e.AbstDomain()))
		if err != nil {
			return nil, err
		}
		return term.Sort(term.Max(u, v)), nil
	case term.ExprPair:
		typ, err := m.Whnf(e.PairType())
		if err != nil {
			return nil, err
		}
		if !typ.IsSigma() {
			return nil, errors.E("infer", e, typ, errors.PairTypeMismatch)
		}
		if err := m.checkComponent(e.PairFirst(), typ.AbstDomain(), ctx); err != nil {
			return nil, err
		}
		second := term.Instantiate(typ.AbstBody(), 0, e.PairFirst())
		if err := m.checkComponent(e.PairSecond(), second, ctx); err != nil {
			return nil, err
		}
		return e.PairType(), nil
	case term.ExprProj:
		t, err := m.Infer(e.ProjArg(), ctx)
		if err != nil {
			return nil, err
		}
		t, err = m.Whnf(t)
		if err != nil {
			return nil, err
		}
		if !t.IsSigma() {
			return nil, errors.E("infer", e, t, errors.TypeExpected,
				errors.New("projection of a non-pair"))
		}
		if !e.ProjSecond() {
			return t.AbstDomain(), nil
		}
		return term.Instantiate(t.AbstBody(), 0, term.Proj(false, e.ProjArg())), nil
	case term.ExprLet:
		typ := e.LetType()
		if typ != nil {
			if err := m.ensureType(typ, ctx); err != nil {
				return nil, err
			}
			if err := m.Check(e.LetValue(), typ, ctx); err != nil {
				return nil, err
			}
		} else {
			var err error
			typ, err = m.Infer(e.LetValue(), ctx)
			if err != nil {
				return nil, err
			}
		}
		bt, err := m.Infer(e.LetBody(), ctx.Extend(e.LetName(), typ))
		if err != nil {
			return nil, err
		}
		return term.Instantiate(bt, 0, e.LetValue()), nil
	case term.ExprHEq:
		if _, err := m.Infer(e.HEqLeft(), ctx); err != nil {
			return nil, err
		}
		if _, err := m.Infer(e.HEqRight(), ctx); err != nil {
			return nil, err
		}
		return term.Sort(term.Zero), nil
	case term.ExprMetavar:
		v := m.InstantiateMetavars(e)
		if v == e {
			return nil, errors.E("infer", e, errors.Invalid,
				errors.New("cannot infer the type of an unassigned metavariable"))
		}
		return m.Infer(v, ctx)
	}
	return nil, errors.E("infer", e, errors.Invalid)
}

// Check verifies that e has type typ in context ctx, failing with a
// DefTypeMismatch error if e's inferred type is not convertible to
// typ.
func (m *MEnv) Check(e, typ *term.Expr, ctx Context) error {
	t, err := m.Infer(e, ctx)
	if err != nil {
		return err
	}
	ok, err := m.Convertible(t, typ, ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.E("check", e, t, typ, errors.DefTypeMismatch)
	}
	return nil
}

// checkComponent is Check with a PairTypeMismatch failure, used for
// the components of a pair.
func (m *MEnv) checkComponent(e, typ *term.Expr, ctx Context) error {
	t, err := m.Infer(e, ctx)
	if err != nil {
		return err
	}
	ok, err := m.Convertible(t, typ, ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.E("check", e, t, typ, errors.PairTypeMismatch)
	}
	return nil
}

// inferSort infers e's type and requires it to be a universe.
func (m *MEnv) inferSort(e *term.Expr, ctx Context) (*term.Level, error) {
	t, err := m.Infer(e, ctx)
	if err != nil {
		return nil, err
	}
	t, err = m.Whnf(t)
	if err != nil {
		return nil, err
	}
	if !t.IsSort() {
		return nil, errors.E("infer", e, t, errors.TypeExpected)
	}
	return t.Level(), nil
}

// ensureType requires e to be a type: its type must be a universe.
func (m *MEnv) ensureType(e *term.Expr, ctx Context) error {
	_, err := m.inferSort(e, ctx)
	return err
}

// declChecker validates environment declarations with a fresh
// kernel instance per check.
type declChecker struct{}

func (declChecker) CheckType(e *env.Env, typ *term.Expr) error {
	return New(e, nil).ensureType(typ, nil)
}

func (declChecker) CheckValue(e *env.Env, value, typ *term.Expr) error {
	m := New(e, nil)
	if err := m.ensureType(typ, nil); err != nil {
		return err
	}
	return m.Check(value, typ, nil)
}

func init() {
	env.RegisterChecker(declChecker{})
}
