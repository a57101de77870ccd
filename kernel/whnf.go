// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/grailbio/karn/env"
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/term"
)

// Whnf reduces e to weak-head normal form: beta at the head, delta
// for builtins and unfoldable non-opaque definitions, iota on
// projections of pairs, zeta on lets, value hooks for builtin
// applications, and resolution of assigned metavariables. Sub-terms
// below the head are left unreduced.
func (m *MEnv) Whnf(e *term.Expr) (*term.Expr, error) {
	for {
		if err := m.step("whnf"); err != nil {
			return nil, err
		}
		switch e.Kind() {
		case term.ExprVar, term.ExprSort, term.ExprLambda, term.ExprPi,
			term.ExprSigma, term.ExprPair, term.ExprHEq, term.ExprValue:
			return e, nil
		case term.ExprConst:
			v, err := m.unfold(e)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return e, nil
			}
			e = v
		case term.ExprLet:
			e = term.Instantiate(e.LetBody(), 0, e.LetValue())
		case term.ExprProj:
			arg, err := m.Whnf(e.ProjArg())
			if err != nil {
				return nil, err
			}
			if arg.IsPair() {
				if e.ProjSecond() {
					e = arg.PairSecond()
				} else {
					e = arg.PairFirst()
				}
				continue
			}
			if arg == e.ProjArg() {
				return e, nil
			}
			return term.Proj(e.ProjSecond(), arg), nil
		case term.ExprMetavar:
			v := m.InstantiateMetavars(e)
			if v == e {
				return e, nil
			}
			e = v
		case term.ExprApp:
			head, err := m.Whnf(e.Arg(0))
			if err != nil {
				return nil, err
			}
			switch {
			case head.IsLambda():
				args := make([]*term.Expr, 0, e.NumArgs()-1)
				for i := 1; i < e.NumArgs(); i++ {
					args = append(args, e.Arg(i))
				}
				e = term.ApplyBeta(head, args...)
			case head.IsValue():
				args := make([]*term.Expr, e.NumArgs())
				args[0] = head
				for i := 1; i < e.NumArgs(); i++ {
					args[i] = e.Arg(i)
				}
				if r, ok := head.Value().Normalize(args); ok {
					e = r
					continue
				}
				if head == e.Arg(0) {
					return e, nil
				}
				return term.App(args...), nil
			default:
				if head == e.Arg(0) {
					return e, nil
				}
				args := make([]*term.Expr, e.NumArgs())
				args[0] = head
				for i := 1; i < e.NumArgs(); i++ {
					args[i] = e.Arg(i)
				}
				// App flattens, so an unfolded head application
				// exposes any new redex on the next iteration.
				e = term.App(args...)
			}
		default:
			return e, nil
		}
	}
}

// unfold returns the unfolding of constant e, or nil when e does
// not unfold: postulates, opaque definitions, and definitions
// outside the unfoldable set stop reduction. An undeclared constant
// is an UnknownName error.
func (m *MEnv) unfold(e *term.Expr) (*term.Expr, error) {
	obj, ok := m.env.FindObject(e.Name())
	if !ok {
		return nil, errors.E("unfold", e.Name(), errors.UnknownName)
	}
	switch obj.Kind {
	case env.ObjBuiltin:
		return obj.Value, nil
	case env.ObjDefinition:
		if obj.Opaque {
			return nil, nil
		}
		if m.unfoldable != nil && !m.unfoldable[e.Name()] {
			return nil, nil
		}
		return obj.Value, nil
	default:
		return nil, nil
	}
}
