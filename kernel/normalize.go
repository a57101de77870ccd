// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/grailbio/karn/term"
)

// Normalize fully reduces e, including under binders. Results are
// memoized by node identity within a single call, so shared
// sub-DAGs reduce once. Normalize terminates on strongly
// normalizing input; the step budget converts runaway reduction
// into a MaxStepsExceeded error.
func (m *MEnv) Normalize(e *term.Expr) (*term.Expr, error) {
	n := &normalizer{m: m, memo: make(map[*term.Expr]*term.Expr)}
	return n.normalize(e)
}

type normalizer struct {
	m    *MEnv
	memo map[*term.Expr]*term.Expr
}

func (n *normalizer) normalize(e *term.Expr) (*term.Expr, error) {
	if r, ok := n.memo[e]; ok {
		return r, nil
	}
	r, err := n.reduce(e)
	if err != nil {
		return nil, err
	}
	n.memo[e] = r
	n.memo[r] = r
	return r, nil
}

func (n *normalizer) reduce(e *term.Expr) (*term.Expr, error) {
	w, err := n.m.Whnf(e)
	if err != nil {
		return nil, err
	}
	switch w.Kind() {
	case term.ExprApp:
		args := make([]*term.Expr, w.NumArgs())
		changed := false
		for i := range args {
			args[i], err = n.normalize(w.Arg(i))
			if err != nil {
				return nil, err
			}
			changed = changed || args[i] != w.Arg(i)
		}
		if !changed {
			return w, nil
		}
		// Normalized arguments can enable a head reduction that
		// whnf could not see (a value hook waiting on numerals).
		return n.reduce(term.App(args...))
	case term.ExprLambda, term.ExprPi, term.ExprSigma:
		domain, err := n.normalize(w.AbstDomain())
		if err != nil {
			return nil, err
		}
		body, err := n.normalize(w.AbstBody())
		if err != nil {
			return nil, err
		}
		if domain == w.AbstDomain() && body == w.AbstBody() {
			return w, nil
		}
		switch w.Kind() {
		case term.ExprLambda:
			return term.Lambda(w.AbstName(), domain, body), nil
		case term.ExprPi:
			return term.Pi(w.AbstName(), domain, body), nil
		default:
			return term.Sigma(w.AbstName(), domain, body), nil
		}
	case term.ExprPair:
		first, err := n.normalize(w.PairFirst())
		if err != nil {
			return nil, err
		}
		second, err := n.normalize(w.PairSecond())
		if err != nil {
			return nil, err
		}
		typ, err := n.normalize(w.PairType())
		if err != nil {
			return nil, err
		}
		if first == w.PairFirst() && second == w.PairSecond() && typ == w.PairType() {
			return w, nil
		}
		return term.Pair(first, second, typ), nil
	case term.ExprProj:
		arg, err := n.normalize(w.ProjArg())
		if err != nil {
			return nil, err
		}
		if arg.IsPair() {
			return n.reduce(term.Proj(w.ProjSecond(), arg))
		}
		if arg == w.ProjArg() {
			return w, nil
		}
		return term.Proj(w.ProjSecond(), arg), nil
	case term.ExprHEq:
		lhs, err := n.normalize(w.HEqLeft())
		if err != nil {
			return nil, err
		}
		rhs, err := n.normalize(w.HEqRight())
		if err != nil {
			return nil, err
		}
		if lhs == w.HEqLeft() && rhs == w.HEqRight() {
			return w, nil
		}
		return term.HEq(lhs, rhs), nil
	default:
		return w, nil
	}
}
