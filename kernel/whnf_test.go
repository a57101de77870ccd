// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel_test

import (
	"testing"

	"github.com/grailbio/karn/config"
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/kernel"
	"github.com/grailbio/karn/term"
	"github.com/grailbio/karn/values"
)

func TestWhnfBeta(t *testing.T) {
	m := testKernel(t)
	e := term.App(term.Lambda("x", values.Int, term.Var(0)), values.N(1))
	v, err := m.Whnf(e)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(1); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWhnfLet(t *testing.T) {
	m := testKernel(t)
	e := term.Let("x", values.Int, values.N(2), term.App(values.Add, term.Var(0), values.N(1)))
	v, err := m.Whnf(e)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(3); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWhnfProj(t *testing.T) {
	m := testKernel(t)
	sigma := term.Sigma("x", values.Int, values.Int)
	pair := term.Pair(values.N(1), values.N(2), sigma)
	v, err := m.Whnf(term.Proj(true, pair))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(2); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	v, err = m.Whnf(term.Proj(false, pair))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(1); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWhnfMetavar(t *testing.T) {
	m := testKernel(t)
	mv := m.MkMetavar(nil)
	v, err := m.Whnf(mv)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, mv; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if err := m.Assign(mv, term.App(values.Add, values.N(1), values.N(2))); err != nil {
		t.Fatal(err)
	}
	v, err = m.Whnf(mv)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(3); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWhnfBuiltin(t *testing.T) {
	m := testKernel(t)
	v, err := m.Whnf(term.Const("int.add"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.Add; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	v, err = m.Whnf(term.App(term.Const("int.add"), values.N(1), values.N(2)))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(3); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWhnfUnknownName(t *testing.T) {
	m := testKernel(t)
	_, err := m.Whnf(term.Const("nosuch"))
	if !errors.Match(errors.UnknownName, err) {
		t.Errorf("got %v, want %v", err, errors.UnknownName)
	}
}

func TestWhnfOpaque(t *testing.T) {
	e := testEnv(t)
	if err := e.AddDefinition("two", values.Int, values.N(2), true); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition("three", values.Int, values.N(3), false); err != nil {
		t.Fatal(err)
	}
	m := kernel.New(e, nil)
	v, err := m.Whnf(term.Const("two"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, term.Const("two"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	v, err = m.Whnf(term.Const("three"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(3); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWhnfStuck(t *testing.T) {
	m := testKernel(t)
	e := term.App(values.Add, term.Var(0), values.N(1))
	v, err := m.Whnf(e)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, e; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestUnfoldableSet(t *testing.T) {
	cfg, err := config.Parse([]byte("unfold:\n  - int.lt\n"))
	if err != nil {
		t.Fatal(err)
	}
	m := kernel.New(testEnv(t), cfg)
	v, err := m.Normalize(term.App(term.Const("int.lt"), values.N(1), values.N(2)))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.True; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	ge := term.App(term.Const("int.ge"), values.N(1), values.N(2))
	v, err = m.Normalize(ge)
	if err != nil {
		t.Fatal(err)
	}
	// int.ge is outside the unfoldable set, so it stays symbolic.
	if got, want := v, ge; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestNormalize(t *testing.T) {
	m := testKernel(t)
	for _, tc := range []struct {
		e, want *term.Expr
	}{
		{term.App(values.Mul, term.App(values.Add, values.N(2), values.N(3)), values.N(4)), values.N(20)},
		{term.Lambda("x", values.Int, term.App(values.Add, values.N(1), values.N(2))),
			term.Lambda("x", values.Int, values.N(3))},
		{values.If(values.Int, term.App(values.Le, values.N(1), values.N(2)), values.N(10), values.N(20)),
			values.N(10)},
		{values.If(values.Int, term.App(values.Le, values.N(3), values.N(2)), values.N(10), values.N(20)),
			values.N(20)},
		{term.App(term.Const("int.lt"), values.N(1), values.N(2)), values.True},
		{term.App(term.Const("int.lt"), values.N(2), values.N(2)), values.False},
		{term.App(term.Const("int.ge"), values.N(3), values.N(2)), values.True},
		{term.App(term.Const("int.gt"), values.N(2), values.N(3)), values.False},
	} {
		v, err := m.Normalize(tc.e)
		if err != nil {
			t.Errorf("%s: %v", tc.e, err)
			continue
		}
		if got := v; got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.e, got, tc.want)
		}
	}
}

func TestNormalizeSteps(t *testing.T) {
	cfg, err := config.Parse([]byte("maxsteps: 1000\n"))
	if err != nil {
		t.Fatal(err)
	}
	m := kernel.New(testEnv(t), cfg)
	self := term.Lambda("x", values.Int, term.App(term.Var(0), term.Var(0)))
	omega := term.App(self, self)
	_, err = m.Normalize(omega)
	if !errors.Match(errors.MaxStepsExceeded, err) {
		t.Fatalf("got %v, want %v", err, errors.MaxStepsExceeded)
	}
	if !errors.Budget(err) {
		t.Error("step overrun is not a budget error")
	}
}
