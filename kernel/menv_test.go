// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel_test

import (
	"testing"

	"github.com/grailbio/karn/env"
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/kernel"
	"github.com/grailbio/karn/term"
	"github.com/grailbio/karn/values"
)

// testEnv returns a fresh environment with the builtin theory
// declared.
func testEnv(t *testing.T) *env.Env {
	t.Helper()
	e := env.New()
	if err := values.AddTheory(e); err != nil {
		t.Fatal(err)
	}
	return e
}

func testKernel(t *testing.T) *kernel.MEnv {
	t.Helper()
	return kernel.New(testEnv(t), nil)
}

func TestContext(t *testing.T) {
	var ctx kernel.Context
	ctx = ctx.Extend("A", values.Type).Extend("a", term.Var(0))
	b, ok := ctx.Lookup(0)
	if !ok {
		t.Fatal("innermost binding not found")
	}
	if got, want := b.Name, "a"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := b.Type, term.Var(0); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	b, ok = ctx.Lookup(1)
	if !ok {
		t.Fatal("outer binding not found")
	}
	if got, want := b.Type, values.Type; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if _, ok := ctx.Lookup(2); ok {
		t.Error("out-of-range lookup succeeded")
	}
	if _, ok := ctx.Lookup(-1); ok {
		t.Error("negative lookup succeeded")
	}
}

func TestContextIsPrefix(t *testing.T) {
	var outer kernel.Context
	outer = outer.Extend("x", values.Int)
	inner := outer.Extend("y", values.Bool)
	if !outer.IsPrefix(inner) {
		t.Error("outer is not a prefix of its extension")
	}
	if inner.IsPrefix(outer) {
		t.Error("extension is a prefix of outer")
	}
	var other kernel.Context
	other = other.Extend("x", values.Bool)
	if other.IsPrefix(inner) {
		t.Error("mismatched domain accepted")
	}
	// Hints do not matter.
	var renamed kernel.Context
	renamed = renamed.Extend("z", values.Int)
	if !renamed.IsPrefix(inner) {
		t.Error("renamed binder rejected")
	}
}

func TestAssign(t *testing.T) {
	m := testKernel(t)
	mv := m.MkMetavar(nil)
	if m.IsAssigned(mv) {
		t.Error("fresh metavariable assigned")
	}
	if err := m.Assign(mv, values.N(1)); err != nil {
		t.Fatal(err)
	}
	if !m.IsAssigned(mv) {
		t.Error("metavariable not assigned")
	}
	if got, want := m.InstantiateMetavars(mv), values.N(1); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if err := m.Assign(mv, values.N(2)); !errors.Match(errors.Invalid, err) {
		t.Errorf("got %v, want %v", err, errors.Invalid)
	}
}

func TestAssignOccurs(t *testing.T) {
	m := testKernel(t)
	mv := m.MkMetavar(nil)
	err := m.Assign(mv, term.App(values.Add, mv, values.N(1)))
	if !errors.Match(errors.OccursCheck, err) {
		t.Errorf("got %v, want %v", err, errors.OccursCheck)
	}
	// An occurrence through another, already assigned hole is caught
	// too.
	other := m.MkMetavar(nil)
	if err := m.Assign(other, term.App(values.Add, mv, values.N(1))); err != nil {
		t.Fatal(err)
	}
	err = m.Assign(mv, term.App(values.Mul, other, values.N(2)))
	if !errors.Match(errors.OccursCheck, err) {
		t.Errorf("got %v, want %v", err, errors.OccursCheck)
	}
}

func TestAssignScope(t *testing.T) {
	m := testKernel(t)
	var ctx kernel.Context
	ctx = ctx.Extend("x", values.Int)
	mv := m.MkMetavar(ctx)
	if err := m.Assign(mv, term.Var(0)); err != nil {
		t.Fatal(err)
	}
	mv2 := m.MkMetavar(ctx)
	if err := m.Assign(mv2, term.Var(1)); !errors.Match(errors.Invalid, err) {
		t.Errorf("got %v, want %v", err, errors.Invalid)
	}
}

func TestAssignUnknown(t *testing.T) {
	m := testKernel(t)
	other := testKernel(t)
	mv := other.MkMetavar(nil)
	if err := m.Assign(mv, values.N(1)); !errors.Match(errors.Invalid, err) {
		t.Errorf("got %v, want %v", err, errors.Invalid)
	}
}

func TestUnion(t *testing.T) {
	m := testKernel(t)
	a := m.MkMetavar(nil)
	b := m.MkMetavar(nil)
	if err := m.Unify(a, b, nil); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Root(a), m.Root(b); got != want {
		t.Errorf("roots differ: %s, %s", got, want)
	}
	if !m.EqModulo(a, b) {
		t.Error("united metavariables not equal")
	}
	if err := m.Assign(a, values.N(5)); err != nil {
		t.Fatal(err)
	}
	if got, want := m.InstantiateMetavars(b), values.N(5); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestUnionScopes(t *testing.T) {
	m := testKernel(t)
	var outer kernel.Context
	outer = outer.Extend("x", values.Int)
	inner := outer.Extend("y", values.Int)
	a := m.MkMetavar(inner)
	b := m.MkMetavar(outer)
	if err := m.Unify(a, b, inner); err != nil {
		t.Fatal(err)
	}
	// The shallower context is the root, so assignments through
	// either hole are checked against it.
	if err := m.Assign(a, term.Var(1)); !errors.Match(errors.Invalid, err) {
		t.Errorf("got %v, want %v", err, errors.Invalid)
	}
	if err := m.Assign(b, term.Var(0)); err != nil {
		t.Fatal(err)
	}
	if !m.EqModulo(a, term.Var(0)) {
		t.Error("assignment did not propagate")
	}
}

func TestInstantiateMetavarsLocals(t *testing.T) {
	m := testKernel(t)
	var ctx kernel.Context
	ctx = ctx.Extend("x", values.Int)
	mv := m.MkMetavar(ctx)
	// Record a substitution against the unassigned hole, then assign.
	occ := term.Instantiate(mv, 0, values.N(7))
	if err := m.Assign(mv, term.App(values.Add, term.Var(0), values.N(1))); err != nil {
		t.Fatal(err)
	}
	want := term.App(values.Add, values.N(7), values.N(1))
	if got := m.InstantiateMetavars(occ); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestSnapshotRestore(t *testing.T) {
	m := testKernel(t)
	mv := m.MkMetavar(nil)
	snap := m.Snapshot()
	if err := m.Assign(mv, values.N(1)); err != nil {
		t.Fatal(err)
	}
	if !m.IsAssigned(mv) {
		t.Fatal("metavariable not assigned")
	}
	m.Restore(snap)
	if m.IsAssigned(mv) {
		t.Error("assignment survived restore")
	}
	if err := m.Assign(mv, values.N(2)); err != nil {
		t.Fatal(err)
	}
	if got, want := m.InstantiateMetavars(mv), values.N(2); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestClear(t *testing.T) {
	m := testKernel(t)
	mv := m.MkMetavar(nil)
	if err := m.Assign(mv, values.N(1)); err != nil {
		t.Fatal(err)
	}
	m.Clear()
	if m.IsAssigned(mv) {
		t.Error("assignment survived clear")
	}
	if err := m.Assign(mv, values.N(2)); !errors.Match(errors.Invalid, err) {
		t.Errorf("got %v, want %v", err, errors.Invalid)
	}
}

func TestInterrupt(t *testing.T) {
	m := testKernel(t)
	m.Interrupt(true)
	_, err := m.Normalize(term.App(values.Add, values.N(1), values.N(2)))
	if !errors.Match(errors.Interrupted, err) {
		t.Errorf("got %v, want %v", err, errors.Interrupted)
	}
	m.Interrupt(false)
	v, err := m.Normalize(term.App(values.Add, values.N(1), values.N(2)))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.N(3); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
