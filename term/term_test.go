// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

import (
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestInternIdentity(t *testing.T) {
	if got, want := Var(3), Var(3); got != want {
		t.Errorf("got %p, want %p", got, want)
	}
	if got, want := Const("nat"), Const("nat"); got != want {
		t.Errorf("got %p, want %p", got, want)
	}
	if got, want := Sort(Succ(Zero)), Sort(Succ(Zero)); got != want {
		t.Errorf("got %p, want %p", got, want)
	}
	a := Lambda("x", Sort(Zero), Var(0))
	b := Lambda("y", Sort(Zero), Var(0))
	if a != b {
		t.Errorf("hints distinguish %s and %s", a, b)
	}
	if Var(0) == Var(1) {
		t.Error("distinct variables interned together")
	}
	if Proj(false, Var(0)) == Proj(true, Var(0)) {
		t.Error("distinct projections interned together")
	}
}

func TestAppFlatten(t *testing.T) {
	f, a, b := Const("f"), Const("a"), Const("b")
	if got, want := App(App(f, a), b), App(f, a, b); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := App(f), f; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	app := App(f, a, b)
	if got, want := app.NumArgs(), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := app.Arg(0), f; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFreeVarRange(t *testing.T) {
	for _, tc := range []struct {
		e      *Expr
		lo, hi int
	}{
		{Var(2), 2, 3},
		{Const("c"), 0, 0},
		{Sort(Zero), 0, 0},
		{App(Var(1), Var(4)), 1, 5},
		{Lambda("x", Sort(Zero), Var(0)), 0, 0},
		{Lambda("x", Sort(Zero), Var(1)), 0, 1},
		{Lambda("x", Var(0), Var(1)), 0, 1},
		{Pi("x", Sort(Zero), App(Var(0), Var(3))), 0, 3},
		{Let("x", nil, Var(0), Var(0)), 0, 1},
	} {
		lo, hi := tc.e.FreeVarRange()
		if lo != tc.lo || hi != tc.hi {
			t.Errorf("%s: got [%d, %d), want [%d, %d)", tc.e, lo, hi, tc.lo, tc.hi)
		}
	}
	if !Lambda("x", Sort(Zero), Var(0)).Closed() {
		t.Error("identity not closed")
	}
	if Var(0).Closed() {
		t.Error("variable closed")
	}
}

func TestHasFreeVar(t *testing.T) {
	e := Lambda("x", Sort(Zero), App(Var(0), Var(2)))
	if HasFreeVar(e, 0, 1) {
		t.Error("bound variable reported free")
	}
	if !HasFreeVar(e, 1, 2) {
		t.Error("free variable missed")
	}
	if HasFreeVar(e, 2, 10) {
		t.Error("out-of-range variable reported free")
	}
	// Holes cannot be refuted without resolving them.
	if !HasFreeVar(Metavar(1000), 0, 1) {
		t.Error("metavariable refuted a free variable query")
	}
}

func TestWellScoped(t *testing.T) {
	if !WellScoped(Lambda("x", Sort(Zero), Var(0)), 0) {
		t.Error("identity not well scoped")
	}
	if WellScoped(Var(0), 0) {
		t.Error("unbound variable well scoped in the empty context")
	}
	if !WellScoped(Var(0), 1) {
		t.Error("variable not well scoped in a unary context")
	}
	// A hole is constrained to its own context; only its recorded
	// substitutions are inspected.
	if !WellScoped(Metavar(1001), 0) {
		t.Error("bare metavariable not well scoped")
	}
	mv := Metavar(1001, MkInst(0, Var(4)))
	if WellScoped(mv, 2) {
		t.Error("out-of-scope substitution accepted")
	}
	if !WellScoped(mv, 5) {
		t.Error("in-scope substitution rejected")
	}
}

func TestEqual(t *testing.T) {
	a := Pi("x", Sort(Zero), Lambda("y", Var(0), App(Var(0), Var(1))))
	b := Pi("u", Sort(Zero), Lambda("v", Var(0), App(Var(0), Var(1))))
	if !Equal(a, b) {
		t.Errorf("%s != %s", a, b)
	}
	if Equal(a, Pi("x", Sort(Zero), Lambda("y", Var(0), App(Var(1), Var(0))))) {
		t.Error("distinct terms compare equal")
	}
	if Equal(Var(0), Const("c")) {
		t.Error("distinct kinds compare equal")
	}
	if !Equal(nil, nil) {
		t.Error("nil != nil")
	}
	if Equal(a, nil) || Equal(nil, a) {
		t.Error("nil equal to a term")
	}
}

func TestMaxSharing(t *testing.T) {
	e := Lambda("x", Sort(Zero), App(Var(0), Const("c")))
	if !e.MaxShared() {
		t.Error("constructed expression not canonical")
	}
	if got, want := MaxSharing(e), e; got != want {
		t.Errorf("got %p, want %p", got, want)
	}
}

func TestEqualAcrossReset(t *testing.T) {
	mk := func() *Expr {
		return Pair(Var(0), Const("c"), Sigma("x", Const("A"), Const("B")))
	}
	a := mk()
	Reset()
	b := mk()
	if a == b {
		t.Error("identity survived a reset")
	}
	if !Equal(a, b) {
		t.Errorf("%s != %s", a, b)
	}
	if a.Hash() != b.Hash() {
		t.Errorf("hash %v != %v", a.Hash(), b.Hash())
	}
}

func TestWeight(t *testing.T) {
	if got, want := Var(0).Weight(), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	e := App(Const("f"), Var(0), Var(1))
	if got, want := e.Weight(), 4; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestHasMeta(t *testing.T) {
	if Var(0).HasMeta() {
		t.Error("variable has a metavariable")
	}
	if !App(Const("f"), Metavar(1002)).HasMeta() {
		t.Error("application conceals its metavariable")
	}
	if !Lambda("x", Sort(Zero), Metavar(1002)).HasMeta() {
		t.Error("binder conceals its metavariable")
	}
}

func TestConcurrentIntern(t *testing.T) {
	const N = 32
	mk := func(i int) *Expr {
		e := Var(i % 4)
		for j := 0; j < 8; j++ {
			e = Lambda("x", Sort(Zero), App(e, Var(j)))
		}
		return e
	}
	var g errgroup.Group
	exprs := make([]*Expr, N)
	for i := 0; i < N; i++ {
		i := i
		g.Go(func() error {
			exprs[i] = mk(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < N; i++ {
		if got, want := exprs[i], mk(i); got != want {
			t.Errorf("%d: got %p, want %p", i, got, want)
		}
	}
}
