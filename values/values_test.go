// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values_test

import (
	"math/big"
	"testing"

	"github.com/grailbio/karn/env"
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/term"
	"github.com/grailbio/karn/values"
)

func TestNumeral(t *testing.T) {
	if got, want := values.N(3), values.N(3); got != want {
		t.Errorf("got %p, want %p", got, want)
	}
	if values.N(3) == values.N(4) {
		t.Error("distinct numerals interned together")
	}
	v, ok := values.IntValue(values.N(-12))
	if !ok {
		t.Fatal("not a numeral")
	}
	if got, want := v.Int64(), int64(-12); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, ok := values.IntValue(values.True); ok {
		t.Error("boolean is a numeral")
	}
	if got, want := values.Numeral(big.NewInt(42)), values.N(42); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestBoolean(t *testing.T) {
	if got, want := values.Boolean(true), values.True; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := values.Boolean(false), values.False; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	v, ok := values.BoolValue(values.True)
	if !ok || !v {
		t.Errorf("got %v, %v, want true, true", v, ok)
	}
	if _, ok := values.BoolValue(values.N(1)); ok {
		t.Error("numeral is a boolean")
	}
}

func TestTypes(t *testing.T) {
	if got, want := values.Bool.Value().Type(), values.Type; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := values.True.Value().Type(), values.Bool; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := values.N(7).Value().Type(), values.Int; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestArith(t *testing.T) {
	for _, tc := range []struct {
		op   *term.Expr
		a, b int64
		want int64
	}{
		{values.Add, 2, 3, 5},
		{values.Sub, 2, 3, -1},
		{values.Mul, -4, 3, -12},
		{values.Div, 7, 2, 3},
		{values.Div, -7, 2, -3},
	} {
		args := []*term.Expr{tc.op, values.N(tc.a), values.N(tc.b)}
		r, ok := tc.op.Value().Normalize(args)
		if !ok {
			t.Errorf("%s did not compute", tc.op)
			continue
		}
		if got, want := r, values.N(tc.want); got != want {
			t.Errorf("%s: got %s, want %s", tc.op, got, want)
		}
	}
	// Division by zero does not compute.
	if _, ok := values.Div.Value().Normalize([]*term.Expr{values.Div, values.N(1), values.N(0)}); ok {
		t.Error("division by zero computed")
	}
	// Symbolic arguments do not compute.
	if _, ok := values.Add.Value().Normalize([]*term.Expr{values.Add, values.N(1), term.Var(0)}); ok {
		t.Error("symbolic argument computed")
	}
	if _, ok := values.Add.Value().Normalize([]*term.Expr{values.Add, values.N(1)}); ok {
		t.Error("partial application computed")
	}
}

func TestLe(t *testing.T) {
	for _, tc := range []struct {
		a, b int64
		want *term.Expr
	}{
		{2, 3, values.True},
		{3, 3, values.True},
		{4, 3, values.False},
	} {
		r, ok := values.Le.Value().Normalize([]*term.Expr{values.Le, values.N(tc.a), values.N(tc.b)})
		if !ok {
			t.Errorf("le %v %v did not compute", tc.a, tc.b)
			continue
		}
		if got := r; got != tc.want {
			t.Errorf("le %v %v: got %s, want %s", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestIte(t *testing.T) {
	a, b := values.N(1), values.N(2)
	r, ok := values.Ite.Value().Normalize([]*term.Expr{values.Ite, values.Int, values.True, a, b})
	if !ok || r != a {
		t.Errorf("got %s, %v, want %s, true", r, ok, a)
	}
	r, ok = values.Ite.Value().Normalize([]*term.Expr{values.Ite, values.Int, values.False, a, b})
	if !ok || r != b {
		t.Errorf("got %s, %v, want %s, true", r, ok, b)
	}
	if _, ok := values.Ite.Value().Normalize([]*term.Expr{values.Ite, values.Int, term.Var(0), a, b}); ok {
		t.Error("symbolic condition computed")
	}
	if got, want := values.If(values.Int, values.True, a, b), term.App(values.Ite, values.Int, values.True, a, b); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestBinOp(t *testing.T) {
	a, b, c := values.N(1), values.N(2), values.N(3)
	if got, want := values.BinOp(values.Add, values.N(0)), values.N(0); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := values.BinOp(values.Add, values.N(0), a), a; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	want := term.App(values.Add, a, term.App(values.Add, b, c))
	if got := values.BinOp(values.Add, values.N(0), a, b, c); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestAddTheory(t *testing.T) {
	e := env.New()
	if err := values.AddTheory(e); err != nil {
		t.Fatal(err)
	}
	obj, ok := e.FindObject("int.add")
	if !ok {
		t.Fatal("int.add not declared")
	}
	if got, want := obj.Kind, env.ObjBuiltin; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	obj, ok = e.FindObject("int.ge")
	if !ok {
		t.Fatal("int.ge not declared")
	}
	if got, want := obj.Kind, env.ObjDefinition; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if obj.Opaque {
		t.Error("int.ge is opaque")
	}
	if err := values.AddTheory(e); !errors.Match(errors.AlreadyDeclared, err) {
		t.Errorf("got %v, want %v", err, errors.AlreadyDeclared)
	}
}
