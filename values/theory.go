// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"github.com/grailbio/karn/env"
	"github.com/grailbio/karn/term"
)

// AddTheory declares the builtin types, literals, and operators in
// e, together with the derived integer comparisons, which are
// ordinary definitions over the order builtin.
func AddTheory(e *env.Env) error {
	builtins := []struct {
		name  string
		value *term.Expr
	}{
		{"bool", Bool},
		{"true", True},
		{"false", False},
		{"ite", Ite},
		{"int", Int},
		{"int.add", Add},
		{"int.sub", Sub},
		{"int.mul", Mul},
		{"int.div", Div},
		{"int.le", Le},
	}
	for _, b := range builtins {
		if err := e.AddBuiltin(b.name, b.value); err != nil {
			return err
		}
	}
	cmp := term.Arrow(Int, term.Arrow(Int, Bool))
	defs := []struct {
		name  string
		value *term.Expr
	}{
		// ge x y := le y x
		{"int.ge", term.Lambda("x", Int, term.Lambda("y", Int,
			term.App(Le, term.Var(0), term.Var(1))))},
		// lt x y := le (x+1) y
		{"int.lt", term.Lambda("x", Int, term.Lambda("y", Int,
			term.App(Le, term.App(Add, term.Var(1), N(1)), term.Var(0))))},
		// gt x y := le (y+1) x
		{"int.gt", term.Lambda("x", Int, term.Lambda("y", Int,
			term.App(Le, term.App(Add, term.Var(0), N(1)), term.Var(1))))},
	}
	for _, d := range defs {
		if err := e.AddDefinition(d.name, cmp, d.value, false); err != nil {
			return err
		}
	}
	return nil
}
