// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package values implements the kernel's builtin values: the bool
// and int types, their literals, and the arithmetic and comparison
// builtins that compute during normalization. Each builtin is a
// term.Value whose Normalize hook fires when the normalizer finds
// the builtin at the head of an application with literal arguments.
package values

import (
	"github.com/grailbio/karn/term"
)

// Type is the first non-propositional universe, the type of bool
// and int.
var Type = term.Sort(term.Succ(term.Zero))

type boolType struct{}

func (boolType) Kind() string                                   { return "bool" }
func (boolType) Type() *term.Expr                               { return Type }
func (boolType) Normalize(args []*term.Expr) (*term.Expr, bool) { return nil, false }
func (boolType) Hash() uint32                                   { return 41 }
func (boolType) Equal(v term.Value) bool                        { return v.Kind() == "bool" }
func (boolType) String() string                                 { return "bool" }

// Bool is the type of the boolean literals.
var Bool = term.Val(boolType{})

type boolValue bool

func (boolValue) Kind() string                                   { return "bool_literal" }
func (boolValue) Type() *term.Expr                               { return Bool }
func (boolValue) Normalize(args []*term.Expr) (*term.Expr, bool) { return nil, false }

func (b boolValue) Hash() uint32 {
	if bool(b) {
		return 43
	}
	return 47
}

func (b boolValue) Equal(v term.Value) bool {
	o, ok := v.(boolValue)
	return ok && b == o
}

func (b boolValue) String() string {
	if bool(b) {
		return "true"
	}
	return "false"
}

// True and False are the boolean literals.
var (
	True  = term.Val(boolValue(true))
	False = term.Val(boolValue(false))
)

// Boolean returns the literal for v.
func Boolean(v bool) *term.Expr {
	if v {
		return True
	}
	return False
}

// BoolValue reports the boolean denoted by e, if e is a boolean
// literal.
func BoolValue(e *term.Expr) (v, ok bool) {
	if !e.IsValue() {
		return false, false
	}
	b, ok := e.Value().(boolValue)
	return bool(b), ok
}

type iteValue struct{}

func (iteValue) Kind() string            { return "ite" }
func (iteValue) Hash() uint32            { return 53 }
func (iteValue) Equal(v term.Value) bool { return v.Kind() == "ite" }
func (iteValue) String() string          { return "ite" }

// ite : pi (A : Type), bool -> A -> A -> A
func (iteValue) Type() *term.Expr {
	return term.Pi("A", Type,
		term.Pi("", Bool,
			term.Pi("", term.Var(1),
				term.Pi("", term.Var(2), term.Var(3)))))
}

func (iteValue) Normalize(args []*term.Expr) (*term.Expr, bool) {
	if len(args) != 5 {
		return nil, false
	}
	c, ok := BoolValue(args[2])
	if !ok {
		return nil, false
	}
	if c {
		return args[3], true
	}
	return args[4], true
}

// Ite is the dependent conditional builtin.
var Ite = term.Val(iteValue{})

// If returns the conditional with motive typ, condition c, and
// branches then and els.
func If(typ, c, then, els *term.Expr) *term.Expr {
	return term.App(Ite, typ, c, then, els)
}

// BinOp folds the binary operator op over args from the right:
// BinOp(op, u) is u, BinOp(op, u, a) is a, and BinOp(op, u, a, b, c)
// is op(a, op(b, c)).
func BinOp(op, unit *term.Expr, args ...*term.Expr) *term.Expr {
	if len(args) == 0 {
		return unit
	}
	r := args[len(args)-1]
	for i := len(args) - 2; i >= 0; i-- {
		r = term.App(op, args[i], r)
	}
	return r
}
