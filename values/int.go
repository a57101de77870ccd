// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"hash/fnv"
	"math/big"

	"github.com/grailbio/karn/term"
)

type intType struct{}

func (intType) Kind() string                                   { return "int" }
func (intType) Type() *term.Expr                               { return Type }
func (intType) Normalize(args []*term.Expr) (*term.Expr, bool) { return nil, false }
func (intType) Hash() uint32                                   { return 59 }
func (intType) Equal(v term.Value) bool                        { return v.Kind() == "int" }
func (intType) String() string                                 { return "int" }

// Int is the type of the integer numerals.
var Int = term.Val(intType{})

type intValue struct {
	v *big.Int
}

func (intValue) Kind() string                                   { return "int_literal" }
func (intValue) Type() *term.Expr                               { return Int }
func (intValue) Normalize(args []*term.Expr) (*term.Expr, bool) { return nil, false }

func (i intValue) Hash() uint32 {
	h := fnv.New32a()
	if i.v.Sign() < 0 {
		h.Write([]byte{'-'})
	}
	h.Write(i.v.Bytes())
	return h.Sum32()
}

func (i intValue) Equal(v term.Value) bool {
	o, ok := v.(intValue)
	return ok && i.v.Cmp(o.v) == 0
}

func (i intValue) String() string { return i.v.String() }

// Numeral returns the integer literal denoting v. The big integer is
// not copied and must not be mutated afterwards.
func Numeral(v *big.Int) *term.Expr {
	return term.Val(intValue{v})
}

// N returns the integer literal denoting v.
func N(v int64) *term.Expr {
	return Numeral(big.NewInt(v))
}

// IntValue reports the integer denoted by e, if e is an integer
// literal. The returned big integer is shared and must not be
// mutated.
func IntValue(e *term.Expr) (*big.Int, bool) {
	if !e.IsValue() {
		return nil, false
	}
	i, ok := e.Value().(intValue)
	if !ok {
		return nil, false
	}
	return i.v, true
}

// intBinOpType is int -> int -> int.
var intBinOpType = term.Arrow(Int, term.Arrow(Int, Int))

type intBinOp struct {
	name string
	hash uint32
	eval func(a, b *big.Int) (*big.Int, bool)
}

func (o intBinOp) Kind() string            { return o.name }
func (o intBinOp) Type() *term.Expr        { return intBinOpType }
func (o intBinOp) Hash() uint32            { return o.hash }
func (o intBinOp) Equal(v term.Value) bool { return v.Kind() == o.name }
func (o intBinOp) String() string          { return o.name }

func (o intBinOp) Normalize(args []*term.Expr) (*term.Expr, bool) {
	if len(args) != 3 {
		return nil, false
	}
	a, ok := IntValue(args[1])
	if !ok {
		return nil, false
	}
	b, ok := IntValue(args[2])
	if !ok {
		return nil, false
	}
	r, ok := o.eval(a, b)
	if !ok {
		return nil, false
	}
	return Numeral(r), true
}

// The arithmetic builtins. Each computes when both arguments are
// numerals; division truncates toward zero and does not compute on a
// zero divisor.
var (
	Add = term.Val(intBinOp{"+", 61, func(a, b *big.Int) (*big.Int, bool) {
		return new(big.Int).Add(a, b), true
	}})
	Sub = term.Val(intBinOp{"-", 67, func(a, b *big.Int) (*big.Int, bool) {
		return new(big.Int).Sub(a, b), true
	}})
	Mul = term.Val(intBinOp{"*", 71, func(a, b *big.Int) (*big.Int, bool) {
		return new(big.Int).Mul(a, b), true
	}})
	Div = term.Val(intBinOp{"div", 73, func(a, b *big.Int) (*big.Int, bool) {
		if b.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Quo(a, b), true
	}})
)

type intLe struct{}

func (intLe) Kind() string            { return "<=" }
func (intLe) Type() *term.Expr        { return term.Arrow(Int, term.Arrow(Int, Bool)) }
func (intLe) Hash() uint32            { return 79 }
func (intLe) Equal(v term.Value) bool { return v.Kind() == "<=" }
func (intLe) String() string          { return "<=" }

func (intLe) Normalize(args []*term.Expr) (*term.Expr, bool) {
	if len(args) != 3 {
		return nil, false
	}
	a, ok := IntValue(args[1])
	if !ok {
		return nil, false
	}
	b, ok := IntValue(args[2])
	if !ok {
		return nil, false
	}
	return Boolean(a.Cmp(b) <= 0), true
}

// Le is the integer order builtin; the remaining comparisons are
// definitions over it (see AddTheory).
var Le = term.Val(intLe{})
