// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package term implements the kernel's expression representation: an
// immutable, hash-consed DAG of terms in de Bruijn form, together
// with universe level expressions and the substitution algebra over
// them (lift, instantiate, beta reduction).
//
// Expressions are created exclusively through the package's smart
// constructors (Var, Const, Sort, App, Lambda, Pi, Sigma, Pair, Proj,
// Let, HEq, Metavar, Val). Each constructor computes the node's
// caches (structural hash, free variable range, metavariable bit,
// weight) and returns the canonical representative from a
// process-global interning table, so that two structurally equal
// sub-DAGs always share identity. Nodes are never mutated after
// construction.
package term

import "math"

// ExprKind is the kind of an expression node.
type ExprKind int

const (
	// ExprVar is a bound variable, identified by its de Bruijn
	// index. Index 0 refers to the innermost binder.
	ExprVar ExprKind = iota
	// ExprConst is a reference to a named environment object.
	ExprConst
	// ExprSort is a universe.
	ExprSort
	// ExprApp is an n-ary application. Applications are stored
	// n-ary to maximize sharing.
	ExprApp
	// ExprLambda is a function abstraction.
	ExprLambda
	// ExprPi is a dependent product.
	ExprPi
	// ExprSigma is a dependent sum.
	ExprSigma
	// ExprPair is a dependent pair, annotated with its sigma type.
	ExprPair
	// ExprProj is a first or second projection from a pair.
	ExprProj
	// ExprLet is a local definition.
	ExprLet
	// ExprHEq is a heterogeneous equality.
	ExprHEq
	// ExprMetavar is a metavariable: a hole standing for a term to
	// be inferred, carrying the substitutions and shifts that have
	// been applied to it since its introduction.
	ExprMetavar
	// ExprValue is an opaque embedded value (see Value).
	ExprValue

	maxExpr
)

var kindStrings = [maxExpr]string{
	ExprVar:     "var",
	ExprConst:   "const",
	ExprSort:    "sort",
	ExprApp:     "app",
	ExprLambda:  "lambda",
	ExprPi:      "pi",
	ExprSigma:   "sigma",
	ExprPair:    "pair",
	ExprProj:    "proj",
	ExprLet:     "let",
	ExprHEq:     "heq",
	ExprMetavar: "metavar",
	ExprValue:   "value",
}

// String returns a human-readable name for kind k.
func (k ExprKind) String() string {
	if k < 0 || k >= maxExpr {
		return "unknown"
	}
	return kindStrings[k]
}

// unboundHi is the free-variable ceiling used for expressions whose
// scoping cannot be determined statically (metavariables).
const unboundHi = math.MaxInt32

// Value is the interface implemented by opaque embedded values:
// externally defined objects (integers, booleans, strings, custom
// data) that participate in kernel terms. The normalizer invokes
// Normalize when a value is at the head of an application.
type Value interface {
	// Kind returns a tag identifying the value's class. Two values
	// of different kinds are never equal.
	Kind() string
	// Type returns the kernel type of the value.
	Type() *Expr
	// Normalize reduces an application whose head is this value.
	// The argument slice is the full application argument list,
	// including the value itself at position 0. It returns the
	// reduct and true when reduction applies.
	Normalize(args []*Expr) (*Expr, bool)
	// Hash returns a hash consistent with Equal.
	Hash() uint32
	// Equal tells whether the value is equal to v.
	Equal(v Value) bool
	// String renders the value for debugging.
	String() string
}

// An Expr is a node in the kernel's immutable expression DAG. The
// zero value is not a valid expression; use the package constructors.
type Expr struct {
	kind ExprKind

	index  int      // ExprVar
	name   string   // ExprConst
	levels []*Level // ExprConst
	level  *Level   // ExprSort
	args   []*Expr  // ExprApp; args[0] is the applied function

	nameHint string // ExprLambda, ExprPi, ExprSigma, ExprLet

	// left, right, third hold the remaining children, per kind:
	//
	//	Lambda/Pi/Sigma  domain=left   body=right
	//	Pair             first=left    second=right  type=third
	//	Proj             arg=left
	//	Let              value=left    body=right    type=third (or nil)
	//	HEq              lhs=left      rhs=right
	left, right, third *Expr

	second bool // ExprProj: true selects the second component

	meta   uint64       // ExprMetavar: process-unique metavariable id
	locals []LocalEntry // ExprMetavar

	value Value // ExprValue

	// Caches, computed at construction.
	hash      uint32
	fp        uint64
	loFree    int
	hiFree    int
	hasMeta   bool
	weight    int
	maxShared bool
}

// Kind returns the expression's kind.
func (e *Expr) Kind() ExprKind { return e.kind }

// Hash returns the expression's cached structural hash. The hash is
// invariant under renaming of binder hints, consistently with Equal.
func (e *Expr) Hash() uint32 { return e.hash }

// Weight returns the approximate size of the expression tree.
func (e *Expr) Weight() int { return e.weight }

// HasMeta tells whether the expression contains a metavariable.
func (e *Expr) HasMeta() bool { return e.hasMeta }

// MaxShared tells whether this node is the canonical representative
// in the interning table. It holds for all nodes returned by the
// package constructors.
func (e *Expr) MaxShared() bool { return e.maxShared }

// FreeVarRange returns the half-open interval [lo, hi) bounding the
// de Bruijn indices of the expression's free variables. Expressions
// containing metavariables report an unbounded ceiling, since a hole
// may stand for an arbitrary well-scoped term.
func (e *Expr) FreeVarRange() (lo, hi int) { return e.loFree, e.hiFree }

// Closed tells whether the expression has no free variables.
func (e *Expr) Closed() bool { return e.hiFree == 0 }

// IsVar tells whether e is a bound variable.
func (e *Expr) IsVar() bool { return e.kind == ExprVar }

// Index returns the de Bruijn index of a variable.
func (e *Expr) Index() int { return e.index }

// IsConst tells whether e is a constant reference.
func (e *Expr) IsConst() bool { return e.kind == ExprConst }

// Name returns the referenced name of a constant.
func (e *Expr) Name() string { return e.name }

// Levels returns the universe level arguments of a constant.
func (e *Expr) Levels() []*Level { return e.levels }

// IsSort tells whether e is a universe.
func (e *Expr) IsSort() bool { return e.kind == ExprSort }

// Level returns the level of a sort.
func (e *Expr) Level() *Level { return e.level }

// IsApp tells whether e is an application.
func (e *Expr) IsApp() bool { return e.kind == ExprApp }

// NumArgs returns the number of application children, including the
// applied function at position 0.
func (e *Expr) NumArgs() int { return len(e.args) }

// Arg returns the i'th application child; Arg(0) is the applied
// function. The caller must not modify the returned expression.
func (e *Expr) Arg(i int) *Expr { return e.args[i] }

// IsAbst tells whether e is a binder (lambda, pi, or sigma).
func (e *Expr) IsAbst() bool {
	return e.kind == ExprLambda || e.kind == ExprPi || e.kind == ExprSigma
}

// IsLambda tells whether e is a lambda abstraction.
func (e *Expr) IsLambda() bool { return e.kind == ExprLambda }

// IsPi tells whether e is a dependent product.
func (e *Expr) IsPi() bool { return e.kind == ExprPi }

// IsSigma tells whether e is a dependent sum.
func (e *Expr) IsSigma() bool { return e.kind == ExprSigma }

// AbstName returns the binder's name hint. Hints are presentation
// only: they do not participate in equality or hashing.
func (e *Expr) AbstName() string { return e.nameHint }

// AbstDomain returns the binder's domain.
func (e *Expr) AbstDomain() *Expr { return e.left }

// AbstBody returns the binder's body. Inside the body, Var(0) refers
// to the binder.
func (e *Expr) AbstBody() *Expr { return e.right }

// IsPair tells whether e is a pair.
func (e *Expr) IsPair() bool { return e.kind == ExprPair }

// PairFirst returns the first component of a pair.
func (e *Expr) PairFirst() *Expr { return e.left }

// PairSecond returns the second component of a pair.
func (e *Expr) PairSecond() *Expr { return e.right }

// PairType returns the sigma type annotation of a pair.
func (e *Expr) PairType() *Expr { return e.third }

// IsProj tells whether e is a projection.
func (e *Expr) IsProj() bool { return e.kind == ExprProj }

// ProjSecond tells whether the projection selects the second
// component.
func (e *Expr) ProjSecond() bool { return e.second }

// ProjArg returns the projected expression.
func (e *Expr) ProjArg() *Expr { return e.left }

// IsLet tells whether e is a local definition.
func (e *Expr) IsLet() bool { return e.kind == ExprLet }

// LetName returns the let binder's name hint.
func (e *Expr) LetName() string { return e.nameHint }

// LetType returns the optional type annotation of a let binding, or
// nil when absent.
func (e *Expr) LetType() *Expr { return e.third }

// LetValue returns the bound value of a let binding.
func (e *Expr) LetValue() *Expr { return e.left }

// LetBody returns the body of a let binding; Var(0) inside refers to
// the bound name.
func (e *Expr) LetBody() *Expr { return e.right }

// IsHEq tells whether e is a heterogeneous equality.
func (e *Expr) IsHEq() bool { return e.kind == ExprHEq }

// HEqLeft returns the left operand of a heterogeneous equality.
func (e *Expr) HEqLeft() *Expr { return e.left }

// HEqRight returns the right operand of a heterogeneous equality.
func (e *Expr) HEqRight() *Expr { return e.right }

// IsMetavar tells whether e is a metavariable.
func (e *Expr) IsMetavar() bool { return e.kind == ExprMetavar }

// MetaID returns the metavariable's process-unique id.
func (e *Expr) MetaID() uint64 { return e.meta }

// MetaLocals returns the substitutions and shifts recorded against
// the metavariable, in application order. The caller must not modify
// the returned slice.
func (e *Expr) MetaLocals() []LocalEntry { return e.locals }

// IsValue tells whether e is an embedded value.
func (e *Expr) IsValue() bool { return e.kind == ExprValue }

// Value returns the embedded value.
func (e *Expr) Value() Value { return e.value }

// Var returns the canonical variable with de Bruijn index i.
func Var(i int) *Expr {
	n := &Expr{
		kind:   ExprVar,
		index:  i,
		loFree: i,
		hiFree: i + 1,
		weight: 1,
	}
	n.fp = mix64(kindSeed(ExprVar), uint64(i))
	return intern(n)
}

// Const returns the canonical constant referencing name, applied to
// the given universe levels.
func Const(name string, levels ...*Level) *Expr {
	n := &Expr{
		kind:   ExprConst,
		name:   name,
		levels: levels,
		weight: 1,
	}
	fp := mix64(kindSeed(ExprConst), hashString(name))
	for _, l := range levels {
		fp = mix64(fp, uint64(l.Hash()))
	}
	n.fp = fp
	return intern(n)
}

// Sort returns the canonical universe at level l.
func Sort(l *Level) *Expr {
	n := &Expr{
		kind:   ExprSort,
		level:  l,
		weight: 1,
	}
	n.fp = mix64(kindSeed(ExprSort), uint64(l.Hash()))
	return intern(n)
}

// App returns the canonical application of args[0] to args[1:].
// Nested applications in head position are flattened, so that
// App(App(f, a), b) and App(f, a, b) are identical. An application
// of zero arguments is the function itself.
func App(args ...*Expr) *Expr {
	if len(args) == 0 {
		panic("term.App: empty application")
	}
	if f := args[0]; f.kind == ExprApp {
		flat := make([]*Expr, 0, len(f.args)+len(args)-1)
		flat = append(flat, f.args...)
		flat = append(flat, args[1:]...)
		args = flat
	}
	if len(args) == 1 {
		return args[0]
	}
	n := &Expr{
		kind: ExprApp,
		args: args,
	}
	fp := kindSeed(ExprApp)
	for _, a := range args {
		fp = mix64(fp, a.fp)
		n.mergeChild(a)
	}
	n.fp = fp
	n.weight++
	return intern(n)
}

// Lambda returns the canonical abstraction with the given domain and
// body. The hint names the binder for presentation; it is ignored by
// equality.
func Lambda(hint string, domain, body *Expr) *Expr {
	return abst(ExprLambda, hint, domain, body)
}

// Pi returns the canonical dependent product with the given domain
// and body.
func Pi(hint string, domain, body *Expr) *Expr {
	return abst(ExprPi, hint, domain, body)
}

// Sigma returns the canonical dependent sum with the given domain
// and body.
func Sigma(hint string, domain, body *Expr) *Expr {
	return abst(ExprSigma, hint, domain, body)
}

// Arrow returns the non-dependent product from domain to codomain.
// The codomain must make no use of the bound variable; it is lifted
// over the fresh binder.
func Arrow(domain, codomain *Expr) *Expr {
	return Pi("", domain, Lift(codomain, 0, 1))
}

func abst(kind ExprKind, hint string, domain, body *Expr) *Expr {
	n := &Expr{
		kind:     kind,
		nameHint: hint,
		left:     domain,
		right:    body,
	}
	n.mergeChild(domain)
	n.mergeBound(body, 1)
	n.fp = mix64(mix64(kindSeed(kind), domain.fp), body.fp)
	n.weight++
	return intern(n)
}

// Pair returns the canonical pair of first and second, annotated
// with its sigma type.
func Pair(first, second, typ *Expr) *Expr {
	n := &Expr{
		kind:  ExprPair,
		left:  first,
		right: second,
		third: typ,
	}
	n.mergeChild(first)
	n.mergeChild(second)
	n.mergeChild(typ)
	n.fp = mix64(mix64(mix64(kindSeed(ExprPair), first.fp), second.fp), typ.fp)
	n.weight++
	return intern(n)
}

// Proj returns the canonical projection from arg; second selects the
// pair component.
func Proj(second bool, arg *Expr) *Expr {
	n := &Expr{
		kind:   ExprProj,
		second: second,
		left:   arg,
	}
	n.mergeChild(arg)
	sel := uint64(1)
	if second {
		sel = 2
	}
	n.fp = mix64(mix64(kindSeed(ExprProj), sel), arg.fp)
	n.weight++
	return intern(n)
}

// Let returns the canonical local definition binding value (with
// optional type annotation typ, which may be nil) in body. Inside
// body, Var(0) refers to the bound name.
func Let(hint string, typ, value, body *Expr) *Expr {
	n := &Expr{
		kind:     ExprLet,
		nameHint: hint,
		left:     value,
		right:    body,
		third:    typ,
	}
	n.mergeChild(value)
	n.mergeBound(body, 1)
	fp := mix64(kindSeed(ExprLet), value.fp)
	if typ != nil {
		n.mergeChild(typ)
		fp = mix64(fp, typ.fp)
	}
	n.fp = mix64(fp, body.fp)
	n.weight++
	return intern(n)
}

// HEq returns the canonical heterogeneous equality between lhs and
// rhs.
func HEq(lhs, rhs *Expr) *Expr {
	n := &Expr{
		kind:  ExprHEq,
		left:  lhs,
		right: rhs,
	}
	n.mergeChild(lhs)
	n.mergeChild(rhs)
	n.fp = mix64(mix64(kindSeed(ExprHEq), lhs.fp), rhs.fp)
	n.weight++
	return intern(n)
}

// Metavar returns the canonical metavariable with the given id and
// recorded local entries. Ids are allocated by the kernel's
// metavariable environment and are unique within a process.
func Metavar(id uint64, locals ...LocalEntry) *Expr {
	n := &Expr{
		kind:    ExprMetavar,
		meta:    id,
		locals:  locals,
		hasMeta: true,
		loFree:  0,
		hiFree:  unboundHi,
		weight:  1,
	}
	fp := mix64(kindSeed(ExprMetavar), id)
	for _, l := range locals {
		fp = mix64(fp, l.fp())
		if l.IsInst() {
			n.weight += l.Repl().weight
		}
	}
	n.fp = fp
	return intern(n)
}

// Val returns the canonical expression embedding value v.
func Val(v Value) *Expr {
	n := &Expr{
		kind:   ExprValue,
		value:  v,
		weight: 1,
	}
	n.fp = mix64(mix64(kindSeed(ExprValue), hashString(v.Kind())), uint64(v.Hash()))
	return intern(n)
}

// mergeChild folds a child occurring in the same scope into the
// node's caches.
func (e *Expr) mergeChild(c *Expr) {
	e.mergeRange(c.loFree, c.hiFree)
	e.hasMeta = e.hasMeta || c.hasMeta
	e.weight += c.weight
}

// mergeBound folds a child occurring under nbound fresh binders into
// the node's caches: the child's free variable range is shifted down
// past the binders it closes over.
func (e *Expr) mergeBound(c *Expr, nbound int) {
	lo, hi := c.loFree, c.hiFree
	lo -= nbound
	if lo < 0 {
		lo = 0
	}
	if hi != unboundHi {
		hi -= nbound
		if hi < 0 {
			hi = 0
		}
	}
	e.mergeRange(lo, hi)
	e.hasMeta = e.hasMeta || c.hasMeta
	e.weight += c.weight
}

func (e *Expr) mergeRange(lo, hi int) {
	if lo >= hi {
		return
	}
	if e.loFree >= e.hiFree {
		e.loFree, e.hiFree = lo, hi
		return
	}
	if lo < e.loFree {
		e.loFree = lo
	}
	if hi > e.hiFree {
		e.hiFree = hi
	}
}

// HasFreeVar tells whether e has a free variable with de Bruijn
// index in the half-open interval [lo, hi). The query is exact for
// metavariable-free expressions and conservative (erring towards
// true) around unresolved metavariables.
func HasFreeVar(e *Expr, lo, hi int) bool {
	if lo >= hi || e.hiFree <= lo || e.loFree >= hi {
		return false
	}
	switch e.kind {
	case ExprVar:
		return lo <= e.index && e.index < hi
	case ExprConst, ExprSort, ExprValue:
		return false
	case ExprMetavar:
		// A hole may expand to any term that is well scoped in its
		// context; without resolving it the query cannot be refuted.
		return true
	case ExprApp:
		for _, a := range e.args {
			if HasFreeVar(a, lo, hi) {
				return true
			}
		}
		return false
	case ExprLambda, ExprPi, ExprSigma:
		return HasFreeVar(e.left, lo, hi) || HasFreeVar(e.right, lo+1, hi+1)
	case ExprPair:
		return HasFreeVar(e.left, lo, hi) || HasFreeVar(e.right, lo, hi) || HasFreeVar(e.third, lo, hi)
	case ExprProj:
		return HasFreeVar(e.left, lo, hi)
	case ExprLet:
		if e.third != nil && HasFreeVar(e.third, lo, hi) {
			return true
		}
		return HasFreeVar(e.left, lo, hi) || HasFreeVar(e.right, lo+1, hi+1)
	case ExprHEq:
		return HasFreeVar(e.left, lo, hi) || HasFreeVar(e.right, lo, hi)
	}
	return false
}

// WellScoped tells whether e is well scoped in a context of the
// given length: it mentions no free variable with index >= ceiling.
func WellScoped(e *Expr, ceiling int) bool {
	return !hasFreeVarAbove(e, ceiling)
}

// hasFreeVarAbove reports whether e mentions a free variable with
// index >= ceiling. Unlike HasFreeVar, unresolved metavariables are
// skipped: a metavariable is constrained to its own context by the
// metavariable environment, so its eventual value cannot introduce
// out-of-scope variables.
func hasFreeVarAbove(e *Expr, ceiling int) bool {
	if !e.hasMeta {
		return e.hiFree > ceiling
	}
	switch e.kind {
	case ExprMetavar:
		for _, l := range e.locals {
			if l.IsInst() && hasFreeVarAbove(l.Repl(), ceiling) {
				return true
			}
		}
		return false
	case ExprApp:
		for _, a := range e.args {
			if hasFreeVarAbove(a, ceiling) {
				return true
			}
		}
		return false
	case ExprLambda, ExprPi, ExprSigma:
		return hasFreeVarAbove(e.left, ceiling) || hasFreeVarAbove(e.right, ceiling+1)
	case ExprPair:
		return hasFreeVarAbove(e.left, ceiling) || hasFreeVarAbove(e.right, ceiling) || hasFreeVarAbove(e.third, ceiling)
	case ExprProj:
		return hasFreeVarAbove(e.left, ceiling)
	case ExprLet:
		if e.third != nil && hasFreeVarAbove(e.third, ceiling) {
			return true
		}
		return hasFreeVarAbove(e.left, ceiling) || hasFreeVarAbove(e.right, ceiling+1)
	case ExprHEq:
		return hasFreeVarAbove(e.left, ceiling) || hasFreeVarAbove(e.right, ceiling)
	}
	return e.hiFree > ceiling
}
