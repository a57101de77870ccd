// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package kernel implements the trusted core of the checker: the
// metavariable environment, weak-head and full normalization,
// convertibility, type inference, and bounded unification. A kernel
// instance (MEnv) is owned by one goroutine at a time; callers that
// share an instance must serialize access externally.
package kernel

import (
	"sync/atomic"

	"github.com/grailbio/karn/config"
	"github.com/grailbio/karn/env"
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/log"
	"github.com/grailbio/karn/term"
)

// A Binding is one context entry: a binder name hint and its
// domain type.
type Binding struct {
	Name string
	Type *term.Expr
}

// A Context is an ordered list of the binders in scope, outermost
// first: Var(i) refers to the entry i positions from the end.
type Context []Binding

// Extend returns ctx extended with a new innermost binder.
func (c Context) Extend(name string, typ *term.Expr) Context {
	ext := make(Context, len(c), len(c)+1)
	copy(ext, c)
	return append(ext, Binding{name, typ})
}

// Lookup returns the binding for de Bruijn index i.
func (c Context) Lookup(i int) (Binding, bool) {
	if i < 0 || i >= len(c) {
		return Binding{}, false
	}
	return c[len(c)-1-i], true
}

// IsPrefix tells whether c is a prefix of d.
func (c Context) IsPrefix(d Context) bool {
	if len(c) > len(d) {
		return false
	}
	for i := range c {
		// Hints are irrelevant; only the domains must agree.
		if !term.Equal(c[i].Type, d[i].Type) {
			return false
		}
	}
	return true
}

type cellState int

const (
	unprocessed cellState = iota
	processing
	processed
)

// A cell is one union-find node of the metavariable environment.
// Cells are accessed by metavariable id and mutated in place.
type cell struct {
	id   uint64
	expr *term.Expr // assignment; nil while unassigned
	ctx  Context
	find *cell
	rank int
	state cellState
}

// metaID allocates process-unique metavariable ids so that
// metavariables from different MEnvs never collide in the interner.
var metaID uint64

// An MEnv is a metavariable environment: a union-find over
// metavariable cells plus the budgets and interruption flag shared
// by the kernel procedures that run against it. An MEnv is not safe
// for concurrent use.
type MEnv struct {
	env        *env.Env
	cells      map[uint64]*cell
	unfoldable map[string]bool // nil: all non-opaque definitions
	maxDepth   int
	maxSteps   int
	steps      int
	interrupted int32
}

// New creates a metavariable environment owned by e, configured by
// cfg. A nil cfg uses the defaults.
func New(e *env.Env, cfg *config.Config) *MEnv {
	m := &MEnv{
		env:      e,
		cells:    make(map[uint64]*cell),
		maxDepth: cfg.MaxDepth(),
		maxSteps: cfg.MaxSteps(),
	}
	if names := cfg.Unfoldable(); names != nil {
		m.unfoldable = make(map[string]bool)
		for _, n := range names {
			m.unfoldable[n] = true
		}
	}
	return m
}

// Env returns the environment owning m.
func (m *MEnv) Env() *env.Env { return m.env }

// Interrupt sets or clears the cooperative interruption flag. Kernel
// procedures running against m observe the flag at their next
// recursive descent and fail with an Interrupted error. Interrupt
// may be called from any goroutine.
func (m *MEnv) Interrupt(v bool) {
	var flag int32
	if v {
		flag = 1
	}
	atomic.StoreInt32(&m.interrupted, flag)
}

func (m *MEnv) checkInterrupt(op string) error {
	if atomic.LoadInt32(&m.interrupted) != 0 {
		return errors.E(op, errors.Interrupted)
	}
	return nil
}

func (m *MEnv) step(op string) error {
	if err := m.checkInterrupt(op); err != nil {
		return err
	}
	m.steps++
	if m.steps > m.maxSteps {
		return errors.E(op, errors.MaxStepsExceeded)
	}
	return nil
}

// MkMetavar allocates a fresh metavariable whose local context is
// ctx.
func (m *MEnv) MkMetavar(ctx Context) *term.Expr {
	id := atomic.AddUint64(&metaID, 1)
	c := &cell{id: id, ctx: ctx}
	c.find = c
	m.cells[id] = c
	return term.Metavar(id)
}

// root follows find links with path compression.
func (m *MEnv) root(c *cell) *cell {
	for c.find != c {
		c.find = c.find.find
		c = c.find
	}
	return c
}

func (m *MEnv) cellOf(e *term.Expr) *cell {
	c, ok := m.cells[e.MetaID()]
	if !ok {
		return nil
	}
	return m.root(c)
}

// Root returns the canonical representative of metavariable e: the
// root of its union-find class, with e's pending local entries
// preserved.
func (m *MEnv) Root(e *term.Expr) *term.Expr {
	c := m.cellOf(e)
	if c == nil || c.id == e.MetaID() {
		return e
	}
	return term.Metavar(c.id, e.MetaLocals()...)
}

// IsAssigned tells whether metavariable e has been assigned, either
// directly or through a union with an assigned metavariable.
func (m *MEnv) IsAssigned(e *term.Expr) bool {
	c := m.cellOf(e)
	return c != nil && c.expr != nil
}

// Assign assigns the value s to metavariable mv. Assignment fails
// with an OccursCheck error if s mentions mv (modulo already
// resolved metavariables), and with an Invalid error if s is not
// well scoped in mv's local context. Assignments are not rolled
// back on subsequent failures; transactional callers use Snapshot.
func (m *MEnv) Assign(mv, s *term.Expr) error {
	c := m.cellOf(mv)
	if c == nil {
		return errors.E("assign", mv, errors.Invalid,
			errors.New("metavariable not in this environment"))
	}
	if c.expr != nil {
		return errors.E("assign", mv, errors.Invalid,
			errors.New("metavariable already assigned"))
	}
	s = m.InstantiateMetavars(s)
	if m.occurs(s, c) {
		return errors.E("assign", mv, s, errors.OccursCheck)
	}
	if !term.WellScoped(s, len(c.ctx)) {
		return errors.E("assign", mv, s, errors.Invalid,
			errors.New("value not well scoped in metavariable context"))
	}
	c.expr = s
	c.state = processed
	log.Debugf("menv: ?m%d := %s", c.id, s)
	return nil
}

// occurs tells whether any metavariable of e resolves to root r.
func (m *MEnv) occurs(e *term.Expr, r *cell) bool {
	if !e.HasMeta() {
		return false
	}
	if e.IsMetavar() {
		c := m.cellOf(e)
		if c == r {
			return true
		}
		for _, l := range e.MetaLocals() {
			if l.IsInst() && m.occurs(l.Repl(), r) {
				return true
			}
		}
		return false
	}
	switch e.Kind() {
	case term.ExprApp:
		for i := 0; i < e.NumArgs(); i++ {
			if m.occurs(e.Arg(i), r) {
				return true
			}
		}
	case term.ExprLambda, term.ExprPi, term.ExprSigma:
		return m.occurs(e.AbstDomain(), r) || m.occurs(e.AbstBody(), r)
	case term.ExprPair:
		return m.occurs(e.PairFirst(), r) || m.occurs(e.PairSecond(), r) || m.occurs(e.PairType(), r)
	case term.ExprProj:
		return m.occurs(e.ProjArg(), r)
	case term.ExprLet:
		if t := e.LetType(); t != nil && m.occurs(t, r) {
			return true
		}
		return m.occurs(e.LetValue(), r) || m.occurs(e.LetBody(), r)
	case term.ExprHEq:
		return m.occurs(e.HEqLeft(), r) || m.occurs(e.HEqRight(), r)
	}
	return false
}

// union merges the union-find classes of two unassigned cells. The
// cell with the shallower context becomes root, so that any
// assignment stored at the root is well scoped for both; ties break
// by rank.
func (m *MEnv) union(a, b *cell) error {
	a, b = m.root(a), m.root(b)
	if a == b {
		return nil
	}
	switch {
	case len(a.ctx) < len(b.ctx):
		if !a.ctx.IsPrefix(b.ctx) {
			return errors.E("union", errors.FailedToUnify,
				errors.New("metavariable contexts disagree"))
		}
		b.find = a
	case len(b.ctx) < len(a.ctx):
		if !b.ctx.IsPrefix(a.ctx) {
			return errors.E("union", errors.FailedToUnify,
				errors.New("metavariable contexts disagree"))
		}
		a.find = b
	default:
		if !a.ctx.IsPrefix(b.ctx) {
			return errors.E("union", errors.FailedToUnify,
				errors.New("metavariable contexts disagree"))
		}
		if a.rank < b.rank {
			a, b = b, a
		}
		if a.rank == b.rank {
			a.rank++
		}
		b.find = a
	}
	return nil
}

// InstantiateMetavars replaces every assigned metavariable of e by
// its value, with the occurrence's accumulated local entries
// applied. Unassigned metavariables are renamed to their union-find
// roots. InstantiateMetavars is pure.
func (m *MEnv) InstantiateMetavars(e *term.Expr) *term.Expr {
	if !e.HasMeta() {
		return e
	}
	switch e.Kind() {
	case term.ExprMetavar:
		locals := e.MetaLocals()
		resolved := make([]term.LocalEntry, len(locals))
		changed := false
		for i, l := range locals {
			if l.IsInst() {
				r := m.InstantiateMetavars(l.Repl())
				changed = changed || r != l.Repl()
				resolved[i] = term.MkInst(l.Start(), r)
			} else {
				resolved[i] = l
			}
		}
		c := m.cellOf(e)
		if c == nil || c.expr == nil {
			if c != nil && c.id != e.MetaID() {
				return term.Metavar(c.id, resolved...)
			}
			if changed {
				return term.Metavar(e.MetaID(), resolved...)
			}
			return e
		}
		v := m.InstantiateMetavars(c.expr)
		return term.ExpandLocals(v, resolved)
	case term.ExprApp:
		args := make([]*term.Expr, e.NumArgs())
		changed := false
		for i := range args {
			args[i] = m.InstantiateMetavars(e.Arg(i))
			changed = changed || args[i] != e.Arg(i)
		}
		if !changed {
			return e
		}
		return term.App(args...)
	case term.ExprLambda, term.ExprPi, term.ExprSigma:
		domain := m.InstantiateMetavars(e.AbstDomain())
		body := m.InstantiateMetavars(e.AbstBody())
		if domain == e.AbstDomain() && body == e.AbstBody() {
			return e
		}
		switch e.Kind() {
		case term.ExprLambda:
			return term.Lambda(e.AbstName(), domain, body)
		case term.ExprPi:
			return term.Pi(e.AbstName(), domain, body)
		default:
			return term.Sigma(e.AbstName(), domain, body)
		}
	case term.ExprPair:
		first := m.InstantiateMetavars(e.PairFirst())
		second := m.InstantiateMetavars(e.PairSecond())
		typ := m.InstantiateMetavars(e.PairType())
		if first == e.PairFirst() && second == e.PairSecond() && typ == e.PairType() {
			return e
		}
		return term.Pair(first, second, typ)
	case term.ExprProj:
		arg := m.InstantiateMetavars(e.ProjArg())
		if arg == e.ProjArg() {
			return e
		}
		return term.Proj(e.ProjSecond(), arg)
	case term.ExprLet:
		var typ *term.Expr
		if e.LetType() != nil {
			typ = m.InstantiateMetavars(e.LetType())
		}
		value := m.InstantiateMetavars(e.LetValue())
		body := m.InstantiateMetavars(e.LetBody())
		if typ == e.LetType() && value == e.LetValue() && body == e.LetBody() {
			return e
		}
		return term.Let(e.LetName(), typ, value, body)
	case term.ExprHEq:
		lhs := m.InstantiateMetavars(e.HEqLeft())
		rhs := m.InstantiateMetavars(e.HEqRight())
		if lhs == e.HEqLeft() && rhs == e.HEqRight() {
			return e
		}
		return term.HEq(lhs, rhs)
	}
	return e
}

// EqModulo tells whether a and b are structurally equal modulo the
// current metavariable assignments and unions.
func (m *MEnv) EqModulo(a, b *term.Expr) bool {
	return term.Equal(m.InstantiateMetavars(a), m.InstantiateMetavars(b))
}

// Clear resets all unification state: assignments, unions, the step
// counter, and the interruption flag. Metavariables created before
// Clear become unknown to m.
func (m *MEnv) Clear() {
	m.cells = make(map[uint64]*cell)
	m.steps = 0
	atomic.StoreInt32(&m.interrupted, 0)
}

// A Snapshot captures the assignment state of an MEnv so that a
// failed speculative call can be rolled back.
type Snapshot struct {
	cells map[uint64]cell
	steps int
}

// Snapshot captures m's current cell states.
func (m *MEnv) Snapshot() *Snapshot {
	s := &Snapshot{cells: make(map[uint64]cell, len(m.cells)), steps: m.steps}
	for id, c := range m.cells {
		s.cells[id] = *c
	}
	return s
}

// Restore returns m to the state captured by s. Metavariables
// created after the snapshot are dropped.
func (m *MEnv) Restore(s *Snapshot) {
	cells := make(map[uint64]*cell, len(s.cells))
	for id, c := range s.cells {
		copy := c
		cells[id] = &copy
	}
	// Find links must point into the restored cell set.
	for _, c := range cells {
		c.find = cells[c.find.id]
	}
	m.cells = cells
	m.steps = s.steps
}
