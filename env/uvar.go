// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package env

import (
	"fmt"
	"io"

	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/term"
)

// DefineUvar declares a new universe variable constrained to be at
// least bound, and returns the variable as a level. The bound may
// reference only universe variables already declared in e or its
// ancestors, so the constraint graph is acyclic by construction.
func (e *Env) DefineUvar(name string, bound *term.Level) (*term.Level, error) {
	for _, a := range bound.Atoms() {
		if a.Name == "" {
			continue
		}
		if _, ok := e.lookupUvar(a.Name); !ok {
			return nil, errors.E("defineuvar", name, a.Name, errors.UnknownUniverse)
		}
	}
	if err := e.add(Object{Kind: ObjUvar, Name: name, Bound: bound}); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.uvars[name] = bound
	e.mu.Unlock()
	return term.Uvar(name), nil
}

// Uvar returns the declared universe variable named name as a
// level.
func (e *Env) Uvar(name string) (*term.Level, error) {
	if _, ok := e.lookupUvar(name); !ok {
		return nil, errors.E("uvar", name, errors.UnknownUniverse)
	}
	return term.Uvar(name), nil
}

func (e *Env) lookupUvar(name string) (*term.Level, bool) {
	for env := e; env != nil; env = env.parent {
		env.mu.Lock()
		bound, ok := env.uvars[name]
		env.mu.Unlock()
		if ok {
			return bound, true
		}
	}
	return nil, false
}

type geKey struct {
	u, v *term.Level
}

// IsGe tells whether u >= v is derivable from the universe variable
// constraints declared in e and its ancestors. Universe variables
// are nonnegative; constraints only grow the environment, so memoized
// results stay valid.
func (e *Env) IsGe(u, v *term.Level) bool {
	key := geKey{u, v}
	e.mu.Lock()
	r, ok := e.geMemo[key]
	e.mu.Unlock()
	if ok {
		return r
	}
	r = e.isGe(u, v)
	e.mu.Lock()
	e.geMemo[key] = r
	e.mu.Unlock()
	return r
}

func (e *Env) isGe(u, v *term.Level) bool {
Outer:
	for _, b := range v.Atoms() {
		for _, a := range u.Atoms() {
			if e.atomGe(a, b, nil) {
				continue Outer
			}
		}
		return false
	}
	return true
}

func (e *Env) atomGe(a, b term.LevelAtom, visited map[term.LevelAtom]bool) bool {
	if a.Name == b.Name {
		return a.Offset >= b.Offset
	}
	if b.Name == "" && a.Offset >= b.Offset {
		// A universe variable is at least zero.
		return true
	}
	if a.Name == "" {
		return false
	}
	if visited[a] {
		return false
	}
	bound, ok := e.lookupUvar(a.Name)
	if !ok {
		return false
	}
	if visited == nil {
		visited = make(map[term.LevelAtom]bool)
	}
	visited[a] = true
	for _, c := range bound.Atoms() {
		if e.atomGe(term.LevelAtom{Name: c.Name, Offset: c.Offset + a.Offset}, b, visited) {
			return true
		}
	}
	return false
}

// WriteUvars writes e's local universe variable constraints to w in
// declaration order, one per line.
func (e *Env) WriteUvars(w io.Writer) {
	for _, obj := range e.Objects() {
		if obj.Kind != ObjUvar {
			continue
		}
		fmt.Fprintf(w, "%s >= %s\n", obj.Name, obj.Bound)
	}
}
