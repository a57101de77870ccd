// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package env implements the kernel's hierarchical environment: an
// ordered symbol table of declared objects (postulates, definitions,
// builtins, neutral host payloads) together with a universe variable
// constraint graph. Environments fork into read-only parents and
// mutable children to support speculative elaboration.
package env

import (
	"sync"

	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/log"
	"github.com/grailbio/karn/term"
)

// ObjectKind is the kind of a declared environment object.
type ObjectKind int

const (
	// ObjUvar is a universe variable constraint.
	ObjUvar ObjectKind = iota
	// ObjPostulate is an axiom or variable declaration: a name with
	// a type but no value.
	ObjPostulate
	// ObjDefinition is a name with a type and a value. Opaque
	// definitions are not unfolded by the normalizer.
	ObjDefinition
	// ObjBuiltin binds a name to an embedded value.
	ObjBuiltin
	// ObjNeutral is an uninterpreted host payload (a notation, a
	// coercion, an alias). The kernel stores and retrieves neutral
	// objects but never looks inside them.
	ObjNeutral
)

var objectKindStrings = map[ObjectKind]string{
	ObjUvar:       "uvar",
	ObjPostulate:  "postulate",
	ObjDefinition: "definition",
	ObjBuiltin:    "builtin",
	ObjNeutral:    "neutral",
}

// String returns a human-readable name for kind k.
func (k ObjectKind) String() string { return objectKindStrings[k] }

// An Object is a single declaration in an environment.
type Object struct {
	// Kind is the object's kind.
	Kind ObjectKind
	// Name is the object's dotted identifier.
	Name string
	// Type is the declared type of a postulate, definition, or
	// builtin.
	Type *term.Expr
	// Value is the body of a definition or the embedded value
	// expression of a builtin.
	Value *term.Expr
	// Opaque marks definitions that the normalizer must not unfold.
	Opaque bool
	// Bound is the lower bound of a universe variable constraint.
	Bound *term.Level
	// Payload is the uninterpreted payload of a neutral object.
	Payload interface{}
}

// A Checker validates candidate declarations before they are added
// to an environment. CheckType validates that typ is a type in env;
// CheckValue additionally validates that value's inferred type is
// convertible to typ. The kernel package installs the checker at
// init; a nil checker admits declarations unchecked.
type Checker interface {
	CheckType(env *Env, typ *term.Expr) error
	CheckValue(env *Env, value, typ *term.Expr) error
}

var (
	checkerMu sync.Mutex
	checker   Checker
)

// RegisterChecker installs the declaration checker used by all
// environments.
func RegisterChecker(c Checker) {
	checkerMu.Lock()
	checker = c
	checkerMu.Unlock()
}

func getChecker() Checker {
	checkerMu.Lock()
	defer checkerMu.Unlock()
	return checker
}

// An Env is a hierarchical symbol table. The zero value is not
// valid; use New. An Env is safe for concurrent reads; mutations
// must be externally serialized with respect to reads of the same
// Env.
type Env struct {
	parent *Env

	mu       sync.Mutex
	objects  []Object
	byName   map[string]int
	uvars    map[string]*term.Level
	children int
	geMemo   map[geKey]bool
}

// New creates a new empty root environment.
func New() *Env {
	return &Env{
		byName: make(map[string]int),
		uvars:  make(map[string]*term.Level),
		geMemo: make(map[geKey]bool),
	}
}

// MkChild freezes e and returns a new mutable child environment.
// The parent remains frozen until every child has been released.
func (e *Env) MkChild() *Env {
	e.mu.Lock()
	e.children++
	e.mu.Unlock()
	c := New()
	c.parent = e
	return c
}

// Parent returns e's parent environment, or nil if e is a root.
func (e *Env) Parent() *Env { return e.parent }

// HasParent tells whether e was created by MkChild.
func (e *Env) HasParent() bool { return e.parent != nil }

// HasChildren tells whether e has live children and is therefore
// frozen.
func (e *Env) HasChildren() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.children > 0
}

// Release detaches e from its parent, unfreezing the parent once
// its last child has been released. The released environment must
// not be used afterwards.
func (e *Env) Release() {
	if e.parent == nil {
		return
	}
	e.parent.mu.Lock()
	e.parent.children--
	e.parent.mu.Unlock()
}

func (e *Env) frozen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.children > 0
}

// declared reports whether name is declared in e or any ancestor.
func (e *Env) declared(name string) bool {
	for env := e; env != nil; env = env.parent {
		env.mu.Lock()
		_, ok := env.byName[name]
		env.mu.Unlock()
		if ok {
			return true
		}
	}
	return false
}

func (e *Env) add(obj Object) error {
	if e.frozen() {
		return errors.E("add", obj.Name, errors.ReadOnly)
	}
	if e.declared(obj.Name) {
		return errors.E("add", obj.Name, errors.AlreadyDeclared)
	}
	e.mu.Lock()
	e.byName[obj.Name] = len(e.objects)
	e.objects = append(e.objects, obj)
	e.mu.Unlock()
	log.Debugf("env: declared %s %s", obj.Kind, obj.Name)
	return nil
}

// AddVar declares name as a postulate of the given type. The type is
// checked in e before the declaration is added.
func (e *Env) AddVar(name string, typ *term.Expr) error {
	if c := getChecker(); c != nil {
		if err := c.CheckType(e, typ); err != nil {
			return errors.E("addvar", name, err)
		}
	}
	return e.add(Object{Kind: ObjPostulate, Name: name, Type: typ})
}

// AddDefinition declares name as a definition with the given type
// and value. The value is checked against the type in e before the
// declaration is added; opaque definitions are not unfolded by the
// normalizer.
func (e *Env) AddDefinition(name string, typ, value *term.Expr, opaque bool) error {
	if c := getChecker(); c != nil {
		if err := c.CheckValue(e, value, typ); err != nil {
			return errors.E("adddef", name, err)
		}
	}
	return e.add(Object{Kind: ObjDefinition, Name: name, Type: typ, Value: value, Opaque: opaque})
}

// AddBuiltin declares name as a builtin bound to the embedded value
// expression value. Builtin constants are unfolded freely by the
// normalizer.
func (e *Env) AddBuiltin(name string, value *term.Expr) error {
	if !value.IsValue() {
		return errors.E("addbuiltin", name, errors.Invalid,
			errors.New("builtin must be a value expression"))
	}
	return e.add(Object{
		Kind:  ObjBuiltin,
		Name:  name,
		Type:  value.Value().Type(),
		Value: value,
	})
}

// AddNeutral declares name as a neutral object carrying an
// uninterpreted payload.
func (e *Env) AddNeutral(name string, payload interface{}) error {
	return e.add(Object{Kind: ObjNeutral, Name: name, Payload: payload})
}

// FindObject looks name up in e and its ancestors, innermost scope
// first.
func (e *Env) FindObject(name string) (Object, bool) {
	for env := e; env != nil; env = env.parent {
		env.mu.Lock()
		i, ok := env.byName[name]
		var obj Object
		if ok {
			obj = env.objects[i]
		}
		env.mu.Unlock()
		if ok {
			return obj, true
		}
	}
	return Object{}, false
}

// NumObjects returns the number of objects declared in e itself,
// excluding ancestors.
func (e *Env) NumObjects() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.objects)
}

// Object returns the i'th object declared in e, in declaration
// order.
func (e *Env) Object(i int) Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.objects[i]
}

// Objects returns a copy of e's local declarations in declaration
// order.
func (e *Env) Objects() []Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	objs := make([]Object, len(e.objects))
	copy(objs, e.objects)
	return objs
}
