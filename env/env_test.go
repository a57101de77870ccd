// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package env_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/karn/env"
	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/term"
)

func TestAddFind(t *testing.T) {
	e := env.New()
	typ := term.Sort(term.Succ(term.Zero))
	if err := e.AddVar("A", typ); err != nil {
		t.Fatal(err)
	}
	if err := e.AddVar("B", typ); err != nil {
		t.Fatal(err)
	}
	obj, ok := e.FindObject("A")
	if !ok {
		t.Fatal("A not found")
	}
	if got, want := obj.Kind, env.ObjPostulate; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := obj.Type, typ; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if _, ok := e.FindObject("C"); ok {
		t.Error("found undeclared C")
	}
	if got, want := e.NumObjects(), 2; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := e.Object(0).Name, "A"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := e.Object(1).Name, "B"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAlreadyDeclared(t *testing.T) {
	e := env.New()
	typ := term.Sort(term.Succ(term.Zero))
	if err := e.AddVar("A", typ); err != nil {
		t.Fatal(err)
	}
	err := e.AddVar("A", typ)
	if !errors.Match(errors.AlreadyDeclared, err) {
		t.Errorf("got %v, want %v", err, errors.AlreadyDeclared)
	}
}

func TestFreeze(t *testing.T) {
	parent := env.New()
	typ := term.Sort(term.Succ(term.Zero))
	if err := parent.AddVar("A", typ); err != nil {
		t.Fatal(err)
	}
	child := parent.MkChild()
	if !parent.HasChildren() {
		t.Error("parent not frozen")
	}
	if err := parent.AddVar("B", typ); !errors.Match(errors.ReadOnly, err) {
		t.Errorf("got %v, want %v", err, errors.ReadOnly)
	}
	if err := child.AddVar("B", typ); err != nil {
		t.Fatal(err)
	}
	// The child resolves through its parent.
	if _, ok := child.FindObject("A"); !ok {
		t.Error("child cannot see parent declaration")
	}
	// Parent names cannot be shadowed.
	if err := child.AddVar("A", typ); !errors.Match(errors.AlreadyDeclared, err) {
		t.Errorf("got %v, want %v", err, errors.AlreadyDeclared)
	}
	// The parent does not resolve through its children.
	if _, ok := parent.FindObject("B"); ok {
		t.Error("parent sees child declaration")
	}

	child.Release()
	if parent.HasChildren() {
		t.Error("parent still frozen after release")
	}
	if err := parent.AddVar("C", typ); err != nil {
		t.Fatal(err)
	}
}

func TestAddBuiltinRequiresValue(t *testing.T) {
	e := env.New()
	err := e.AddBuiltin("x", term.Var(0))
	if !errors.Match(errors.Invalid, err) {
		t.Errorf("got %v, want %v", err, errors.Invalid)
	}
}

func TestAddNeutral(t *testing.T) {
	e := env.New()
	if err := e.AddNeutral("notation.add", "infixl 65 +"); err != nil {
		t.Fatal(err)
	}
	obj, ok := e.FindObject("notation.add")
	if !ok {
		t.Fatal("neutral object not found")
	}
	if got, want := obj.Kind, env.ObjNeutral; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := obj.Payload.(string), "infixl 65 +"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDefineUvar(t *testing.T) {
	e := env.New()
	u, err := e.DefineUvar("u", term.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.DefineUvar("v", term.Succ(u)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.DefineUvar("w", term.Uvar("nosuch")); !errors.Match(errors.UnknownUniverse, err) {
		t.Errorf("got %v, want %v", err, errors.UnknownUniverse)
	}
	if _, err := e.Uvar("v"); err != nil {
		t.Error(err)
	}
	if _, err := e.Uvar("nosuch"); !errors.Match(errors.UnknownUniverse, err) {
		t.Errorf("got %v, want %v", err, errors.UnknownUniverse)
	}
}

func TestIsGe(t *testing.T) {
	e := env.New()
	u, err := e.DefineUvar("u", term.Zero)
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.DefineUvar("v", term.Succ(u))
	if err != nil {
		t.Fatal(err)
	}
	w, err := e.DefineUvar("w", term.Succ(v))
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		a, b *term.Level
		want bool
	}{
		{u, term.Zero, true},
		{term.Zero, u, false},
		{u, u, true},
		{term.Succ(u), u, true},
		{u, term.Succ(u), false},
		{v, u, true},
		{v, term.Succ(u), true},
		{v, term.Offset(u, 2), false},
		{u, v, false},
		{w, term.Offset(u, 2), true},
		{w, term.Offset(u, 3), false},
		{term.Max(u, v), u, true},
		{term.Max(u, v), v, true},
		{term.Max(u, v), term.Max(v, u), true},
		{u, term.Max(u, v), false},
		{term.Succ(w), w, true},
	} {
		if got := e.IsGe(tc.a, tc.b); got != tc.want {
			t.Errorf("IsGe(%s, %s): got %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestIsGeChild(t *testing.T) {
	parent := env.New()
	u, err := parent.DefineUvar("u", term.Zero)
	if err != nil {
		t.Fatal(err)
	}
	child := parent.MkChild()
	defer child.Release()
	v, err := child.DefineUvar("v", term.Succ(u))
	if err != nil {
		t.Fatal(err)
	}
	if !child.IsGe(v, u) {
		t.Error("child constraint not derivable")
	}
	if parent.IsGe(v, u) {
		t.Error("parent derives child constraint")
	}
}

func TestWriteUvars(t *testing.T) {
	e := env.New()
	u, err := e.DefineUvar("u", term.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.DefineUvar("v", term.Succ(u)); err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	e.WriteUvars(&b)
	if got, want := b.String(), "u >= 0\nv >= u+1\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
