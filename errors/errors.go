// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package errors provides a standard error definition for use in
// karn. Each error is assigned a class of error (kind) and an
// operation with optional arguments. Errors may be chained, and thus
// can be used to annotate upstream errors.
//
// Errors may be serialized to- and deserialized from JSON, so that
// checking failures can be shipped across process boundaries intact.
//
// Package errors provides functions Errorf and New as convenience
// constructors, so that users need import only one error package.
//
// The API was inspired by package upspin.io/errors.
package errors

import (
	"bytes"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/grailbio/karn/log"
)

// Separator is inserted between chained errors while rendering.
// The default value (":\n\t") is intended for interactive tools. A
// server can set this to a different value to be more log friendly.
var Separator = ":\n\t"

// Kind denotes the type of the error. The error's kind is used to
// render the error message and also for interpretation: checking
// failures are reported to the caller by kind.
type Kind int

const (
	// Other denotes an unknown error.
	Other Kind = iota
	// UnknownName denotes a reference to an undeclared object.
	UnknownName
	// UnknownUniverse denotes a reference to an undeclared universe
	// variable.
	UnknownUniverse
	// AlreadyDeclared denotes a redeclaration of an existing name.
	AlreadyDeclared
	// ReadOnly denotes a mutation of a frozen environment.
	ReadOnly
	// FunctionExpected denotes an application whose head is not a
	// function.
	FunctionExpected
	// TypeExpected denotes a term used as a type that does not
	// inhabit a universe.
	TypeExpected
	// AppTypeMismatch denotes an application argument whose type
	// does not match the function's domain.
	AppTypeMismatch
	// DefTypeMismatch denotes a definition whose value does not
	// have the declared type.
	DefTypeMismatch
	// PairTypeMismatch denotes a pair component whose type does not
	// match the annotated sigma type.
	PairTypeMismatch
	// OccursCheck denotes a metavariable assignment that would make
	// the metavariable occur in its own value.
	OccursCheck
	// FailedToUnify denotes a unification failure between two terms.
	FailedToUnify
	// MaxDepthExceeded denotes that unification exceeded its
	// recursion budget.
	MaxDepthExceeded
	// MaxStepsExceeded denotes that normalization exceeded its step
	// budget.
	MaxStepsExceeded
	// Interrupted denotes a cooperative interruption.
	Interrupted
	// Invalid indicates an invalid state or data.
	Invalid

	maxKind
)

// String renders a human-readable description of kind k.
func (k Kind) String() string {
	switch k {
	default:
		return "unknown error"
	case UnknownName:
		return "unknown name"
	case UnknownUniverse:
		return "unknown universe variable"
	case AlreadyDeclared:
		return "name already declared"
	case ReadOnly:
		return "environment is read-only"
	case FunctionExpected:
		return "function expected"
	case TypeExpected:
		return "type expected"
	case AppTypeMismatch:
		return "application argument type mismatch"
	case DefTypeMismatch:
		return "definition type mismatch"
	case PairTypeMismatch:
		return "pair type mismatch"
	case OccursCheck:
		return "occurs check failed"
	case FailedToUnify:
		return "failed to unify"
	case MaxDepthExceeded:
		return "max unification depth exceeded"
	case MaxStepsExceeded:
		return "max normalization steps exceeded"
	case Interrupted:
		return "interrupted"
	case Invalid:
		return "invalid"
	}
}

var kind2string = [maxKind]string{
	Other:            "Other",
	UnknownName:      "UnknownName",
	UnknownUniverse:  "UnknownUniverse",
	AlreadyDeclared:  "AlreadyDeclared",
	ReadOnly:         "ReadOnly",
	FunctionExpected: "FunctionExpected",
	TypeExpected:     "TypeExpected",
	AppTypeMismatch:  "AppTypeMismatch",
	DefTypeMismatch:  "DefTypeMismatch",
	PairTypeMismatch: "PairTypeMismatch",
	OccursCheck:      "OccursCheck",
	FailedToUnify:    "FailedToUnify",
	MaxDepthExceeded: "MaxDepthExceeded",
	MaxStepsExceeded: "MaxStepsExceeded",
	Interrupted:      "Interrupted",
	Invalid:          "Invalid",
}

var string2kind = map[string]Kind{
	"Other":            Other,
	"UnknownName":      UnknownName,
	"UnknownUniverse":  UnknownUniverse,
	"AlreadyDeclared":  AlreadyDeclared,
	"ReadOnly":         ReadOnly,
	"FunctionExpected": FunctionExpected,
	"TypeExpected":     TypeExpected,
	"AppTypeMismatch":  AppTypeMismatch,
	"DefTypeMismatch":  DefTypeMismatch,
	"PairTypeMismatch": PairTypeMismatch,
	"OccursCheck":      OccursCheck,
	"FailedToUnify":    FailedToUnify,
	"MaxDepthExceeded": MaxDepthExceeded,
	"MaxStepsExceeded": MaxStepsExceeded,
	"Interrupted":      Interrupted,
	"Invalid":          Invalid,
}

// Error defines a karn error. It is used to indicate an error
// associated with an operation (and arguments), and may wrap another
// error.
//
// Errors should be constructed by errors.E.
type Error struct {
	// Kind is the error's type.
	Kind Kind
	// Op is a one-word description of the operation that errored.
	Op string
	// Arg is an (optional) list of arguments to the operation.
	// Checking errors use it to carry the offending name, the
	// rendered terms, and the argument position of an application
	// mismatch.
	Arg []string
	// Err is this error's underlying error: this error is caused
	// by Err.
	Err error
}

// E is used to construct errors. E constructs errors from a set of
// arguments; each of which must be one of the following types:
//
//	string
//		The first string argument is taken as the error's Op; subsequent
//		arguments are taken as the error's Arg.
//	int
//		Taken as an Arg (an application argument position).
//	fmt.Stringer
//		Taken as an Arg, rendered by its String method.
//	Kind
//		Taken as the error's Kind.
//	error
//		Taken as the error's underlying error.
//
// If a Kind is provided, there is no further processing. If not, and
// an underlying error is provided, E attempts to interpret it as
// follows: (1) If the underlying error is another *Error, and there
// is no Kind argument, the Kind is inherited from the *Error. (2) If
// the underlying error is context.Canceled or context.DeadlineExceeded,
// the error's kind is set to Interrupted.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("no args")
	}
	e := new(Error)
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			if e.Op == "" {
				e.Op = arg
			} else {
				e.Arg = append(e.Arg, arg)
			}
		case int:
			e.Arg = append(e.Arg, strconv.Itoa(arg))
		case Kind:
			e.Kind = arg
		case fmt.Stringer:
			e.Arg = append(e.Arg, arg.String())
		case *Error:
			copy := *arg
			e.Err = &copy
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call (type %T) from %s:%d: %v", arg, file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}
	if e.Err == nil {
		return e
	}
	switch prev := e.Err.(type) {
	case *Error:
		if prev.Kind == e.Kind {
			e.Kind = prev.Kind
			prev.Kind = Other
		} else if e.Kind == Other {
			e.Kind = prev.Kind
			prev.Kind = Other
		}
		if prev.Op == "" && prev.Kind == Other {
			e.Err = prev.Err
		}
	default:
		if e.Kind != Other {
			break
		}
		switch e.Err {
		case context.Canceled, context.DeadlineExceeded:
			e.Kind = Interrupted
		}
	}
	return e
}

func pad(b *bytes.Buffer, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}

// Error renders this error and its chain of underlying errors,
// separated by Separator.
func (e *Error) Error() string {
	return e.ErrorSeparator(Separator)
}

// ErrorSeparator renders this errors and its chain of underlying
// errors, separated by sep.
func (e *Error) ErrorSeparator(sep string) string {
	if e == nil {
		return "<nil>"
	}
	b := new(bytes.Buffer)
	if e.Op != "" {
		b.WriteString(e.Op)
		for i := range e.Arg {
			b.WriteString(" " + e.Arg[i])
		}
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if err, ok := e.Err.(*Error); ok {
			pad(b, sep)
			b.WriteString(err.ErrorSeparator(sep))
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	return b.String()
}

// Errorf is an alternate spelling of fmt.Errorf.
var Errorf = fmt.Errorf

// New is an alternate spelling of errors.New.
var New = goerrors.New

// Recover recovers any error into an *Error. If the passed-in Error
// is already an error, it is simply returned; otherwise it is wrapped.
func Recover(err error) *Error {
	if err == nil {
		return nil
	}
	if err, ok := err.(*Error); ok {
		return err
	}
	return E(err).(*Error)
}

// Copy creates a shallow copy of Error e.
func (e *Error) Copy() *Error {
	f := new(Error)
	*f = *e
	return f
}

type jsonError struct {
	Op    string
	Arg   []string
	Kind  string
	Cause *jsonError `json:",omitempty"`
	Error string
}

func (j *jsonError) toError() error {
	if j == nil {
		return nil
	}
	if j.Error != "" {
		return New(j.Error)
	}
	var args []interface{}
	args = append(args, j.Op)
	for _, arg := range j.Arg {
		args = append(args, arg)
	}
	args = append(args, string2kind[j.Kind])
	if j.Cause != nil {
		args = append(args, j.Cause.toError())
	}
	return E(args...)
}

func toJSON(err error) *jsonError {
	switch e := err.(type) {
	case *Error:
		j := &jsonError{
			Op:   e.Op,
			Arg:  e.Arg,
			Kind: kind2string[e.Kind],
		}
		if e.Err != nil {
			j.Cause = toJSON(e.Err)
		}
		return j
	default:
		return &jsonError{Error: err.Error()}
	}
}

// MarshalJSON implements JSON marshalling for Error.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSON(e))
}

// UnmarshalJSON implements JSON unmarshalling for Error.
func (e *Error) UnmarshalJSON(b []byte) error {
	var ej jsonError
	if err := json.Unmarshal(b, &ej); err != nil {
		return err
	}
	e2, ok := ej.toError().(*Error)
	if !ok {
		return Errorf("expected *Error, got %T", e2)
	}
	*e = *e2
	return nil
}

// Match compares err1 with err2. If err1 has type Kind, Match
// reports whether err2's Kind is the same, otherwise, Match checks
// that every nonempty field in err1 has the same value in err2. If
// err1 is an *Error with a non-nil Err field, Match recurs to check
// that the two errors chain of underlying errors also match.
func Match(err1 interface{}, err2 error) bool {
	e2 := Recover(err2)
	switch e1 := err1.(type) {
	default:
		return false
	case Kind:
		return e1 == e2.Kind
	case *Error:
		if e1.Op != "" && e2.Op != e1.Op {
			return false
		}
		if len(e1.Arg) != len(e2.Arg) {
			return false
		}
		for i := range e1.Arg {
			if e1.Arg[i] != e2.Arg[i] {
				return false
			}
		}
		if e1.Kind != Other && e2.Kind != e1.Kind {
			return false
		}
		if e1.Err != nil {
			if _, ok := e1.Err.(*Error); ok {
				return Match(e1.Err, e2.Err)
			}
			if e2.Err == nil || e2.Err.Error() != e1.Err.Error() {
				return false
			}
		}
		return true
	}
}

// Budget tells whether error err reports an exhausted resource
// budget or an interruption rather than a checking failure. Budget
// errors say nothing about the well-typedness of their subject.
func Budget(err error) bool {
	switch Recover(err).Kind {
	case MaxDepthExceeded, MaxStepsExceeded, Interrupted:
		return true
	default:
		return false
	}
}
