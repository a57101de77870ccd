// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

import (
	"fmt"
	"strings"
)

// String renders the expression in a compact s-expression form for
// debugging and error messages. Binder hints are shown when present;
// variables render as de Bruijn indices.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	e.print(&b)
	return b.String()
}

func (e *Expr) print(b *strings.Builder) {
	switch e.kind {
	case ExprVar:
		fmt.Fprintf(b, "#%d", e.index)
	case ExprConst:
		b.WriteString(e.name)
		if len(e.levels) > 0 {
			b.WriteString(".{")
			for i, l := range e.levels {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(l.String())
			}
			b.WriteString("}")
		}
	case ExprSort:
		if e.level.IsZero() {
			b.WriteString("Prop")
			return
		}
		fmt.Fprintf(b, "Sort(%s)", e.level)
	case ExprApp:
		b.WriteString("(")
		for i, a := range e.args {
			if i > 0 {
				b.WriteString(" ")
			}
			a.print(b)
		}
		b.WriteString(")")
	case ExprLambda, ExprPi, ExprSigma:
		var head string
		switch e.kind {
		case ExprLambda:
			head = "fun"
		case ExprPi:
			head = "pi"
		case ExprSigma:
			head = "sig"
		}
		fmt.Fprintf(b, "(%s (%s : ", head, hintOr(e.nameHint))
		e.left.print(b)
		b.WriteString(") ")
		e.right.print(b)
		b.WriteString(")")
	case ExprPair:
		b.WriteString("(pair ")
		e.left.print(b)
		b.WriteString(" ")
		e.right.print(b)
		b.WriteString(" : ")
		e.third.print(b)
		b.WriteString(")")
	case ExprProj:
		if e.second {
			b.WriteString("(proj2 ")
		} else {
			b.WriteString("(proj1 ")
		}
		e.left.print(b)
		b.WriteString(")")
	case ExprLet:
		fmt.Fprintf(b, "(let %s", hintOr(e.nameHint))
		if e.third != nil {
			b.WriteString(" : ")
			e.third.print(b)
		}
		b.WriteString(" := ")
		e.left.print(b)
		b.WriteString(" in ")
		e.right.print(b)
		b.WriteString(")")
	case ExprHEq:
		b.WriteString("(")
		e.left.print(b)
		b.WriteString(" == ")
		e.right.print(b)
		b.WriteString(")")
	case ExprMetavar:
		fmt.Fprintf(b, "?m%d", e.meta)
		if len(e.locals) > 0 {
			b.WriteString("[")
			for i, l := range e.locals {
				if i > 0 {
					b.WriteString("; ")
				}
				b.WriteString(l.String())
			}
			b.WriteString("]")
		}
	case ExprValue:
		b.WriteString(e.value.String())
	}
}

func hintOr(hint string) string {
	if hint == "" {
		return "_"
	}
	return hint
}
