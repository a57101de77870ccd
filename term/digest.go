// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/karn"
)

var kindDigest [maxExpr]digest.Digest

func init() {
	for i := range kindDigest {
		kindDigest[i] = karn.Digester.FromBytes([]byte{byte(i)})
	}
}

// digests memoizes digests of canonical expressions. Shared
// sub-DAGs are digested once per process.
var digests sync.Map // *Expr -> digest.Digest

// Digest computes a stable cryptographic identifier of the
// expression. Alpha-equivalent expressions share a digest: binder
// hints are not digested, and variables contribute their de Bruijn
// indices. Unlike the 32-bit Hash, the digest is collision-resistant
// and is suitable as a persistent key.
//
// Expressions containing unassigned metavariables have digests too,
// keyed by metavariable identity; such digests are stable only
// within a process.
func (e *Expr) Digest() digest.Digest {
	if e.maxShared {
		if d, ok := digests.Load(e); ok {
			return d.(digest.Digest)
		}
	}
	w := karn.Digester.NewWriter()
	e.digest(w)
	d := w.Digest()
	if e.maxShared {
		digests.Store(e, d)
	}
	return d
}

func (e *Expr) digest(w io.Writer) {
	digest.WriteDigest(w, kindDigest[e.kind])
	switch e.kind {
	case ExprVar:
		writeN(w, e.index)
	case ExprConst:
		io.WriteString(w, e.name)
		writeN(w, len(e.levels))
		for _, l := range e.levels {
			l.digest(w)
		}
	case ExprSort:
		e.level.digest(w)
	case ExprApp:
		writeN(w, len(e.args))
		for _, a := range e.args {
			digest.WriteDigest(w, a.Digest())
		}
	case ExprLambda, ExprPi, ExprSigma:
		digest.WriteDigest(w, e.left.Digest())
		digest.WriteDigest(w, e.right.Digest())
	case ExprPair:
		digest.WriteDigest(w, e.left.Digest())
		digest.WriteDigest(w, e.right.Digest())
		digest.WriteDigest(w, e.third.Digest())
	case ExprProj:
		if e.second {
			writeN(w, 1)
		} else {
			writeN(w, 0)
		}
		digest.WriteDigest(w, e.left.Digest())
	case ExprLet:
		if e.third != nil {
			writeN(w, 1)
			digest.WriteDigest(w, e.third.Digest())
		} else {
			writeN(w, 0)
		}
		digest.WriteDigest(w, e.left.Digest())
		digest.WriteDigest(w, e.right.Digest())
	case ExprHEq:
		digest.WriteDigest(w, e.left.Digest())
		digest.WriteDigest(w, e.right.Digest())
	case ExprMetavar:
		writeN(w, int(e.meta))
		writeN(w, len(e.locals))
		for _, l := range e.locals {
			if l.IsInst() {
				writeN(w, 1)
				writeN(w, l.Start())
				digest.WriteDigest(w, l.Repl().Digest())
			} else {
				writeN(w, 0)
				writeN(w, l.Start())
				writeN(w, l.Offset())
			}
		}
	case ExprValue:
		io.WriteString(w, e.value.Kind())
		io.WriteString(w, e.value.String())
	}
}

func (l *Level) digest(w io.Writer) {
	writeN(w, len(l.atoms))
	for _, a := range l.atoms {
		io.WriteString(w, a.Name)
		writeN(w, a.Offset)
	}
}

func writeN(w io.Writer, n int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	w.Write(b[:])
}
