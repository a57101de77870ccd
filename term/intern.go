// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

import (
	"encoding/binary"
	"sync"

	"github.com/willf/bloom"
)

// The interning table is global to the process. Lookups on the read
// path are lock-free (sync.Map); insertions take a short critical
// section. A bloom filter over node fingerprints provides a cheap
// definite-miss test so that fresh nodes skip the unlocked probe
// and go straight to the locked insert path. Interned nodes are never evicted: the table lives for
// the process lifetime and Reset exists for test isolation only.
var exprs = newInternTable()

const (
	bloomM = 1 << 22
	bloomK = 4
)

type internTable struct {
	table sync.Map // uint64 -> *internBucket
	mu    sync.Mutex

	bmu    sync.RWMutex
	filter *bloom.BloomFilter
}

// An internBucket chains the canonical nodes sharing a fingerprint.
// Buckets are copy-on-write: the entries slice is never mutated once
// published, so readers may scan it without holding the table lock.
type internBucket struct {
	entries []*Expr
}

func newInternTable() *internTable {
	return &internTable{filter: bloom.New(bloomM, bloomK)}
}

func (t *internTable) maybeHas(fp uint64) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], fp)
	t.bmu.RLock()
	ok := t.filter.Test(b[:])
	t.bmu.RUnlock()
	return ok
}

func (t *internTable) add(fp uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], fp)
	t.bmu.Lock()
	t.filter.Add(b[:])
	t.bmu.Unlock()
}

func (t *internTable) lookup(n *Expr) *Expr {
	v, ok := t.table.Load(n.fp)
	if !ok {
		return nil
	}
	for _, e := range v.(*internBucket).entries {
		if shallowEqual(e, n) {
			return e
		}
	}
	return nil
}

func (t *internTable) intern(n *Expr) *Expr {
	if t.maybeHas(n.fp) {
		if e := t.lookup(n); e != nil {
			return e
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// Another writer may have published the node since the unlocked
	// probe.
	if e := t.lookup(n); e != nil {
		return e
	}
	n.hash = uint32(n.fp ^ n.fp>>32)
	n.maxShared = true
	var entries []*Expr
	if v, ok := t.table.Load(n.fp); ok {
		old := v.(*internBucket).entries
		entries = make([]*Expr, len(old), len(old)+1)
		copy(entries, old)
	}
	entries = append(entries, n)
	t.table.Store(n.fp, &internBucket{entries})
	t.add(n.fp)
	return n
}

func (t *internTable) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.table.Range(func(k, v interface{}) bool {
		t.table.Delete(k)
		return true
	})
	t.bmu.Lock()
	t.filter = bloom.New(bloomM, bloomK)
	t.bmu.Unlock()
}

func intern(n *Expr) *Expr {
	return exprs.intern(n)
}

// Reset discards the process-global interning table. Expressions
// created before and after a Reset never compare identical, so Reset
// must only be used to isolate tests.
func Reset() {
	exprs.reset()
}

// shallowEqual tells whether two nodes are structurally equal given
// that their children are already canonical, so child comparison is
// by identity. Binder name hints are ignored.
func shallowEqual(a, b *Expr) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case ExprVar:
		return a.index == b.index
	case ExprConst:
		if a.name != b.name || len(a.levels) != len(b.levels) {
			return false
		}
		for i := range a.levels {
			if !a.levels[i].Equal(b.levels[i]) {
				return false
			}
		}
		return true
	case ExprSort:
		return a.level.Equal(b.level)
	case ExprApp:
		if len(a.args) != len(b.args) {
			return false
		}
		for i := range a.args {
			if a.args[i] != b.args[i] {
				return false
			}
		}
		return true
	case ExprLambda, ExprPi, ExprSigma:
		return a.left == b.left && a.right == b.right
	case ExprPair:
		return a.left == b.left && a.right == b.right && a.third == b.third
	case ExprProj:
		return a.second == b.second && a.left == b.left
	case ExprLet:
		return a.left == b.left && a.right == b.right && a.third == b.third
	case ExprHEq:
		return a.left == b.left && a.right == b.right
	case ExprMetavar:
		if a.meta != b.meta || len(a.locals) != len(b.locals) {
			return false
		}
		for i := range a.locals {
			if !a.locals[i].equalCanonical(b.locals[i]) {
				return false
			}
		}
		return true
	case ExprValue:
		return a.value.Equal(b.value)
	}
	return false
}
