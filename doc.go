// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package karn implements the logical kernel of a dependently typed
// proof assistant: a trusted core that represents, normalizes,
// type-checks and unifies terms of a higher-order type theory with a
// cumulative hierarchy of universes, dependent products, sigma types,
// let bindings and heterogeneous equality.
//
// The kernel is organized bottom-up:
//
//	term    hash-consed expression DAGs, universe levels, and the
//	        de Bruijn substitution algebra (lift, instantiate, beta)
//	env     hierarchical environments: named objects and universe
//	        variable constraints
//	values  embedded value plugins (integers, booleans, arithmetic)
//	kernel  normalization, definitional equality, type inference and
//	        checking, metavariable environments and unification
//
// Clients of the kernel (parsers, elaborators, pretty printers and
// tactic engines) construct terms with package term, register named
// objects with package env, and then call into package kernel. The
// kernel never prints: errors carry structural data (see package
// errors) and rendering is left to the caller.
package karn
