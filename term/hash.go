// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package term

// 64-bit mixing in the style of MurmurHash64A. The interning
// fingerprint of a node is folded from its kind seed, its payload,
// and its children's fingerprints; the 32-bit structural hash
// exposed by Expr.Hash is derived from the fingerprint.
const mixMul = 0xc6a4a7935bd1e995

func mix64(h, k uint64) uint64 {
	k *= mixMul
	k ^= k >> 47
	k *= mixMul
	h ^= k
	h *= mixMul
	h += 0xe6546b64
	return h
}

func kindSeed(k ExprKind) uint64 {
	return mix64(0x9e3779b97f4a7c15, uint64(k)+1)
}

func hashString(s string) uint64 {
	// FNV-1a.
	h := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
