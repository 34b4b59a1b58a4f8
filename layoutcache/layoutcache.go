// SPDX-License-Identifier: Unlicense OR MIT

// Package layoutcache is the hash-keyed LRU store spec.md §4.8 describes: a
// layout is built at most once per distinct (params, text, attribute spans)
// key, then reused until evicted. It is adapted directly from
// layoutCache's doubly-linked-list LRU in lru.go, generalized from a
// single-paragraph string key to a maphash-derived key over the whole
// (params, text, spans) tuple, since this cache sits above an arbitrary
// Layout value rather than one shaped document.
package layoutcache

import (
	"encoding/binary"
	"hash/maphash"
)

// Key identifies a cached layout. Callers construct it from whatever
// (Params, text, attribute spans) hash uniquely identifies their document;
// Hash does the actual combination so key construction stays allocation-free
// the way hashGlyphs avoids per-glyph allocation in lru.go.
type Key uint64

// Hasher derives Keys from layout-build inputs, matching pathCache's
// maphash.Seed reuse (seeded once, reused across calls) rather than hashing
// with a fresh seed per key.
type Hasher struct {
	seed maphash.Seed
}

// Hash combines a parameter fingerprint, the text, and a span fingerprint
// into one Key. Callers are expected to pre-serialize params/spans into
// stable byte fingerprints (e.g. via binary.Write into a small buffer) and
// pass them as paramsFingerprint/spansFingerprint; this function owns only
// the hashing, the way hashGlyphs in lru.go owns only the glyph-hash
// combination and leaves X-offset normalization to its caller.
func (h *Hasher) Hash(paramsFingerprint []byte, text []rune, spansFingerprint []byte) Key {
	if h.seed == (maphash.Seed{}) {
		h.seed = maphash.MakeSeed()
	}
	var mh maphash.Hash
	mh.SetSeed(h.seed)
	mh.Write(paramsFingerprint)
	var b [4]byte
	for _, r := range text {
		binary.LittleEndian.PutUint32(b[:], uint32(r))
		mh.Write(b[:])
	}
	mh.Write(spansFingerprint)
	return Key(mh.Sum64())
}

// Cache is a bounded, insertion-ordered store keyed by Key, combining
// lru.go's doubly-linked MRU list with spec.md §4.8's explicit eviction
// rule: "compact evicts entries not accessed since the previous compact".
// The zero value is ready to use, matching layoutCache's
// lazy-init-on-first-Put behavior in lru.go.
type Cache[T any] struct {
	capacity   int
	m          map[Key]*elem[T]
	head, tail *elem[T]
}

type elem[T any] struct {
	next, prev *elem[T]
	key        Key
	value      T
	accessed   bool // touched by Get or Put since the last Compact
}

// DefaultCapacity matches lru.go's maxSize.
const DefaultCapacity = 1000

// NewCache constructs a Cache with the given capacity; capacity <= 0 uses
// DefaultCapacity.
func NewCache[T any](capacity int) *Cache[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[T]{capacity: capacity}
}

// Get looks up key, promoting it to most-recently-used and marking it
// accessed (exempting it from the next Compact's staleness sweep) on a hit
// — the same remove-then-reinsert promotion layoutCache.Get performs.
func (c *Cache[T]) Get(key Key) (T, bool) {
	if e, ok := c.m[key]; ok {
		e.accessed = true
		c.remove(e)
		c.insert(e)
		return e.value, true
	}
	var zero T
	return zero, false
}

// Put inserts or replaces key's entry as most-recently-used and accessed.
// Eviction is explicit via Compact, not performed here — see DESIGN.md's
// Open Question decision on cache compaction cadence (deliberately
// different from lru.go, which evicts eagerly inside Put).
func (c *Cache[T]) Put(key Key, value T) {
	c.ensureInit()
	if existing, ok := c.m[key]; ok {
		existing.value = value
		existing.accessed = true
		c.remove(existing)
		c.insert(existing)
		return
	}
	e := &elem[T]{key: key, value: value, accessed: true}
	c.m[key] = e
	c.insert(e)
}

// Len reports the number of entries currently cached.
func (c *Cache[T]) Len() int { return len(c.m) }

// Compact implements spec.md §4.8's eviction rule in two passes: first it
// evicts every entry that was not accessed (via Get or Put) since the
// previous Compact call — the rule spec.md states explicitly — then, only
// if the cache is still over capacity afterward, it falls back to evicting
// the remaining entries in least-recently-used order to enforce the
// "bounded associative store" guarantee. Surviving entries have their
// accessed flag cleared, starting a fresh window for the next call.
// Callers invoke this explicitly (e.g. once per frame); see DESIGN.md's
// Open Question decision on cadence.
func (c *Cache[T]) Compact() int {
	c.ensureInit()
	evicted := 0
	for e := c.tail.next; e != c.head; {
		next := e.next
		if !e.accessed {
			c.remove(e)
			delete(c.m, e.key)
			evicted++
		}
		e = next
	}
	for len(c.m) > c.capacity {
		oldest := c.tail.next
		c.remove(oldest)
		delete(c.m, oldest.key)
		evicted++
	}
	for e := c.tail.next; e != c.head; e = e.next {
		e.accessed = false
	}
	return evicted
}

func (c *Cache[T]) ensureInit() {
	if c.m != nil {
		return
	}
	c.m = make(map[Key]*elem[T])
	c.head = new(elem[T])
	c.tail = new(elem[T])
	c.head.prev = c.tail
	c.tail.next = c.head
}

func (c *Cache[T]) remove(e *elem[T]) {
	e.next.prev = e.prev
	e.prev.next = e.next
}

func (c *Cache[T]) insert(e *elem[T]) {
	e.next = c.head
	e.prev = c.head.prev
	e.prev.next = e
	e.next.prev = e
}
