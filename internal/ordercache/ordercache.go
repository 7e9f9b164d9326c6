// SPDX-License-Identifier: AGPL-3.0-only

// Package ordercache memoizes catalog.StableOrder's producer-before-consumer
// fragment ordering per (procedure, statement index), since the ordering
// depends only on a statement's immutable fragment set and is recomputed on
// every BatchPlanner.Plan call otherwise. Sized and evicted with
// hashicorp/golang-lru/v2, the same bounded-cache package this codebase's
// ingest path reaches for when it needs a fixed-size, allocation-light LRU
// rather than an unbounded map.
package ordercache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/partitiondb/enginecore/pkg/catalog"
)

// Key identifies one statement's fragment set within a procedure.
type Key struct {
	Procedure string
	StmtIndex int
	Single    bool // whether this is the single- or multi-partition fragment set
}

// Cache is a bounded memoization layer over catalog.StableOrder.
type Cache struct {
	lru *lru.Cache[Key, []catalog.Fragment]
}

// New constructs a cache holding up to size entries. size must be positive;
// golang-lru/v2 itself rejects zero or negative sizes.
func New(size int) (*Cache, error) {
	c, err := lru.New[Key, []catalog.Fragment](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Order returns the stably-ordered fragment list for key, computing and
// caching it via catalog.StableOrder on a miss.
func (c *Cache) Order(key Key, fragments []catalog.Fragment) []catalog.Fragment {
	if ordered, ok := c.lru.Get(key); ok {
		return ordered
	}
	ordered := catalog.StableOrder(fragments)
	c.lru.Add(key, ordered)
	return ordered
}

// Purge empties the cache, used when a procedure's catalog entry is
// recompiled and its previous ordering must not be reused.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
