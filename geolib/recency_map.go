package geolib

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type recencyEntry[V any] struct {
	Key   string `json:"key"`
	Value V      `json:"value"`
}

// recencyMap is an ordered mapping where the most recently touched
// entry goes first. If size exceeds a capacity, the tail is dropped.
// It is not thread-safe.
type recencyMap[V any] struct {
	lru *simplelru.LRU[string, V]
}

// Get does not touch an entry.
func (r *recencyMap[V]) Get(key string) (V, bool) {
	return r.lru.Peek(key)
}

func (r *recencyMap[V]) Contains(key string) bool {
	return r.lru.Contains(key)
}

// Touch moves an entry to the front. If preserve is set and key is
// already known, its stored value is kept intact.
func (r *recencyMap[V]) Touch(key string, value V, preserve bool) V {
	if preserve {
		if stored, ok := r.lru.Get(key); ok {
			return stored
		}
	}

	r.lru.Add(key, value)

	return value
}

func (r *recencyMap[V]) Remove(key string) bool {
	return r.lru.Remove(key)
}

func (r *recencyMap[V]) Len() int {
	return r.lru.Len()
}

// Entries returns up to limit newest entries, newest first. 0 means all.
func (r *recencyMap[V]) Entries(limit int) []recencyEntry[V] {
	keys := r.lru.Keys()

	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}

	rv := make([]recencyEntry[V], 0, limit)

	for i := len(keys) - 1; i >= 0 && len(rv) < limit; i-- {
		value, _ := r.lru.Peek(keys[i])
		rv = append(rv, recencyEntry[V]{Key: keys[i], Value: value})
	}

	return rv
}

// Replace drops current content and loads given entries. Entries are
// expected to be ordered newest first, the same way Entries returns
// them. Duplicates keep the newest position.
func (r *recencyMap[V]) Replace(entries []recencyEntry[V]) {
	r.lru.Purge()

	for i := len(entries) - 1; i >= 0; i-- {
		r.lru.Add(entries[i].Key, entries[i].Value)
	}
}

func newRecencyMap[V any](capacity int) *recencyMap[V] {
	lru, err := simplelru.NewLRU[string, V](capacity, nil)
	if err != nil {
		panic(err)
	}

	return &recencyMap[V]{
		lru: lru,
	}
}
