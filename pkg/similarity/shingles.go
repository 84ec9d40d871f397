// Package similarity provides text similarity and clustering utilities.
package similarity

import "sort"

// Set is a set of shingles. Sets returned by Shingles are never mutated afterwards.
type Set map[string]struct{}

// NewSet builds a Set from the given shingles.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Shingles returns every contiguous substring of key that is n runes long.
// Keys shorter than n (and any n <= 0) yield an empty set.
func Shingles(key string, n int) Set {
	if n <= 0 {
		return Set{}
	}
	runes := []rune(key)
	if len(runes) < n {
		return Set{}
	}

	set := make(Set, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = struct{}{}
	}
	return set
}

// Contains reports whether shingle is in the set.
func (s Set) Contains(shingle string) bool {
	_, ok := s[shingle]
	return ok
}

// Sorted returns the shingles in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for shingle := range s {
		out = append(out, shingle)
	}
	sort.Strings(out)
	return out
}

// intersection counts shingles present in both sets, walking the smaller one.
func intersection(a, b Set) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for shingle := range a {
		if _, ok := b[shingle]; ok {
			n++
		}
	}
	return n
}
