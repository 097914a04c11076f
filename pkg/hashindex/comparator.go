package hashindex

import "cmp"

// OrderedComparator builds a KeyComparator for any key type with a natural
// ordering, using the standard library's cmp.Compare.
func OrderedComparator[K cmp.Ordered]() KeyComparator[K] {
	return func(a, b K) int {
		return cmp.Compare(a, b)
	}
}
