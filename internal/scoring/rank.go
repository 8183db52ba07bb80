package scoring

import (
	"cmp"
	"slices"
)

// Rank returns a copy of records ordered by custom score, highest first.
// The sort is stable: equal scores keep their input order.
func Rank(records []Record) []Record {
	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b Record) int {
		return cmp.Compare(b.CustomScore, a.CustomScore)
	})
	return ranked
}
