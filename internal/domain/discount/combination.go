package discount

// DefaultCap bounds how many candidate subsets the generator emits. Beyond it
// the search is a size-biased heuristic, not an exhaustive enumeration.
const DefaultCap = 100

// Combinations enumerates candidate subsets of the eligible rule set.
//
// When the full power set fits under the limit, it is emitted in ascending size
// order: the empty set, every singleton, then every subset of size 2..n.
// When it does not fit, subsets are emitted in descending size order and
// truncated at limit — larger conflict-free combinations are the more likely
// optima, so size works as a cheap pre-filter before scoring.
//
// Generation is iterative with an explicit index vector, so large eligible
// sets cannot exhaust the stack.
func Combinations(rules []Rule, limit int) [][]Rule {
	if limit <= 0 {
		limit = DefaultCap
	}
	n := len(rules)

	if fitsUnderCap(n, limit) {
		out := make([][]Rule, 0, 1<<uint(n))
		for size := 0; size <= n; size++ {
			out = appendOfSize(out, rules, size, -1)
		}
		return out
	}

	out := make([][]Rule, 0, limit)
	for size := n; size >= 0 && len(out) < limit; size-- {
		out = appendOfSize(out, rules, size, limit)
	}
	return out
}

// fitsUnderCap reports whether 2^n <= limit without overflowing.
func fitsUnderCap(n, limit int) bool {
	if n >= 31 {
		return false
	}
	return 1<<uint(n) <= limit
}

// appendOfSize appends every size-k subset of rules to out, in lexicographic
// index order, stopping early once len(out) reaches limit (limit < 0 disables the
// bound).
func appendOfSize(out [][]Rule, rules []Rule, k, limit int) [][]Rule {
	n := len(rules)
	if k > n {
		return out
	}
	if k == 0 {
		return append(out, []Rule{})
	}

	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}

	for {
		if limit >= 0 && len(out) >= limit {
			return out
		}
		subset := make([]Rule, k)
		for i, j := range idx {
			subset[i] = rules[j]
		}
		out = append(out, subset)

		// Advance the index vector to the next k-combination.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
