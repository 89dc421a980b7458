package discount

// Conflicts reports whether two rules may not be applied together. The check
// is symmetric by construction: exclusions can be declared on either rule, so
// both directions are tested explicitly.
func Conflicts(a, b *Rule) bool {
	if a.ID == b.ID {
		return true
	}
	return excludes(a, b) || excludes(b, a)
}

// excludes reports whether rule a declares an exclusion that rules out b.
func excludes(a, b *Rule) bool {
	for _, c := range a.ExcludeCategories {
		if c == b.Category {
			return true
		}
	}
	for _, id := range a.ExcludeRuleIDs {
		if id == b.ID {
			return true
		}
	}
	return false
}

// ValidCombination reports whether no pair in the set conflicts. Quadratic
// over the set size, which the combination generator keeps small.
func ValidCombination(rules []Rule) bool {
	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			if Conflicts(&rules[i], &rules[j]) {
				return false
			}
		}
	}
	return true
}
