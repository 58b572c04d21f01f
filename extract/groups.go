package extract

import (
	"strings"

	"github.com/umahmood/soundex"
)

// GroupNames clusters names that sound alike. Two names belong to the
// same group when their soundex codes match word for word, which
// catches spelling variants the speech model produces for one person.
// Only groups with at least two distinct spellings are returned;
// order of first appearance is preserved within and across groups.
func GroupNames(names []string) [][]string {
	groups := map[string][]string{}
	seen := map[string]map[string]bool{}
	order := []string{}

	for _, name := range names {
		fields := strings.Fields(name)
		if len(fields) == 0 {
			continue
		}

		codes := make([]string, len(fields))
		for i, f := range fields {
			codes[i] = soundex.Code(f)
		}
		key := strings.Join(codes, "-")

		if _, ok := groups[key]; !ok {
			order = append(order, key)
			seen[key] = map[string]bool{}
		}
		if !seen[key][name] {
			seen[key][name] = true
			groups[key] = append(groups[key], name)
		}
	}

	result := [][]string{}
	for _, key := range order {
		if len(groups[key]) >= 2 {
			result = append(result, groups[key])
		}
	}
	return result
}
