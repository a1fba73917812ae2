package graph

import (
	"regexp"
	"strings"
)

var keywordPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)

// ExtractKeywords returns the bracketed tokens of a description, lowercased and
// deduplicated in first-seen order. "uses [React] and [react]" yields ["react"].
func ExtractKeywords(description string) []string {
	matches := keywordPattern.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		kw := strings.ToLower(strings.TrimSpace(m[1]))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

// KeywordRelated reports whether two entities share at least one keyword.
func KeywordRelated(a, b Entity) bool {
	if a.ID == b.ID {
		return false
	}
	return sharesAny(ExtractKeywords(a.Description), ExtractKeywords(b.Description))
}

func sharesAny(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, kw := range a {
		set[kw] = true
	}
	for _, kw := range b {
		if set[kw] {
			return true
		}
	}
	return false
}

// keywordPairs returns index pairs (i < j) of entities sharing a keyword.
func keywordPairs(entities []Entity) [][2]int {
	kws := make([][]string, len(entities))
	for i, e := range entities {
		kws[i] = ExtractKeywords(e.Description)
	}

	var pairs [][2]int
	for i := range entities {
		for j := i + 1; j < len(entities); j++ {
			if entities[i].ID == entities[j].ID {
				continue
			}
			if sharesAny(kws[i], kws[j]) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// DeriveLinks maps every entity id to the ids of the entities it shares a keyword with,
// in input order. Pairs are visited in index order, so each list is already ordered.
// The relation is symmetric; entities without related peers are absent.
func DeriveLinks(entities []Entity) map[string][]string {
	kept := usable(entities, "")
	links := make(map[string][]string)
	for _, p := range keywordPairs(kept) {
		a, b := kept[p[0]].ID, kept[p[1]].ID
		links[a] = append(links[a], b)
		links[b] = append(links[b], a)
	}
	return links
}

// MergeLinks returns a copy of entities whose explicit links are extended with the
// keyword-derived ones, plus the number of entities that gained at least one link.
// The input slice is not modified.
func MergeLinks(entities []Entity) ([]Entity, int) {
	derived := DeriveLinks(entities)
	out := make([]Entity, len(entities))
	changed := 0
	for i, e := range entities {
		merged := append([]string(nil), e.ExplicitLinks...)
		existing := make(map[string]bool, len(merged))
		for _, id := range merged {
			existing[id] = true
		}
		grew := false
		for _, id := range derived[e.ID] {
			if existing[id] {
				continue
			}
			existing[id] = true
			merged = append(merged, id)
			grew = true
		}
		if grew {
			changed++
		}
		e.ExplicitLinks = merged
		out[i] = e
	}
	return out, changed
}
