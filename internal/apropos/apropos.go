// Package apropos searches skills by keyword, the way apropos(1) searches
// man pages: name matches rank highest, then description keywords.
package apropos

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kennyg/ctxkit/internal/skills"
)

// Entry is an indexed skill
type Entry struct {
	Skill    *skills.Skill
	Keywords []string
}

// Index holds the keywords of a set of skills
type Index struct {
	Entries []Entry
}

// SearchResult represents a search match
type SearchResult struct {
	Skill *skills.Skill
	Score int // higher is better
}

// common stopwords to filter out when extracting keywords
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "been": true, "be": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "when": true, "agent": true, "needs": true, "use": true,
	"using": true, "used": true, "can": true, "any": true, "other": true,
	"skill": true,
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9\s]`)

// Build indexes the given skills
func Build(list []*skills.Skill) *Index {
	idx := &Index{Entries: make([]Entry, 0, len(list))}
	for _, s := range list {
		idx.Entries = append(idx.Entries, Entry{Skill: s, Keywords: Keywords(s.Description)})
	}
	return idx
}

// Keywords extracts the distinct, meaningful words of a description
func Keywords(description string) []string {
	normalized := nonWordRe.ReplaceAllString(strings.ToLower(description), " ")

	seen := make(map[string]bool)
	var keywords []string
	for _, word := range strings.Fields(normalized) {
		if len(word) < 3 || stopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}

// Search returns the skills matching query, best first. Ties keep name
// order.
func (idx *Index) Search(query string) []SearchResult {
	if idx == nil {
		return nil
	}
	queryWords := strings.Fields(strings.ToLower(query))

	var results []SearchResult
	for _, e := range idx.Entries {
		if score := scoreMatch(e, queryWords); score > 0 {
			results = append(results, SearchResult{Skill: e.Skill, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Skill.Name < results[j].Skill.Name
	})
	return results
}

func scoreMatch(e Entry, queryWords []string) int {
	score := 0
	nameLower := strings.ToLower(e.Skill.Name)
	descLower := strings.ToLower(e.Skill.Description)
	dirLower := strings.ToLower(e.Skill.Dir)

	for _, qw := range queryWords {
		// Exact name match is highest value
		if nameLower == qw {
			score += 100
		} else if strings.Contains(nameLower, qw) {
			score += 50
		}

		// Category directories ("infra/docker") count as a weak signal
		if strings.Contains(dirLower, qw) {
			score += 15
		}

		if strings.Contains(descLower, qw) {
			score += 10
		}

		for _, kw := range e.Keywords {
			if kw == qw {
				score += 20
			} else if strings.Contains(kw, qw) {
				score += 5
			}
		}
	}
	return score
}
