package reddit

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ternarybob/marketpulse/internal/models"
)

// DefaultTop is how many mentions the trending endpoint returns.
const DefaultTop = 10

var stopWords = map[string]struct{}{
	"THE":  {},
	"AND":  {},
	"OR":   {},
	"FOR":  {},
	"WITH": {},
}

// CountMentions uppercases each title, splits it on whitespace and counts the
// purely alphabetic words of at most five letters that are not stop words.
// Results are ordered by count, then by first appearance, and cut to top.
func CountMentions(titles []string, top int) []models.Mention {
	counts := make(map[string]int)
	var order []string

	for _, title := range titles {
		for _, word := range strings.Fields(strings.ToUpper(title)) {
			if !isCandidate(word) {
				continue
			}
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	mentions := make([]models.Mention, len(order))
	for i, word := range order {
		mentions[i] = models.Mention{Symbol: word, Mentions: counts[word]}
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Mentions > mentions[j].Mentions
	})

	if top > 0 && len(mentions) > top {
		mentions = mentions[:top]
	}
	return mentions
}

func isCandidate(word string) bool {
	if word == "" || utf8.RuneCountInString(word) > 5 {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	_, stop := stopWords[word]
	return !stop
}
