package cache

import "strings"

// keywordStopwords filters filler words out of extracted issue
// keywords.
var keywordStopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "because": {}, "before": {},
	"cannot": {}, "could": {}, "doesn": {}, "every": {}, "other": {},
	"please": {}, "should": {}, "since": {}, "still": {}, "there": {},
	"their": {}, "these": {}, "thing": {}, "trying": {}, "where": {},
	"which": {}, "while": {}, "would": {}, "always": {}, "never": {},
}

// ExtractKeywords pulls up to max distinctive lowercase words out of a
// problem report for the requester side channel.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	seen := make(map[string]struct{})
	var out []string
	for _, word := range fields {
		if len(word) < 5 {
			continue
		}
		if _, stop := keywordStopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
		if len(out) == max {
			break
		}
	}
	return out
}
