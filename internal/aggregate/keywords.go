package aggregate

import "strings"

var defaultKeywords = []string{"music", "concert", "show"}

// two-word phrases are checked before single words
var phraseSynonyms = map[string]string{
	"live music":   "concert",
	"jazz concert": "jazz",
	"comedy show":  "comedy",
}

var wordSynonyms = map[string]string{
	"concerts": "concert",
	"comedies": "comedy",
	"plays":    "theatre",
	"theaters": "theatre",
	"musics":   "music",
	"standup":  "comedy",
	"stand-up": "comedy",
	"hiphop":   "rap",
	"hip-hop":  "rap",
	"gigs":     "concert",
	"recitals": "concert",
}

// Keywords maps a free-text interest to the search keywords sent to every source.
func Keywords(interest string) []string {
	words := strings.Fields(strings.ToLower(interest))
	if len(words) == 0 {
		out := make([]string, len(defaultKeywords))
		copy(out, defaultKeywords)
		return out
	}

	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for i := 0; i < len(words); i++ {
		if i+1 < len(words) {
			if k, ok := phraseSynonyms[words[i]+" "+words[i+1]]; ok {
				add(k)
				i++
				continue
			}
		}
		if k, ok := wordSynonyms[words[i]]; ok {
			add(k)
			continue
		}
		add(words[i])
	}
	return out
}
