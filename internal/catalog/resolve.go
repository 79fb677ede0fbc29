package catalog

import (
	"strings"
	"unicode"
)

// Common abbreviation expansions found in training-app exports.
var abbreviations = map[string]string{
	"db":   "dumbbell",
	"bb":   "barbell",
	"kb":   "kettlebell",
	"ohp":  "overhead press",
	"rdl":  "romanian deadlift",
	"sldl": "stiff leg deadlift",
	"incl": "incline",
	"decl": "decline",
	"ext":  "extension",
}

// Resolve maps a free-text exercise name to a catalog id. Matching ignores
// case, punctuation and a trailing plural "s", and expands abbreviations.
func (c *Catalog) Resolve(name string) (string, bool) {
	key := normalize(name)
	if key == "" {
		return "", false
	}
	if id, ok := c.names[key]; ok {
		return id, true
	}
	if id, ok := c.names[singular(key)]; ok {
		return id, true
	}
	return "", false
}

// normalize lowercases, replaces punctuation with spaces, expands
// abbreviations and collapses whitespace.
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	words := strings.Fields(s)
	for i, w := range words {
		if exp, ok := abbreviations[w]; ok {
			words[i] = exp
		}
	}
	return strings.Join(words, " ")
}

// singular strips a plural "s" from every word longer than three letters
// ("Hack Squats" -> "hack squat", "Standing Calf Raises" -> "standing calf raise").
func singular(key string) string {
	words := strings.Fields(key)
	for i, w := range words {
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			words[i] = strings.TrimSuffix(w, "s")
		}
	}
	return strings.Join(words, " ")
}
