package preprocessing

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

type Tokenizer struct {
	NgramMin int
	NgramMax int
}

func NewTokenizer(ngramMin, ngramMax int) *Tokenizer {
	if ngramMin < 1 {
		ngramMin = 1
	}
	if ngramMax < ngramMin {
		ngramMax = ngramMin
	}
	return &Tokenizer{NgramMin: ngramMin, NgramMax: ngramMax}
}

// Words lowercases the document and returns its word tokens in order.
func (t *Tokenizer) Words(doc string) []string {
	// cases.Caser keeps state, so one per call.
	lower := cases.Lower(language.Und).String(doc)
	return tokenPattern.FindAllString(lower, -1)
}

// Ngrams returns every n-gram of the document for n in [NgramMin, NgramMax],
// unigrams first, words joined by a single space.
func (t *Tokenizer) Ngrams(doc string) []string {
	words := t.Words(doc)
	if t.NgramMin == 1 && t.NgramMax == 1 {
		return words
	}

	var grams []string
	for n := t.NgramMin; n <= t.NgramMax; n++ {
		if n == 1 {
			grams = append(grams, words...)
			continue
		}
		for i := 0; i+n <= len(words); i++ {
			grams = append(grams, strings.Join(words[i:i+n], " "))
		}
	}
	return grams
}
