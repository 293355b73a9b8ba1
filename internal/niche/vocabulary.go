package niche

import (
	"sort"
	"unicode/utf8"

	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// minTokenLen is the shortest token kept in a vocabulary; tokens of three
// runes or fewer carry no signal ("de", "para" aside, which are stop-words).
const minTokenLen = 4

// stopWords are dropped from keyword phrases before weighting. Only words
// longer than minTokenLen-1 need listing here.
var stopWords = map[string]struct{}{
	// Spanish
	"para": {}, "como": {}, "desde": {}, "hasta": {}, "sobre": {}, "entre": {},
	"todo": {}, "todos": {}, "toda": {}, "todas": {}, "este": {}, "esta": {},
	"estos": {}, "estas": {}, "otro": {}, "otros": {}, "otra": {}, "otras": {},
	"pero": {}, "cada": {}, "donde": {}, "cual": {}, "cuando": {},
	"venta": {}, "ventas": {},
	// English
	"with": {}, "from": {}, "your": {}, "that": {}, "this": {}, "into": {},
	"near": {}, "about": {},
}

// IsStopWord reports whether the folded word w is dropped by BuildVocabulary.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// Vocabulary maps a normalized token to its weight: the number of distinct
// keyword phrases containing it.
type Vocabulary map[string]int

// Term is a vocabulary entry in deterministic order.
type Term struct {
	Token  string
	Weight int
}

// Terms returns the vocabulary sorted by weight descending, then token.
func (v Vocabulary) Terms() []Term {
	out := make([]Term, 0, len(v))
	for tok, w := range v {
		out = append(out, Term{Token: tok, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// BuildVocabulary turns ordered keyword phrases into a weighted term
// dictionary. Each phrase is folded and split into words; words of three runes
// or fewer and stop-words are dropped; a word counts once per phrase.
func BuildVocabulary(keywords []string) Vocabulary {
	vocab := make(Vocabulary)
	for _, phrase := range keywords {
		seen := make(map[string]struct{})
		for _, w := range textnorm.Words(phrase) {
			if utf8.RuneCountInString(w) < minTokenLen || IsStopWord(w) {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			vocab[w]++
		}
	}
	return vocab
}
