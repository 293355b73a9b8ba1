// Package lexical classifies a listing against a niche vocabulary using
// deterministic keyword matching.
package lexical

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/niche"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// Scoring constants.
const (
	titleMultiplier    = 4
	categoryMultiplier = 2
	coreBonus          = 5
	negativePenalty    = 10

	relevantThreshold = 5
	neutralThreshold  = 1

	hardExclusionScore      = -100
	hardExclusionConfidence = 99
	neutralConfidence       = 50
	negativeConfidence      = 85
	noSignalConfidence      = 60
	maxRelevantConfidence   = 95

	maxReasonTerms = 3
	minStemLen     = 4
)

// DefaultHardExclusions are domestic and household-appliance terms. A listing
// mentioning any of them is discarded regardless of positive matches.
var DefaultHardExclusions = []string{
	"licuadora", "batidora", "cafetera", "estufa", "microondas",
	"refrigerador", "lavadora", "secadora", "electrodomestico", "linea blanca",
}

// DefaultExclusionExceptions are equipment phrases that contain an exclusion
// word but belong to the agricultural domain. They are removed from the text
// before exclusions are checked.
var DefaultExclusionExceptions = []string{
	"secadora de grano", "secadora de granos", "secadoras de grano", "secadoras de granos",
	"lavadora a presion", "lavadoras a presion", "lavadora de alta presion", "lavadoras de alta presion",
}

// DefaultCoreTerms signal the forestry/agricultural cutting-equipment domain.
var DefaultCoreTerms = []string{
	"motosierra", "forestal", "stihl", "husqvarna", "desbrozadora",
	"podadora", "maquinaria agricola",
}

// Options configures a Matcher. Nil slices fall back to the defaults; an
// empty non-nil slice disables the corresponding check.
type Options struct {
	HardExclusions      []string
	ExclusionExceptions []string
	CoreTerms           []string
}

// Matcher scores listings. It is safe for concurrent use.
type Matcher struct {
	exclusions    []string
	exceptions    []string
	exclusionTrie *ahocorasick.Matcher
	coreTerms     []string
	coreTrie      *ahocorasick.Matcher
}

// NewMatcher builds the exclusion and core-term automatons.
func NewMatcher(opts Options) *Matcher {
	exclusions := opts.HardExclusions
	if exclusions == nil {
		exclusions = DefaultHardExclusions
	}
	exceptions := opts.ExclusionExceptions
	if exceptions == nil {
		exceptions = DefaultExclusionExceptions
	}
	core := opts.CoreTerms
	if core == nil {
		core = DefaultCoreTerms
	}

	m := &Matcher{
		exclusions: normalizeTerms(exclusions),
		exceptions: normalizeTerms(exceptions),
		coreTerms:  normalizeTerms(core),
	}
	if len(m.exclusions) > 0 {
		// Exclusions match at word starts only, so "lavadora" does not hit
		// "hidrolavadora". Plurals still match as prefixes.
		patterns := make([]string, len(m.exclusions))
		for i, t := range m.exclusions {
			patterns[i] = " " + t
		}
		m.exclusionTrie = ahocorasick.NewStringMatcher(patterns)
	}
	if len(m.coreTerms) > 0 {
		m.coreTrie = ahocorasick.NewStringMatcher(m.coreTerms)
	}
	return m
}

var defaultMatcher = NewMatcher(Options{})

// Default returns the shared matcher built with the default term sets.
func Default() *Matcher { return defaultMatcher }

// Match classifies l with the default exclusion and core-term sets.
func Match(l model.Listing, vocab niche.Vocabulary, negatives []string) model.LexicalMatch {
	return defaultMatcher.Match(l, vocab, negatives)
}

// Match classifies a single listing against a vocabulary and the niche's
// negative terms. The result depends only on its inputs.
func (m *Matcher) Match(l model.Listing, vocab niche.Vocabulary, negatives []string) model.LexicalMatch {
	combined := textnorm.Text(l.CombinedText())

	if hits := m.hits(m.exclusionTrie, m.exclusions, m.withoutExceptions(combined)); len(hits) > 0 {
		return model.LexicalMatch{
			Status:           model.StatusDiscard,
			Confidence:       hardExclusionConfidence,
			Reason:           fmt.Sprintf("Hard exclusion: household appliance term %q", hits[0]),
			MatchedTerms:     []string{},
			MatchedNegatives: hits,
			Score:            hardExclusionScore,
			HardExcluded:     true,
		}
	}

	titleWords := textnorm.Words(l.Title)
	categoryWords := textnorm.Words(l.Type)

	score := 0
	matched := []string{}
	seen := make(map[string]struct{})
	for _, term := range vocab.Terms() {
		if containsStem(titleWords, term.Token) {
			score += term.Weight * titleMultiplier
			if _, ok := seen[term.Token]; !ok {
				seen[term.Token] = struct{}{}
				matched = append(matched, term.Token)
			}
		}
	}
	for _, term := range vocab.Terms() {
		if containsStem(categoryWords, term.Token) {
			score += term.Weight * categoryMultiplier
			if _, ok := seen[term.Token]; !ok {
				seen[term.Token] = struct{}{}
				matched = append(matched, term.Token)
			}
		}
	}

	core := m.hits(m.coreTrie, m.coreTerms, combined)
	if len(core) > 0 {
		score += coreBonus
	}

	matchedNegatives := []string{}
	for _, neg := range normalizeTerms(negatives) {
		if strings.Contains(combined, neg) {
			matchedNegatives = append(matchedNegatives, neg)
			score -= negativePenalty
		}
	}

	result := model.LexicalMatch{
		MatchedTerms:     matched,
		MatchedNegatives: matchedNegatives,
		Score:            score,
	}

	switch {
	case score >= relevantThreshold:
		result.Status = model.StatusRelevant
		result.Confidence = min(60+score*5, maxRelevantConfidence)
		if len(matched) > 0 {
			result.Reason = "Matches niche terms: " + joinTop(matched)
		} else {
			result.Reason = "Core domain terms present: " + joinTop(core)
		}
	case score >= neutralThreshold:
		result.Status = model.StatusNeutral
		result.Confidence = neutralConfidence
		result.Reason = "Partial match: " + joinTop(slices.Concat(matched, core))
		if len(matchedNegatives) > 0 {
			result.Reason += fmt.Sprintf(" (penalized by %q)", matchedNegatives[0])
		}
	default:
		result.Status = model.StatusDiscard
		if len(matchedNegatives) > 0 {
			result.Confidence = negativeConfidence
			result.Reason = fmt.Sprintf("Excluded by niche term %q", matchedNegatives[0])
		} else {
			result.Confidence = noSignalConfidence
			result.Reason = "No niche terms matched"
		}
	}

	return result
}

// withoutExceptions blanks the exception phrases out of padded text.
func (m *Matcher) withoutExceptions(text string) string {
	for _, ex := range m.exceptions {
		phrase := " " + ex + " "
		for strings.Contains(text, phrase) {
			text = strings.ReplaceAll(text, phrase, "  ")
		}
	}
	return text
}

// hits returns the distinct terms of the automaton found in text, in term order.
func (m *Matcher) hits(trie *ahocorasick.Matcher, terms []string, text string) []string {
	if trie == nil {
		return nil
	}
	idx := trie.MatchThreadSafe([]byte(text))
	if len(idx) == 0 {
		return nil
	}
	found := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		found[i] = struct{}{}
	}
	out := make([]string, 0, len(found))
	for i, t := range terms {
		if _, ok := found[i]; ok {
			out = append(out, t)
		}
	}
	return out
}

// containsStem reports whether any word stem-matches token.
func containsStem(words []string, token string) bool {
	for _, w := range words {
		if StemMatch(w, token) {
			return true
		}
	}
	return false
}

// StemMatch reports whether a and b are equal, or one is a prefix of the
// other and both are at least four runes long (singular/plural variants).
func StemMatch(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < minStemLen || utf8.RuneCountInString(b) < minStemLen {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := textnorm.Term(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func joinTop(terms []string) string {
	if len(terms) > maxReasonTerms {
		terms = terms[:maxReasonTerms]
	}
	return strings.Join(terms, ", ")
}
