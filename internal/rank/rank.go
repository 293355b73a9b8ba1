// Package rank derives the classified, ordered view of a listing collection.
package rank

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/lexical"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/niche"
	"github.com/sells-group/prospect-cli/internal/quality"
	"github.com/sells-group/prospect-cli/internal/verdict"
)

// Mode selects the sort order.
type Mode string

const (
	// ModeRelevance orders by classification bucket, enrichment and score.
	ModeRelevance Mode = "relevance"
	// ModeQuality orders by quality total.
	ModeQuality Mode = "quality"
)

// ParseMode accepts "relevance", "quality" and its alias "score". An empty
// string yields "" so the caller's default applies.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "relevance":
		return ModeRelevance, nil
	case "quality", "score":
		return ModeQuality, nil
	}
	return "", eris.Errorf("rank: unknown sort mode %q", s)
}

// Ranked is one listing with everything derived for it.
type Ranked struct {
	Listing        model.Listing               `json:"listing"`
	Key            string                      `json:"key,omitempty"`
	Quality        model.QualityScore          `json:"quality"`
	Classification *model.MergedClassification `json:"classification,omitempty"`
	Enrichment     *model.EnrichmentRecord     `json:"enrichment,omitempty"`
	Arrival        int                         `json:"arrival"`
}

var bucketOrder = map[model.Status]int{
	model.StatusRelevant: 0,
	model.StatusNeutral:  1,
	model.StatusDiscard:  2,
}

func (r Ranked) bucket() int {
	if r.Classification == nil {
		return len(bucketOrder)
	}
	if b, ok := bucketOrder[r.Classification.Status]; ok {
		return b
	}
	return len(bucketOrder)
}

// relevanceScore is the premium score when enriched, else the raw lexical score.
func (r Ranked) relevanceScore() int {
	if r.Enrichment != nil {
		return r.Enrichment.PremiumScore
	}
	if r.Classification != nil && r.Classification.Lexical != nil {
		return r.Classification.Lexical.Score
	}
	return 0
}

// Sort returns a sorted copy of items. Arrival order breaks every tie.
// Relevance mode without an active niche keeps arrival order.
func Sort(items []Ranked, mode Mode, nicheActive bool) []Ranked {
	out := make([]Ranked, len(items))
	copy(out, items)

	var less func(a, b Ranked) bool
	switch {
	case mode == ModeQuality:
		less = func(a, b Ranked) bool {
			if a.Quality.Total != b.Quality.Total {
				return a.Quality.Total > b.Quality.Total
			}
			return a.Arrival < b.Arrival
		}
	case nicheActive:
		less = func(a, b Ranked) bool {
			if ab, bb := a.bucket(), b.bucket(); ab != bb {
				return ab < bb
			}
			if ae, be := a.Enrichment != nil, b.Enrichment != nil; ae != be {
				return ae
			}
			if as, bs := a.relevanceScore(), b.relevanceScore(); as != bs {
				return as > bs
			}
			return a.Arrival < b.Arrival
		}
	default:
		less = func(a, b Ranked) bool { return a.Arrival < b.Arrival }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// RecomputeInput is everything the view depends on. The maps are read only.
type RecomputeInput struct {
	Listings   []model.Listing
	Verdicts   map[string]model.AIVerdict
	Enrichment map[string]model.EnrichmentRecord
	Niche      *niche.Niche
	Vocabulary niche.Vocabulary // derived from Niche when nil
	Matcher    *lexical.Matcher // default matcher when nil
	Mode       Mode             // relevance with a niche, else quality, when empty
}

// Recompute scores, classifies and sorts the listings. The result depends
// only on the current contents of its inputs.
func Recompute(in RecomputeInput) []Ranked {
	mode := in.Mode
	if mode == "" {
		mode = ModeQuality
		if in.Niche != nil {
			mode = ModeRelevance
		}
	}

	vocab := in.Vocabulary
	if in.Niche != nil && vocab == nil {
		vocab = in.Niche.Vocabulary()
	}
	matcher := in.Matcher
	if matcher == nil {
		matcher = lexical.Default()
	}

	items := make([]Ranked, 0, len(in.Listings))
	for i, l := range in.Listings {
		r := Ranked{
			Listing: l,
			Quality: quality.Score(l),
			Arrival: i,
		}

		var lex *model.LexicalMatch
		if in.Niche != nil {
			m := matcher.Match(l, vocab, in.Niche.NegativeKeywords)
			lex = &m
		}

		var ai *model.AIVerdict
		key, ok := l.Key()
		if ok {
			r.Key = key
			if v, found := in.Verdicts[key]; found {
				ai = &v
			}
			if e, found := in.Enrichment[key]; found {
				r.Enrichment = &e
			}
		} else if len(in.Verdicts) > 0 || len(in.Enrichment) > 0 {
			zap.L().Debug("rank: listing without id excluded from merges", zap.Int("arrival", i), zap.String("title", l.Title))
		}

		r.Classification = verdict.Merge(lex, ai, r.Enrichment)
		items = append(items, r)
	}

	return Sort(items, mode, in.Niche != nil)
}
