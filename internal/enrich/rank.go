// Package enrich turns externally gathered digital signals into a premium
// score and rank.
package enrich

import (
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Signals are the raw observations for one listing. The enrichment provider
// supplies ads and social links; the rest comes from the listing itself.
type Signals struct {
	HasAds       bool
	AdsCount     int
	FacebookURL  string
	InstagramURL string
	Rating       float64
	Reviews      int
	HasWebsite   bool
}

// SignalsFromListing seeds Signals with the listing's own fields.
func SignalsFromListing(l model.Listing) Signals {
	return Signals{
		Rating:     l.RatingValue(),
		Reviews:    l.ReviewCount(),
		HasWebsite: l.HasWebsite(),
	}
}

const (
	adsPoints       = 35
	facebookPoints  = 15
	instagramPoints = 10
	ratingPoints    = 20
	reviewPoints    = 20
	websitePoints   = 10
	maxPremium      = 100

	topRating      = 4.5
	activeReviews  = 40
	diamondScore   = 80
	goldScore      = 60
	silverScore    = 30
	noSignalReason = "No clear digital signals detected"
)

type factor struct {
	points int
	reason string
	hit    func(Signals) bool
}

// factors are evaluated in order; reasons follow the same order.
var factors = []factor{
	{adsPoints, "Invests in paid search ads", func(s Signals) bool { return s.HasAds }},
	{facebookPoints, "Active brand on Facebook", func(s Signals) bool { return s.FacebookURL != "" }},
	{instagramPoints, "Present on Instagram", func(s Signals) bool { return s.InstagramURL != "" }},
	{ratingPoints, "Excellent reputation (rating 4.5+)", func(s Signals) bool { return s.Rating >= topRating }},
	{reviewPoints, "Steady customer flow (40+ reviews)", func(s Signals) bool { return s.Reviews > activeReviews }},
	{websitePoints, "Owns a website", func(s Signals) bool { return s.HasWebsite }},
}

// Rank scores s and stamps the record with now.
func Rank(s Signals, now time.Time) model.EnrichmentRecord {
	rec := model.EnrichmentRecord{
		LastDataCheck: now.UTC(),
		HasActiveAds:  s.HasAds,
		FacebookURL:   s.FacebookURL,
		InstagramURL:  s.InstagramURL,
		Reasons:       []string{},
	}
	if s.HasAds {
		rec.AdsCount = max(s.AdsCount, 1)
	}

	score := 0
	for _, f := range factors {
		if f.hit(s) {
			score += f.points
			rec.Reasons = append(rec.Reasons, f.reason)
		}
	}
	if len(rec.Reasons) == 0 {
		rec.Reasons = append(rec.Reasons, noSignalReason)
	}

	rec.PremiumScore = min(score, maxPremium)
	rec.PremiumRank = RankFor(rec.PremiumScore)
	return rec
}

// RankFor maps a premium score to its rank.
func RankFor(score int) model.PremiumRank {
	switch {
	case score >= diamondScore:
		return model.RankDiamond
	case score >= goldScore:
		return model.RankGold
	case score >= silverScore:
		return model.RankSilver
	default:
		return model.RankBronze
	}
}
