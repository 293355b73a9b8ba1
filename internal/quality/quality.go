// Package quality computes a listing's intrinsic quality score from its own
// fields.
package quality

import (
	"math"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	ratingMultiplier = 8
	maxRatingScore   = 40
	reviewMultiplier = 5
	maxReviewScore   = 20
	websiteScore     = 15
	phoneScore       = 15
	photoScore       = 10
	maxTotal         = 100

	premiumThreshold = 80
	highThreshold    = 60
	mediumThreshold  = 40
)

// Score computes the five weighted components and the resulting tier. Absent
// fields contribute zero.
func Score(l model.Listing) model.QualityScore {
	q := model.QualityScore{
		RatingScore: min(int(math.Round(l.RatingValue()*ratingMultiplier)), maxRatingScore),
		ReviewScore: min(int(math.Round(math.Log10(float64(l.ReviewCount())+1)*reviewMultiplier)), maxReviewScore),
	}
	if l.HasWebsite() {
		q.WebsiteScore = websiteScore
	}
	if l.HasPhone() {
		q.PhoneScore = phoneScore
	}
	if l.HasPhoto() {
		q.PhotoScore = photoScore
	}

	q.Total = min(q.RatingScore+q.ReviewScore+q.WebsiteScore+q.PhoneScore+q.PhotoScore, maxTotal)
	q.Tier = TierFor(q.Total)
	return q
}

// TierFor maps a total to its tier: 80 Premium, 60 High, 40 Medium, else Low.
func TierFor(total int) model.Tier {
	switch {
	case total >= premiumThreshold:
		return model.TierPremium
	case total >= highThreshold:
		return model.TierHigh
	case total >= mediumThreshold:
		return model.TierMedium
	default:
		return model.TierLow
	}
}
