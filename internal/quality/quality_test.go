package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-cli/internal/model"
)

func ptrF(f float64) *float64 { return &f }
func ptrI(i int) *int         { return &i }

func TestScore_Empty(t *testing.T) {
	q := Score(model.Listing{})
	assert.Equal(t, model.QualityScore{Tier: model.TierLow}, q)
}

func TestScore_Components(t *testing.T) {
	q := Score(model.Listing{
		Rating:    ptrF(4.2),
		Reviews:   ptrI(120),
		Website:   "https://example.mx",
		Phone:     "+52 618 000 0000",
		Thumbnail: "https://img.example/1.jpg",
	})
	assert.Equal(t, 34, q.RatingScore) // round(33.6)
	assert.Equal(t, 10, q.ReviewScore) // round(log10(121)*5) = round(10.41)
	assert.Equal(t, 15, q.WebsiteScore)
	assert.Equal(t, 15, q.PhoneScore)
	assert.Equal(t, 10, q.PhotoScore)
	assert.Equal(t, 84, q.Total)
	assert.Equal(t, model.TierPremium, q.Tier)
}

func TestScore_Caps(t *testing.T) {
	q := Score(model.Listing{
		Rating:    ptrF(9),
		Reviews:   ptrI(5_000_000),
		Website:   "x",
		Phone:     "x",
		Thumbnail: "x",
	})
	assert.Equal(t, 40, q.RatingScore)
	assert.Equal(t, 20, q.ReviewScore)
	assert.Equal(t, 100, q.Total)
}

func TestScore_NegativeInputsDegradeToZero(t *testing.T) {
	q := Score(model.Listing{Rating: ptrF(-3), Reviews: ptrI(-10)})
	assert.Equal(t, 0, q.RatingScore)
	assert.Equal(t, 0, q.ReviewScore)
	assert.Equal(t, 0, q.Total)
}

func TestScore_BlankStringsAreAbsent(t *testing.T) {
	q := Score(model.Listing{Website: "  ", Phone: "", Thumbnail: " "})
	assert.Equal(t, 0, q.Total)
}

func TestScore_TierBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		listing model.Listing
		total   int
		tier    model.Tier
	}{
		{"39", model.Listing{Rating: ptrF(4.875)}, 39, model.TierLow},
		{"40", model.Listing{Rating: ptrF(5)}, 40, model.TierMedium},
		{"59", model.Listing{Rating: ptrF(4.875), Reviews: ptrI(9), Website: "x"}, 59, model.TierMedium},
		{"60", model.Listing{Rating: ptrF(5), Reviews: ptrI(9), Website: "x"}, 60, model.TierHigh},
		{"79", model.Listing{Rating: ptrF(4.875), Website: "x", Phone: "x", Thumbnail: "x"}, 79, model.TierHigh},
		{"80", model.Listing{Rating: ptrF(5), Website: "x", Phone: "x", Thumbnail: "x"}, 80, model.TierPremium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Score(tt.listing)
			assert.Equal(t, tt.total, q.Total)
			assert.Equal(t, tt.tier, q.Tier)
		})
	}
}

func TestScore_TotalInRange(t *testing.T) {
	ratings := []float64{0, 0.4, 1.5, 3.3, 4.9, 5, 7}
	reviews := []int{0, 1, 10, 99, 1000, 1 << 30}
	for _, r := range ratings {
		for _, n := range reviews {
			q := Score(model.Listing{Rating: ptrF(r), Reviews: ptrI(n), Website: "w", Phone: "p", Thumbnail: "t"})
			assert.GreaterOrEqual(t, q.Total, 0)
			assert.LessOrEqual(t, q.Total, 100)
		}
	}
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, model.TierLow, TierFor(0))
	assert.Equal(t, model.TierLow, TierFor(39))
	assert.Equal(t, model.TierMedium, TierFor(40))
	assert.Equal(t, model.TierMedium, TierFor(59))
	assert.Equal(t, model.TierHigh, TierFor(60))
	assert.Equal(t, model.TierHigh, TierFor(79))
	assert.Equal(t, model.TierPremium, TierFor(80))
	assert.Equal(t, model.TierPremium, TierFor(100))
}
