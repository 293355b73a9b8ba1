package model

import "time"

// Status is the classification bucket of a listing for a niche.
type Status string

const (
	StatusRelevant Status = "relevant"
	StatusNeutral  Status = "neutral"
	StatusDiscard  Status = "discard"
)

// Tier is the coarse quality band derived from a QualityScore total.
type Tier string

const (
	TierPremium Tier = "Premium"
	TierHigh    Tier = "High"
	TierMedium  Tier = "Medium"
	TierLow     Tier = "Low"
)

// QualityScore is a listing's intrinsic quality, computed from its own fields.
type QualityScore struct {
	RatingScore  int  `json:"rating_score"`
	ReviewScore  int  `json:"review_score"`
	WebsiteScore int  `json:"website_score"`
	PhoneScore   int  `json:"phone_score"`
	PhotoScore   int  `json:"photo_score"`
	Total        int  `json:"total"`
	Tier         Tier `json:"tier"`
}

// LexicalMatch is the local classification of a listing against a niche vocabulary.
type LexicalMatch struct {
	Status           Status   `json:"status"`
	Confidence       int      `json:"confidence"`
	Reason           string   `json:"reason"`
	MatchedTerms     []string `json:"matched_terms"`
	MatchedNegatives []string `json:"matched_negatives"`
	Score            int      `json:"score"` // raw weighted score, may be negative
	HardExcluded     bool     `json:"hard_excluded"`
}

// Verdict is the external AI classifier's opinion of a listing.
type Verdict string

const (
	VerdictProspect   Verdict = "prospect"
	VerdictIrrelevant Verdict = "irrelevant"
	VerdictUncertain  Verdict = "uncertain"
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictProspect, VerdictIrrelevant, VerdictUncertain:
		return true
	}
	return false
}

// AIVerdict is an externally supplied classification keyed by listing id.
type AIVerdict struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

// PremiumRank is the enrichment-derived premium band.
type PremiumRank string

const (
	RankDiamond PremiumRank = "Diamond"
	RankGold    PremiumRank = "Gold"
	RankSilver  PremiumRank = "Silver"
	RankBronze  PremiumRank = "Bronze"
)

// EnrichmentRecord is the premium assessment built from externally gathered
// digital signals. At most one exists per listing id within a session.
type EnrichmentRecord struct {
	LastDataCheck time.Time   `json:"last_data_check"`
	HasActiveAds  bool        `json:"has_active_ads"`
	AdsCount      int         `json:"ads_count"`
	OwnerResponds bool        `json:"owner_responds"`
	FacebookURL   string      `json:"facebook_url,omitempty"`
	InstagramURL  string      `json:"instagram_url,omitempty"`
	PremiumScore  int         `json:"premium_score"`
	PremiumRank   PremiumRank `json:"premium_rank"`
	Reasons       []string    `json:"analysis_reason"`
}

// MergedClassification is the authoritative verdict for one listing. It is
// recomputed on every read and never persisted.
type MergedClassification struct {
	Status     Status            `json:"status"`
	Confidence int               `json:"confidence"`
	Reason     string            `json:"reason"`
	Lexical    *LexicalMatch     `json:"lexical,omitempty"`
	AI         *AIVerdict        `json:"ai_verdict,omitempty"`
	Enrichment *EnrichmentRecord `json:"enrichment,omitempty"`
}
