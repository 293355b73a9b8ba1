package model

import "strings"

// GPSCoordinates is the provider's lat/lng pair.
type GPSCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Listing is one business record returned by the place-search provider.
// Every field is optional: strings are empty and pointers are nil when the
// provider omitted them, and the accessors below define the zero behavior.
type Listing struct {
	PlaceID       string          `json:"place_id,omitempty"`
	PlaceIDSearch string          `json:"place_id_search,omitempty"` // fallback id
	DataID        string          `json:"data_id,omitempty"`
	Title         string          `json:"title,omitempty"`
	Type          string          `json:"type,omitempty"` // free-text category
	Address       string          `json:"address,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Website       string          `json:"website,omitempty"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	Rating        *float64        `json:"rating,omitempty"`
	Reviews       *int            `json:"reviews,omitempty"`
	Description   string          `json:"description,omitempty"`
	OpenState     string          `json:"open_state,omitempty"`
	GPS           *GPSCoordinates `json:"gps_coordinates,omitempty"`
}

// Key returns the identifier used to key the listing in the verdict,
// enrichment and selection stores: PlaceID, then PlaceIDSearch. The second
// return value is false when neither is present; such a listing is still
// scored but cannot be tracked across async stores.
func (l Listing) Key() (string, bool) {
	if id := strings.TrimSpace(l.PlaceID); id != "" {
		return id, true
	}
	if id := strings.TrimSpace(l.PlaceIDSearch); id != "" {
		return id, true
	}
	return "", false
}

// RatingValue returns the rating clamped to [0,5], or 0 when absent.
func (l Listing) RatingValue() float64 {
	if l.Rating == nil || *l.Rating < 0 {
		return 0
	}
	if *l.Rating > 5 {
		return 5
	}
	return *l.Rating
}

// ReviewCount returns the review count, or 0 when absent or negative.
func (l Listing) ReviewCount() int {
	if l.Reviews == nil || *l.Reviews < 0 {
		return 0
	}
	return *l.Reviews
}

// HasWebsite reports whether a website is present.
func (l Listing) HasWebsite() bool { return strings.TrimSpace(l.Website) != "" }

// HasPhone reports whether a phone number is present.
func (l Listing) HasPhone() bool { return strings.TrimSpace(l.Phone) != "" }

// HasPhoto reports whether any photo field is present.
func (l Listing) HasPhoto() bool { return strings.TrimSpace(l.Thumbnail) != "" }

// CombinedText concatenates the fields searched for exclusion and bonus
// terms: title, category, description and address.
func (l Listing) CombinedText() string {
	return strings.Join([]string{l.Title, l.Type, l.Description, l.Address}, " ")
}
