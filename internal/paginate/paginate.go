// Package paginate tracks how to request the next page of provider results.
package paginate

import (
	"github.com/rotisserie/eris"
)

// DefaultPageSize is the provider's per-page maximum.
const DefaultPageSize = 20

// ErrNoContinuation is returned when a continuation is requested but the
// state holds neither a token nor an offset.
var ErrNoContinuation = eris.New("paginate: no continuation available")

// Phase is the tracker state.
type Phase string

const (
	Idle      Phase = "idle"
	HasMore   Phase = "has_more"
	Exhausted Phase = "exhausted"
)

// State is an immutable snapshot of the tracker.
type State struct {
	Phase    Phase  `json:"phase"`
	Token    string `json:"token,omitempty"`
	Offset   int    `json:"offset"`
	PageSize int    `json:"page_size"`
}

// New returns an Idle state. pageSize <= 0 uses DefaultPageSize.
func New(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Phase: Idle, PageSize: pageSize}
}

// PageResult describes one fetched page.
type PageResult struct {
	Count     int
	NextToken string
}

// Advance applies a fetched page. A token wins and resets the offset; a full
// page without a token advances the offset by one page; anything else
// exhausts the search.
func Advance(s State, p PageResult) State {
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}

	switch {
	case p.NextToken != "":
		s.Phase = HasMore
		s.Token = p.NextToken
		s.Offset = 0
	case p.Count >= s.PageSize:
		s.Phase = HasMore
		s.Token = ""
		s.Offset += s.PageSize
	default:
		s.Phase = Exhausted
		s.Token = ""
		s.Offset = 0
	}
	return s
}

// Continuation is the request for the next page. Exactly one field is set.
type Continuation struct {
	Token  string
	Offset int
}

// Next returns the continuation for s, preferring the token.
func Next(s State) (Continuation, error) {
	if s.Phase != HasMore {
		return Continuation{}, eris.Wrapf(ErrNoContinuation, "phase %s", s.Phase)
	}
	if s.Token != "" {
		return Continuation{Token: s.Token}, nil
	}
	if s.Offset > 0 {
		return Continuation{Offset: s.Offset}, nil
	}
	return Continuation{}, eris.Wrap(ErrNoContinuation, "neither token nor offset held")
}
