// Package prospect owns a search session and drives the external
// collaborators (place search, AI classifier, enrichment) against it.
package prospect

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/lexical"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/niche"
	"github.com/sells-group/prospect-cli/internal/paginate"
	"github.com/sells-group/prospect-cli/internal/rank"
)

// ErrStaleGeneration is returned when a result belongs to a search that has
// since been replaced.
var ErrStaleGeneration = eris.New("prospect: stale search generation")

// Generation identifies one search. A new search issues a new generation and
// every result tagged with an older one is discarded.
type Generation string

// Session holds the listings of the current search and the verdict and
// enrichment stores keyed by listing id.
type Session struct {
	mu sync.RWMutex

	gen      Generation
	query    string
	location string

	listings   []model.Listing
	index      map[string]int
	verdicts   map[string]model.AIVerdict
	enrichment map[string]model.EnrichmentRecord
	page       paginate.State

	niche   *niche.Niche
	vocab   niche.Vocabulary
	matcher *lexical.Matcher
}

// NewSession returns an idle session. A nil matcher uses lexical.Default.
func NewSession(pageSize int, matcher *lexical.Matcher) *Session {
	if matcher == nil {
		matcher = lexical.Default()
	}
	s := &Session{matcher: matcher}
	s.reset(pageSize)
	return s
}

func (s *Session) reset(pageSize int) {
	s.listings = nil
	s.index = make(map[string]int)
	s.verdicts = make(map[string]model.AIVerdict)
	s.enrichment = make(map[string]model.EnrichmentRecord)
	s.page = paginate.New(pageSize)
}

// Begin starts a new search. All stores and the pagination state are
// cleared and results of earlier generations become stale.
func (s *Session) Begin(query, location string) Generation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset(s.page.PageSize)
	s.gen = Generation(uuid.NewString())
	s.query = query
	s.location = location
	return s.gen
}

// Generation returns the current search generation, empty before the first search.
func (s *Session) Generation() Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Query returns the query and location of the current search.
func (s *Session) Query() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query, s.location
}

// Pagination returns the current tracker state.
func (s *Session) Pagination() paginate.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Appended describes the listings added by one AppendPage call.
type Appended struct {
	Start    int // arrival index of the first added listing
	Listings []model.Listing
}

// AppendPage adds one fetched page and advances the pagination state.
// Listings whose id is already present are skipped.
func (s *Session) AppendPage(gen Generation, listings []model.Listing, p paginate.PageResult) (Appended, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || gen == "" {
		return Appended{}, ErrStaleGeneration
	}

	out := Appended{Start: len(s.listings)}
	for _, l := range listings {
		key, ok := l.Key()
		if ok {
			if _, dup := s.index[key]; dup {
				continue
			}
			s.index[key] = len(s.listings)
		} else {
			zap.L().Warn("prospect: listing without id, AI and enrichment merges disabled",
				zap.String("title", l.Title),
			)
		}
		s.listings = append(s.listings, l)
		out.Listings = append(out.Listings, l)
	}

	s.page = paginate.Advance(s.page, p)
	return out, nil
}

// Len returns the number of listings held.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// Unenriched returns the keys of listings without an enrichment record, in
// arrival order.
func (s *Session) Unenriched() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, l := range s.listings {
		key, ok := l.Key()
		if !ok {
			continue
		}
		if _, done := s.enrichment[key]; !done {
			out = append(out, key)
		}
	}
	return out
}

// Listings returns a copy of the listings in arrival order.
func (s *Session) Listings() []model.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Listing returns the listing with the given id.
func (s *Session) Listing(key string) (model.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		return model.Listing{}, false
	}
	return s.listings[i], true
}

// Unverdicted returns up to limit keyed listings without an AI verdict, in
// arrival order.
func (s *Session) Unverdicted(limit int) []model.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Listing
	for _, l := range s.listings {
		if limit > 0 && len(out) == limit {
			break
		}
		key, ok := l.Key()
		if !ok {
			continue
		}
		if _, done := s.verdicts[key]; done {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ApplyVerdicts merges AI verdicts into the store. Verdicts for ids outside
// the current listing set and invalid verdict values are dropped. It returns
// the number applied.
func (s *Session) ApplyVerdicts(gen Generation, verdicts map[string]model.AIVerdict) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || gen == "" {
		return 0, ErrStaleGeneration
	}

	applied := 0
	for key, v := range verdicts {
		if _, ok := s.index[key]; !ok {
			zap.L().Debug("prospect: dropping verdict for unknown id", zap.String("key", key))
			continue
		}
		if !v.Verdict.Valid() {
			zap.L().Warn("prospect: dropping invalid verdict", zap.String("key", key), zap.String("verdict", string(v.Verdict)))
			continue
		}
		s.verdicts[key] = v
		applied++
	}
	return applied, nil
}

// ApplyEnrichment stores a record for key. It reports false without error
// when a record already exists or key is not in the current listing set.
func (s *Session) ApplyEnrichment(gen Generation, key string, rec model.EnrichmentRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || gen == "" {
		return false, ErrStaleGeneration
	}
	if _, ok := s.index[key]; !ok {
		return false, nil
	}
	if _, exists := s.enrichment[key]; exists {
		return false, nil
	}
	s.enrichment[key] = rec
	return true, nil
}

// HasEnrichment reports whether key already has an enrichment record.
func (s *Session) HasEnrichment(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.enrichment[key]
	return ok
}

// Verdicts returns a copy of the AI verdict store.
func (s *Session) Verdicts() map[string]model.AIVerdict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.AIVerdict, len(s.verdicts))
	for k, v := range s.verdicts {
		out[k] = v
	}
	return out
}

// SetNiche activates n, or clears the active niche when n is nil. Switching
// to a different niche drops the AI verdicts, which were given for the old
// one. Enrichment is niche independent and kept.
func (s *Session) SetNiche(n *niche.Niche) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := ""
	if s.niche != nil {
		prev = s.niche.ID
	}
	next := ""
	if n != nil {
		next = n.ID
	}
	if prev != next && len(s.verdicts) > 0 {
		s.verdicts = make(map[string]model.AIVerdict)
	}

	s.niche = n
	s.vocab = nil
	if n != nil {
		s.vocab = n.Vocabulary()
	}
}

// Niche returns the active niche, or nil.
func (s *Session) Niche() *niche.Niche {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.niche
}

// View recomputes the classified and ordered view from the current stores.
// An empty mode picks relevance with a niche and quality without.
func (s *Session) View(mode rank.Mode) []rank.Ranked {
	s.mu.RLock()
	in := rank.RecomputeInput{
		Listings:   make([]model.Listing, len(s.listings)),
		Verdicts:   make(map[string]model.AIVerdict, len(s.verdicts)),
		Enrichment: make(map[string]model.EnrichmentRecord, len(s.enrichment)),
		Niche:      s.niche,
		Vocabulary: s.vocab,
		Matcher:    s.matcher,
		Mode:       mode,
	}
	copy(in.Listings, s.listings)
	for k, v := range s.verdicts {
		in.Verdicts[k] = v
	}
	for k, v := range s.enrichment {
		in.Enrichment[k] = v
	}
	s.mu.RUnlock()

	return rank.Recompute(in)
}
