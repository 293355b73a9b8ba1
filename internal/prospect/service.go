package prospect

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/niche"
	"github.com/sells-group/prospect-cli/internal/paginate"
	"github.com/sells-group/prospect-cli/internal/rank"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/verdict"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

// Service errors.
var (
	ErrEmptyQuery     = eris.New("prospect: query is required")
	ErrNoSearch       = eris.New("prospect: no active search")
	ErrNoClassifier   = eris.New("prospect: AI classifier not configured")
	ErrNoEnricher     = eris.New("prospect: enrichment not configured")
	ErrUnknownListing = eris.New("prospect: listing not in current results")
	ErrNicheChanged   = eris.New("prospect: niche changed during classification")
)

const (
	defaultConcurrency = 4
	defaultCacheTTL    = 7 * 24 * time.Hour
)

// Classifier labels a batch of listings for a niche.
type Classifier interface {
	Classify(ctx context.Context, n *niche.Niche, listings []model.Listing) (map[string]model.AIVerdict, error)
	BatchSize() int
}

// Enricher builds an enrichment record for one listing.
type Enricher interface {
	Enrich(ctx context.Context, l model.Listing) (model.EnrichmentRecord, error)
}

// Service runs searches, AI classification and enrichment against a Session.
type Service struct {
	session    *Session
	search     serpapi.Client
	classifier Classifier
	enricher   Enricher
	store      store.Store

	language    string
	concurrency int
	limiter     *rate.Limiter
	cacheTTL    time.Duration
	flight      singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithClassifier enables AI classification.
func WithClassifier(c Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithEnricher enables enrichment.
func WithEnricher(e Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithStore persists searches, verdicts and enrichment records, and serves
// enrichment records cached by earlier sessions.
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithLanguage sets the provider interface language.
func WithLanguage(lang string) Option {
	return func(s *Service) { s.language = lang }
}

// WithEnrichConcurrency bounds concurrent enrichment calls.
func WithEnrichConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEnrichRateLimit caps enrichment calls per second. Zero disables limiting.
func WithEnrichRateLimit(perSecond float64) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithCacheTTL sets how long persisted enrichment records stay valid.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewService creates a Service bound to session.
func NewService(session *Session, search serpapi.Client, opts ...Option) *Service {
	s := &Service{
		session:     session,
		search:      search,
		concurrency: defaultConcurrency,
		cacheTTL:    defaultCacheTTL,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Session returns the session the service drives.
func (s *Service) Session() *Session { return s.session }

// View returns the ranked view of the current session.
func (s *Service) View(mode rank.Mode) []rank.Ranked { return s.session.View(mode) }

// ComposeQuery joins a query and an optional location the way the provider
// expects them: "<query> en <location>".
func ComposeQuery(query, location string) string {
	query = strings.TrimSpace(query)
	location = strings.TrimSpace(location)
	if location == "" {
		return query
	}
	return query + " en " + location
}

// PageOutcome summarizes a fetched page.
type PageOutcome struct {
	Generation Generation     `json:"generation"`
	Added      int            `json:"added"`
	Total      int            `json:"total"`
	Pagination paginate.State `json:"pagination"`
}

// Search starts a new search and fetches its first page.
func (s *Service) Search(ctx context.Context, query, location string) (PageOutcome, error) {
	if strings.TrimSpace(query) == "" {
		return PageOutcome{}, ErrEmptyQuery
	}

	gen := s.session.Begin(query, location)
	log := zap.L().With(zap.String("generation", string(gen)), zap.String("query", query), zap.String("location", location))

	if s.store != nil {
		nicheID := ""
		if n := s.session.Niche(); n != nil {
			nicheID = n.ID
		}
		if _, err := s.store.CreateSearch(ctx, string(gen), query, location, nicheID); err != nil {
			log.Warn("prospect: persist search failed", zap.Error(err))
		}
	}

	out, err := s.fetch(ctx, gen, serpapi.MapsRequest{Query: ComposeQuery(query, location), Language: s.language})
	if err != nil {
		return out, err
	}
	log.Info("prospect: search complete", zap.Int("listings", out.Added), zap.String("phase", string(out.Pagination.Phase)))
	return out, nil
}

// LoadMore fetches the next page of the current search. It fails with
// paginate.ErrNoContinuation before any provider call when the search is
// exhausted or never started.
func (s *Service) LoadMore(ctx context.Context) (PageOutcome, error) {
	gen := s.session.Generation()
	cont, err := paginate.Next(s.session.Pagination())
	if err != nil {
		return PageOutcome{}, err
	}

	query, location := s.session.Query()
	return s.fetch(ctx, gen, serpapi.MapsRequest{
		Query:     ComposeQuery(query, location),
		PageToken: cont.Token,
		Start:     cont.Offset,
		Language:  s.language,
	})
}

func (s *Service) fetch(ctx context.Context, gen Generation, req serpapi.MapsRequest) (PageOutcome, error) {
	resp, err := s.search.MapsSearch(ctx, req)
	if err != nil {
		return PageOutcome{Generation: gen}, eris.Wrap(err, "prospect: fetch page")
	}

	added, err := s.session.AppendPage(gen, resp.LocalResults, paginate.PageResult{
		Count:     len(resp.LocalResults),
		NextToken: resp.Pagination.NextPageToken,
	})
	if err != nil {
		return PageOutcome{Generation: gen}, err
	}

	if s.store != nil && len(added.Listings) > 0 {
		if err := s.store.SaveListings(ctx, string(gen), added.Start, added.Listings); err != nil {
			zap.L().Warn("prospect: persist listings failed", zap.String("generation", string(gen)), zap.Error(err))
		}
	}

	return PageOutcome{
		Generation: gen,
		Added:      len(added.Listings),
		Total:      s.session.Len(),
		Pagination: s.session.Pagination(),
	}, nil
}

// ClassifyOutcome summarizes one AI batch.
type ClassifyOutcome struct {
	Requested int `json:"requested"`
	Applied   int `json:"applied"`
}

// Classify sends the next batch of listings without a verdict to the AI
// classifier. A malformed response fails the whole batch and applies nothing.
func (s *Service) Classify(ctx context.Context) (ClassifyOutcome, error) {
	if s.classifier == nil {
		return ClassifyOutcome{}, ErrNoClassifier
	}
	gen := s.session.Generation()
	if gen == "" {
		return ClassifyOutcome{}, ErrNoSearch
	}
	n := s.session.Niche()
	if n == nil {
		return ClassifyOutcome{}, verdict.ErrNoNiche
	}

	batch := s.session.Unverdicted(s.classifier.BatchSize())
	if len(batch) == 0 {
		return ClassifyOutcome{}, nil
	}

	verdicts, err := s.classifier.Classify(ctx, n, batch)
	if err != nil {
		return ClassifyOutcome{Requested: len(batch)}, eris.Wrap(err, "prospect: classify")
	}

	if cur := s.session.Niche(); cur == nil || cur.ID != n.ID {
		return ClassifyOutcome{Requested: len(batch)}, ErrNicheChanged
	}
	applied, err := s.session.ApplyVerdicts(gen, verdicts)
	if err != nil {
		return ClassifyOutcome{Requested: len(batch)}, err
	}

	if s.store != nil {
		if err := s.store.SaveVerdicts(ctx, string(gen), verdicts); err != nil {
			zap.L().Warn("prospect: persist verdicts failed", zap.String("generation", string(gen)), zap.Error(err))
		}
	}
	return ClassifyOutcome{Requested: len(batch), Applied: applied}, nil
}

// EnrichOutcome summarizes an enrichment run.
type EnrichOutcome struct {
	Requested int `json:"requested"`
	Enriched  int `json:"enriched"`
	Cached    int `json:"cached"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type enrichResult int

const (
	enrichSkipped enrichResult = iota
	enrichFetched
	enrichCached
)

// Enrich enriches the listings with the given ids, or every listing without
// a record when no id is given. Ids that already have a record are no-ops.
// Unknown ids are rejected before any external call.
func (s *Service) Enrich(ctx context.Context, keys ...string) (EnrichOutcome, error) {
	if s.enricher == nil {
		return EnrichOutcome{}, ErrNoEnricher
	}
	gen := s.session.Generation()
	if gen == "" {
		return EnrichOutcome{}, ErrNoSearch
	}

	if len(keys) == 0 {
		keys = s.session.Unenriched()
	}

	seen := make(map[string]bool, len(keys))
	var targets []model.Listing
	var targetKeys []string
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		l, ok := s.session.Listing(k)
		if !ok {
			return EnrichOutcome{}, eris.Wrapf(ErrUnknownListing, "id %s", k)
		}
		targets = append(targets, l)
		targetKeys = append(targetKeys, k)
	}

	out := EnrichOutcome{Requested: len(targets)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range targets {
		key, l := targetKeys[i], targets[i]
		g.Go(func() error {
			v, err, _ := s.flight.Do(string(gen)+"/"+key, func() (any, error) {
				return s.enrichOne(gctx, gen, key, l)
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case eris.Is(err, ErrStaleGeneration):
				return err
			case gctx.Err() != nil:
				return eris.Wrap(gctx.Err(), "prospect: enrich")
			case err != nil:
				zap.L().Warn("prospect: enrichment failed", zap.String("key", key), zap.Error(err))
				out.Failed++
			default:
				switch v.(enrichResult) {
				case enrichFetched:
					out.Enriched++
				case enrichCached:
					out.Cached++
				default:
					out.Skipped++
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	zap.L().Info("prospect: enrichment complete",
		zap.Int("requested", out.Requested),
		zap.Int("enriched", out.Enriched),
		zap.Int("cached", out.Cached),
		zap.Int("skipped", out.Skipped),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

func (s *Service) enrichOne(ctx context.Context, gen Generation, key string, l model.Listing) (enrichResult, error) {
	if s.session.HasEnrichment(key) {
		return enrichSkipped, nil
	}

	if s.store != nil {
		rec, err := s.store.GetEnrichment(ctx, key)
		if err != nil {
			zap.L().Warn("prospect: enrichment cache lookup failed", zap.String("key", key), zap.Error(err))
		} else if rec != nil {
			if _, err := s.session.ApplyEnrichment(gen, key, *rec); err != nil {
				return enrichSkipped, err
			}
			return enrichCached, nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return enrichSkipped, eris.Wrap(err, "prospect: enrich rate limit")
		}
	}

	rec, err := s.enricher.Enrich(ctx, l)
	if err != nil {
		return enrichSkipped, err
	}

	applied, err := s.session.ApplyEnrichment(gen, key, rec)
	if err != nil {
		return enrichSkipped, err
	}
	if !applied {
		return enrichSkipped, nil
	}

	if s.store != nil {
		if err := s.store.SaveEnrichment(ctx, key, rec, s.cacheTTL); err != nil {
			zap.L().Warn("prospect: persist enrichment failed", zap.String("key", key), zap.Error(err))
		}
	}
	return enrichFetched, nil
}
