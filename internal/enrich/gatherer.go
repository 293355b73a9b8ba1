package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

// ErrNoTitle is returned for listings without a title to search for.
var ErrNoTitle = eris.New("enrich: listing has no title")

const defaultResultCount = 8

// Gatherer collects enrichment signals with one web search per listing and,
// when a site scanner is set, a look at the listing's own homepage.
type Gatherer struct {
	client      serpapi.Client
	site        *SiteScanner
	resultCount int
	now         func() time.Time
}

// GathererOption configures a Gatherer.
type GathererOption func(*Gatherer)

// WithResultCount sets how many organic results are requested.
func WithResultCount(n int) GathererOption {
	return func(g *Gatherer) {
		if n > 0 {
			g.resultCount = n
		}
	}
}

// WithSiteScanner fills social links the web search missed from the
// listing's homepage.
func WithSiteScanner(sc *SiteScanner) GathererOption {
	return func(g *Gatherer) {
		g.site = sc
	}
}

// WithClock overrides the time source used for LastDataCheck.
func WithClock(now func() time.Time) GathererOption {
	return func(g *Gatherer) {
		g.now = now
	}
}

// NewGatherer creates a Gatherer backed by client.
func NewGatherer(client serpapi.Client, opts ...GathererOption) *Gatherer {
	g := &Gatherer{
		client:      client,
		resultCount: defaultResultCount,
		now:         time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Gather searches the web for the listing and combines what it finds with
// the listing's own signals. A failed search or site scan degrades to the
// signals gathered so far.
func (g *Gatherer) Gather(ctx context.Context, l model.Listing) (Signals, error) {
	if strings.TrimSpace(l.Title) == "" {
		return Signals{}, ErrNoTitle
	}

	s := SignalsFromListing(l)
	query := strings.TrimSpace(l.Title + " " + l.Address)

	resp, err := g.client.WebSearch(ctx, query, g.resultCount)
	switch {
	case err != nil && ctx.Err() != nil:
		return Signals{}, eris.Wrap(ctx.Err(), "enrich: gather")
	case err != nil:
		zap.L().Warn("enrich: web search failed, using listing signals only",
			zap.String("title", l.Title),
			zap.Error(err),
		)
	default:
		s.AdsCount = len(resp.Ads)
		s.HasAds = s.AdsCount > 0
		for _, r := range resp.OrganicResults {
			if s.FacebookURL == "" && hostIs(r.Link, "facebook.com") {
				s.FacebookURL = r.Link
			}
			if s.InstagramURL == "" && hostIs(r.Link, "instagram.com") {
				s.InstagramURL = r.Link
			}
		}
	}

	if g.site != nil && l.HasWebsite() && (s.FacebookURL == "" || s.InstagramURL == "") {
		links, err := g.site.Scan(ctx, l.Website)
		if err != nil {
			if ctx.Err() != nil {
				return Signals{}, eris.Wrap(ctx.Err(), "enrich: gather")
			}
			zap.L().Debug("enrich: site scan failed", zap.String("website", l.Website), zap.Error(err))
			return s, nil
		}
		if s.FacebookURL == "" {
			s.FacebookURL = links.FacebookURL
		}
		if s.InstagramURL == "" {
			s.InstagramURL = links.InstagramURL
		}
	}
	return s, nil
}

// Enrich gathers signals and ranks them.
func (g *Gatherer) Enrich(ctx context.Context, l model.Listing) (model.EnrichmentRecord, error) {
	s, err := g.Gather(ctx, l)
	if err != nil {
		return model.EnrichmentRecord{}, err
	}
	return Rank(s, g.now()), nil
}

func hostIs(link, domain string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}
