package prospect

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/niche"
)

func listing(id, title string) model.Listing {
	return model.Listing{PlaceID: id, Title: title}
}

func page(prefix string, n int) []model.Listing {
	out := make([]model.Listing, n)
	for i := range out {
		out[i] = listing(prefix+string(rune('a'+i)), "Negocio "+prefix)
	}
	return out
}

// fakeClassifier implements Classifier for testing.
type fakeClassifier struct {
	batchSize int
	verdicts  map[string]model.AIVerdict
	err       error
	during    func()

	mu   sync.Mutex
	seen [][]model.Listing
}

func (f *fakeClassifier) Classify(_ context.Context, _ *niche.Niche, listings []model.Listing) (map[string]model.AIVerdict, error) {
	f.mu.Lock()
	f.seen = append(f.seen, listings)
	f.mu.Unlock()
	if f.during != nil {
		f.during()
	}
	return f.verdicts, f.err
}

func (f *fakeClassifier) BatchSize() int { return f.batchSize }

// fakeEnricher implements Enricher for testing.
type fakeEnricher struct {
	calls  atomic.Int32
	err    error
	during func()
}

func (f *fakeEnricher) Enrich(_ context.Context, l model.Listing) (model.EnrichmentRecord, error) {
	f.calls.Add(1)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return model.EnrichmentRecord{}, f.err
	}
	return model.EnrichmentRecord{
		PremiumScore: 45,
		PremiumRank:  model.RankSilver,
		Reasons:      []string{"Owns a website", l.Title},
	}, nil
}
