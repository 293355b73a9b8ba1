package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
	"github.com/sells-group/prospect-cli/pkg/serpapi/mocks"
)

func TestGather_FindsAdsAndSocial(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("WebSearch", mock.Anything, "Motosierras del Norte Av. Juárez 10, Durango", 8).
		Return(&serpapi.WebResponse{
			Ads: []serpapi.Ad{{Link: "https://ad.example"}, {Link: "https://ad2.example"}},
			OrganicResults: []serpapi.OrganicResult{
				{Link: "https://motonorte.mx"},
				{Link: "https://www.facebook.com/motonorte"},
				{Link: "https://m.facebook.com/otra"},
				{Link: "https://www.instagram.com/motonorte"},
				{Link: "https://notfacebook.com.evil.io/x"},
			},
		}, nil)

	rating := 4.8
	g := NewGatherer(client)
	s, err := g.Gather(context.Background(), model.Listing{
		Title:   "Motosierras del Norte",
		Address: "Av. Juárez 10, Durango",
		Rating:  &rating,
	})
	require.NoError(t, err)
	assert.True(t, s.HasAds)
	assert.Equal(t, 2, s.AdsCount)
	assert.Equal(t, "https://www.facebook.com/motonorte", s.FacebookURL)
	assert.Equal(t, "https://www.instagram.com/motonorte", s.InstagramURL)
	assert.Equal(t, 4.8, s.Rating)
}

func TestGather_SearchFailureDegrades(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("WebSearch", mock.Anything, "Taller El Pino", 8).
		Return(nil, errors.New("serpapi: web search: unexpected status 500"))

	g := NewGatherer(client)
	s, err := g.Gather(context.Background(), model.Listing{Title: "Taller El Pino", Website: "https://pino.mx"})
	require.NoError(t, err)
	assert.False(t, s.HasAds)
	assert.True(t, s.HasWebsite)
}

func TestGather_CanceledContextFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := mocks.NewMockClient(t)
	client.On("WebSearch", mock.Anything, "Taller", 8).Return(nil, context.Canceled)

	_, err := NewGatherer(client).Gather(ctx, model.Listing{Title: "Taller"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestGather_NoTitle(t *testing.T) {
	client := mocks.NewMockClient(t)
	_, err := NewGatherer(client).Gather(context.Background(), model.Listing{Address: "x"})
	require.ErrorIs(t, err, ErrNoTitle)
	client.AssertNotCalled(t, "WebSearch", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrich_RanksWithClock(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("WebSearch", mock.Anything, "Forestal Sierra", 5).
		Return(&serpapi.WebResponse{Ads: []serpapi.Ad{{Link: "a"}}}, nil)

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	g := NewGatherer(client, WithResultCount(5), WithClock(func() time.Time { return now }))

	rec, err := g.Enrich(context.Background(), model.Listing{Title: "Forestal Sierra"})
	require.NoError(t, err)
	assert.Equal(t, 35, rec.PremiumScore)
	assert.Equal(t, model.RankSilver, rec.PremiumRank)
	assert.Equal(t, now, rec.LastDataCheck)
}

func TestHostIs(t *testing.T) {
	assert.True(t, hostIs("https://facebook.com/a", "facebook.com"))
	assert.True(t, hostIs("https://es-la.facebook.com/a", "facebook.com"))
	assert.False(t, hostIs("https://myfacebook.com/a", "facebook.com"))
	assert.False(t, hostIs("::not a url", "facebook.com"))
}
