package lexical

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/niche"
)

func noCore() *Matcher {
	return NewMatcher(Options{CoreTerms: []string{}})
}

func TestMatch_TitleMatchesBothTokens(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Refacciones y Motosierras del Norte"}

	res := noCore().Match(l, vocab, nil)
	assert.Equal(t, model.StatusRelevant, res.Status)
	assert.Equal(t, 8, res.Score)
	assert.Equal(t, 95, res.Confidence)
	assert.ElementsMatch(t, []string{"refacciones", "motosierras"}, res.MatchedTerms)
	assert.Empty(t, res.MatchedNegatives)
	assert.False(t, res.HardExcluded)
}

func TestMatch_DefaultCoreBonus(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Refacciones y Motosierras del Norte"}

	res := Match(l, vocab, nil)
	assert.Equal(t, model.StatusRelevant, res.Status)
	assert.Equal(t, 8+coreBonus, res.Score)
	assert.Contains(t, res.Reason, "refacciones")
}

func TestMatch_HardExclusionPrecedence(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Refacciones para Licuadoras y Batidoras"}

	res := Match(l, vocab, nil)
	assert.Equal(t, model.StatusDiscard, res.Status)
	assert.Equal(t, -100, res.Score)
	assert.Equal(t, 99, res.Confidence)
	assert.True(t, res.HardExcluded)
	assert.Equal(t, []string{"licuadora", "batidora"}, res.MatchedNegatives)
	assert.Empty(t, res.MatchedTerms)
}

func TestMatch_HardExclusionBeatsManyPositives(t *testing.T) {
	vocab, ok := niche.Builtin().Vocabulary("dealer_specialist")
	require.True(t, ok)
	l := model.Listing{
		Title:       "Motosierras Refacciones Afilado Cadenas Stihl",
		Type:        "Tienda de motosierras",
		Description: "También reparamos estufas",
	}

	res := Match(l, vocab, nil)
	assert.Equal(t, model.StatusDiscard, res.Status)
	assert.Equal(t, -100, res.Score)
	assert.Equal(t, []string{"estufa"}, res.MatchedNegatives)
}

func TestMatch_HardExclusionInAddressAndAccents(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{
		Title:   "Refacciones Motosierras",
		Address: "Plaza Línea Blanca, Local 4",
	}

	res := Match(l, vocab, nil)
	assert.True(t, res.HardExcluded)
	assert.Equal(t, []string{"linea blanca"}, res.MatchedNegatives)
}

func TestMatch_ExclusionNeedsWordStart(t *testing.T) {
	vocab, ok := niche.Builtin().Vocabulary("dealer_specialist")
	require.True(t, ok)

	res := Match(model.Listing{Title: "Motosierras e Hidrolavadoras Stihl Taller"}, vocab, nil)
	assert.False(t, res.HardExcluded)
	assert.NotEqual(t, -100, res.Score)
	assert.Equal(t, model.StatusRelevant, res.Status)
}

func TestMatch_ExclusionExceptions(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"maquinaria agricola"})

	tests := []struct {
		title    string
		excluded bool
	}{
		{"Secadoras de Granos del Bajío", false},
		{"Secadora de granos y secadora de granos", false},
		{"Lavadora a Presión Industrial", false},
		{"Lavadoras y Secadoras Hogar", true},
		{"Secadora de granos y Lavadoras", true},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			res := Match(model.Listing{Title: tt.title}, vocab, nil)
			assert.Equal(t, tt.excluded, res.HardExcluded)
		})
	}
}

func TestMatch_PartialReasonKeepsMatchedTerms(t *testing.T) {
	// weight 3 in the category (6) + core bonus (5) - one negative (10) = 1
	vocab := niche.BuildVocabulary([]string{"aserradero", "aserradero movil", "aserradero portatil"})
	m := NewMatcher(Options{HardExclusions: []string{}, CoreTerms: []string{"stihl"}})
	l := model.Listing{Title: "Servicios", Type: "Aserradero", Description: "stihl usado"}

	res := m.Match(l, vocab, []string{"usado"})
	require.Equal(t, model.StatusNeutral, res.Status)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, []string{"aserradero"}, res.MatchedTerms)
	assert.Contains(t, res.Reason, "Partial match: aserradero, stihl")
}

func TestMatch_CategoryWeight(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Casa Pérez", Type: "Tienda de motosierras"}

	res := noCore().Match(l, vocab, nil)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, model.StatusNeutral, res.Status)
	assert.Equal(t, 50, res.Confidence)
	assert.Equal(t, []string{"motosierras"}, res.MatchedTerms)
	assert.True(t, strings.HasPrefix(res.Reason, "Partial match"))
}

func TestMatch_TitleAndCategoryBothCount(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Motosierras Pérez", Type: "Motosierra"}

	res := noCore().Match(l, vocab, nil)
	assert.Equal(t, 6, res.Score)
	assert.Equal(t, []string{"motosierras"}, res.MatchedTerms)
}

func TestMatch_OncePerField(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"motosierras"})
	l := model.Listing{Title: "Motosierras y motosierras y MOTOSIERRA"}

	res := noCore().Match(l, vocab, nil)
	assert.Equal(t, 4, res.Score)
}

func TestMatch_WeightMultipliesContribution(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"afilado de cadenas", "cadenas para motosierra"})
	require.Equal(t, 2, vocab["cadenas"])
	l := model.Listing{Title: "Cadenas del Bajío"}

	res := noCore().Match(l, vocab, nil)
	assert.Equal(t, 8, res.Score)
	assert.Equal(t, model.StatusRelevant, res.Status)
}

func TestMatch_NicheNegativePenalty(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Jardinería y Refacciones"}

	res := noCore().Match(l, vocab, []string{"Jardinería"})
	assert.Equal(t, 4-10, res.Score)
	assert.Equal(t, model.StatusDiscard, res.Status)
	assert.Equal(t, 85, res.Confidence)
	assert.Equal(t, []string{"jardineria"}, res.MatchedNegatives)
	assert.Contains(t, res.Reason, "jardineria")
	assert.False(t, res.HardExcluded)
}

func TestMatch_NegativeOnlyPenalizes(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Refacciones Motosierras", Description: "Jardinería"}

	res := noCore().Match(l, vocab, []string{"jardineria"})
	assert.Equal(t, -2, res.Score)
	assert.Equal(t, model.StatusDiscard, res.Status)
}

func TestMatch_NoSignal(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})

	res := Match(model.Listing{Title: "Tacos El Güero"}, vocab, nil)
	assert.Equal(t, model.StatusDiscard, res.Status)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 60, res.Confidence)
	assert.Equal(t, "No niche terms matched", res.Reason)
	assert.NotNil(t, res.MatchedTerms)
	assert.NotNil(t, res.MatchedNegatives)
}

func TestMatch_EmptyListing(t *testing.T) {
	res := Match(model.Listing{}, niche.Vocabulary{}, nil)
	assert.Equal(t, model.StatusDiscard, res.Status)
	assert.Equal(t, 0, res.Score)
}

func TestMatch_CoreTermsAlone(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"aserradero"})
	l := model.Listing{Title: "Servicios del Valle", Description: "Distribuidor autorizado Stihl"}

	res := Match(l, vocab, nil)
	assert.Equal(t, coreBonus, res.Score)
	assert.Equal(t, model.StatusRelevant, res.Status)
	assert.Equal(t, "Core domain terms present: stihl", res.Reason)
	assert.Empty(t, res.MatchedTerms)
}

func TestMatch_CoreBonusOnce(t *testing.T) {
	l := model.Listing{Title: "Stihl Husqvarna Forestal"}

	res := Match(l, niche.Vocabulary{}, nil)
	assert.Equal(t, coreBonus, res.Score)
}

func TestMatch_ReasonCapsTerms(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"alpha bravo charlie delta echo"})
	l := model.Listing{Title: "Alpha Bravo Charlie Delta Echo"}

	res := noCore().Match(l, vocab, nil)
	require.Len(t, res.MatchedTerms, 5)
	assert.Equal(t, 2, strings.Count(res.Reason, ","))
}

func TestMatch_AccentInsensitive(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"reparación de motosierras"})
	l := model.Listing{Title: "REPARACION DE MOTOSIERRAS"}

	res := noCore().Match(l, vocab, nil)
	assert.Equal(t, 8, res.Score)
}

func TestMatch_Idempotent(t *testing.T) {
	vocab, ok := niche.Builtin().Vocabulary("dealer_specialist")
	require.True(t, ok)
	l := model.Listing{
		Title:       "Motosierras y Refacciones El Pino",
		Type:        "Tienda de herramientas",
		Description: "Afilado de cadenas",
		Address:     "Durango, Dgo.",
	}
	negatives := []string{"ferreteria"}

	m := NewMatcher(Options{})
	first := m.Match(l, vocab, negatives)
	second := m.Match(l, vocab, negatives)
	assert.Equal(t, first, second)
}

func TestMatch_ConcurrentUse(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	l := model.Listing{Title: "Refacciones y Motosierras del Norte"}
	want := Match(l, vocab, nil)

	var wg sync.WaitGroup
	results := make([]model.LexicalMatch, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Match(l, vocab, nil)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestMatch_DisabledHardExclusions(t *testing.T) {
	vocab := niche.BuildVocabulary([]string{"refacciones para motosierras"})
	m := NewMatcher(Options{HardExclusions: []string{}, CoreTerms: []string{}})

	res := m.Match(model.Listing{Title: "Refacciones para Licuadoras"}, vocab, nil)
	assert.False(t, res.HardExcluded)
	assert.Equal(t, 4, res.Score)
}

func TestStemMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"motosierra", "motosierras", true},
		{"cadenas", "cadena", true},
		{"pino", "pinos", true},
		{"afilado", "afilador", true},
		{"sal", "salsa", false},
		{"de", "de", true},
		{"tienda", "taller", false},
		{"pinos", "pinzas", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, StemMatch(tt.a, tt.b))
		})
	}
}
