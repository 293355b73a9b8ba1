package niche

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildVocabulary_DropsStopWordsAndShortTokens(t *testing.T) {
	v := BuildVocabulary([]string{"refacciones para motosierras"})
	assert.Equal(t, Vocabulary{"refacciones": 1, "motosierras": 1}, v)
}

func TestBuildVocabulary_WeightCountsDistinctPhrases(t *testing.T) {
	v := BuildVocabulary([]string{
		"Taller de afilado de cadenas",
		"Venta de limas y accesorios de afilado",
		"Afilado afilado afilado",
		"Barras y cadenas",
	})
	assert.Equal(t, 3, v["afilado"])
	assert.Equal(t, 2, v["cadenas"])
	assert.Equal(t, 1, v["taller"])
	assert.Equal(t, 1, v["limas"])
	assert.NotContains(t, v, "venta")
	assert.NotContains(t, v, "de")
}

func TestBuildVocabulary_FoldsAccents(t *testing.T) {
	v := BuildVocabulary([]string{"Reparación de equipos", "reparacion de motores"})
	assert.Equal(t, 2, v["reparacion"])
}

func TestBuildVocabulary_Empty(t *testing.T) {
	assert.Empty(t, BuildVocabulary(nil))
	assert.Empty(t, BuildVocabulary([]string{"", "de la y"}))
}

func TestBuildVocabulary_BuiltinHasNoStopWordsOrShortTokens(t *testing.T) {
	for _, n := range Builtin().All() {
		t.Run(n.ID, func(t *testing.T) {
			v := n.Vocabulary()
			assert.NotEmpty(t, v)
			for tok, w := range v {
				assert.False(t, IsStopWord(tok), "stop-word %q in vocabulary", tok)
				assert.Greater(t, utf8.RuneCountInString(tok), 3, "short token %q", tok)
				assert.GreaterOrEqual(t, w, 1)
				assert.LessOrEqual(t, w, len(n.Keywords))
			}
		})
	}
}

func TestBuildVocabulary_DealerSpecialistWeights(t *testing.T) {
	v := Builtin().niches[0].Vocabulary()
	assert.Equal(t, 2, v["refacciones"])
	assert.Equal(t, 2, v["motosierras"])
	assert.Equal(t, 2, v["motosierra"])
	assert.Equal(t, 2, v["afilado"])
	assert.Equal(t, 1, v["sprocket"])
	assert.Equal(t, 1, v["pinones"])
}

func TestVocabulary_TermsOrder(t *testing.T) {
	v := Vocabulary{"cadenas": 1, "afilado": 3, "barras": 1, "motosierra": 2}
	terms := v.Terms()
	assert.Equal(t, []Term{
		{Token: "afilado", Weight: 3},
		{Token: "motosierra", Weight: 2},
		{Token: "barras", Weight: 1},
		{Token: "cadenas", Weight: 1},
	}, terms)
}
