package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range DefaultWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestHeuristicStrategyBounds(t *testing.T) {
	s := NewHeuristicStrategy("default", DefaultWeights)
	full := FeatureVector{
		TitleSimilarity: 100, DescriptionSimilarity: 100, KeywordOverlap: 100,
		CategoryMatch: 1, TimingMatch: 1, SourcesMatch: 1, AlignmentScore: 100,
		VolumeRatio: 1, PriceCorrelation: 1, LengthRatio: 1, AvgWordCount: 40,
		Confidence: FeatureConfidence{
			TitleSimilarity: 1, DescriptionSimilarity: 1, KeywordOverlap: 1,
			CategoryMatch: 1, TimingMatch: 1, SourcesMatch: 1, AlignmentScore: 1,
			VolumeRatio: 1, PriceCorrelation: 1, LengthRatio: 1, AvgWordCount: 1,
		},
	}
	assert.InDelta(t, 100.0, s.CalculateScore(full, domain.Market{}, domain.Market{}), 1e-9)
	assert.Equal(t, 0.0, s.CalculateScore(FeatureVector{}, domain.Market{}, domain.Market{}))
}

func TestHeuristicStrategyAgreementScoresFull(t *testing.T) {
	agree := FeatureVector{
		TitleSimilarity: 100, DescriptionSimilarity: 100, KeywordOverlap: 100,
		CategoryMatch: 1, TimingMatch: 1, SourcesMatch: 1, AlignmentScore: 100,
		VolumeRatio: 1, PriceCorrelation: 1, LengthRatio: 1, AvgWordCount: 20,
		Confidence: FeatureConfidence{
			TitleSimilarity: 1, DescriptionSimilarity: 0.9, KeywordOverlap: 0.9,
			CategoryMatch: 0.8, TimingMatch: 0.9, SourcesMatch: 0.7, AlignmentScore: 0.7,
			VolumeRatio: 0.6, PriceCorrelation: 0.5, LengthRatio: 0.8, AvgWordCount: 0.5,
		},
	}
	r := DefaultStrategyRegistry()
	for _, ex := range []domain.Exchange{domain.ExchangePolymarket, domain.ExchangePredictIt, "other"} {
		s := r.GetStrategy(domain.ExchangeKalshi, ex)
		assert.InDelta(t, 100.0, s.CalculateScore(agree, domain.Market{}, domain.Market{}), 1e-9, s.Name())
	}
}

func trumpPair() (domain.Market, domain.Market) {
	closeK := time.Date(2024, 11, 5, 23, 0, 0, 0, time.UTC)
	closeP := closeK.Add(13 * time.Hour)
	k := domain.Market{
		ID: "PRES-24-DJT", Exchange: domain.ExchangeKalshi,
		Title:       "Will Donald Trump win the 2024 presidential election?",
		Description: "If Donald Trump wins the 2024 presidential election as called by the Associated Press, Fox News and NBC by November 5, 2024, the market resolves to Yes.",
		CloseTime:   &closeK, Volume24h: 80000, LastYesPrice: 0.50,
	}
	p := domain.Market{
		ID: "presidential-election-winner-2024", Exchange: domain.ExchangePolymarket,
		Title:       "Presidential Election Winner 2024: Donald Trump",
		Description: "This market will resolve to Yes if Donald Trump is called the winner of the 2024 presidential election by the Associated Press, Fox News and NBC by November 5, 2024.",
		CloseTime:   &closeP, Volume24h: 100000, LastYesPrice: 0.55,
	}
	return k, p
}

func TestMatchScorerDifferentlyPhrasedPair(t *testing.T) {
	k, p := trumpPair()
	fv := NewFeatureExtractor(nil, nil).Extract(context.Background(), k, p)
	require.False(t, fv.SubjectConflict.Conflict, fv.SubjectConflict.Reason)

	score := NewMatchScorer(nil, nil, nil).Score(fv, k, p)
	assert.GreaterOrEqual(t, score, 60.0)
	assert.Less(t, score, 100.0)
}

func TestGetStrategyFallbackAndOrderIndependence(t *testing.T) {
	fallback := NewHeuristicStrategy("fallback", DefaultWeights)
	r := NewStrategyRegistry(fallback)
	kp := NewHeuristicStrategy("kp", DefaultWeights)
	r.Register(domain.ExchangeKalshi, domain.ExchangePolymarket, kp)

	assert.Same(t, kp, r.GetStrategy(domain.ExchangeKalshi, domain.ExchangePolymarket))
	assert.Same(t, kp, r.GetStrategy(domain.ExchangePolymarket, domain.ExchangeKalshi))
	assert.Same(t, fallback, r.GetStrategy(domain.ExchangeKalshi, domain.ExchangePredictIt))
	assert.Same(t, fallback, r.GetStrategy("unknown", "other"))
	assert.Equal(t, []string{"kalshi:polymarket"}, r.List())
}

func TestLogisticBlendStaysWithinTwentyPoints(t *testing.T) {
	base := NewHeuristicStrategy("default", DefaultWeights)
	heavy := &LogisticModel{Intercept: 50}
	for i := range heavy.Weights {
		heavy.Weights[i] = 10
	}
	models := []*LogisticModel{DefaultLogisticModel(), heavy, {Intercept: -50}}

	e := NewFeatureExtractor(nil, nil)
	k, p := electionPair()
	vectors := []FeatureVector{
		{},
		e.Extract(context.Background(), k, p),
		e.Extract(context.Background(),
			kalshiMarket("KXPRES-28", "Will X win the 2028 presidential election?"),
			polyMarket("h", "Next president of Honduras?")),
	}
	for _, m := range models {
		blend := NewLogisticBlend(base, m)
		for _, fv := range vectors {
			b := base.CalculateScore(fv, k, p)
			got := blend.CalculateScore(fv, k, p)
			assert.LessOrEqual(t, got-b, MaxModelAdjustment+1e-9)
			assert.GreaterOrEqual(t, got-b, -MaxModelAdjustment-1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		}
	}
}

func TestMatchScorerUsesModelWhenLoaded(t *testing.T) {
	k, p := electionPair()
	fv := NewFeatureExtractor(nil, nil).Extract(context.Background(), k, p)

	plain := NewMatchScorer(nil, nil, nil)
	blended := NewMatchScorer(nil, DefaultLogisticModel(), nil)

	base := plain.Score(fv, k, p)
	adj := DefaultLogisticModel().Adjustment(fv)
	assert.InDelta(t, clamp(base+adj, 0, 100), blended.Score(fv, k, p), 1e-9)
	assert.Equal(t, "kalshi_polymarket", plain.GetStrategy(k.Exchange, p.Exchange).Name())
}

func TestParseModelWeights(t *testing.T) {
	raw := []byte(`{
		"matching_model": {
			"weights": [0.12, 0.08, 0.25, 0.15, 0.10, 0.12, 0.08, 0.03, 0.03, 0.02, 0.02],
			"intercept": -0.3,
			"metrics": {
				"accuracy": 100.0, "precision": 100.0, "recall": 100.0, "f1_score": 100.0,
				"confusion_matrix": {"tp": 3, "fp": 0, "fn": 0, "tn": 2}
			}
		},
		"resolution_model": {"feature_importances": [0.4, 0.3, 0.2, 0.1], "intercept": -0.2},
		"feature_names": ["title_similarity", "description_similarity", "keyword_overlap",
			"category_match", "timing_match", "sources_match", "alignment_score",
			"volume_ratio", "price_correlation", "length_ratio", "avg_word_count"],
		"training_info": {"n_samples": 5, "n_augmented": 100, "sklearn_available": true}
	}`)
	m, err := ParseModelWeights(raw)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights, m.Weights)
	assert.Equal(t, -0.3, m.Intercept)

	_, err = ParseModelWeights([]byte(`{"matching_model": {"weights": [0,0,0,0,0,0,0,0,0,0,0]},
		"feature_names": ["title", "desc", "keyword", "category", "timing", "sources",
			"alignment", "volume_ratio", "price_correlation", "length_ratio", "avg_word_count"]}`))
	assert.NoError(t, err)

	_, err = ParseModelWeights([]byte(`{"matching_model": {"weights": [1, 2]}}`))
	assert.Error(t, err)

	_, err = ParseModelWeights([]byte(`{"matching_model": {"weights": [0,0,0,0,0,0,0,0,0,0,0]},
		"feature_names": ["description_similarity","title_similarity","keyword_overlap","category_match","timing_match","sources_match","alignment_score","volume_ratio","price_correlation","length_ratio","avg_word_count"]}`))
	assert.ErrorContains(t, err, "feature 0")

	_, err = LoadModelWeights("testdata/does-not-exist.json")
	assert.Error(t, err)
}
