package matching

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// Subject-conflict gating factors.
const (
	conflictSimilarityFactor = 0.3
	conflictAlignmentCap     = 40.0
	conflictConfidenceCap    = 0.3
	conflictCategoryConf     = 0.1
	timingWindowDays         = 7.0
	shortRulesRatio          = 0.3
)

// FeatureVector holds the pairwise features of two markets. Similarities and
// the alignment score are on a 0-100 scale; ratios and match flags are in
// [0,1]. TemporalDistanceDays is -1 when unknown.
type FeatureVector struct {
	TitleSimilarity       float64 `json:"title_similarity"`
	DescriptionSimilarity float64 `json:"description_similarity"`
	KeywordOverlap        float64 `json:"keyword_overlap"`
	CategoryMatch         float64 `json:"category_match"`
	TimingMatch           float64 `json:"timing_match"`
	SourcesMatch          float64 `json:"sources_match"`
	AlignmentScore        float64 `json:"alignment_score"`
	VolumeRatio           float64 `json:"volume_ratio"`
	PriceCorrelation      float64 `json:"price_correlation"`
	LengthRatio           float64 `json:"length_ratio"`
	AvgWordCount          float64 `json:"avg_word_count"`
	EmbeddingSimilarity   float64 `json:"embedding_similarity"`
	TemporalDistanceDays  float64 `json:"temporal_distance_days"`
	OutcomeMatch          float64 `json:"outcome_match"`

	Confidence      FeatureConfidence `json:"confidence"`
	SubjectConflict SubjectConflict   `json:"subject_conflict"`
}

// FeatureConfidence carries a [0,1] trust weight per feature.
type FeatureConfidence struct {
	TitleSimilarity       float64 `json:"title_similarity"`
	DescriptionSimilarity float64 `json:"description_similarity"`
	KeywordOverlap        float64 `json:"keyword_overlap"`
	CategoryMatch         float64 `json:"category_match"`
	TimingMatch           float64 `json:"timing_match"`
	SourcesMatch          float64 `json:"sources_match"`
	AlignmentScore        float64 `json:"alignment_score"`
	VolumeRatio           float64 `json:"volume_ratio"`
	PriceCorrelation      float64 `json:"price_correlation"`
	LengthRatio           float64 `json:"length_ratio"`
	AvgWordCount          float64 `json:"avg_word_count"`
	EmbeddingSimilarity   float64 `json:"embedding_similarity"`
	TemporalDistanceDays  float64 `json:"temporal_distance_days"`
	OutcomeMatch          float64 `json:"outcome_match"`
}

// ModelFeatureNames is the feature order of ModelInputs and of the learned
// weight files.
var ModelFeatureNames = [ModelFeatureCount]string{
	"title", "desc", "keyword", "category", "timing", "sources",
	"alignment", "volume_ratio", "price_correlation", "length_ratio", "avg_word_count",
}

// ModelFeatureCount is the length of the learned-model input vector.
const ModelFeatureCount = 11

// ModelInputs returns the features scaled to roughly [0,1] in
// ModelFeatureNames order.
func (f FeatureVector) ModelInputs() [ModelFeatureCount]float64 {
	return [ModelFeatureCount]float64{
		f.TitleSimilarity / 100,
		f.DescriptionSimilarity / 100,
		f.KeywordOverlap / 100,
		f.CategoryMatch,
		f.TimingMatch,
		f.SourcesMatch,
		f.AlignmentScore / 100,
		f.VolumeRatio,
		f.PriceCorrelation,
		f.LengthRatio,
		f.AvgWordCount / 20,
	}
}

// ModelConfidences returns the confidences in ModelFeatureNames order.
func (f FeatureVector) ModelConfidences() [ModelFeatureCount]float64 {
	c := f.Confidence
	return [ModelFeatureCount]float64{
		c.TitleSimilarity, c.DescriptionSimilarity, c.KeywordOverlap,
		c.CategoryMatch, c.TimingMatch, c.SourcesMatch, c.AlignmentScore,
		c.VolumeRatio, c.PriceCorrelation, c.LengthRatio, c.AvgWordCount,
	}
}

// FeatureExtractor computes FeatureVectors. The similarity provider is
// optional.
type FeatureExtractor struct {
	similarity domain.SimilarityProvider
	subjects   *SubjectConflictDetector
	logger     *slog.Logger
}

// NewFeatureExtractor creates an extractor. provider may be nil.
func NewFeatureExtractor(provider domain.SimilarityProvider, logger *slog.Logger) *FeatureExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureExtractor{
		similarity: provider,
		subjects:   NewSubjectConflictDetector(),
		logger:     logger.With(slog.String("component", "feature_extractor")),
	}
}

// Extract computes the feature vector of (m1, m2). Subject-conflict gating
// is applied after every other feature has been computed.
func (e *FeatureExtractor) Extract(ctx context.Context, m1, m2 domain.Market) FeatureVector {
	var fv FeatureVector
	c := &fv.Confidence

	t1, t2 := Normalize(m1.Title), Normalize(m2.Title)
	fv.TitleSimilarity = 100 * max(LevenshteinSimilarity(t1, t2), Jaccard(WordSet(t1), WordSet(t2)))
	c.TitleSimilarity = 1.0
	if len(strings.Fields(t1)) < 3 || len(strings.Fields(t2)) < 3 {
		c.TitleSimilarity = 0.7
	}

	if strings.TrimSpace(m1.Description) == "" || strings.TrimSpace(m2.Description) == "" {
		fv.DescriptionSimilarity = 0
		c.DescriptionSimilarity = 0.2
	} else {
		fv.DescriptionSimilarity = 100 * Jaccard(Tokens(m1.Description), Tokens(m2.Description))
		c.DescriptionSimilarity = 0.9
	}

	k1, k2 := Keywords(m1.Text()), Keywords(m2.Text())
	fv.KeywordOverlap = 100 * Jaccard(k1, k2)
	c.KeywordOverlap = 0.9

	cat1, cat2 := Categories(m1), Categories(m2)
	if CategoriesOverlap(cat1, cat2) {
		fv.CategoryMatch = 1
	}
	c.CategoryMatch = 0.8
	if len(cat1) == 0 || len(cat2) == 0 {
		c.CategoryMatch = 0.4
	}

	fv.TemporalDistanceDays = -1
	switch {
	case m1.CloseTime != nil && m2.CloseTime != nil:
		days := math.Abs(m1.CloseTime.Sub(*m2.CloseTime).Hours()) / 24
		fv.TemporalDistanceDays = days
		c.TemporalDistanceDays = 0.9
		if days <= timingWindowDays {
			fv.TimingMatch = 1
		}
		c.TimingMatch = 0.9
	default:
		if dist, ok := YearDistance(Years(m1), Years(m2)); ok {
			if dist == 0 {
				fv.TimingMatch = 1
			}
			fv.TemporalDistanceDays = float64(dist) * 365
			c.TimingMatch = 0.6
			c.TemporalDistanceDays = 0.3
		} else {
			c.TimingMatch = 0.3
		}
	}

	s1 := Sources(m1.Text() + " " + m1.RulesText())
	s2 := Sources(m2.Text() + " " + m2.RulesText())
	if SourcesOverlap(s1, s2) {
		fv.SourcesMatch = 1
	}
	c.SourcesMatch = 0.7
	if len(s1) == 0 || len(s2) == 0 {
		c.SourcesMatch = 0.3
	}

	len1, len2 := len(m1.Text()), len(m2.Text())
	if longest := max(len1, len2); longest > 0 {
		fv.LengthRatio = float64(min(len1, len2)) / float64(longest)
	}
	c.LengthRatio = 0.8

	fv.AlignmentScore = 100
	if fv.SourcesMatch == 0 {
		fv.AlignmentScore -= 40
	}
	if fv.TimingMatch == 0 {
		fv.AlignmentScore -= 20
	}
	if fv.LengthRatio < shortRulesRatio {
		fv.AlignmentScore -= 15
	}
	fv.AlignmentScore = max(fv.AlignmentScore, 0)
	c.AlignmentScore = 0.7

	if m1.Volume24h > 0 && m2.Volume24h > 0 {
		fv.VolumeRatio = min(m1.Volume24h, m2.Volume24h) / max(m1.Volume24h, m2.Volume24h)
		c.VolumeRatio = 0.6
	} else {
		c.VolumeRatio = 0.1
	}

	if m1.LastYesPrice > 0 && m2.LastYesPrice > 0 {
		fv.PriceCorrelation = 1 - math.Abs(m1.LastYesPrice-m2.LastYesPrice)
		c.PriceCorrelation = 0.5
	} else {
		fv.PriceCorrelation = 0.5
		c.PriceCorrelation = 0.1
	}

	fv.AvgWordCount = float64(len(strings.Fields(m1.Title))+len(strings.Fields(m2.Title))) / 2
	c.AvgWordCount = 0.5

	fv.EmbeddingSimilarity, c.EmbeddingSimilarity = e.embedding(ctx, m1, m2, &fv)

	fv.OutcomeMatch = 1
	if OutcomesConflict(OutcomeLabel(m1), OutcomeLabel(m2)) || partiesOpposed(Parties(m1), Parties(m2)) {
		fv.OutcomeMatch = 0
	}
	c.OutcomeMatch = 0.8

	fv.SubjectConflict = e.subjects.Detect(m1, m2)
	if fv.SubjectConflict.Conflict {
		applySubjectGate(&fv)
	}
	return fv
}

// embedding asks the provider for a semantic similarity and falls back to
// the mean of the heuristic text similarities.
func (e *FeatureExtractor) embedding(ctx context.Context, m1, m2 domain.Market, fv *FeatureVector) (float64, float64) {
	if e.similarity != nil {
		sim, err := e.similarity.Similarity(ctx, m1.Text(), m2.Text())
		if err == nil {
			return 100 * clamp(sim, 0, 1), 0.9
		}
		e.logger.DebugContext(ctx, "similarity provider failed, using heuristic fallback",
			slog.String("market1", m1.ID),
			slog.String("market2", m2.ID),
			slog.String("error", err.Error()),
		)
	}
	return (fv.TitleSimilarity + fv.DescriptionSimilarity + fv.KeywordOverlap) / 3, 0.3
}

func applySubjectGate(fv *FeatureVector) {
	fv.TitleSimilarity *= conflictSimilarityFactor
	fv.DescriptionSimilarity *= conflictSimilarityFactor
	fv.KeywordOverlap *= conflictSimilarityFactor
	fv.EmbeddingSimilarity *= conflictSimilarityFactor
	fv.CategoryMatch = 0
	fv.AlignmentScore = min(fv.AlignmentScore, conflictAlignmentCap)

	c := &fv.Confidence
	c.TitleSimilarity = min(c.TitleSimilarity, conflictConfidenceCap)
	c.DescriptionSimilarity = min(c.DescriptionSimilarity, conflictConfidenceCap)
	c.KeywordOverlap = min(c.KeywordOverlap, conflictConfidenceCap)
	c.EmbeddingSimilarity = min(c.EmbeddingSimilarity, conflictConfidenceCap)
	c.CategoryMatch = min(c.CategoryMatch, conflictCategoryConf)
	c.AlignmentScore = min(c.AlignmentScore, conflictConfidenceCap)
}

// partiesOpposed is true when one side names only Republicans and the other
// only Democrats.
func partiesOpposed(a, b []string) bool {
	if len(a) != 1 || len(b) != 1 {
		return false
	}
	return a[0] != b[0]
}
