package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// MaxModelAdjustment bounds how far the learned model can move a base score.
const MaxModelAdjustment = 20.0

// LogisticModel is a trained logistic-regression matcher.
type LogisticModel struct {
	Weights   [ModelFeatureCount]float64
	Intercept float64
}

// DefaultLogisticModel mirrors the training pipeline's fallback estimate.
func DefaultLogisticModel() *LogisticModel {
	return &LogisticModel{Weights: DefaultWeights, Intercept: -0.3}
}

// Probability returns σ(w·x + b).
func (m *LogisticModel) Probability(fv FeatureVector) float64 {
	x := fv.ModelInputs()
	z := m.Intercept
	for i := range x {
		z += m.Weights[i] * x[i]
	}
	return 1 / (1 + math.Exp(-z))
}

// Adjustment maps the probability onto [-MaxModelAdjustment, +MaxModelAdjustment].
func (m *LogisticModel) Adjustment(fv FeatureVector) float64 {
	return clamp((m.Probability(fv)-0.5)*2*MaxModelAdjustment, -MaxModelAdjustment, MaxModelAdjustment)
}

// modelFile is the JSON layout written by the training pipeline.
type modelFile struct {
	MatchingModel struct {
		Weights   []float64       `json:"weights"`
		Intercept float64         `json:"intercept"`
		Metrics   json.RawMessage `json:"metrics"`
	} `json:"matching_model"`
	FeatureNames []string `json:"feature_names"`
}

// featureAliases maps the training pipeline's column names onto
// ModelFeatureNames.
var featureAliases = map[string]string{
	"title_similarity":       "title",
	"description_similarity": "desc",
	"keyword_overlap":        "keyword",
	"category_match":         "category",
	"timing_match":           "timing",
	"sources_match":          "sources",
	"alignment_score":        "alignment",
}

// LoadModelWeights reads a trained model file. Feature names, when present,
// must match ModelFeatureNames in either spelling.
func LoadModelWeights(path string) (*LogisticModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("matching: read model weights: %w", err)
	}
	return ParseModelWeights(raw)
}

// ParseModelWeights decodes a trained model from JSON.
func ParseModelWeights(raw []byte) (*LogisticModel, error) {
	var f modelFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("matching: decode model weights: %w", err)
	}
	if len(f.MatchingModel.Weights) != ModelFeatureCount {
		return nil, fmt.Errorf("matching: model has %d weights, want %d",
			len(f.MatchingModel.Weights), ModelFeatureCount)
	}
	if len(f.FeatureNames) > 0 {
		if len(f.FeatureNames) != ModelFeatureCount {
			return nil, fmt.Errorf("matching: model has %d feature names, want %d",
				len(f.FeatureNames), ModelFeatureCount)
		}
		for i, n := range f.FeatureNames {
			if alias, ok := featureAliases[n]; ok {
				n = alias
			}
			if n != ModelFeatureNames[i] {
				return nil, fmt.Errorf("matching: feature %d is %q, want %q", i, n, ModelFeatureNames[i])
			}
		}
	}
	m := &LogisticModel{Intercept: f.MatchingModel.Intercept}
	copy(m.Weights[:], f.MatchingModel.Weights)
	return m, nil
}

// LogisticBlend adds the learned model's bounded adjustment to a base
// strategy's score.
type LogisticBlend struct {
	base  ScoringStrategy
	model *LogisticModel
}

// NewLogisticBlend wraps base with model.
func NewLogisticBlend(base ScoringStrategy, model *LogisticModel) *LogisticBlend {
	return &LogisticBlend{base: base, model: model}
}

func (b *LogisticBlend) Name() string { return b.base.Name() + "+logistic" }

// CalculateScore returns base ± at most MaxModelAdjustment, clamped to 0-100.
func (b *LogisticBlend) CalculateScore(fv FeatureVector, m1, m2 domain.Market) float64 {
	base := b.base.CalculateScore(fv, m1, m2)
	return clamp(base+b.model.Adjustment(fv), 0, 100)
}
