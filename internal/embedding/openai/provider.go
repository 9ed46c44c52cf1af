// Package openai scores semantic similarity of market texts with OpenAI
// embeddings. Vectors are cached per text so a market embedded once is not
// re-sent on later cycles.
package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sashabaranov/go-openai"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// Config configures the embedding provider.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
	// MaxChars truncates each text before embedding.
	MaxChars int
}

// Provider implements domain.SimilarityProvider.
type Provider struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	timeout  time.Duration
	maxChars int
	cache    *gocache.Cache
}

// New creates a Provider. An API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = openai.SmallEmbedding3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 4000
	}
	return &Provider{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		timeout:  cfg.Timeout,
		maxChars: cfg.MaxChars,
		cache:    gocache.New(cfg.CacheTTL, cfg.CacheTTL/2),
	}, nil
}

var _ domain.SimilarityProvider = (*Provider)(nil)

// Similarity returns the cosine similarity of the two texts' embeddings,
// clamped to [0,1].
func (p *Provider) Similarity(ctx context.Context, text1, text2 string) (float64, error) {
	vecs, err := p.embed(ctx, []string{p.prepare(text1), p.prepare(text2)})
	if err != nil {
		return 0, err
	}
	return math.Max(0, Cosine(vecs[0], vecs[1])), nil
}

func (p *Provider) prepare(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > p.maxChars {
		s = s[:p.maxChars]
	}
	return s
}

// embed returns one vector per input, fetching only the uncached ones.
func (p *Provider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := p.cache.Get(cacheKey(p.model, t)); ok {
			out[i] = v.([]float32)
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: missing,
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create embeddings: %w", err)
	}
	if len(resp.Data) != len(missing) {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", len(missing), len(resp.Data))
	}
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(missing) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		i := missingIdx[d.Index]
		out[i] = d.Embedding
		p.cache.SetDefault(cacheKey(p.model, missing[d.Index]), d.Embedding)
	}
	return out, nil
}

func cacheKey(model openai.EmbeddingModel, text string) string {
	sum := sha256.Sum256([]byte(text))
	return string(model) + ":" + hex.EncodeToString(sum[:])
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// empty, zero or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
