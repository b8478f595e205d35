package analysis

import (
	"context"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Metric names, as persisted and exposed to the frontend.
const (
	MetricOriginality     = "originality_score"
	MetricCoherence       = "coherence_score"
	MetricTopicRelevance  = "topic_relevance_score"
	MetricDepthOfAnalysis = "depth_of_analysis_score"
	MetricKeywordDensity  = "keyword_density_score"
)

// MetricNames lists the five metrics in canonical order.
var MetricNames = []string{
	MetricOriginality,
	MetricCoherence,
	MetricTopicRelevance,
	MetricDepthOfAnalysis,
	MetricKeywordDensity,
}

// Embedder produces sentence embeddings. Implementations wrap an external
// embedding model; the model is a process-wide read-only resource.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Scores is the five-metric quality assessment of one submission. Every value
// is in [0,10].
type Scores struct {
	Originality     float64 `json:"originality_score"`
	Coherence       float64 `json:"coherence_score"`
	TopicRelevance  float64 `json:"topic_relevance_score"`
	DepthOfAnalysis float64 `json:"depth_of_analysis_score"`
	KeywordDensity  float64 `json:"keyword_density_score"`
}

// Metric returns the value of the named metric; unknown names yield 0.
func (s Scores) Metric(name string) float64 {
	switch name {
	case MetricOriginality:
		return s.Originality
	case MetricCoherence:
		return s.Coherence
	case MetricTopicRelevance:
		return s.TopicRelevance
	case MetricDepthOfAnalysis:
		return s.DepthOfAnalysis
	case MetricKeywordDensity:
		return s.KeywordDensity
	}
	return 0
}

// Overall is the floor of the mean of the five metrics.
func (s Scores) Overall() int {
	sum := s.Originality + s.Coherence + s.TopicRelevance + s.DepthOfAnalysis + s.KeywordDensity
	return int(math.Floor(sum / 5))
}

// Scorer computes quality metrics. Stateless apart from the shared embedder.
type Scorer struct {
	embedder Embedder
}

func NewScorer(embedder Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// ScoreAll computes the five metrics concurrently. The metrics share no
// mutable state; the first error fails the stage.
func (sc *Scorer) ScoreAll(ctx context.Context, text string, expectedKeywords []string) (Scores, error) {
	keywords := lowerAll(expectedKeywords)

	var scores Scores
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { scores.Originality = Originality(text); return nil })
	g.Go(func() error {
		var err error
		scores.Coherence, err = sc.CoherenceScore(gctx, text)
		return err
	})
	g.Go(func() error { scores.TopicRelevance = TopicRelevance(text, keywords); return nil })
	g.Go(func() error { scores.DepthOfAnalysis = DepthOfAnalysis(text); return nil })
	g.Go(func() error { scores.KeywordDensity = KeywordDensity(text, keywords); return nil })
	if err := g.Wait(); err != nil {
		return Scores{}, err
	}
	return scores, nil
}

// Originality is 10 x (unique tokens / total tokens); 0 for empty text.
func Originality(text string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		unique[tok] = struct{}{}
	}
	return clamp(10 * float64(len(unique)) / float64(len(tokens)))
}

// CoherenceScore is 10 x the mean cosine similarity between embeddings of each
// pair of consecutive sentences. Fewer than 2 sentences is vacuously perfect.
// Each unique sentence is embedded exactly once.
func (sc *Scorer) CoherenceScore(ctx context.Context, text string) (float64, error) {
	sentences := SplitSentences(text)
	if len(sentences) < 2 {
		return 10.0, nil
	}

	embeddings, err := sc.embedSentences(ctx, sentences)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 1; i < len(embeddings); i++ {
		sum += cosine(embeddings[i-1], embeddings[i])
	}
	return clamp(10 * sum / float64(len(embeddings)-1)), nil
}

// embedSentences calls the embedder once for the deduplicated sentence list
// and maps the results back to sentence positions.
func (sc *Scorer) embedSentences(ctx context.Context, sentences []string) ([][]float64, error) {
	uniqueIdx := make(map[string]int)
	var unique []string
	for _, s := range sentences {
		if _, ok := uniqueIdx[s]; !ok {
			uniqueIdx[s] = len(unique)
			unique = append(unique, s)
		}
	}

	vecs, err := sc.embedder.Embed(ctx, unique)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(sentences))
	for i, s := range sentences {
		out[i] = vecs[uniqueIdx[s]]
	}
	return out, nil
}

// TopicRelevance is 10 x (matched expected keywords found among the text's
// tokens / expected keyword count); vacuously perfect without keywords.
func TopicRelevance(text string, expectedKeywords []string) float64 {
	if len(expectedKeywords) == 0 {
		return 10.0
	}
	kwSet := make(map[string]struct{}, len(expectedKeywords))
	for _, kw := range expectedKeywords {
		kwSet[strings.ToLower(kw)] = struct{}{}
	}

	var matched int
	for _, tok := range Tokenize(text) {
		if _, ok := kwSet[tok]; ok {
			matched++
		}
	}
	return clamp(10 * float64(matched) / float64(len(expectedKeywords)))
}

// DepthOfAnalysis is min(10, average sentence length in tokens / 2.5).
func DepthOfAnalysis(text string) float64 {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return 0
	}
	var total int
	for _, s := range sentences {
		total += len(Tokenize(s))
	}
	avg := float64(total) / float64(len(sentences))
	return clamp(math.Min(10, avg/2.5))
}

// KeywordDensity is min(10, 200 x keyword occurrences / total tokens); 0 for
// empty text.
func KeywordDensity(text string, expectedKeywords []string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	kwSet := make(map[string]struct{}, len(expectedKeywords))
	for _, kw := range expectedKeywords {
		kwSet[strings.ToLower(kw)] = struct{}{}
	}

	var count int
	for _, tok := range tokens {
		if _, ok := kwSet[tok]; ok {
			count++
		}
	}
	return clamp(math.Min(10, 200*float64(count)/float64(len(tokens))))
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(10, v))
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
