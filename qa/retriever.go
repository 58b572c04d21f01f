package qa

import (
	"context"
	"fmt"
	"math"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// Retriever ranks candidate passages by relevance to a question.
type Retriever interface {
	Rank(ctx context.Context, question string, docs []string) ([]string, error)
}

// EmbeddingRetriever embeds the question and passages through an
// OpenAI-compatible endpoint and ranks by cosine similarity.
type EmbeddingRetriever struct {
	client *openai.Client
	model  string
	topK   int
}

func NewEmbeddingRetriever(baseURL, apiKey, model string, topK int) *EmbeddingRetriever {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &EmbeddingRetriever{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		topK:   topK,
	}
}

func (r *EmbeddingRetriever) Rank(ctx context.Context, question string, docs []string) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}

	resp, err := r.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(r.model),
		Input: append([]string{question}, docs...),
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) != len(docs)+1 {
		return nil, fmt.Errorf("embedding service returned %d vectors, expected %d", len(resp.Data), len(docs)+1)
	}

	q := resp.Data[0].Embedding
	type scored struct {
		doc   string
		score float64
	}
	ranked := make([]scored, 0, len(docs))
	for i, doc := range docs {
		ranked = append(ranked, scored{doc: doc, score: cosine(q, resp.Data[i+1].Embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k := r.topK
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, s := range ranked[:k] {
		out = append(out, s.doc)
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
