package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
)

// HTTPRecognizer calls a token-classification inference endpoint in
// the Hugging Face style: {"inputs": text} in, a flat entity list out.
type HTTPRecognizer struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPRecognizer(url, apiKey string) *HTTPRecognizer {
	return &HTTPRecognizer{url: url, apiKey: apiKey, client: &http.Client{}}
}

type nerEntity struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Score       float64 `json:"score"`
	Word        string  `json:"word"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

// Ready pushes a short text through the model so startup can fail
// fast when the service is missing or still loading.
func (r *HTTPRecognizer) Ready(ctx context.Context) error {
	if _, err := r.Entities(ctx, "ping"); err != nil {
		return fmt.Errorf("ner service not ready: %w", err)
	}
	return nil
}

func (r *HTTPRecognizer) Entities(ctx context.Context, text string) ([]domain.Entity, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("encode ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ner service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ner service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	raw := []nerEntity{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}

	entities := make([]domain.Entity, 0, len(raw))
	for _, e := range raw {
		label := e.EntityGroup
		if label == "" {
			label = e.Entity
		}
		entities = append(entities, domain.Entity{
			Label: label,
			Text:  e.Word,
			Score: e.Score,
			Start: e.Start,
			End:   e.End,
		})
	}

	return entities, nil
}
