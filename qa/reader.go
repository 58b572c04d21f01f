package qa

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

// Reader extracts an answer span for a question from one passage.
type Reader interface {
	Read(ctx context.Context, question, passage string) (domain.Answer, error)
}

// HTTPReader posts to a squad-style extractive QA inference endpoint.
type HTTPReader struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPReader(url, apiKey string) *HTTPReader {
	return &HTTPReader{url: url, apiKey: apiKey, client: &http.Client{}}
}

type readerRequest struct {
	Inputs readerInputs `json:"inputs"`
}

type readerInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type readerResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

func (r *HTTPReader) Read(ctx context.Context, question, passage string) (domain.Answer, error) {
	body, err := json.Marshal(readerRequest{Inputs: readerInputs{Question: question, Context: passage}})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("encode reader request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("build reader request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("call reader service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Answer{}, fmt.Errorf("reader service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	parsed := readerResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Answer{}, fmt.Errorf("decode reader response: %w", err)
	}

	answer := strings.TrimSpace(parsed.Answer)
	if answer == "" {
		return domain.Answer{Found: false}, nil
	}
	return domain.Answer{Text: answer, Score: parsed.Score, Found: true}, nil
}
