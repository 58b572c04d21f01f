package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
)

// System answers questions against transcript text. An empty
// transcript or question yields an explicit absence without touching
// the models. Model failures come back as errors for the caller to
// absorb; they never surface as answers.
type System struct {
	retriever Retriever
	reader    Reader
}

func New(retriever Retriever, reader Reader) *System {
	return &System{retriever: retriever, reader: reader}
}

func (s *System) Answer(ctx context.Context, text, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if strings.TrimSpace(text) == "" || question == "" {
		return domain.Answer{Found: false}, nil
	}

	docs, err := s.retriever.Rank(ctx, question, []string{text})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	if len(docs) == 0 {
		return domain.Answer{Found: false}, nil
	}

	answer, err := s.reader.Read(ctx, question, docs[0])
	if err != nil {
		return domain.Answer{}, fmt.Errorf("read answer: %w", err)
	}
	return answer, nil
}

// Ready pushes a tiny round trip through both models so startup can
// fail fast when either service is down or still loading.
func (s *System) Ready(ctx context.Context) error {
	if _, err := s.retriever.Rank(ctx, "ping", []string{"pong"}); err != nil {
		return fmt.Errorf("retriever not ready: %w", err)
	}
	if _, err := s.reader.Read(ctx, "ping", "pong"); err != nil {
		return fmt.Errorf("reader not ready: %w", err)
	}
	return nil
}
