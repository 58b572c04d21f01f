package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
)

var (
	phonePattern = regexp.MustCompile(`[\+\(]?[0-9][0-9\-\(\)\s]{8,}[0-9]`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// Recognizer finds named entities in free text.
type Recognizer interface {
	Entities(ctx context.Context, text string) ([]domain.Entity, error)
}

// Extractor pulls phone numbers, email addresses and person names out
// of a transcript. Each pass is independent and recomputed in full on
// every call; nothing is cached between calls.
type Extractor struct {
	recognizer Recognizer
	minScore   float64
}

func New(recognizer Recognizer, minScore float64) *Extractor {
	return &Extractor{recognizer: recognizer, minScore: minScore}
}

// Phones returns every phone-shaped substring in order of appearance,
// duplicates included.
func Phones(text string) []string {
	matches := phonePattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// Emails returns every email address in order of appearance,
// duplicates included.
func Emails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// Extract fills all three fields. When name recognition fails, the
// returned info still carries the regex results alongside the error,
// so callers can keep partial output.
func (e *Extractor) Extract(ctx context.Context, text string) (domain.ExtractedInfo, error) {
	info := domain.ExtractedInfo{
		Phones: Phones(text),
		Emails: Emails(text),
		Names:  []string{},
	}

	entities, err := e.recognizer.Entities(ctx, text)
	if err != nil {
		return info, fmt.Errorf("recognize names: %w", err)
	}

	for _, ent := range entities {
		if !isPerson(ent.Label) || ent.Score < e.minScore {
			continue
		}
		info.Names = append(info.Names, ent.Text)
	}

	return info, nil
}

// Ready probes the recognizer when it supports probing. Pure regex
// extraction has nothing to warm up.
func (e *Extractor) Ready(ctx context.Context) error {
	type prober interface {
		Ready(ctx context.Context) error
	}
	if p, ok := e.recognizer.(prober); ok {
		return p.Ready(ctx)
	}
	return nil
}

func isPerson(label string) bool {
	switch strings.ToUpper(label) {
	case "PER", "PERSON":
		return true
	}
	return false
}
