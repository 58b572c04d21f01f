package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/qa"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/storage"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/transcribe"
)

type stubBackend struct {
	result   domain.Transcription
	err      error
	readyErr error
	reports  []float64
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Ready(ctx context.Context) error { return b.readyErr }

func (b *stubBackend) Transcribe(ctx context.Context, path string, sink progress.Sink) (domain.Transcription, error) {
	for _, v := range b.reports {
		sink.Report(v)
	}
	return b.result, b.err
}

type stubRecognizer struct {
	entities []domain.Entity
	err      error
}

func (r *stubRecognizer) Entities(ctx context.Context, text string) ([]domain.Entity, error) {
	return r.entities, r.err
}

type stubRetriever struct {
	err error
}

func (r *stubRetriever) Rank(ctx context.Context, question string, docs []string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return docs, nil
}

type stubReader struct {
	answer domain.Answer
	err    error
}

func (r *stubReader) Read(ctx context.Context, question, passage string) (domain.Answer, error) {
	return r.answer, r.err
}

type serverFixture struct {
	backend    *stubBackend
	recognizer *stubRecognizer
	retriever  *stubRetriever
	reader     *stubReader
	tempRoot   string
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()
	return &serverFixture{
		backend:    &stubBackend{result: domain.Transcription{Text: "hello"}, reports: []float64{0.5}},
		recognizer: &stubRecognizer{},
		retriever:  &stubRetriever{},
		reader:     &stubReader{},
		tempRoot:   t.TempDir(),
	}
}

func (f *serverFixture) server() *Server {
	return New(
		transcribe.New(f.backend),
		extract.New(f.recognizer, 0.5),
		qa.New(f.retriever, f.reader),
		storage.NewTempStore(f.tempRoot),
		progress.NewHub(),
	)
}

func uploadBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	return body, mw.FormDataContentType()
}

type analyzeOutput struct {
	SessionID  string               `json:"session_id"`
	Transcript string               `json:"transcript"`
	Language   string               `json:"language"`
	Info       domain.ExtractedInfo `json:"info"`
	NameGroups [][]string           `json:"name_groups"`
	Warnings   []string             `json:"warnings"`
}

type errorOutput struct {
	Code     int
	Message  string
	Function string
	Input    string
	Hints    []string
}
