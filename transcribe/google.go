package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
)

// Backend progress band split between staging the file to the bucket
// and waiting on the recognition operation.
const (
	googleUploadShare    = 0.5
	googleRecognizeShare = 0.45
)

// GoogleBackend stages audio in a Cloud Storage bucket, runs
// LongRunningRecognize against it and deletes the staged object before
// returning. Best suited to wav input; the service reads the encoding
// from the file header.
type GoogleBackend struct {
	bucket   string
	language string
}

func NewGoogleBackend(bucket, language string) *GoogleBackend {
	return &GoogleBackend{bucket: bucket, language: language}
}

func (b *GoogleBackend) Name() string { return "google" }

func (b *GoogleBackend) Ready(ctx context.Context) error {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("speech client: %w", err)
	}
	return client.Close()
}

func (b *GoogleBackend) Transcribe(ctx context.Context, path string, sink progress.Sink) (domain.Transcription, error) {
	stored, err := storage.NewClient(ctx)
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("storage client: %w", err)
	}
	defer stored.Close()

	gsURI, object, err := b.stage(ctx, stored, path, sink)
	if err != nil {
		return domain.Transcription{}, err
	}
	defer b.unstage(ctx, stored, object)

	sink.Report(googleUploadShare)

	resp, err := b.recognize(ctx, gsURI, sink)
	if err != nil {
		return domain.Transcription{}, err
	}

	return b.assemble(resp), nil
}

// stage copies the local file into the bucket and returns the gs:// URI
// along with the object name for later deletion.
func (b *GoogleBackend) stage(ctx context.Context, client *storage.Client, path string, sink progress.Sink) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("stat audio: %w", err)
	}

	object := fmt.Sprintf("staging/%s/%s", uuid.NewString(), filepath.Base(path))

	wc := client.Bucket(b.bucket).Object(object).NewWriter(ctx)
	src := &progressReader{r: f, total: info.Size(), scale: googleUploadShare, sink: sink}
	if _, err := io.Copy(wc, src); err != nil {
		wc.Close()
		return "", "", fmt.Errorf("upload audio: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", "", fmt.Errorf("close upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", b.bucket, object), object, nil
}

// unstage removes the staged object. The bucket holds nothing once a
// transcription call finishes, whatever its outcome.
func (b *GoogleBackend) unstage(ctx context.Context, client *storage.Client, object string) {
	if err := client.Bucket(b.bucket).Object(object).Delete(ctx); err != nil {
		log.Warn().Err(err).Str("object", object).Msg("could not remove staged audio object")
	}
}

func (b *GoogleBackend) recognize(ctx context.Context, gsURI string, sink progress.Sink) (*speechpb.LongRunningRecognizeResponse, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	defer client.Close()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
			LanguageCode:               b.language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{
				Uri: gsURI,
			},
		},
	}

	op, err := client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("start recognition: %w", err)
	}

	for !op.Done() {
		if _, err := op.Poll(ctx); err != nil {
			return nil, fmt.Errorf("recognition: %w", err)
		}
		if op.Done() {
			break
		}
		if meta, err := op.Metadata(); err == nil && meta != nil {
			sink.Report(googleUploadShare + googleRecognizeShare*float64(meta.ProgressPercent)/100)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("recognition: %w", err)
	}
	return resp, nil
}

// assemble picks the highest confidence alternative per result and
// orders everything by word start time.
func (b *GoogleBackend) assemble(resp *speechpb.LongRunningRecognizeResponse) domain.Transcription {
	type phrase struct {
		text  string
		start float64
		end   float64
	}

	phrases := []phrase{}
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		// Some models report zero confidence across the board; the
		// first alternative is still the service's best guess.
		best := alts[0]
		for _, alt := range alts[1:] {
			if alt.Confidence > best.Confidence {
				best = alt
			}
		}
		text := strings.TrimSpace(best.Transcript)
		if text == "" {
			continue
		}

		words := best.GetWords()
		sort.Slice(words, func(i, j int) bool {
			return words[i].GetStartTime().AsDuration() < words[j].GetStartTime().AsDuration()
		})

		p := phrase{text: text}
		if len(words) > 0 {
			p.start = words[0].GetStartTime().AsDuration().Seconds()
			p.end = words[len(words)-1].GetEndTime().AsDuration().Seconds()
		}
		phrases = append(phrases, p)
	}

	sort.Slice(phrases, func(i, j int) bool { return phrases[i].start < phrases[j].start })

	result := domain.Transcription{Language: b.language}
	parts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		parts = append(parts, p.text)
		result.Segments = append(result.Segments, domain.Segment{Start: p.start, End: p.end, Text: p.text})
	}
	result.Text = strings.Join(parts, " ")
	if n := len(result.Segments); n > 0 {
		result.Duration = result.Segments[n-1].End
	}

	return result
}
