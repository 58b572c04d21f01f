package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
)

var uploadHints = []string{
	"Choose an mp3 or wav file.",
	"Files around 50MB or smaller work best.",
}

var transcriptionHints = []string{
	"Try a shorter audio clip.",
	"Use a clearer recording with less background noise.",
	"Convert the file to mp3 or wav and upload again.",
}

// HandleAnalyzeRequest runs the full pipeline for one upload: save to
// a temp location, transcribe with progress on the session's feed,
// extract contact details and names, respond. The temp file and its
// directory are removed on every path out of here.
func (s *Server) HandleAnalyzeRequest() httprouter.Handle {
	type Output struct {
		SessionID  string               `json:"session_id"`
		Transcript string               `json:"transcript"`
		Language   string               `json:"language,omitempty"`
		Duration   float64              `json:"duration,omitempty"`
		Info       domain.ExtractedInfo `json:"info"`
		NameGroups [][]string           `json:"name_groups"`
		Warnings   []string             `json:"warnings,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {

		if err := r.ParseMultipartForm(64 << 20); err != nil {
			s.Response(
				w, r,
				s.Error(http.StatusBadRequest, "Could not parse the upload form.", "HandleAnalyzeRequest", err.Error()),
				http.StatusBadRequest,
			)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			e := s.Error(http.StatusBadRequest, "No audio file in the upload.", "HandleAnalyzeRequest", err.Error())
			e.Hints = uploadHints
			s.Response(w, r, e, http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			e := s.Error(http.StatusBadRequest, "Could not read the uploaded file.", "HandleAnalyzeRequest", header.Filename)
			e.Hints = uploadHints
			s.Response(w, r, e, http.StatusBadRequest)
			return
		}

		session := r.FormValue("session_id")
		if session == "" {
			session = uuid.NewString()
		}

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")

		audio, err := s.Store.Save(data, ext)
		if err != nil {
			e := s.Error(http.StatusBadRequest, "Could not accept the upload: "+err.Error(), "HandleAnalyzeRequest", header.Filename)
			e.Hints = uploadHints
			s.Response(w, r, e, http.StatusBadRequest)
			return
		}
		defer audio.Remove()

		log.Info().
			Str("session", session).
			Str("file", header.Filename).
			Int64("size", audio.Size).
			Msg("audio saved")

		transcription, err := s.Transcriber.Transcribe(r.Context(), audio.Path, s.Hub.Sink(session))
		if err != nil {
			log.Warn().Err(err).Str("session", session).Msg("transcription failed")
			e := s.Error(http.StatusBadGateway, "Transcription failed: "+err.Error(), "HandleAnalyzeRequest", header.Filename)
			e.Hints = transcriptionHints
			s.Response(w, r, e, http.StatusBadGateway)
			return
		}

		output := &Output{
			SessionID:  session,
			Transcript: transcription.Text,
			Language:   transcription.Language,
			Duration:   transcription.Duration,
		}

		info, err := s.Extractor.Extract(r.Context(), transcription.Text)
		output.Info = info
		if err != nil {
			log.Warn().Err(err).Str("session", session).Msg("entity extraction failed")
			output.Warnings = append(output.Warnings, "Name recognition was unavailable; phone numbers and emails were still extracted.")
		}
		output.NameGroups = extract.GroupNames(info.Names)

		log.Info().
			Str("session", session).
			Int("phones", len(info.Phones)).
			Int("emails", len(info.Emails)).
			Int("names", len(info.Names)).
			Msg("analysis complete")

		s.Response(w, r, output, http.StatusOK)
	}
}
