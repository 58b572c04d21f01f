package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/domain"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
)

// HandleExtractRequest recomputes the extraction for caller-supplied
// text, typically a transcript the user edited in the browser. The
// result for the same text is the same every time.
func (s *Server) HandleExtractRequest() httprouter.Handle {
	type Input struct {
		Text string `json:"text"`
	}

	type Output struct {
		Info       domain.ExtractedInfo `json:"info"`
		NameGroups [][]string           `json:"name_groups"`
		Warnings   []string             `json:"warnings,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		input := &Input{}
		err := s.Decode(w, r, input)
		if err != nil {
			s.Response(
				w, r,
				s.Error(http.StatusBadRequest, err.Error(), "HandleExtractRequest", input),
				http.StatusBadRequest,
			)
			return
		}

		output := &Output{}

		info, err := s.Extractor.Extract(r.Context(), input.Text)
		output.Info = info
		if err != nil {
			log.Warn().Err(err).Msg("entity extraction failed")
			output.Warnings = append(output.Warnings, "Name recognition was unavailable; phone numbers and emails were still extracted.")
		}
		output.NameGroups = extract.GroupNames(info.Names)

		s.Response(w, r, output, http.StatusOK)
	}
}
