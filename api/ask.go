package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// HandleAskRequest answers one question against the supplied
// transcript text. Pipeline failures are absorbed: the caller sees
// "no answer", never an error, and the cause goes to the log.
func (s *Server) HandleAskRequest() httprouter.Handle {
	type Input struct {
		Text     string `json:"text"`
		Question string `json:"question"`
	}

	type Output struct {
		Answer string `json:"answer"`
		Found  bool   `json:"found"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		input := &Input{}
		err := s.Decode(w, r, input)
		if err != nil {
			s.Response(
				w, r,
				s.Error(http.StatusBadRequest, err.Error(), "HandleAskRequest", input),
				http.StatusBadRequest,
			)
			return
		}

		answer, err := s.QA.Answer(r.Context(), input.Text, input.Question)
		if err != nil {
			log.Warn().Err(err).Msg("question answering failed")
			s.Response(w, r, &Output{Found: false}, http.StatusOK)
			return
		}

		log.Debug().
			Bool("found", answer.Found).
			Float64("score", answer.Score).
			Msg("question answered")

		output := &Output{Found: answer.Found}
		if answer.Found {
			output.Answer = answer.Text
		}
		s.Response(w, r, output, http.StatusOK)
	}
}
