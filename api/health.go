package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// HandleHealthRequest reports whether both model services answer.
func (s *Server) HandleHealthRequest() httprouter.Handle {
	type Output struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		output := &Output{Status: "ok", Services: map[string]string{}}
		code := http.StatusOK

		if err := s.Transcriber.Ready(ctx); err != nil {
			output.Services["transcriber"] = err.Error()
			output.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			output.Services["transcriber"] = "ok"
		}

		if err := s.Extractor.Ready(ctx); err != nil {
			output.Services["entities"] = err.Error()
			output.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			output.Services["entities"] = "ok"
		}

		if err := s.QA.Ready(ctx); err != nil {
			output.Services["qa"] = err.Error()
			output.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			output.Services["qa"] = "ok"
		}

		s.Response(w, r, output, code)
	}
}
