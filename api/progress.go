package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// HandleProgressRequest upgrades to a websocket carrying progress
// frames for one session. Subscribing to a session with no running
// analysis is allowed; the feed simply stays quiet.
func (s *Server) HandleProgressRequest() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		session := r.URL.Query().Get("session")
		if session == "" {
			s.Response(
				w, r,
				s.Error(http.StatusBadRequest, "Missing session query parameter.", "HandleProgressRequest", r.URL.RawQuery),
				http.StatusBadRequest,
			)
			return
		}

		if err := s.Hub.Subscribe(w, r, session); err != nil {
			// Upgrade already wrote its own error response.
			log.Warn().Err(err).Str("session", session).Msg("websocket upgrade failed")
		}
	}
}
