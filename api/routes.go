package api

import "github.com/julienschmidt/httprouter"

func (s *Server) Routes() *httprouter.Router {
	router := httprouter.New()

	router.POST("/api/analyze", s.WithRequestID(s.HandleAnalyzeRequest()))
	router.POST("/api/extract", s.WithRequestID(s.HandleExtractRequest()))
	router.POST("/api/ask", s.WithRequestID(s.HandleAskRequest()))
	router.GET("/api/progress", s.WithRequestID(s.HandleProgressRequest()))
	router.GET("/healthz", s.HandleHealthRequest())

	return router
}
