package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/M-Rathnayake/AI-Speech-Analyzer/extract"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/progress"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/qa"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/storage"
	"github.com/M-Rathnayake/AI-Speech-Analyzer/transcribe"
)

// Server orchestrates the analysis pipeline over the shared model
// services. The services are built once at startup and threaded
// through here; no request mutates them.
type Server struct {
	Router      httprouter.Router
	Transcriber *transcribe.Transcriber
	Extractor   *extract.Extractor
	QA          *qa.System
	Store       *storage.TempStore
	Hub         *progress.Hub
}

func New(transcriber *transcribe.Transcriber, extractor *extract.Extractor, qaSystem *qa.System, store *storage.TempStore, hub *progress.Hub) *Server {

	server := &Server{
		Transcriber: transcriber,
		Extractor:   extractor,
		QA:          qaSystem,
		Store:       store,
		Hub:         hub,
	}

	router := server.Routes()

	server.Router = *router

	return server

}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, p, _ := s.Router.Lookup(r.Method, r.URL.Path)
	if h != nil {
		h(w, r, p)
		return
	}
	s.Response(w, r, Error{Code: 404, Message: "Path not found.", Function: "ServeHTTP", Input: r.URL.Path}, 404)
}

type Error struct {
	Code     int
	Message  string
	Function string
	Input    string
	Hints    []string `json:",omitempty"`
}

func (s *Server) Error(code int, message string, function string, input interface{}) Error {
	inputJSON, _ := json.MarshalIndent(input, "", "    ")
	return Error{
		Code:     code,
		Message:  message,
		Function: function,
		Input:    string(inputJSON),
	}
}

func (s *Server) Decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) Response(w http.ResponseWriter, r *http.Request, i interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if i != nil {
		err := json.NewEncoder(w).Encode(i)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Couldn't encode response data."))
		}
	}
}

func (s *Server) AwaitForShutdown(ctx context.Context, server *http.Server, serverDone chan error, shutdownApplication context.CancelFunc) {
	select {
	case <-ctx.Done():
		s.ShutdownServerGracefully(server)
	case serverError := <-serverDone:
		if serverError != nil {
			log.Error().Err(serverError).Msg("Server returned with error")
		}
		shutdownApplication()
	}
}

func (s *Server) ShutdownServerGracefully(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Could not shutdown server gracefully")
	}
}

func (s *Server) HandleShutdownSignals(cancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		log.Info().Msg("Listening signals...")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		close(done)
	}()
	go func() {
		<-done
		log.Info().Msg("Shutting down")
		cancel()
	}()
}
