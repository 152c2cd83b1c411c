package web

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/internal/pipeline"
)

type Server struct {
	router    *mux.Router
	hub       *Hub
	version   string
	pipeline  *pipeline.Pipeline
	auth      *Authenticator
	jobs      int
	batchMu   sync.Mutex
	staticDir string
}

func NewServer(p *pipeline.Pipeline, cfg *config.Config) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		hub:       NewHub(),
		version:   "unknown",
		pipeline:  p,
		auth:      NewAuthenticator(cfg.JWTSecret),
		jobs:      cfg.Jobs,
		staticDir: "web/static",
	}

	go s.hub.Run()

	p.SetProgressCallback(s.broadcastProgress)

	s.setupRoutes()
	return s
}

func (s *Server) SetVersion(v string) {
	s.version = v
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", s.handleVersion).Methods("GET")
	api.HandleFunc("/services", s.handleServices).Methods("GET")
	api.HandleFunc("/extract", s.handleExtract).Methods("GET", "POST")
	api.HandleFunc("/decode", s.handleDecode).Methods("GET")
	api.HandleFunc("/batch", s.handleBatch).Methods("POST")
	api.HandleFunc("/ws", s.handleWebSocket)

	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(addr string) error {
	fmt.Printf("Starting MetaProbe Web UI at http://%s\n", addr)
	return http.ListenAndServe(addr, s.router)
}
