// Package api serves the read-only HTTP projections over the tables the
// core pipeline writes, plus the launchpad CRUD collaborator endpoints
// (§6). It mirrors the teacher's mux.Router/HandleFunc server shape,
// generalized from its Flow-specific routes to this domain's.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ammindexer/internal/repository"

	"github.com/gorilla/mux"
)

const pageSize = 10

// BackendResponse is the envelope every handler replies with, matching
// the reference implementation's {code, error, data} response shape.
type BackendResponse struct {
	Code  int         `json:"code"`
	Error *string     `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

const (
	codeOK    = 0
	codeDBErr = 1
)

type Server struct {
	repo       *repository.Repository
	httpServer *http.Server
}

func NewServer(repo *repository.Repository, port int) *Server {
	s := &Server{repo: repo}

	r := mux.NewRouter()
	registerRoutes(r, s)

	s.httpServer = &http.Server{
		Addr:         addrForPort(port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func addrForPort(port int) string {
	if port <= 0 {
		port = 8088
	}
	return ":" + strconv.Itoa(port)
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, per the "no task is preempted
// mid-transaction" cancellation policy.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BackendResponse{Code: codeOK, Data: data})
}

func writeDBErr(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	e := msg
	json.NewEncoder(w).Encode(BackendResponse{Code: codeDBErr, Error: &e})
}

func pageNoFromQuery(r *http.Request) int {
	v := r.URL.Query().Get("pg_no")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
