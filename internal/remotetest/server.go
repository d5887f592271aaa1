// Package remotetest serves the remote file operations API over httptest,
// backed by an in-memory tree, for gateway and end-to-end tests
package remotetest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/adapters"
)

// Request is a record of one request the server received
type Request struct {
	Method string
	Route  string
	Query  map[string]string
	Body   string
}

// Server is a running fake remote
type Server struct {
	*httptest.Server
	Tree *adapters.MemoryGateway

	// legacy answers 200 [] when listing a missing directory and 400 for
	// every other failure, as the Spring backend does
	legacy bool

	mu       sync.Mutex
	requests []Request
	failures map[string]int // route -> status returned once
}

// NewServer starts a server over tree (a fresh empty tree if nil) that answers
// 404 for missing paths. Call Close when done.
func NewServer(tree *adapters.MemoryGateway) *Server {
	return newServer(tree, false)
}

// NewLegacyServer starts a server whose statuses follow the Spring backend:
// listing a missing directory is an empty 200 and any other failure is a 400,
// so clients never see not found
func NewLegacyServer(tree *adapters.MemoryGateway) *Server {
	return newServer(tree, true)
}

func newServer(tree *adapters.MemoryGateway, legacy bool) *Server {
	if tree == nil {
		tree = adapters.NewMemoryGateway()
	}
	s := &Server{Tree: tree, legacy: legacy, failures: map[string]int{}}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// FailNext makes the next request to route answer with status
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status
}

// Requests returns a copy of everything received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests hit route
func (s *Server) Count(route string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+adapters.RouteList, s.handleList)
	mux.HandleFunc("GET "+adapters.RouteRaw, s.handleRaw)
	mux.HandleFunc("POST "+adapters.RouteSave, s.handleSave)
	mux.HandleFunc("POST "+adapters.RouteCreateFile, s.handleCreateFile)
	mux.HandleFunc("POST "+adapters.RouteCreateDirectory, s.handleCreateDirectory)
	mux.HandleFunc("DELETE "+adapters.RouteDelete, s.handleDelete)
	mux.HandleFunc("POST "+adapters.RouteMove, s.handleMove)
	return s.record(mux)
}

// record logs the request and applies any queued failure before routing
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		q := map[string]string{}
		for k, v := range r.URL.Query() {
			q[k] = strings.Join(v, ",")
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Route: r.URL.Path, Query: q, Body: string(body)})
		status, fail := s.failures[r.URL.Path]
		delete(s.failures, r.URL.Path)
		s.mu.Unlock()

		if fail {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		p = dok.RootPath
	}
	entries, err := s.Tree.List(r.Context(), p)
	if err != nil {
		if !s.legacy {
			s.writeError(w, err)
			return
		}
		entries = []dok.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries) // nolint:errcheck
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	content, err := s.Tree.ReadRaw(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, content) // nolint:errcheck
}

// handleSave accepts a JSON body or form-encoded content with path in the query
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var p, content string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, content = body.Path, body.Content
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, content = r.URL.Query().Get("path"), r.PostForm.Get("content")
	}
	if err := s.Tree.Write(r.Context(), p, content); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.Tree.CreateFile(r.Context(), r.URL.Query().Get("path")))
}

func (s *Server) handleCreateDirectory(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.Tree.CreateDirectory(r.Context(), r.URL.Query().Get("path")))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.Tree.Delete(r.Context(), r.URL.Query().Get("path")))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.writeResult(w, s.Tree.Move(r.Context(), q.Get("source"), q.Get("destination")))
}

func (s *Server) writeResult(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if s.legacy {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var nf *dok.NotFoundError
	var ve *dok.ValidationError
	switch {
	case errors.As(err, &nf):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &ve):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
