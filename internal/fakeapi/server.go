// Package fakeapi is an in-memory stand-in for the FixFlow backend, routed
// with chi. It speaks the same JSON API the client uses and records every
// request so tests can assert on the wire format.
//
// Search scoring is a word-overlap ratio; it only has to be deterministic.
package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// APIPrefix is where the API routes are mounted, matching the real backend.
const APIPrefix = "/api/v1"

// Issue mirrors the backend's issue schema.
type Issue struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Solution    string         `json:"solution"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ViewCount   int            `json:"view_count"`
	UsefulCount int            `json:"useful_count"`
}

type searchHit struct {
	Issue
	Score float64 `json:"score"`
}

type issueCreate struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Solution string         `json:"solution"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
}

type searchQuery struct {
	Query   string         `json:"query"`
	Limit   *int           `json:"limit"`
	Filters map[string]any `json:"filters"`
}

// Request is one recorded inbound request.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Server is the fake backend.
type Server struct {
	mu       sync.Mutex
	issues   map[string]*Issue
	requests []Request
	now      func() time.Time
}

// New creates an empty fake backend.
func New() *Server {
	return &Server{
		issues: make(map[string]*Issue),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the chi router: the health endpoint at "/" and the API
// under APIPrefix.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.record)

	r.Get("/", s.health)
	r.Route(APIPrefix, func(r chi.Router) {
		r.Post("/issues", s.createIssue)
		r.Get("/issues/trending", s.trending)
		r.Get("/issues/{id}", s.getIssue)
		r.Post("/issues/{id}/feedback", s.feedback)
		r.Post("/search", s.search)
	})
	return r
}

// Add stores an issue directly, assigning an id and timestamps when missing.
func (s *Server) Add(issue Issue) Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = s.now()
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = issue.CreatedAt
	}
	if issue.Tags == nil {
		issue.Tags = []string{}
	}
	if issue.Metadata == nil {
		issue.Metadata = map[string]any{}
	}
	stored := issue
	s.issues[issue.ID] = &stored
	return stored
}

// Get returns a stored issue.
func (s *Server) Get(id string) (Issue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	is, ok := s.issues[id]
	if !ok {
		return Issue{}, false
	}
	return *is, true
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "FixFlow API is running",
	})
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var req issueCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" || req.Content == "" || req.Solution == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title, content and solution are required")
		return
	}

	created := s.Add(Issue{
		Title:    req.Title,
		Content:  req.Content,
		Solution: req.Solution,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	is, ok := s.Get(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Issue not found")
		return
	}
	writeJSON(w, http.StatusOK, is)
}

func (s *Server) trending(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = n
	}

	s.mu.Lock()
	all := make([]Issue, 0, len(s.issues))
	for _, is := range s.issues {
		all = append(all, *is)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].UsefulCount != all[j].UsefulCount {
			return all[i].UsefulCount > all[j].UsefulCount
		}
		if all[i].ViewCount != all[j].ViewCount {
			return all[i].ViewCount > all[j].ViewCount
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind := r.URL.Query().Get("type")
	if kind != "view" && kind != "useful" {
		writeDetail(w, http.StatusBadRequest, "type must be view or useful")
		return
	}

	s.mu.Lock()
	is, ok := s.issues[id]
	if ok {
		if kind == "view" {
			is.ViewCount++
		} else {
			is.UsefulCount++
		}
		is.UpdatedAt = s.now()
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Issue not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var q searchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	limit := 5
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit < 1 || limit > 20 {
		writeDetail(w, http.StatusUnprocessableEntity, "limit must be between 1 and 20")
		return
	}

	words := strings.Fields(strings.ToLower(q.Query))
	s.mu.Lock()
	hits := make([]searchHit, 0, len(s.issues))
	for _, is := range s.issues {
		if !matchesFilters(is.Metadata, q.Filters) {
			continue
		}
		if score := overlap(words, is); score > 0 {
			hits = append(hits, searchHit{Issue: *is, Score: score})
		}
	}
	s.mu.Unlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	writeJSON(w, http.StatusOK, hits)
}

// overlap is the share of query words found in the issue text.
func overlap(words []string, is *Issue) float64 {
	if len(words) == 0 {
		return 0
	}
	text := strings.ToLower(is.Title + " " + is.Content + " " + is.Solution + " " + strings.Join(is.Tags, " "))
	found := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			found++
		}
	}
	return float64(found) / float64(len(words))
}

func matchesFilters(meta, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := meta[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
