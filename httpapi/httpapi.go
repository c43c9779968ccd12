// Package httpapi exposes the search core over HTTP: a gorilla/mux router
// serving health, stats, search, entry-read, and batch-get, with
// trusted-header requester parsing and the error taxonomy mapped to
// conventional HTTP status codes.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	eldapo "github.com/khalidsaidi/eldapo"
	"github.com/khalidsaidi/eldapo/model"
)

// Server wraps a Directory behind gorilla/mux.
type Server struct {
	dir            *eldapo.Directory
	router         *mux.Router
	pollMS         int64
	trustedHeaders bool
}

// New builds a Server. pollMS is surfaced verbatim in /core/stats;
// trustedHeaders toggles requester header parsing.
func New(dir *eldapo.Directory, pollMS int64, trustedHeaders bool) *Server {
	s := &Server{dir: dir, router: mux.NewRouter(), pollMS: pollMS, trustedHeaders: trustedHeaders}
	s.router.HandleFunc("/core/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/core/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/core/search", s.handleSearch).Methods(http.MethodGet)
	s.router.HandleFunc("/core/entries/{id}", s.handleGetEntry).Methods(http.MethodGet)
	s.router.HandleFunc("/core/batchGet", s.handleBatchGet).Methods(http.MethodPost)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.dir.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"docs":     stats.Docs,
		"last_seq": stats.LastSeq,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.dir.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"docs":                 stats.Docs,
		"eq_tokens":            stats.EqTokens,
		"presence_tokens":      stats.PresenceTokens,
		"postings_cardinality": stats.PostingsCardinality,
		"memory_approx":        stats.MemoryApproxBytes,
		"build_ms":             stats.BuildMS,
		"last_seq":             stats.LastSeq,
		"poll_ms":              s.pollMS,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, eldapo.KindInvalidRequest, "limit must be an integer in [1, 200]")
			return
		}
		limit = n
	}

	view := q.Get("view")
	if view == "" {
		view = "card"
	}
	if view != "card" && view != "full" && view != "ids" {
		writeError(w, eldapo.KindInvalidRequest, "view must be card, full, or ids")
		return
	}

	req := eldapo.SearchRequest{
		Filter:    q.Get("filter"),
		Q:         q.Get("q"),
		Limit:     limit,
		Cursor:    q.Get("cursor"),
		Sort:      q.Get("sort"),
		Requester: requesterFromRequest(r, s.trustedHeaders),
	}

	res, err := s.dir.Search(req)
	if err != nil {
		writeErrFromDirectory(w, err)
		return
	}

	if view == "ids" {
		ids := make([]string, len(res.Items))
		for i, c := range res.Items {
			ids[i] = c.ID
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ids":         ids,
			"next_cursor": nullableCursor(res.NextCursor),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":       res.Items,
		"next_cursor": nullableCursor(res.NextCursor),
	})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "card"
	}

	hit, err := s.dir.Read(id, requesterFromRequest(r, s.trustedHeaders))
	if err != nil {
		writeErrFromDirectory(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": projectHit(hit, view)})
}

type batchGetBody struct {
	IDs  []string `json:"ids"`
	View string   `json:"view"`
}

func (s *Server) handleBatchGet(w http.ResponseWriter, r *http.Request) {
	var body batchGetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, eldapo.KindInvalidRequest, "malformed JSON body")
		return
	}
	if len(body.IDs) == 0 || len(body.IDs) > 200 {
		writeError(w, eldapo.KindInvalidRequest, "ids must contain 1 to 200 entries")
		return
	}
	view := body.View
	if view == "" {
		view = "card"
	}
	if view != "card" && view != "full" {
		writeError(w, eldapo.KindInvalidRequest, "view must be card or full")
		return
	}

	res := s.dir.BatchGet(body.IDs, requesterFromRequest(r, s.trustedHeaders))
	items := make([]any, len(res.Items))
	for i, hit := range res.Items {
		items[i] = projectHit(hit, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "omitted": res.Omitted})
}

func projectHit(hit eldapo.Hit, view string) any {
	if view == "full" {
		return hit.Entry
	}
	return hit.Card
}

func nullableCursor(c string) any {
	if c == "" {
		return nil
	}
	return c
}

// requesterFromRequest parses the requester from trusted headers: when
// trustedHeaders is disabled, every request is anonymous.
func requesterFromRequest(r *http.Request, trustedHeaders bool) model.Requester {
	if !trustedHeaders {
		return model.Anonymous()
	}

	authHeader := r.Header.Get("authorization")
	subjectHeader := r.Header.Get("x-subject")
	authenticated := authHeader != "" || subjectHeader != ""

	var groups []string
	if raw := r.Header.Get("groups"); raw != "" {
		seen := make(map[string]bool)
		for _, g := range strings.Split(raw, ",") {
			g = strings.TrimSpace(g)
			if g == "" || seen[g] {
				continue
			}
			seen[g] = true
			groups = append(groups, g)
		}
	}

	return model.Requester{IsAuthenticated: authenticated, Groups: groups, Subject: subjectHeader}
}

func writeErrFromDirectory(w http.ResponseWriter, err error) {
	kind := eldapo.Classify(err)
	writeError(w, kind, err.Error())
}

func writeError(w http.ResponseWriter, kind eldapo.Kind, message string) {
	writeJSON(w, statusForKind(kind), map[string]any{
		"error": map[string]any{
			"code":    string(kind),
			"message": message,
		},
	})
}

func statusForKind(kind eldapo.Kind) int {
	switch kind {
	case eldapo.KindInvalidRequest, eldapo.KindInvalidFilter:
		return http.StatusBadRequest
	case eldapo.KindNotFound:
		return http.StatusNotFound
	case eldapo.KindForbidden:
		return http.StatusForbidden
	case eldapo.KindUnauthorized:
		return http.StatusUnauthorized
	case eldapo.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
