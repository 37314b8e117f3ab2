// Package couchtest provides an in-memory CouchDB stand-in for tests. It
// speaks the subset of the HTTP API the couch package uses.
package couchtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// Server is a fake CouchDB. Use URL() as the client's base URL.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	dbs      map[string]*database
	requests []string
	failures map[string]int
	uuids    func(count int) []string
}

type database struct {
	docs map[string]*document
}

type document struct {
	revs    map[string]map[string]interface{}
	current string
	seq     int
	deleted bool
}

// NewServer starts a fake CouchDB. It is closed when the test finishes.
func NewServer(t testing.TB) *Server {
	s := &Server{
		dbs:      make(map[string]*database),
		failures: make(map[string]int),
		uuids:    randomUUIDs,
	}
	s.dbs["_users"] = &database{docs: make(map[string]*document)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

// SetUUIDGenerator replaces the function answering /_uuids.
func (s *Server) SetUUIDGenerator(gen func(count int) []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uuids = gen
}

// FailWith makes every request matching method and escaped path (without
// query) answer with status and a CouchDB error body.
func (s *Server) FailWith(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Requests returns "METHOD /escaped/path?query" for every request received
// so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// ResetRequests forgets recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func randomUUIDs(count int) []string {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = hexID()
	}
	return ids
}

// hexID returns 32 lowercase hex characters, the format CouchDB uses.
func hexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	escaped := r.URL.EscapedPath()
	entry := r.Method + " " + escaped
	if r.URL.RawQuery != "" {
		entry += "?" + r.URL.RawQuery
	}
	s.requests = append(s.requests, entry)

	if status, ok := s.failures[r.Method+" "+escaped]; ok {
		writeError(w, status, "unknown_error", http.StatusText(status))
		return
	}

	// Segments are split before unescaping so that names may contain "/".
	raw := strings.Split(strings.TrimSuffix(strings.TrimPrefix(escaped, "/"), "/"), "/")
	segments := make([]string, len(raw))
	for i, seg := range raw {
		unescaped, err := url.PathUnescape(seg)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid path encoding")
			return
		}
		segments[i] = unescaped
	}

	switch {
	case len(segments) == 1 && segments[0] == "":
		s.root(w, r)
	case len(segments) == 1 && segments[0] == "_uuids":
		s.generateUUIDs(w, r)
	case len(segments) == 1:
		s.database(w, r, segments[0])
	case len(segments) == 2:
		s.document(w, r, segments[0], segments[1])
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "unsupported path")
	}
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"couchdb": "Welcome",
		"version": "3.3.3",
		"vendor":  map[string]string{"name": "couchtest"},
	})
}

func (s *Server) generateUUIDs(w http.ResponseWriter, r *http.Request) {
	count := 1
	if c := r.URL.Query().Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid count")
			return
		}
		count = n
	}
	writeJSON(w, http.StatusOK, map[string][]string{"uuids": s.uuids(count)})
}

func (s *Server) database(w http.ResponseWriter, r *http.Request, name string) {
	_, exists := s.dbs[name]
	switch r.Method {
	case http.MethodGet:
		if !exists {
			writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"db_name":   name,
			"doc_count": len(s.dbs[name].docs),
		})
	case http.MethodPut:
		if exists {
			writeError(w, http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")
			return
		}
		s.dbs[name] = &database{docs: make(map[string]*document)}
		writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
	case http.MethodDelete:
		if !exists {
			writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
			return
		}
		delete(s.dbs, name)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET,PUT,DELETE allowed")
	}
}

func (s *Server) document(w http.ResponseWriter, r *http.Request, dbName, id string) {
	db, ok := s.dbs[dbName]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}
	doc := db.docs[id]
	rev := r.URL.Query().Get("rev")

	switch r.Method {
	case http.MethodGet:
		if doc == nil {
			writeError(w, http.StatusNotFound, "not_found", "missing")
			return
		}
		if rev == "" {
			if doc.deleted {
				writeError(w, http.StatusNotFound, "not_found", "deleted")
				return
			}
			rev = doc.current
		}
		body, ok := doc.revs[rev]
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "missing")
			return
		}
		writeJSON(w, http.StatusOK, body)

	case http.MethodPut:
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Document must be a JSON object")
			return
		}
		given, _ := body["_rev"].(string)
		if doc == nil {
			doc = &document{revs: make(map[string]map[string]interface{})}
		}
		if (!doc.deleted && doc.current != given) || (doc.deleted && given != "" && given != doc.current) {
			writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
			return
		}
		db.docs[id] = doc
		body["_id"] = id
		newRev := doc.commit(body, false)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": newRev})

	case http.MethodDelete:
		if doc == nil || doc.deleted {
			writeError(w, http.StatusNotFound, "not_found", "deleted")
			return
		}
		if rev != doc.current {
			writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
			return
		}
		newRev := doc.commit(map[string]interface{}{"_id": id, "_deleted": true}, true)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "rev": newRev})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET,PUT,DELETE allowed")
	}
}

// commit stores body as the next revision and returns the revision id.
func (d *document) commit(body map[string]interface{}, deleted bool) string {
	d.seq++
	rev := fmt.Sprintf("%d-%s", d.seq, hexID())
	body["_rev"] = rev
	d.revs[rev] = body
	d.current = rev
	d.deleted = deleted
	return rev
}

func writeError(w http.ResponseWriter, status int, errType, reason string) {
	writeJSON(w, status, map[string]string{"error": errType, "reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
