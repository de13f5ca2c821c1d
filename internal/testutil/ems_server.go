// Package testutil provides in-process fakes of the EMS API for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const bearerPrefix = "Bearer "

// EMSServer is a fake EMS API with a token endpoint and bearer-protected
// resources.
type EMSServer struct {
	server *httptest.Server

	mu            sync.Mutex
	users         map[string]string
	clients       map[string]string
	tokenLifetime time.Duration
	issued        map[string]string
	tokenStatuses []int
	apiStatuses   []int
	handlers      map[string]http.HandlerFunc

	tokenRequests []TokenRequest
	apiRequests   []*http.Request
}

// TokenRequest records one call to the token endpoint.
type TokenRequest struct {
	GrantType string
	Form      map[string]string
	Status    int
}

// Identity returns the identity a token request asked for.
func (r TokenRequest) Identity() string {
	if r.GrantType == "trusted" {
		return strings.ToUpper(r.Form["name"] + "=" + r.Form["value"])
	}
	return r.Form["username"]
}

// NewEMSServer starts a fake server. Close it when done.
func NewEMSServer() *EMSServer {
	s := &EMSServer{
		users:         make(map[string]string),
		clients:       make(map[string]string),
		tokenLifetime: time.Hour,
		issued:        make(map[string]string),
		handlers:      make(map[string]http.HandlerFunc),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", s.handleToken)
	mux.HandleFunc("/api/", s.handleAPI)
	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the API base URL, e.g. http://127.0.0.1:1234/api.
func (s *EMSServer) URL() string {
	return s.server.URL + "/api"
}

// Close shuts down the server.
func (s *EMSServer) Close() {
	s.server.Close()
}

// AddUser accepts username/password on the password grant.
func (s *EMSServer) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// AddTrustedClient accepts clientID/secret on the trusted grant.
func (s *EMSServer) AddTrustedClient(clientID, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = secret
}

// SetTokenLifetime changes the expires_in value of issued tokens.
func (s *EMSServer) SetTokenLifetime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenLifetime = d
}

// ScriptTokenStatuses makes the next token requests answer with the given
// statuses in order. A status of http.StatusOK processes the request
// normally.
func (s *EMSServer) ScriptTokenStatuses(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenStatuses = append(s.tokenStatuses, statuses...)
}

// ScriptAPIStatuses does the same for resource requests.
func (s *EMSServer) ScriptAPIStatuses(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiStatuses = append(s.apiStatuses, statuses...)
}

// Handle serves path (relative to the API base) with h once the bearer token
// has been checked.
func (s *EMSServer) Handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers["/api/"+strings.TrimLeft(path, "/")] = h
}

// TokenRequests returns every recorded token request.
func (s *EMSServer) TokenRequests() []TokenRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TokenRequest, len(s.tokenRequests))
	copy(out, s.tokenRequests)
	return out
}

// TokenRequestCount returns the number of token requests received.
func (s *EMSServer) TokenRequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokenRequests)
}

// APIRequests returns every recorded resource request.
func (s *EMSServer) APIRequests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Request, len(s.apiRequests))
	copy(out, s.apiRequests)
	return out
}

// APIRequestCount returns the number of resource requests received.
func (s *EMSServer) APIRequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.apiRequests)
}

// RevokeAll invalidates every issued token on the server side.
func (s *EMSServer) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued = make(map[string]string)
}

func (s *EMSServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		sendError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	rec := TokenRequest{GrantType: r.PostForm.Get("grant_type"), Form: map[string]string{}}
	for k := range r.PostForm {
		rec.Form[k] = r.PostForm.Get(k)
	}

	s.mu.Lock()
	status := popStatus(&s.tokenStatuses)
	rec.Status = status
	s.tokenRequests = append(s.tokenRequests, rec)
	s.mu.Unlock()

	if status != http.StatusOK {
		sendError(w, "server_error", http.StatusText(status), status)
		return
	}

	var identity string
	switch rec.GrantType {
	case "password":
		s.mu.Lock()
		want, ok := s.users[rec.Form["username"]]
		s.mu.Unlock()
		if !ok || want != rec.Form["password"] {
			sendError(w, "invalid_grant", "bad credentials", http.StatusBadRequest)
			return
		}
		identity = "PASSWORD:" + rec.Form["username"]
	case "trusted":
		s.mu.Lock()
		want, ok := s.clients[rec.Form["client_id"]]
		s.mu.Unlock()
		if !ok || want != rec.Form["client_secret"] {
			sendError(w, "invalid_client", "bad credentials", http.StatusUnauthorized)
			return
		}
		if rec.Form["name"] == "" || rec.Form["value"] == "" {
			sendError(w, "invalid_request", "name and value are required", http.StatusBadRequest)
			return
		}
		identity = rec.Identity()
	default:
		sendError(w, "unsupported_grant_type", "Unsupported grant type", http.StatusBadRequest)
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.issued[token] = identity
	lifetime := int(s.tokenLifetime.Seconds())
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   lifetime,
	})
}

func (s *EMSServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.apiRequests = append(s.apiRequests, r.Clone(r.Context()))
	status := popStatus(&s.apiStatuses)
	identity, authorized := s.issued[strings.TrimPrefix(r.Header.Get("Authorization"), bearerPrefix)]
	handler := s.handlers[r.URL.Path]
	s.mu.Unlock()

	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), bearerPrefix) || !authorized {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"message":       "Authorization has been denied for this request.",
			"messageDetail": "missing or invalid bearer token",
		})
		return
	}

	if handler != nil {
		handler(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"path":     strings.TrimPrefix(r.URL.Path, "/api"),
		"method":   r.Method,
		"identity": identity,
	})
}

func popStatus(queue *[]int) int {
	if len(*queue) == 0 {
		return http.StatusOK
	}
	status := (*queue)[0]
	*queue = (*queue)[1:]
	return status
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// sendError writes an OAuth-style error body.
func sendError(w http.ResponseWriter, code, description string, status int) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
