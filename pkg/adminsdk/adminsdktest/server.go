// Package adminsdktest provides an in-memory stand-in for the DirectHealth
// admin API, for tests of code built on adminsdk.
//
// The fake issues real HS256 access tokens and opaque, rotating refresh
// tokens, answers errors in the API's JSON envelope and lets a test force
// the conditions the client has to survive: expired access tokens, rejected
// or failing refreshes and slow refreshes.
package adminsdktest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/cryptox"
	"github.com/aussiebroadwan/dhadmin/pkg/httpx"
	"github.com/aussiebroadwan/dhadmin/pkg/idx"
	"github.com/aussiebroadwan/dhadmin/pkg/jwtx"
)

// Default administrator accepted by sign-in.
const (
	DefaultEmail    = "admin@directhealth.test"
	DefaultPassword = "correct-horse-battery"
)

var errRevoked = errors.New("token revoked")

// Options configures a Server. The zero value is usable.
type Options struct {
	Email     string
	Password  string
	AccessTTL time.Duration // default jwtx.DefaultAccessTokenTTL
}

// Server is a running fake admin API.
type Server struct {
	// URL is the API root, suitable for adminsdk.NewSDKClient.
	URL string

	Admin    adminsdk.Principal
	Password string

	srv          *httptest.Server
	signer       jwtx.HS256
	passwordHash string
	accessTTL    time.Duration

	mu            sync.Mutex
	access        map[string]struct{} // live access tokens
	refresh       map[string]struct{} // fingerprints of live refresh tokens
	collections   map[string][]map[string]any
	hits          map[string]int
	requestIDs    []string
	refreshStatus int
	refreshGate   chan struct{}

	refreshCalls atomic.Int32
	signOutCalls atomic.Int32
	unauthorized atomic.Int32
}

// New starts a fake API and stops it when the test ends.
func New(t testing.TB, opts Options) *Server {
	t.Helper()

	if opts.Email == "" {
		opts.Email = DefaultEmail
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = jwtx.DefaultAccessTokenTTL
	}

	hash, err := cryptox.HashPassword(opts.Password)
	if err != nil {
		t.Fatalf("adminsdktest: hash password: %v", err)
	}
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		t.Fatalf("adminsdktest: generate secret: %v", err)
	}

	s := &Server{
		Admin: adminsdk.Principal{
			ID:        idx.New().String(),
			Email:     opts.Email,
			FirstName: "Ada",
			LastName:  "Admin",
		},
		Password:     opts.Password,
		signer:       jwtx.HS256{Secret: []byte(secret)},
		passwordHash: hash,
		accessTTL:    opts.AccessTTL,
		access:       make(map[string]struct{}),
		refresh:      make(map[string]struct{}),
		collections:  make(map[string][]map[string]any),
		hits:         make(map[string]int),
	}

	s.srv = httptest.NewServer(s.Handler())
	s.URL = s.srv.URL + "/api"
	t.Cleanup(s.Close)

	return s
}

// Close shuts the server down, releasing any held refresh first.
func (s *Server) Close() {
	s.mu.Lock()
	if s.refreshGate != nil {
		close(s.refreshGate)
		s.refreshGate = nil
	}
	s.mu.Unlock()
	s.srv.Close()
}

// Handler returns the API's routes, mounted under /api.
func (s *Server) Handler() http.Handler {
	authn := httpx.AuthnMiddleware(liveTokens{s})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api"+adminsdk.PathSignIn, s.handleSignIn)
	mux.HandleFunc("POST /api"+adminsdk.PathRefresh, s.handleRefresh)
	mux.Handle("POST /api"+adminsdk.PathSignOut, authn(http.HandlerFunc(s.handleSignOut)))
	mux.Handle("GET /api"+adminsdk.PathDashboardStats, authn(http.HandlerFunc(s.handleStats)))

	for _, path := range []string{
		adminsdk.PathUsers,
		adminsdk.PathProviders,
		adminsdk.PathLocations,
		adminsdk.PathSpecialties,
		adminsdk.PathAppointments,
	} {
		mux.Handle("GET /api"+path, authn(s.handleList(path)))
		mux.Handle("POST /api"+path, authn(s.handleCreate(path)))
	}
	mux.Handle("GET /api"+adminsdk.PathProviders+"/{id}/time-slots", authn(http.HandlerFunc(s.handleTimeSlots)))

	return s.track(mux)
}

// track records hits, request ids and 401s.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		if id, err := idx.Parse(r.Header.Get("X-Request-ID")); err == nil {
			s.requestIDs = append(s.requestIDs, id.String())
		}
		s.mu.Unlock()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status == http.StatusUnauthorized {
			s.unauthorized.Add(1)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// liveTokens accepts validly signed access tokens that have not been expired
// through ExpireAccessTokens.
type liveTokens struct{ s *Server }

func (l liveTokens) Verify(token string) (jwtx.Claims, error) {
	claims, err := l.s.signer.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}

	l.s.mu.Lock()
	_, ok := l.s.access[token]
	l.s.mu.Unlock()
	if !ok {
		return jwtx.Claims{}, errRevoked
	}
	return claims, nil
}

// ============================================================================
// Test controls
// ============================================================================

// IssueCredentials mints a valid token pair without going through sign-in.
func (s *Server) IssueCredentials() adminsdk.Credentials {
	resp, err := s.issue()
	if err != nil {
		panic(err)
	}
	return resp.Credentials()
}

// ExpireAccessTokens makes every access token issued so far answer 401.
// Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
}

// RevokeRefreshTokens makes every refresh token issued so far rejected.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// FailRefresh makes refresh answer status (e.g. 401 or 503). 0 restores
// normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// HoldRefresh blocks refresh calls until the returned release is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.refreshGate == gate {
				s.refreshGate = nil
				close(gate)
			}
			s.mu.Unlock()
		})
	}
}

// Seed adds records to a collection (adminsdk.PathUsers, ...).
func (s *Server) Seed(path string, records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if _, ok := rec["id"]; !ok {
			rec["id"] = idx.New().String()
		}
		s.collections[path] = append(s.collections[path], rec)
	}
}

// SeedTimeSlots adds time slots to a provider's schedule. Each slot is
// stamped with providerId.
func (s *Server) SeedTimeSlots(providerID string, slots ...map[string]any) {
	for _, slot := range slots {
		slot["providerId"] = providerID
	}
	s.Seed(adminsdk.ProviderTimeSlotsPath(providerID), slots...)
}

// RefreshCalls is the number of refresh requests received.
func (s *Server) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// SignOutCalls is the number of sign-out requests that reached the handler.
func (s *Server) SignOutCalls() int { return int(s.signOutCalls.Load()) }

// Unauthorized is the number of 401 responses sent.
func (s *Server) Unauthorized() int { return int(s.unauthorized.Load()) }

// Hits is the number of requests received for an API path such as
// adminsdk.PathUsers.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits["/api"+path]
}

// RequestIDs lists the well-formed X-Request-ID values seen, in order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// ============================================================================
// Auth handlers
// ============================================================================

func (s *Server) issue() (*adminsdk.AuthResponse, error) {
	access, err := s.signer.Sign(jwtx.NewAccessClaims(s.Admin.ID, s.Admin.Email, s.accessTTL, time.Now()))
	if err != nil {
		return nil, err
	}
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.access[access] = struct{}{}
	s.refresh[cryptox.FingerprintToken(refresh)] = struct{}{}
	s.mu.Unlock()

	return &adminsdk.AuthResponse{AccessToken: access, RefreshToken: refresh, Admin: s.Admin}, nil
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var messages []string
	if req.Email == "" {
		messages = append(messages, "email should not be empty")
	}
	if req.Password == "" {
		messages = append(messages, "password should not be empty")
	}
	if len(messages) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, messages...)
		return
	}

	if req.Email != s.Admin.Email || cryptox.VerifyPassword(req.Password, s.passwordHash) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	resp, err := s.issue()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate, status := s.refreshGate, s.refreshStatus
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		httpx.WriteError(w, status)
		return
	}

	var req adminsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "refreshToken should not be empty")
		return
	}

	// Refresh tokens rotate: each one is good for a single exchange.
	fp := cryptox.FingerprintToken(req.RefreshToken)
	s.mu.Lock()
	_, ok := s.refresh[fp]
	delete(s.refresh, fp)
	s.mu.Unlock()
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	resp, err := s.issue()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.signOutCalls.Add(1)

	var req adminsdk.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	delete(s.refresh, cryptox.FingerprintToken(req.RefreshToken))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}
