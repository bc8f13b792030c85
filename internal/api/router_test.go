package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teaqnet/access-api/internal/core/service"
	"github.com/teaqnet/access-api/internal/infrastructure/db/memory"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "root-pass"
)

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()

	accounts := memory.NewAccountRepository()
	audit := memory.NewAuditRepository()
	sessions := service.NewSessionService(memory.NewSessionStore(), "0123456789abcdef0123456789abcdef", log)
	auth := service.NewAuthService(accounts, audit, sessions, log, service.WithBcryptCost(bcrypt.MinCost))

	_, err := auth.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	e := NewRouter(Dependencies{
		Auth:     auth,
		Sessions: sessions,
		Guard:    service.NewGuard(accounts, sessions, log),
		Admin:    service.NewAdminService(accounts, audit, sessions, log),
		History:  service.NewHistoryService(audit, accounts, log),
		Log:      log,
	})
	return &testServer{e: e}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (s *testServer) login(t *testing.T, email, password string) (string, map[string]any) {
	t.Helper()
	rec, out := s.do(t, http.MethodPost, "/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return out["token"].(string), out["user"].(map[string]any)
}

func (s *testServer) register(t *testing.T, email, password string) (string, string) {
	t.Helper()
	rec, out := s.do(t, http.MethodPost, "/register", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := out["user"].(map[string]any)
	return out["token"].(string), user["id"].(string)
}

func TestRouter_RegisterThenLogin(t *testing.T) {
	s := newTestServer(t)

	_, id := s.register(t, "u1@example.com", "pw123")
	_, user := s.login(t, "u1@example.com", "pw123")

	assert.Equal(t, id, user["id"])
	assert.Equal(t, false, user["is_admin"])
	assert.NotContains(t, user, "password_hash")

	rec, out := s.do(t, http.MethodPost, "/register", "", `{"email":"U1@example.com","password":"pw123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email", out["field"])
}

func TestRouter_SeededAdminLogin(t *testing.T) {
	s := newTestServer(t)

	_, user := s.login(t, adminEmail, adminPassword)
	assert.Equal(t, true, user["is_admin"])

	rec, out := s.do(t, http.MethodPost, "/login", "", `{"email":"`+adminEmail+`","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", out["error"])
}

func TestRouter_RegularUserIsForbiddenFromAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	token, id := s.register(t, "u1@example.com", "pw123")

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/users"},
		{http.MethodGet, "/api/admin/stats"},
		{http.MethodGet, "/api/admin/history"},
		{http.MethodPost, "/api/admin/users/" + id + "/toggle-admin"},
		{http.MethodDelete, "/api/admin/users/" + id},
	}
	for _, r := range routes {
		rec, out := s.do(t, r.method, r.path, token, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, r.path)
		assert.Contains(t, out["error"], "Admin", r.path)
	}
}

func TestRouter_Unauthenticated(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/admin/users", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LogoutEndsSession(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "u1@example.com", "pw123")

	rec, out := s.do(t, http.MethodGet, "/api/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["signed_in"])

	rec, _ = s.do(t, http.MethodPost, "/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminManagesUsers(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, adminEmail, adminPassword)
	_, id := s.register(t, "u1@example.com", "pw123")

	// update email
	rec, _ := s.do(t, http.MethodPut, "/api/admin/users/"+id, adminToken, `{"email":"u1b@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, out := s.do(t, http.MethodGet, "/api/admin/users", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "u1b@example.com")
	assert.NotContains(t, body, `"u1@example.com"`)
	assert.Len(t, out["users"], 2)

	// toggle twice returns to the original role
	rec, out = s.do(t, http.MethodPost, "/api/admin/users/"+id+"/toggle-admin", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["is_admin"])
	rec, out = s.do(t, http.MethodPost, "/api/admin/users/"+id+"/toggle-admin", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["is_admin"])

	// stats stay consistent
	rec, out = s.do(t, http.MethodGet, "/api/admin/stats", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, out["total_users"], out["admin_users"].(float64)+out["regular_users"].(float64))
	assert.Equal(t, float64(2), out["total_users"])

	// delete, then every read is a 404
	rec, _ = s.do(t, http.MethodDelete, "/api/admin/users/"+id, adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/admin/users/"+id, adminToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, http.MethodPut, "/api/admin/users/"+id, adminToken, `{"email":"x@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/admin/users", adminToken, "")
	assert.NotContains(t, rec.Body.String(), id)
}

func TestRouter_AdminCannotTargetSelf(t *testing.T) {
	s := newTestServer(t)
	adminToken, admin := s.login(t, adminEmail, adminPassword)
	id := admin["id"].(string)

	rec, out := s.do(t, http.MethodPost, "/api/admin/users/"+id+"/toggle-admin", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", out["field"])

	rec, _ = s.do(t, http.MethodDelete, "/api/admin/users/"+id, adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_DemotionAppliesToOpenSessions(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, adminEmail, adminPassword)
	_, id := s.register(t, "second@example.com", "pw123")

	rec, _ := s.do(t, http.MethodPost, "/api/admin/users/"+id+"/toggle-admin", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	secondToken, _ := s.login(t, "second@example.com", "pw123")

	rec, _ = s.do(t, http.MethodGet, "/api/admin/users", secondToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/admin/users/"+id+"/toggle-admin", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/admin/users", secondToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_HistoryAndAudit(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, adminEmail, adminPassword)
	token, _ := s.register(t, "u1@example.com", "pw123")

	rec, out := s.do(t, http.MethodPost, "/api/history", token, `{"prediction":"cat","confidence":88}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, out["entry"])

	rec, out = s.do(t, http.MethodGet, "/api/history", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["history"], 1)

	rec, out = s.do(t, http.MethodGet, "/api/admin/history?user_email=u1@example.com", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := out["history"].([]any)
	// registration, prediction
	require.Len(t, history, 2)
	assert.Equal(t, "prediction.recorded", history[0].(map[string]any)["action"])

	rec, _ = s.do(t, http.MethodGet, "/api/admin/history?action=bogus", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/history/report", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv"))
	assert.Contains(t, rec.Body.String(), "prediction=cat")
}

func TestRouter_AccessDecision(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "u1@example.com", "pw123")

	tests := []struct {
		name, token, area string
		decision, target  string
	}{
		{"anonymous", "", "dashboard", "redirect", "/login"},
		{"regular dashboard", token, "dashboard", "allow", ""},
		{"regular admin area", token, "admin", "redirect", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := s.do(t, http.MethodGet, "/api/access?area="+tt.area, tt.token, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.decision, out["decision"])
			if tt.target != "" {
				assert.Equal(t, tt.target, out["redirect_to"])
			}
		})
	}

	rec, _ := s.do(t, http.MethodGet, "/api/access?area=nowhere", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", out["status"])

	rec, _ = s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_http_requests_total")
}
