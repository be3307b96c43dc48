package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

type fakeSessionVerifier struct {
	user    *domain.PublicUser
	session *domain.Session
	err     error
	token   string
}

func (f *fakeSessionVerifier) VerifySession(_ context.Context, token string) (*domain.PublicUser, *domain.Session, error) {
	f.token = token
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.user, f.session, nil
}

func newSigner(t *testing.T) *security.TokenSigner {
	t.Helper()
	signer, err := security.NewTokenSigner([]byte("middleware-test-secret"), "auth-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenSigner returned error: %v", err)
	}
	return signer
}

func issueBearer(t *testing.T, signer *security.TokenSigner, role domain.Role) string {
	t.Helper()
	token, err := signer.Issue(domain.User{ID: "user-1", Username: "alice", Role: role})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return token
}

func identityEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id": identity.UserID,
			"role":    string(identity.Role),
		})
	}
}

func TestRequireBearerMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequireBearer(newSigner(t)))
	router.GET("/", identityEcho())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing header, got %d", rr.Code)
	}
}

func TestRequireBearerMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequireBearer(newSigner(t)))
	router.GET("/", identityEcho())

	for _, header := range []string{"Basic abc", "Bearer", "Bearer  "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rr.Code)
		}
	}
}

func TestRequireBearerRejectsInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequireBearer(newSigner(t)))
	router.GET("/", identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// Present but unverifiable is forbidden, not unauthorized.
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for invalid token, got %d", rr.Code)
	}
}

func TestRequireBearerRejectsExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	signer := newSigner(t)
	base := time.Now().UTC()
	signer.WithClock(func() time.Time { return base })
	token := issueBearer(t, signer, domain.RoleUser)
	signer.WithClock(func() time.Time { return base.Add(2 * time.Hour) })

	router := gin.New()
	router.Use(RequireBearer(signer))
	router.GET("/", identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for expired token, got %d", rr.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != "bearer token expired" {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
}

func TestRequireBearerStoresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	signer := newSigner(t)
	router := gin.New()
	router.Use(RequireBearer(signer))
	router.GET("/", identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueBearer(t, signer, domain.RoleModerator))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["user_id"] != "user-1" || body["role"] != "moderator" {
		t.Fatalf("unexpected identity payload: %v", body)
	}
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	signer := newSigner(t)
	verifier := &fakeSessionVerifier{
		user:    &domain.PublicUser{ID: "user-2", Username: "bob", Role: domain.RoleUser},
		session: &domain.Session{ID: "sess-2", UserID: "user-2"},
	}

	router := gin.New()
	router.Use(OptionalAuth(signer, verifier))
	router.GET("/", func(c *gin.Context) {
		if identity, ok := GetIdentity(c); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": ""})
	})

	// Anonymous requests pass through.
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous request, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["user_id"] != "" {
		t.Fatalf("expected no identity, got %q", body["user_id"])
	}

	// A valid bearer token attaches the identity without consulting sessions.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueBearer(t, signer, domain.RoleUser))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["user_id"] != "user-1" {
		t.Fatalf("expected identity user-1, got %q", body["user_id"])
	}

	// Without a bearer token the session token resolves the identity.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionTokenHeader, "session-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["user_id"] != "user-2" {
		t.Fatalf("expected session identity user-2, got %q", body["user_id"])
	}
	if verifier.token != "session-token" {
		t.Fatalf("expected session token to reach the verifier, got %q", verifier.token)
	}

	// An unverifiable bearer token falls back to the session token.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer junk")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for junk bearer token, got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["user_id"] != "user-2" {
		t.Fatalf("expected fallback identity user-2, got %q", body["user_id"])
	}

	// Failing both credential forms still never blocks the request.
	failing := gin.New()
	failing.Use(OptionalAuth(signer, &fakeSessionVerifier{err: usecase.ErrInvalidSession}))
	failing.GET("/", identityEcho())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer junk")
	req.Header.Set(SessionTokenHeader, "stale-token")
	rr = httptest.NewRecorder()
	failing.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when both credentials fail, got %d", rr.Code)
	}
}

func TestRequireSessionReadsHeaderAndCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := &fakeSessionVerifier{
		user:    &domain.PublicUser{ID: "user-1", Username: "alice", Role: domain.RoleUser},
		session: &domain.Session{ID: "sess-1", UserID: "user-1"},
	}

	router := gin.New()
	router.Use(RequireSession(verifier))
	router.GET("/", func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": session.ID})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionTokenHeader, "header-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 via header, got %d", rr.Code)
	}
	if verifier.token != "header-token" {
		t.Fatalf("expected header token to win, got %q", verifier.token)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d", rr.Code)
	}
	if verifier.token != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", verifier.token)
	}
}

func TestRequireSessionRejections(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{name: "invalid session", err: usecase.ErrInvalidSession, reason: "invalid or expired session"},
		{name: "inactive user", err: usecase.ErrUserInactive, reason: "account is inactive"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequireSession(&fakeSessionVerifier{err: tc.err}))
			router.GET("/", identityEcho())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(SessionTokenHeader, "whatever")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if resp.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, resp.Reason)
			}
		})
	}

	// No token at all.
	router := gin.New()
	router.Use(RequireSession(&fakeSessionVerifier{}))
	router.GET("/", identityEcho())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	signer := newSigner(t)
	router := gin.New()
	router.Use(RequireBearer(signer))
	router.GET("/admin", RequireRole(domain.RoleAdmin), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueBearer(t, signer, domain.RoleUser))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", rr.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Reason == "" {
		t.Fatalf("expected reason naming the required role")
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueBearer(t, signer, domain.RoleAdmin))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d", rr.Code)
	}
}

func TestRequireOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)

	signer := newSigner(t)
	router := gin.New()
	router.Use(RequireBearer(signer))
	router.GET("/users/:id/sessions", RequireOwnership(func(c *gin.Context) string {
		return c.Param("id")
	}), identityEcho())

	// The token's subject is user-1.
	own := issueBearer(t, signer, domain.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/users/user-1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+own)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/users/user-2/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+own)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign resource, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/users/user-2/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+issueBearer(t, signer, domain.RoleAdmin))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin bypass, got %d", rr.Code)
	}
}
